package router

import (
	"encoding/json"
	"io"
	"net/http"
)

func DecodeJson(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

func WriteJson(w http.ResponseWriter, v any) error {
	return WriteJsonWithStatusCode(w, v, http.StatusOK)
}

func WriteJsonWithStatusCode(w http.ResponseWriter, v any, code int) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
