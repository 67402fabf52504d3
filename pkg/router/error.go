package router

import (
	"encoding/json"
	"io"
)

// Error is an error that knows the HTTP status it maps to and how to write
// itself as a response body.
type Error interface {
	error
	StatusCode() int
	Encode(w io.Writer) error
}

// JsonError is the body of every error response: {"code": 400, "error": "..."}.
type JsonError struct {
	Code int    `json:"code"`
	Err  string `json:"error"`
}

func NewJsonError(code int, err string) JsonError {
	return JsonError{
		Code: code,
		Err:  err,
	}
}

func (e JsonError) StatusCode() int {
	return e.Code
}

func (e JsonError) Error() string {
	return e.Err
}

// Encode writes e as JSON followed by a newline.
func (e JsonError) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(e)
}
