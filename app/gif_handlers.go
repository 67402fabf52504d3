package chatter

import (
	"net/http"
	"strconv"

	"github.com/putto11262002/roomchat/pkg/gif"
	"github.com/putto11262002/roomchat/pkg/router"
)

type GIFHandler struct {
	client *gif.Client
}

// NewGIFHandler returns a handler that proxies searches to client.
// A nil client answers every search with 503.
func NewGIFHandler(client *gif.Client) *GIFHandler {
	return &GIFHandler{client: client}
}

func (h *GIFHandler) SearchHandler(w http.ResponseWriter, r *http.Request) error {
	if h.client == nil {
		return router.NewJsonError(http.StatusServiceUnavailable, "gif search is not configured")
	}
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))

	res, err := h.client.Search(r.Context(), query.Get("q"), limit)
	if err != nil {
		return err
	}
	return router.WriteJson(w, res)
}
