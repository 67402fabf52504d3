package chatter

import (
	"log/slog"
	"net/http"
	"slices"
)

func (a *App) onListenerOpened(roomID int, id string) {
	a.logger.Debug("room listener connected", slog.Int("room", roomID), slog.String("conn", id),
		slog.Int("listeners", a.wsManager.Listeners(roomID)))
}

func (a *App) onListenerClosed(roomID int, id string) {
	a.logger.Debug("room listener disconnected", slog.Int("room", roomID), slog.String("conn", id),
		slog.Int("listeners", a.wsManager.Listeners(roomID)))
}

// checkOrigin accepts websocket upgrades from the origins allowed for CORS.
// Requests without an Origin header come from non-browser clients.
func (a *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(a.config.AllowedOrigins, "*") ||
		slices.Contains(a.config.AllowedOrigins, origin)
}
