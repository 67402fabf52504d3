package widget

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/putto11262002/roomchat/core"
)

// poll re-reads a room every poll interval until ctx is done. The first read
// happens one interval after the start, the immediate read belongs to the caller.
func (c *Controller) poll(ctx context.Context, roomID int, gen uint64) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refreshRoom(ctx, roomID, gen)
		}
	}
}

// watch listens for update events of a room and re-reads the room on each of
// them until ctx is done. A failed subscription is logged and polling carries on.
func (c *Controller) watch(ctx context.Context, roomID int, gen uint64) {
	defer c.wg.Done()
	logger := c.logger.With(slog.Int("room", roomID))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.client.WatchURL(roomID), nil)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("failed to subscribe to room updates", slog.String("error", err.Error()))
		}
		return
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		case <-done:
		}
		conn.Close()
	}()

	for {
		var e core.Event
		if err := conn.ReadJSON(&e); err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("room updates closed", slog.String("error", err.Error()))
			}
			return
		}
		if e.Type == core.RoomUpdatedEvent {
			c.refreshRoom(ctx, roomID, gen)
		}
	}
}
