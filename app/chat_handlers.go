package chatter

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/router"
	"github.com/putto11262002/roomchat/widget"
)

// maxMessageBody bounds a single POST. Attachments travel inline as data URLs.
const maxMessageBody = 32 << 20

var errInvalidRoomID = router.NewJsonError(http.StatusBadRequest, "room id must be an integer")

type ChatHandler struct {
	chatStore core.ChatStore
	emitter   *core.EventEmitter
	listeners *core.ConnManager
	renderer  *widget.Renderer
	logger    *slog.Logger
}

func NewChatHandler(chatStore core.ChatStore, emitter *core.EventEmitter, listeners *core.ConnManager,
	renderer *widget.Renderer, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chatStore: chatStore,
		emitter:   emitter,
		listeners: listeners,
		renderer:  renderer,
		logger:    logger,
	}
}

func roomIDParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "roomID"))
	if err != nil {
		return 0, errInvalidRoomID
	}
	return id, nil
}

func (h *ChatHandler) chatLog(r *http.Request) (*core.ChatLog, error) {
	roomID, err := roomIDParam(r)
	if err != nil {
		return nil, err
	}
	room, err := h.chatStore.GetRoom(r.Context(), roomID)
	if err != nil {
		return nil, err
	}
	messages, err := h.chatStore.GetRoomMessages(r.Context(), roomID)
	if err != nil {
		return nil, err
	}
	return &core.ChatLog{Messages: messages, ChannelName: room.ChannelName}, nil
}

func (h *ChatHandler) GetChatHandler(w http.ResponseWriter, r *http.Request) error {
	log, err := h.chatLog(r)
	if err != nil {
		return err
	}
	return router.WriteJson(w, log)
}

// GetFragmentHandler renders the messages of a room the way the widget shows them.
// Timestamps are shown unless ?timestamps=false.
func (h *ChatHandler) GetFragmentHandler(w http.ResponseWriter, r *http.Request) error {
	log, err := h.chatLog(r)
	if err != nil {
		return err
	}
	opts := widget.RenderOptions{ShowTimestamps: r.URL.Query().Get("timestamps") != "false"}
	html, err := h.renderer.Messages(log.Messages, opts)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = io.WriteString(w, html)
	return err
}

// PostChatHandler appends a message, or renames the room when the body
// carries nothing but a channel_name.
func (h *ChatHandler) PostChatHandler(w http.ResponseWriter, r *http.Request) error {
	roomID, err := roomIDParam(r)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBody))
	if err != nil {
		return router.NewJsonError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	r.Body.Close()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return router.NewJsonError(http.StatusBadRequest, "invalid json body")
	}
	if _, ok := fields["channel_name"]; ok && len(fields) == 1 {
		return h.rename(w, r, roomID, body)
	}

	var input core.MessageCreateInput
	if err := router.DecodeJson(bytes.NewReader(body), &input); err != nil {
		return router.NewJsonError(http.StatusBadRequest, "invalid message body")
	}

	message, err := h.chatStore.AppendMessage(r.Context(), roomID, input)
	if err != nil {
		return err
	}
	h.emitRoomUpdated(roomID, "", message.UID)

	return router.WriteJsonWithStatusCode(w,
		core.MessageCreatedResponse{Success: true, Message: *message}, http.StatusCreated)
}

func (h *ChatHandler) rename(w http.ResponseWriter, r *http.Request, roomID int, body []byte) error {
	var input core.RenameRoomInput
	if err := json.Unmarshal(body, &input); err != nil {
		return router.NewJsonError(http.StatusBadRequest, "channel_name must be a string")
	}
	room, err := h.chatStore.RenameRoom(r.Context(), roomID, input.ChannelName)
	if err != nil {
		return err
	}
	h.emitRoomUpdated(roomID, room.ChannelName, -1)
	return router.WriteJson(w, core.RenameRoomInput{ChannelName: room.ChannelName})
}

// WatchHandler upgrades the request to a websocket that receives room_updated events.
func (h *ChatHandler) WatchHandler(w http.ResponseWriter, r *http.Request) error {
	roomID, err := roomIDParam(r)
	if err != nil {
		return err
	}
	if roomID < 0 {
		return core.ErrInvalidRoom
	}
	// the upgrader has already written the response on failure
	if err := h.listeners.Connect(roomID, w, r); err != nil {
		h.logger.Debug("watch upgrade failed", slog.Int("room", roomID), slog.String("err", err.Error()))
	}
	return nil
}

func (h *ChatHandler) emitRoomUpdated(roomID int, channelName string, lastUID int) {
	payload := core.RoomUpdatedPayload{RoomID: roomID, ChannelName: channelName, LastUID: lastUID}
	if err := h.emitter.EmitTo(core.RoomUpdatedEvent, payload, roomID); err != nil {
		h.logger.Error("emit room updated", slog.Int("room", roomID), slog.String("err", err.Error()))
	}
}
