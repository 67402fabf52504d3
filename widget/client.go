package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/gif"
)

// StatusError is returned when the chat API answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

// Client talks to the chat API. Rooms live at {base}/{roomID}.
type Client struct {
	base   string
	gifURL string
	http   *http.Client
	logger *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithGIFSearchURL sets the GIF search endpoint. By default it is derived from the base URL.
func WithGIFSearchURL(u string) ClientOption {
	return func(c *Client) {
		c.gifURL = u
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns a client for the rooms under base, e.g. http://localhost:8080/api/v0/chats.
func NewClient(base string, opts ...ClientOption) *Client {
	base = strings.TrimSuffix(base, "/")
	c := &Client{
		base:   base,
		gifURL: strings.TrimSuffix(base, "/chats") + "/gifs/search",
		http:   http.DefaultClient,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) RoomURL(roomID int) string {
	return c.base + "/" + strconv.Itoa(roomID)
}

// WatchURL is the websocket endpoint that notifies about updates of a room.
func (c *Client) WatchURL(roomID int) string {
	u := c.RoomURL(roomID) + "/ws"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// FetchRoom reads a room. Failures are logged and read as an empty room.
func (c *Client) FetchRoom(ctx context.Context, roomID int) core.ChatLog {
	log := core.ChatLog{Messages: []core.Message{}}
	body, err := c.FetchRaw(ctx, roomID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Error("failed to fetch messages", slog.Int("room", roomID), slog.String("error", err.Error()))
		}
		return log
	}
	if err := json.Unmarshal(body, &log); err != nil {
		c.logger.Error("failed to decode messages", slog.Int("room", roomID), slog.String("error", err.Error()))
		return core.ChatLog{Messages: []core.Message{}}
	}
	if log.Messages == nil {
		log.Messages = []core.Message{}
	}
	return log
}

// FetchRaw returns the body of a room read as sent by the server.
func (c *Client) FetchRaw(ctx context.Context, roomID int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RoomURL(roomID), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// PostMessage appends a message to a room and returns the stored record.
func (c *Client) PostMessage(ctx context.Context, roomID int, input core.MessageCreateInput) (*core.Message, error) {
	var res core.MessageCreatedResponse
	if err := c.postJSON(ctx, c.RoomURL(roomID), input, &res); err != nil {
		return nil, err
	}
	return &res.Message, nil
}

// RenameRoom sets the channel name of a room and returns the name the server stored.
func (c *Client) RenameRoom(ctx context.Context, roomID int, name string) (string, error) {
	var res core.RenameRoomInput
	if err := c.postJSON(ctx, c.RoomURL(roomID), core.RenameRoomInput{ChannelName: name}, &res); err != nil {
		return "", err
	}
	return res.ChannelName, nil
}

func (c *Client) SearchGIFs(ctx context.Context, query string, limit int) ([]gif.GIF, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gifURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var res gif.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode gifs: %w", err)
	}
	return res.Data, nil
}

func (c *Client) postJSON(ctx context.Context, u string, body any, dest any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var body struct {
		Error string `json:"error"`
	}
	json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}
