package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/gif"
	"github.com/putto11262002/roomchat/settings"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultUsername     = "user"
	GIFSearchLimit      = 20
)

var ErrNoRoom = errors.New("no room selected")

type Config struct {
	// Username is used when the settings carry no username.
	Username string
	// Rooms are the rooms offered by the room selector. Selecting any other
	// room is ignored. Empty allows every room.
	Rooms []int
	// PollInterval is the time between two reads of the current room.
	PollInterval time.Duration
	// Watch subscribes to the room's websocket and re-reads the room on every update.
	Watch bool
	// ExportDir is where Export writes room dumps.
	ExportDir string
}

// State is the widget state owned by a Controller.
type State struct {
	Room         int
	HasRoom      bool
	ChannelNames map[int]string
	Messages     []core.Message
	Attachments  []Attachment
	GIF          *gif.GIF
	Mode         Mode
}

// Controller drives a View from user actions and from the chat API.
// All state mutations happen under one mutex; network calls are made without it.
type Controller struct {
	mu       sync.Mutex
	cfg      Config
	client   *Client
	renderer *Renderer
	view     View
	logger   *slog.Logger
	settings *settings.Manager
	typing   *settings.TypingIndicator
	notifier settings.Notifier
	newNonce func() string
	now      func() time.Time

	state          State
	showTimestamps bool
	// gen changes every time the current room changes. Reads started for an
	// older generation are discarded.
	gen      uint64
	base     context.Context
	stopRoom context.CancelFunc
	wg       sync.WaitGroup
}

type ControllerOption func(*Controller)

func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithNotifier(n settings.Notifier) ControllerOption {
	return func(c *Controller) {
		c.notifier = n
	}
}

func NewController(cfg Config, client *Client, renderer *Renderer, view View, opts ...ControllerOption) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}
	c := &Controller{
		cfg:      cfg,
		client:   client,
		renderer: renderer,
		view:     view,
		logger:   slog.Default(),
		newNonce: uuid.NewString,
		now:      time.Now,
		state: State{
			ChannelNames: make(map[int]string),
			Mode:         ModeChat,
		},
		showTimestamps: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UseSettings binds the settings that provide the username, the typing
// indicator and notification gating.
func (c *Controller) UseSettings(m *settings.Manager) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = m
	c.typing = settings.NewTypingIndicator(m, c.view)
}

// ApplyEffects forwards settings effects to the view and re-renders the
// current messages when timestamp visibility changed.
func (c *Controller) ApplyEffects(e settings.Effects) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.ApplyEffects(e)
	if c.showTimestamps == e.ShowTimestamps {
		return
	}
	c.showTimestamps = e.ShowTimestamps
	if c.state.HasRoom && c.state.Messages != nil {
		c.renderLocked(c.state.Messages)
	}
}

// Start renders the current room and keeps it fresh until ctx is done.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.base = ctx
	c.view.SetMode(c.state.Mode)
	c.restartRoomLocked()
	c.mu.Unlock()

	clock := NewClock(c.view.SetClock)
	clock.now = c.now
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		clock.Run(ctx)
	}()

	c.Refresh(ctx)
}

// Wait blocks until every background loop started by Start has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
	if c.typing != nil {
		c.typing.Stop()
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.ChannelNames = make(map[int]string, len(c.state.ChannelNames))
	for k, v := range c.state.ChannelNames {
		s.ChannelNames[k] = v
	}
	s.Messages = slices.Clone(c.state.Messages)
	s.Attachments = slices.Clone(c.state.Attachments)
	return s
}

// Offers reports whether roomID is one of the rooms of the room selector.
func (c *Controller) Offers(roomID int) bool {
	return len(c.cfg.Rooms) == 0 || slices.Contains(c.cfg.Rooms, roomID)
}

// SelectRoom makes roomID the current room and renders it.
func (c *Controller) SelectRoom(ctx context.Context, roomID int) {
	if !c.Offers(roomID) {
		c.logger.Debug("ignoring unknown room", slog.Int("room", roomID))
		return
	}
	c.mu.Lock()
	c.state.Room, c.state.HasRoom = roomID, true
	c.state.Messages = nil
	c.gen++
	c.view.SetActiveRoom(roomID)
	c.view.SetChannelPlaceholder(c.placeholderLocked(roomID))
	c.restartRoomLocked()
	gen := c.gen
	c.mu.Unlock()

	c.refreshRoom(ctx, roomID, gen)
}

// Refresh reads the current room and renders it. Without a current room the
// placeholder is shown and nothing is read.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	if !c.state.HasRoom {
		html, err := c.renderer.NoRoom()
		if err != nil {
			c.logger.Error("failed to render placeholder", slog.String("error", err.Error()))
		} else {
			c.view.SetMessages(html)
		}
		c.mu.Unlock()
		return
	}
	room, gen := c.state.Room, c.gen
	c.mu.Unlock()

	c.refreshRoom(ctx, room, gen)
}

func (c *Controller) refreshRoom(ctx context.Context, roomID int, gen uint64) {
	log := c.client.FetchRoom(ctx, roomID)
	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("discarding stale read", slog.Int("room", roomID))
		return
	}
	if log.ChannelName != "" && log.ChannelName != c.state.ChannelNames[roomID] {
		c.state.ChannelNames[roomID] = log.ChannelName
		c.view.SetChannelPlaceholder(log.ChannelName)
	}
	c.state.Messages = log.Messages
	c.renderLocked(log.Messages)
}

func (c *Controller) renderLocked(messages []core.Message) {
	html, err := c.renderer.Messages(messages, RenderOptions{ShowTimestamps: c.showTimestamps})
	if err != nil {
		c.logger.Error("failed to render messages", slog.String("error", err.Error()))
		return
	}
	c.view.SetMessages(html)
}

func (c *Controller) placeholderLocked(roomID int) string {
	if name := c.state.ChannelNames[roomID]; name != "" {
		return name
	}
	return fmt.Sprintf("Room %d", roomID)
}

// restartRoomLocked stops the loops of the previous room and, once started,
// runs new ones for the current room.
func (c *Controller) restartRoomLocked() {
	if c.stopRoom != nil {
		c.stopRoom()
		c.stopRoom = nil
	}
	if c.base == nil || !c.state.HasRoom {
		return
	}
	ctx, cancel := context.WithCancel(c.base)
	c.stopRoom = cancel
	room, gen := c.state.Room, c.gen

	c.wg.Add(1)
	go c.poll(ctx, room, gen)
	if c.cfg.Watch {
		c.wg.Add(1)
		go c.watch(ctx, room, gen)
	}
}

// Rename sets the channel name of the current room. Blank names are ignored.
func (c *Controller) Rename(ctx context.Context, name string) bool {
	name = strings.TrimSpace(name)
	c.mu.Lock()
	room, has := c.state.Room, c.state.HasRoom
	c.mu.Unlock()
	if name == "" || !has {
		return false
	}

	stored, err := c.client.RenameRoom(ctx, room, name)
	if err != nil {
		c.logger.Error("failed to rename room", slog.Int("room", room), slog.String("error", err.Error()))
		c.view.Alert("Failed to rename channel. Please try again.")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ChannelNames[room] = stored
	if c.state.HasRoom && c.state.Room == room {
		c.view.SetChannelPlaceholder(stored)
	}
	return true
}

// Typing reports a change of the draft text.
func (c *Controller) Typing(draft string) {
	c.view.SetCharCount(CharCount(draft))
	c.mu.Lock()
	typing := c.typing
	c.mu.Unlock()
	if typing != nil {
		typing.Typing()
	}
}

func (c *Controller) AddAttachment(a Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Attachments = append(c.state.Attachments, a)
}

func (c *Controller) SelectGIF(g gif.GIF) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.GIF = &g
}

// SetMode selects the composer mode.
func (c *Controller) SetMode(m Mode) {
	if m != ModeChat && m != ModeShare {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Mode = m
	c.view.SetMode(m)
}

// SearchGIFs searches GIFs through the server. Failures are alerted and read as no results.
func (c *Controller) SearchGIFs(ctx context.Context, query string) []gif.GIF {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	gifs, err := c.client.SearchGIFs(ctx, query, GIFSearchLimit)
	if err != nil {
		c.logger.Error("failed to search gifs", slog.String("query", query), slog.String("error", err.Error()))
		c.view.Alert("Failed to load GIFs. Please try again.")
		return nil
	}
	return gifs
}

// Send posts the text, every attachment and the selected GIF to the current
// room, in that order, and re-reads the room once. It returns false without
// any request when there is nothing to send or no current room.
func (c *Controller) Send(ctx context.Context, text string, userType core.UserType) bool {
	c.mu.Lock()
	room, has := c.state.Room, c.state.HasRoom
	attachments := slices.Clone(c.state.Attachments)
	selected := c.state.GIF
	c.mu.Unlock()

	blank := strings.TrimSpace(text) == ""
	if !has || (blank && len(attachments) == 0 && selected == nil) {
		return false
	}

	username := c.username()
	var inputs []core.MessageCreateInput
	if !blank {
		inputs = append(inputs, core.MessageCreateInput{
			Username: username,
			UserType: userType,
			Message:  text,
			Nonce:    c.newNonce(),
		})
	}
	for _, a := range attachments {
		inputs = append(inputs, a.Input(username, userType, c.newNonce()))
	}
	if selected != nil {
		inputs = append(inputs, core.MessageCreateInput{
			Username:  username,
			UserType:  userType,
			MediaType: core.MediaImage,
			MediaURL:  core.NullableString(selected.URL),
			FileName:  selected.Title,
			Nonce:     c.newNonce(),
		})
	}

	for _, input := range inputs {
		if _, err := c.client.PostMessage(ctx, room, input); err != nil {
			c.logger.Error("failed to send message", slog.Int("room", room), slog.String("error", err.Error()))
			c.view.Alert("Failed to send message. Please try again.")
			return false
		}
	}

	c.mu.Lock()
	c.state.Attachments = nil
	c.state.GIF = nil
	c.view.ClearDraft()
	c.view.SetCharCount(0)
	gen, current := c.gen, c.state.HasRoom && c.state.Room == room
	c.mu.Unlock()

	if current {
		c.refreshRoom(ctx, room, gen)
	}
	return true
}

func (c *Controller) username() string {
	c.mu.Lock()
	m := c.settings
	c.mu.Unlock()
	if m == nil {
		return c.cfg.Username
	}
	return m.Current().DisplayName(c.cfg.Username)
}

// Export writes the current room, as returned by the server, to
// chat_<room>_<unix ms>.json in the export directory and returns its path.
func (c *Controller) Export(ctx context.Context) (string, error) {
	c.mu.Lock()
	room, has := c.state.Room, c.state.HasRoom
	c.mu.Unlock()
	if !has {
		c.view.Alert("Please select a chat room first!")
		return "", ErrNoRoom
	}

	path, err := c.export(ctx, room)
	if err != nil {
		c.logger.Error("failed to export room", slog.Int("room", room), slog.String("error", err.Error()))
		c.notify("Data Export", "Failed to download chat data")
		return "", err
	}
	c.notify("Data Export", "Chat data downloaded successfully!")
	return path, nil
}

func (c *Controller) export(ctx context.Context, room int) (string, error) {
	raw, err := c.client.FetchRaw(ctx, room)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "", fmt.Errorf("indent export: %w", err)
	}
	path := filepath.Join(c.cfg.ExportDir, fmt.Sprintf("chat_%d_%d.json", room, c.now().UnixMilli()))
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

func (c *Controller) notify(title, body string) {
	c.mu.Lock()
	m, n := c.settings, c.notifier
	c.mu.Unlock()
	if m != nil && n != nil {
		m.Notify(n, title, body)
	}
}
