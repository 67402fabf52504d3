package widget

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/gif"
	"github.com/putto11262002/roomchat/settings"
	"github.com/stretchr/testify/require"
)

var baseTimeout = time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAPI is an in-memory chat API that records every request it serves.
type fakeAPI struct {
	mu        sync.Mutex
	rooms     map[int]*core.ChatLog
	gets      map[int]int
	posts     []core.MessageCreateInput
	requests  int
	failPosts bool
	gifs      []gif.GIF
	// gates hold reads of a room until the channel is closed.
	gates   map[int]chan struct{}
	reading chan int

	cm      *core.ConnManager
	emitter *core.EventEmitter
	server  *httptest.Server
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func newFakeAPI(t *testing.T) *fakeAPI {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeAPI{
		rooms:   make(map[int]*core.ChatLog),
		gets:    make(map[int]int),
		gates:   make(map[int]chan struct{}),
		reading: make(chan int, 16),
		cancel:  cancel,
	}
	f.cm = core.NewConnManager(ctx, &f.wg, discardLogger())
	f.emitter = core.NewEventEmitter(f.cm)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v0/chats/{id}", f.handleGet)
	mux.HandleFunc("POST /api/v0/chats/{id}", f.handlePost)
	mux.HandleFunc("GET /api/v0/chats/{id}/ws", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(r.PathValue("id"))
		f.cm.Connect(id, w, r)
	})
	mux.HandleFunc("GET /api/v0/gifs/search", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests++
		json.NewEncoder(w).Encode(gif.SearchResult{Data: f.gifs})
	})
	f.server = httptest.NewServer(mux)

	t.Cleanup(func() {
		cancel()
		f.server.Close()
		f.wg.Wait()
	})
	return f
}

func (f *fakeAPI) base() string {
	return f.server.URL + "/api/v0/chats"
}

func (f *fakeAPI) roomLocked(id int) *core.ChatLog {
	log, ok := f.rooms[id]
	if !ok {
		log = &core.ChatLog{Messages: []core.Message{}}
		f.rooms[id] = log
	}
	return log
}

func (f *fakeAPI) seed(roomID int, texts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	log := f.roomLocked(roomID)
	for _, text := range texts {
		log.Messages = append(log.Messages, core.Message{
			UID:      len(log.Messages),
			Username: "bob",
			UserType: core.UserTypeOthers,
			Message:  text,
			Time:     "10:00",
			Date:     "01/01/2024",
		})
	}
}

func (f *fakeAPI) gate(roomID int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[roomID] = ch
	return ch
}

func (f *fakeAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests++
	f.gets[id]++
	gate := f.gates[id]
	f.mu.Unlock()

	if gate != nil {
		f.reading <- id
		<-gate
	}

	f.mu.Lock()
	body, _ := json.Marshal(f.roomLocked(id))
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (f *fakeAPI) handlePost(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.failPosts {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"code":500,"error":"internal server error"}`))
		return
	}

	log := f.roomLocked(id)
	if strings.Contains(string(body), `"channel_name"`) && !strings.Contains(string(body), `"username"`) {
		var in core.RenameRoomInput
		json.Unmarshal(body, &in)
		log.ChannelName = strings.TrimSpace(in.ChannelName)
		json.NewEncoder(w).Encode(core.RenameRoomInput{ChannelName: log.ChannelName})
		return
	}

	var in core.MessageCreateInput
	json.Unmarshal(body, &in)
	f.posts = append(f.posts, in)
	msg := core.Message{
		UID:       len(log.Messages),
		Username:  in.Username,
		UserType:  in.UserType,
		Message:   in.Message,
		Time:      "12:00",
		Date:      "02/02/2024",
		MediaType: in.MediaType,
		MediaURL:  in.MediaURL,
	}
	log.Messages = append(log.Messages, msg)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(core.MessageCreatedResponse{Success: true, Message: msg})
}

func (f *fakeAPI) getCount(roomID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets[roomID]
}

func (f *fakeAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeAPI) postedInputs() []core.MessageCreateInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.MessageCreateInput(nil), f.posts...)
}

// recordingView keeps the latest state drawn by the controller.
type recordingView struct {
	mu          sync.Mutex
	messages    string
	renders     int
	active      map[int]bool
	rooms       []int
	placeholder string
	charCount   int
	clock       string
	mode        Mode
	cleared     int
	alerts      []string
	effects     []settings.Effects
	typing      string
}

func newRecordingView(rooms ...int) *recordingView {
	return &recordingView{rooms: rooms, active: make(map[int]bool)}
}

func (v *recordingView) ApplyEffects(e settings.Effects) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.effects = append(v.effects, e)
}

func (v *recordingView) ShowTyping(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = text
}

func (v *recordingView) HideTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = ""
}

func (v *recordingView) SetMessages(html string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = html
	v.renders++
}

func (v *recordingView) SetActiveRoom(roomID int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range v.rooms {
		v.active[id] = id == roomID
	}
}

func (v *recordingView) SetChannelPlaceholder(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.placeholder = name
}

func (v *recordingView) SetCharCount(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.charCount = n
}

func (v *recordingView) SetClock(hhmm string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clock = hhmm
}

func (v *recordingView) SetMode(mode Mode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
}

func (v *recordingView) ClearDraft() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleared++
}

func (v *recordingView) Alert(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, msg)
}

func (v *recordingView) html() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.messages
}

func (v *recordingView) activeRooms() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	var ids []int
	for _, id := range v.rooms {
		if v.active[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func (v *recordingView) alertCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.alerts)
}

type widgetFixture struct {
	api        *fakeAPI
	view       *recordingView
	controller *Controller
	ctx        context.Context
}

func newWidgetFixture(t *testing.T, cfg Config) *widgetFixture {
	api := newFakeAPI(t)
	renderer, err := NewRenderer()
	require.NoError(t, err)
	if cfg.Rooms == nil {
		cfg.Rooms = []int{1, 2, 3}
	}
	view := newRecordingView(cfg.Rooms...)
	client := NewClient(api.base(), WithClientLogger(discardLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	c := NewController(cfg, client, renderer, view, WithLogger(discardLogger()))
	t.Cleanup(func() {
		cancel()
		c.Wait()
	})
	return &widgetFixture{api: api, view: view, controller: c, ctx: ctx}
}
