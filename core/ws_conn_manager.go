package core

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// ConnManager keeps the websocket listeners of every room and fans events out to them.
type ConnManager struct {
	conns   map[int][]*Conn
	mu      sync.RWMutex
	connWg  *sync.WaitGroup
	context context.Context
	logger  *slog.Logger

	onConnectionOpened func(roomID int, id string)
	onConnectionClosed func(roomID int, id string)

	upgrader        websocket.Upgrader
	WriteStreamSize int
}

var defaultUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ManagerOption func(*ConnManager)

func WithCheckOrigin(f func(r *http.Request) bool) ManagerOption {
	return func(m *ConnManager) {
		m.upgrader.CheckOrigin = f
	}
}

func NewConnManager(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, opts ...ManagerOption) *ConnManager {
	m := &ConnManager{
		connWg:             wg,
		conns:              make(map[int][]*Conn),
		logger:             logger,
		context:            ctx,
		upgrader:           defaultUpgrader,
		WriteStreamSize:    16,
		onConnectionOpened: func(int, string) {},
		onConnectionClosed: func(int, string) {},
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *ConnManager) OnConnectionOpened(f func(int, string)) {
	m.onConnectionOpened = f
}

func (m *ConnManager) OnConnectionClosed(f func(int, string)) {
	m.onConnectionClosed = f
}

// Listeners returns the number of open connections listening to a room.
func (m *ConnManager) Listeners(roomID int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns[roomID])
}

// Connect upgrades the request and subscribes the connection to the room.
func (m *ConnManager) Connect(roomID int, w http.ResponseWriter, r *http.Request) error {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	id := uuid.New().String()
	wsConn := &Conn{
		roomID:      roomID,
		id:          id,
		conn:        conn,
		context:     m.context,
		writeStream: make(chan *Event, m.WriteStreamSize),
		ticker:      time.NewTicker(pingPeriod),
		logger:      m.logger.With(slog.Int("room", roomID), slog.String("connection", id)),
		notifyDisconnect: func() {
			m.disconnect(roomID, id)
		},
	}

	m.mu.Lock()
	m.conns[roomID] = append(m.conns[roomID], wsConn)
	m.mu.Unlock()

	m.connWg.Add(2)
	go func() {
		defer m.connWg.Done()
		wsConn.readLoop()
	}()
	go func() {
		defer m.connWg.Done()
		wsConn.writeLoop()
	}()

	m.onConnectionOpened(roomID, id)
	return nil
}

func (m *ConnManager) disconnect(roomID int, id string) {
	m.mu.Lock()
	conns, ok := m.conns[roomID]
	if !ok {
		m.mu.Unlock()
		return
	}

	idx := slices.IndexFunc(conns, func(c *Conn) bool { return c.id == id })
	if idx < 0 {
		m.mu.Unlock()
		return
	}
	conns[idx].close()
	conns = slices.Delete(conns, idx, idx+1)
	if len(conns) == 0 {
		delete(m.conns, roomID)
	} else {
		m.conns[roomID] = conns
	}
	m.mu.Unlock()

	m.onConnectionClosed(roomID, id)
}

// SendToRooms queues the event on every listener of the rooms.
// Listeners whose queue is full miss the event; events only signal that a room
// should be re-read, so a later event covers the missed one.
func (m *ConnManager) SendToRooms(e *Event, rooms ...int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, roomID := range rooms {
		for _, conn := range m.conns[roomID] {
			select {
			case conn.writeStream <- e:
			default:
				conn.logger.Warn("write stream full, dropping event")
			}
		}
	}
}
