// Package settings holds the widget's client-side preferences, their
// persistence and the visual effects derived from them.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// StorageKey is the single key the whole settings mapping is stored under.
const StorageKey = "chatSettings"

type Settings struct {
	// General
	Username      *string `json:"username"`
	StatusMessage string  `json:"statusMessage"`

	// Privacy
	ShowOnline      bool `json:"showOnline"`
	ReadReceipts    bool `json:"readReceipts"`
	TypingIndicator bool `json:"typingIndicator"`
	LastSeen        bool `json:"lastSeen"`

	// Notifications
	Notifications        bool `json:"notifications"`
	SoundNotifications   bool `json:"soundNotifications"`
	DesktopNotifications bool `json:"desktopNotifications"`
	MentionNotifications bool `json:"mentionNotifications"`

	// Chat
	FontSize       string `json:"fontSize"`
	MessageDisplay string `json:"messageDisplay"`
	EnterToSend    bool   `json:"enterToSend"`
	ShowTimestamps bool   `json:"showTimestamps"`
	GroupMessages  bool   `json:"groupMessages"`

	// Appearance
	Theme string `json:"theme"`

	// Personalization
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	UserColor      string `json:"userColor"`
	OthersColor    string `json:"othersColor"`

	// Data
	AutoDownload bool `json:"autoDownload"`
	SaveHistory  bool `json:"saveHistory"`
}

// Defaults returns the settings used when nothing has been stored.
func Defaults() Settings {
	return Settings{
		Username:             nil,
		StatusMessage:        "",
		ShowOnline:           true,
		ReadReceipts:         true,
		TypingIndicator:      true,
		LastSeen:             false,
		Notifications:        true,
		SoundNotifications:   true,
		DesktopNotifications: false,
		MentionNotifications: true,
		FontSize:             "medium",
		MessageDisplay:       "cozy",
		EnterToSend:          true,
		ShowTimestamps:       true,
		GroupMessages:        true,
		Theme:                "dark",
		PrimaryColor:         "#66CCDA",
		SecondaryColor:       "#0394BB",
		UserColor:            "#DD8E32",
		OthersColor:          "#13801D",
		AutoDownload:         false,
		SaveHistory:          true,
	}
}

// DisplayName is the username, or fallback when none is set.
func (s Settings) DisplayName(fallback string) string {
	if s.Username == nil || *s.Username == "" {
		return fallback
	}
	return *s.Username
}

// Applier receives the effects of the settings every time they are loaded or saved.
type Applier interface {
	ApplyEffects(Effects)
}

// Manager owns the in-memory settings and keeps them in sync with a Store.
type Manager struct {
	mu      sync.RWMutex
	store   Store
	applier Applier
	logger  *slog.Logger
	current Settings
}

func NewManager(store Store, applier Applier, logger *slog.Logger) *Manager {
	return &Manager{
		store:   store,
		applier: applier,
		logger:  logger,
		current: Defaults(),
	}
}

// Load merges the stored settings over the defaults, keeping stored values per key,
// and applies the result. Unreadable or malformed stored data is logged and ignored.
// A value of the wrong type only loses its own key.
func (m *Manager) Load(ctx context.Context) Settings {
	merged := Defaults()

	data, ok, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		m.logger.Error("failed to read settings", slog.String("error", err.Error()))
	} else if ok {
		var stored map[string]json.RawMessage
		if err := json.Unmarshal(data, &stored); err != nil {
			m.logger.Warn("ignoring malformed settings", slog.String("error", err.Error()))
		} else {
			merged = mergeStored(merged, stored, m.logger)
		}
	}

	m.mu.Lock()
	m.current = merged
	m.mu.Unlock()

	m.apply(merged)
	return merged
}

// mergeStored decodes each stored key over base on its own.
func mergeStored(base Settings, stored map[string]json.RawMessage, logger *slog.Logger) Settings {
	for key, value := range stored {
		field, err := json.Marshal(map[string]json.RawMessage{key: value})
		if err != nil {
			continue
		}
		candidate := base
		if err := json.Unmarshal(field, &candidate); err != nil {
			logger.Warn("ignoring stored setting", slog.String("key", key), slog.String("error", err.Error()))
			continue
		}
		base = candidate
	}
	return base
}

// Save writes the whole current settings to the store and reapplies their effects.
func (m *Manager) Save(ctx context.Context) error {
	current := m.Current()
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := m.store.Put(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	m.apply(current)
	return nil
}

// Update mutates the in-memory settings with fn and saves them.
func (m *Manager) Update(ctx context.Context, fn func(*Settings)) error {
	m.mu.Lock()
	fn(&m.current)
	m.mu.Unlock()
	return m.Save(ctx)
}

func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) apply(s Settings) {
	if m.applier != nil {
		m.applier.ApplyEffects(EffectsOf(s))
	}
}
