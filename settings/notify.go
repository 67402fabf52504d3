package settings

import (
	"sync"
	"time"
)

// TypingTimeout is how long the typing indicator stays visible after the last keystroke.
const TypingTimeout = 2 * time.Second

// Notifier delivers notifications on the channels the settings allow.
type Notifier interface {
	PlaySound()
	Desktop(title, body string)
}

// Notify sends a notification through n, gated by the current settings.
// Nothing is sent while notifications are off.
func (m *Manager) Notify(n Notifier, title, body string) {
	s := m.Current()
	if !s.Notifications {
		return
	}
	if s.SoundNotifications {
		n.PlaySound()
	}
	if s.DesktopNotifications {
		n.Desktop(title, body)
	}
}

type TypingView interface {
	ShowTyping(text string)
	HideTyping()
}

// TypingIndicator shows "<name> is typing..." on each keystroke and hides
// it once no keystroke arrived for TypingTimeout.
type TypingIndicator struct {
	mu      sync.Mutex
	manager *Manager
	view    TypingView
	timeout time.Duration
	timer   *time.Timer
}

func NewTypingIndicator(manager *Manager, view TypingView) *TypingIndicator {
	return &TypingIndicator{manager: manager, view: view, timeout: TypingTimeout}
}

// Typing records a keystroke.
func (t *TypingIndicator) Typing() {
	s := t.manager.Current()
	if !s.TypingIndicator {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.ShowTyping(s.DisplayName("Someone") + " is typing...")
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.timeout, t.view.HideTyping)
}

func (t *TypingIndicator) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}
