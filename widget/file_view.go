package widget

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/putto11262002/roomchat/settings"
)

// cssVar names are trusted constants; values are filtered by the template.
type cssVar struct {
	Name  template.CSS
	Value string
}

type roomControl struct {
	ID     int
	Active bool
}

type pageData struct {
	BodyClasses []string
	CSSVars     []cssVar
	Rooms       []roomControl
	ChannelName string
	Clock       string
	Mode        Mode
	Typing      string
	Messages    template.HTML
	CharCount   int
}

// FileView is a View that keeps a standalone HTML page of the widget on disk.
// The page is rewritten after every change.
type FileView struct {
	mu       sync.Mutex
	path     string
	renderer *Renderer
	logger   *slog.Logger
	rooms    []int
	active   int
	page     pageData
}

func NewFileView(path string, rooms []int, renderer *Renderer, logger *slog.Logger) *FileView {
	return &FileView{
		path:     path,
		renderer: renderer,
		logger:   logger,
		rooms:    slices.Clone(rooms),
		active:   -1,
	}
}

func (v *FileView) ApplyEffects(e settings.Effects) {
	v.update(func(p *pageData) {
		p.BodyClasses = e.BodyClasses
		p.CSSVars = p.CSSVars[:0]
		for _, name := range e.CSSVarNames() {
			p.CSSVars = append(p.CSSVars, cssVar{Name: template.CSS(name), Value: e.CSSVars[name]})
		}
	})
}

func (v *FileView) ShowTyping(text string) {
	v.update(func(p *pageData) { p.Typing = text })
}

func (v *FileView) HideTyping() {
	v.update(func(p *pageData) { p.Typing = "" })
}

func (v *FileView) SetMessages(html string) {
	v.update(func(p *pageData) { p.Messages = template.HTML(html) })
}

func (v *FileView) SetActiveRoom(roomID int) {
	v.mu.Lock()
	v.active = roomID
	v.mu.Unlock()
	v.update(func(p *pageData) {})
}

func (v *FileView) SetChannelPlaceholder(name string) {
	v.update(func(p *pageData) { p.ChannelName = name })
}

func (v *FileView) SetCharCount(n int) {
	v.update(func(p *pageData) { p.CharCount = n })
}

func (v *FileView) SetClock(hhmm string) {
	v.update(func(p *pageData) { p.Clock = hhmm })
}

func (v *FileView) SetMode(mode Mode) {
	v.update(func(p *pageData) { p.Mode = mode })
}

func (v *FileView) ClearDraft() {
	v.update(func(p *pageData) { p.CharCount = 0 })
}

func (v *FileView) Alert(msg string) {
	v.logger.Warn(msg)
}

func (v *FileView) update(fn func(*pageData)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(&v.page)
	v.page.Rooms = v.page.Rooms[:0]
	for _, id := range v.rooms {
		v.page.Rooms = append(v.page.Rooms, roomControl{ID: id, Active: id == v.active})
	}
	if err := v.writeLocked(); err != nil {
		v.logger.Error("failed to write page", slog.String("path", v.path), slog.String("error", err.Error()))
	}
}

func (v *FileView) writeLocked() error {
	var buf bytes.Buffer
	if err := v.renderer.templates.Render(&buf, "page", v.page); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(v.path), ".roomchat-*.html")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), v.path)
}
