package widget

import (
	"fmt"
	"math"
)

const (
	DefaultVolume    = 50
	VolumeStep       = 5
	VisualizerWidth  = 100
	VisualizerHeight = 40

	// DefaultViewportWidth and DefaultViewportHeight size media when no viewport is known.
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720

	// viewportShare is the largest fraction of the viewport a media element may cover.
	viewportShare = 0.7
)

// MediaControls is the playback state of one rendered video.
// Videos start muted at the default volume.
type MediaControls struct {
	Volume int
	Muted  bool
}

func NewMediaControls() *MediaControls {
	return &MediaControls{Volume: DefaultVolume, Muted: true}
}

// Scroll changes the volume by one step: down (positive delta) lowers it,
// up raises it. Scrolling always unmutes.
func (m *MediaControls) Scroll(deltaY float64) {
	step := VolumeStep
	if deltaY > 0 {
		step = -VolumeStep
	}
	m.Volume = min(100, max(0, m.Volume+step))
	m.Muted = false
}

// ToggleMute silences the video, or restores the default volume when silent.
func (m *MediaControls) ToggleMute() {
	if m.Volume == 0 {
		m.Volume = DefaultVolume
		m.Muted = false
		return
	}
	m.Volume = 0
}

// Click unmutes a muted video at the default volume.
func (m *MediaControls) Click() {
	if m.Muted {
		m.Muted = false
		m.Volume = DefaultVolume
	}
}

// Gain is the volume as a 0..1 fraction, 0 while muted.
func (m *MediaControls) Gain() float64 {
	if m.Muted {
		return 0
	}
	return float64(m.Volume) / 100
}

func (m *MediaControls) Indicator() string {
	return fmt.Sprintf("%d%%", m.Volume)
}

// FitDimensions scales a media element down, keeping its aspect ratio, until it
// fits in 70% of the viewport in both directions. It never scales up.
func FitDimensions(naturalWidth, naturalHeight, viewportWidth, viewportHeight float64) (int, int) {
	maxWidth := viewportWidth * viewportShare
	maxHeight := viewportHeight * viewportShare

	width, height := naturalWidth, naturalHeight
	if width > maxWidth {
		height = maxWidth / width * height
		width = maxWidth
	}
	if height > maxHeight {
		width = maxHeight / height * width
		height = maxHeight
	}
	return int(math.Floor(width)), int(math.Floor(height))
}
