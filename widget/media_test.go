package widget

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/putto11262002/roomchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaControls(t *testing.T) {
	m := NewMediaControls()
	assert.Equal(t, 50, m.Volume)
	assert.True(t, m.Muted)
	assert.Equal(t, 0.0, m.Gain())

	m.Scroll(120)
	assert.Equal(t, 45, m.Volume)
	assert.False(t, m.Muted)
	assert.Equal(t, "45%", m.Indicator())

	for i := 0; i < 30; i++ {
		m.Scroll(-1)
	}
	assert.Equal(t, 100, m.Volume)

	m.ToggleMute()
	assert.Equal(t, 0, m.Volume)
	m.ToggleMute()
	assert.Equal(t, 50, m.Volume)
	assert.Equal(t, 0.5, m.Gain())

	for i := 0; i < 30; i++ {
		m.Scroll(1)
	}
	assert.Equal(t, 0, m.Volume)
}

func TestMediaControlsClick(t *testing.T) {
	m := NewMediaControls()
	m.Volume = 20

	m.Click()
	assert.False(t, m.Muted)
	assert.Equal(t, 50, m.Volume)

	m.Volume = 20
	m.Click()
	assert.Equal(t, 20, m.Volume, "clicking a playing video keeps its volume")
}

func TestFitDimensions(t *testing.T) {
	tcs := []struct {
		name                 string
		w, h, vw, vh         float64
		expectedW, expectedH int
	}{
		{"fits", 320, 240, 1000, 1000, 320, 240},
		{"too wide", 2000, 1000, 1000, 1000, 700, 350},
		{"too tall", 500, 2000, 1000, 1000, 175, 700},
		{"too wide then too tall", 2000, 1800, 1000, 500, 388, 350},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			w, h := FitDimensions(tc.w, tc.h, tc.vw, tc.vh)
			assert.Equal(t, tc.expectedW, w)
			assert.Equal(t, tc.expectedH, h)
		})
	}
}

func TestAttachment(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

	t.Run("declared mime type is kept", func(t *testing.T) {
		a := NewAttachment("clip.mp4", "video/mp4", []byte("not really a video"))
		assert.Equal(t, "video/mp4", a.MIME)
		assert.Equal(t, core.MediaVideo, a.MediaType())
	})

	t.Run("undeclared mime type is sniffed", func(t *testing.T) {
		a := NewAttachment("upload", "", png)
		assert.Equal(t, "image/png", a.MIME)
		assert.Equal(t, core.MediaImage, a.MediaType())
		assert.True(t, strings.HasPrefix(a.DataURL(), "data:image/png;base64,iVBORw0KGgo"))
	})

	t.Run("other files carry their name as text", func(t *testing.T) {
		a := NewAttachment("notes.txt", "text/plain; charset=utf-8", []byte("hello"))
		input := a.Input("Alice", core.UserTypeUser, "n-1")

		assert.Equal(t, "text/plain", a.MIME)
		assert.Equal(t, core.MediaNone, input.MediaType)
		assert.Equal(t, "notes.txt", input.Message)
		assert.Equal(t, int64(5), input.FileSize)
		require.NoError(t, input.Validate())
	})
}

func TestCharCount(t *testing.T) {
	assert.Equal(t, 0, CharCount(""))
	assert.Equal(t, 5, CharCount("hello"))
	assert.Equal(t, 3, CharCount("héé"))
}

func TestClock(t *testing.T) {
	start := time.Date(2024, 3, 9, 10, 59, 59, 990_000_000, time.Local)
	calls := 0
	shown := make(chan string, 4)

	c := NewClock(func(hhmm string) { shown <- hhmm })
	c.now = func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(10 * time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	for _, expected := range []string{"10:59", "11:00"} {
		select {
		case got := <-shown:
			assert.Equal(t, expected, got)
		case <-time.After(baseTimeout):
			t.Fatal("Timeout waiting for clock tick")
		}
	}
	cancel()
	<-done
}
