package widget

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/pebble/v2/vfs"
	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/gif"
	"github.com/putto11262002/roomchat/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShellFixture(t *testing.T) (*widgetFixture, *settings.Manager, *Shell, *bytes.Buffer) {
	f := newWidgetFixture(t, Config{})

	store, err := settings.OpenPebbleStore("settings", settings.WithFS(vfs.NewMem()))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	m := settings.NewManager(store, f.controller, discardLogger())
	f.controller.UseSettings(m)
	m.Load(f.ctx)

	var out bytes.Buffer
	return f, m, NewShell(f.controller, m, &out, core.UserTypeUser), &out
}

func TestShellSend(t *testing.T) {
	f, _, sh, _ := newShellFixture(t)

	require.NoError(t, sh.Exec(f.ctx, "hello before a room"))
	assert.Equal(t, 0, f.api.requestCount(), "nothing is sent without a room")

	require.NoError(t, sh.Exec(f.ctx, "/room 2"))
	require.NoError(t, sh.Exec(f.ctx, "  hello  "))
	require.NoError(t, sh.Exec(f.ctx, ""))

	posts := f.api.postedInputs()
	require.Len(t, posts, 1)
	assert.Equal(t, "hello", strings.TrimSpace(posts[0].Message))
	assert.Equal(t, core.UserTypeUser, posts[0].UserType)
	assert.Equal(t, DefaultUsername, posts[0].Username)
}

func TestShellErrors(t *testing.T) {
	f, _, sh, _ := newShellFixture(t)

	assert.ErrorIs(t, sh.Exec(f.ctx, "/dance"), ErrUnknownCommand)
	assert.Error(t, sh.Exec(f.ctx, "/room two"))
	assert.Error(t, sh.Exec(f.ctx, "/room 9"))
	assert.Error(t, sh.Exec(f.ctx, "/pick 1"))
	assert.Error(t, sh.Exec(f.ctx, "/mode party"))
	assert.Error(t, sh.Exec(f.ctx, "/attach /does/not/exist.png"))
	assert.Error(t, sh.Exec(f.ctx, "/color pink 10"))
	assert.Error(t, sh.Exec(f.ctx, "/set volume on"))
	assert.Error(t, sh.Exec(f.ctx, "/set timestamps maybe"))
	assert.ErrorIs(t, sh.Exec(f.ctx, "/export"), ErrNoRoom)
}

func TestShellRun(t *testing.T) {
	f, _, sh, out := newShellFixture(t)

	input := "/room 1\nfirst\n/mode share\n/dance\nsecond\n"
	require.NoError(t, sh.Run(f.ctx, strings.NewReader(input)))

	posts := f.api.postedInputs()
	require.Len(t, posts, 2)
	assert.Equal(t, "first", posts[0].Message)
	assert.Equal(t, "second", posts[1].Message)
	assert.Equal(t, ModeShare, f.controller.State().Mode)
	assert.Contains(t, out.String(), "error: unknown command: /dance")
}

func TestShellGIFs(t *testing.T) {
	f, _, sh, out := newShellFixture(t)
	f.api.mu.Lock()
	f.api.gifs = []gif.GIF{
		{Title: "cat", PreviewURL: "https://media.test/cat-small.gif", URL: "https://media.test/cat.gif"},
		{Title: "dog", PreviewURL: "https://media.test/dog-small.gif", URL: "https://media.test/dog.gif"},
	}
	f.api.mu.Unlock()

	require.NoError(t, sh.Exec(f.ctx, "/room 3"))
	require.NoError(t, sh.Exec(f.ctx, "/gifs pets"))
	assert.Contains(t, out.String(), "1. cat\n2. dog\n")

	require.NoError(t, sh.Exec(f.ctx, "/pick 2"))
	require.NoError(t, sh.Exec(f.ctx, ""))

	posts := f.api.postedInputs()
	require.Len(t, posts, 1)
	assert.Equal(t, core.MediaImage, posts[0].MediaType)
	assert.Equal(t, core.NullableString("https://media.test/dog.gif"), posts[0].MediaURL)
	assert.Nil(t, f.controller.State().GIF)
}

func TestShellSettings(t *testing.T) {
	f, m, sh, out := newShellFixture(t)

	require.NoError(t, sh.Exec(f.ctx, "/name alice"))
	require.NoError(t, sh.Exec(f.ctx, "/set timestamps off"))
	require.NoError(t, sh.Exec(f.ctx, "/color others 120"))

	current := m.Current()
	assert.Equal(t, "alice", current.DisplayName(""))
	assert.False(t, current.ShowTimestamps)
	assert.Equal(t, "#26D926", current.OthersColor)
	assert.Contains(t, out.String(), "others colour set to #26D926")

	require.NoError(t, sh.Exec(f.ctx, "/room 1"))
	require.NoError(t, sh.Exec(f.ctx, "hi"))
	posts := f.api.postedInputs()
	require.Len(t, posts, 1)
	assert.Equal(t, "alice", posts[0].Username)
}

func TestShellColorHue(t *testing.T) {
	f, _, sh, out := newShellFixture(t)

	require.NoError(t, sh.Exec(f.ctx, "/color others 120"))
	out.Reset()
	require.NoError(t, sh.Exec(f.ctx, "/color others"))

	assert.Equal(t, "others colour is #26D926, hue 120\n", out.String())
	assert.Error(t, sh.Exec(f.ctx, "/color pink"))
}

func TestShellAttachImage(t *testing.T) {
	f, _, sh, out := newShellFixture(t)
	path := filepath.Join(t.TempDir(), "wide.png")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, image.NewRGBA(image.Rect(0, 0, 2000, 1000))))
	require.NoError(t, file.Close())

	require.NoError(t, sh.Exec(f.ctx, "/attach "+path))

	assert.Equal(t, "attached wide.png (image/png, 2000x1000 shown at 896x448)\n", out.String())
	require.Len(t, f.controller.State().Attachments, 1)
}

func TestShellVolume(t *testing.T) {
	f, _, sh, out := newShellFixture(t)

	require.NoError(t, sh.Exec(f.ctx, "/volume up"))
	require.NoError(t, sh.Exec(f.ctx, "/volume mute"))
	require.NoError(t, sh.Exec(f.ctx, "/volume mute"))
	require.NoError(t, sh.Exec(f.ctx, "/volume down"))
	assert.Error(t, sh.Exec(f.ctx, "/volume loud"))

	assert.Equal(t, "volume 55%\nvolume 0%\nvolume 50%\nvolume 45%\n", out.String())
}

func TestShellWithoutSettings(t *testing.T) {
	f := newWidgetFixture(t, Config{})
	sh := NewShell(f.controller, nil, &bytes.Buffer{}, core.UserTypeUser)

	assert.Error(t, sh.Exec(f.ctx, "/name alice"))
}

func TestTerminalNotifier(t *testing.T) {
	var out bytes.Buffer
	n := NewTerminalNotifier(&out, discardLogger())

	n.PlaySound()
	n.Desktop("Data Export", "done")

	assert.Equal(t, "\a", out.String())
}
