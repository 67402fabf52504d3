package widget

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/gif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshWithoutRoom(t *testing.T) {
	f := newWidgetFixture(t, Config{})

	f.controller.Refresh(f.ctx)

	assert.Contains(t, f.view.html(), NoRoomPlaceholder)
	assert.Equal(t, 0, f.api.requestCount())
}

func TestSelectRoom(t *testing.T) {
	f := newWidgetFixture(t, Config{})
	f.api.seed(2, "welcome to room two")

	f.controller.SelectRoom(f.ctx, 1)
	f.controller.SelectRoom(f.ctx, 2)

	assert.Equal(t, []int{2}, f.view.activeRooms())
	assert.Equal(t, 1, f.api.getCount(2))
	assert.Contains(t, f.view.html(), "welcome to room two")
	assert.Equal(t, "Room 2", f.view.placeholder)

	state := f.controller.State()
	assert.True(t, state.HasRoom)
	assert.Equal(t, 2, state.Room)
}

func TestSelectUnknownRoom(t *testing.T) {
	f := newWidgetFixture(t, Config{Rooms: []int{1, 2}})

	f.api.seed(1, "still in room one")

	f.controller.SelectRoom(f.ctx, 1)
	f.controller.SelectRoom(f.ctx, 42)

	assert.Equal(t, []int{1}, f.view.activeRooms())
	assert.Contains(t, f.view.html(), "still in room one")
	assert.Equal(t, 0, f.api.getCount(42))
	assert.Equal(t, 1, f.controller.State().Room)
}

func TestSelectRoomShowsChannelName(t *testing.T) {
	f := newWidgetFixture(t, Config{})
	f.api.mu.Lock()
	f.api.roomLocked(3).ChannelName = "general"
	f.api.mu.Unlock()

	f.controller.SelectRoom(f.ctx, 3)

	assert.Equal(t, "general", f.view.placeholder)
}

func TestStaleReadIsDiscarded(t *testing.T) {
	f := newWidgetFixture(t, Config{})
	f.api.seed(1, "old room")
	f.api.seed(2, "new room")
	release := f.api.gate(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.controller.SelectRoom(f.ctx, 1)
	}()

	select {
	case <-f.api.reading:
	case <-time.After(baseTimeout):
		t.Fatal("Timeout waiting for the read of room 1")
	}

	f.controller.SelectRoom(f.ctx, 2)
	close(release)
	<-done

	assert.Contains(t, f.view.html(), "new room")
	assert.NotContains(t, f.view.html(), "old room")
}

func TestSendBlank(t *testing.T) {
	f := newWidgetFixture(t, Config{})
	f.controller.SelectRoom(f.ctx, 1)
	before := f.api.requestCount()

	assert.False(t, f.controller.Send(f.ctx, "   \n\t", core.UserTypeUser))
	assert.Equal(t, before, f.api.requestCount(), "blank sends must not reach the server")
}

func TestSendWithoutRoom(t *testing.T) {
	f := newWidgetFixture(t, Config{})

	assert.False(t, f.controller.Send(f.ctx, "hi", core.UserTypeUser))
	assert.Equal(t, 0, f.api.requestCount())
}

func TestSendText(t *testing.T) {
	f := newWidgetFixture(t, Config{Username: "Alice"})
	f.controller.SelectRoom(f.ctx, 1)
	f.controller.Typing("hi")
	require.Equal(t, 1, f.api.getCount(1))

	ok := f.controller.Send(f.ctx, "hi", core.UserTypeUser)

	require.True(t, ok)
	posts := f.api.postedInputs()
	require.Len(t, posts, 1)
	assert.Equal(t, "Alice", posts[0].Username)
	assert.Equal(t, core.UserTypeUser, posts[0].UserType)
	assert.Equal(t, "hi", posts[0].Message)
	assert.NotEmpty(t, posts[0].Nonce)

	assert.Equal(t, 2, f.api.getCount(1), "one re-read after sending")
	assert.Contains(t, f.view.html(), "hi")
	assert.Equal(t, 1, f.view.cleared)
	assert.Equal(t, 0, f.view.charCount)
}

func TestSendAttachmentsAndGIF(t *testing.T) {
	f := newWidgetFixture(t, Config{})
	f.controller.SelectRoom(f.ctx, 1)
	f.controller.AddAttachment(NewAttachment("cat.png", "image/png", []byte("png")))
	f.controller.AddAttachment(NewAttachment("clip.mp4", "video/mp4", []byte("mp4")))
	f.controller.SelectGIF(gif.GIF{Title: "wave", URL: "https://media.test/wave.gif"})

	require.True(t, f.controller.Send(f.ctx, "look", core.UserTypeUser))

	posts := f.api.postedInputs()
	require.Len(t, posts, 4)
	assert.Equal(t, "look", posts[0].Message)
	assert.Equal(t, core.MediaImage, posts[1].MediaType)
	assert.Equal(t, core.NullableString("data:image/png;base64,cG5n"), posts[1].MediaURL)
	assert.Equal(t, "cat.png", posts[1].FileName)
	assert.Equal(t, int64(3), posts[1].FileSize)
	assert.Equal(t, core.MediaVideo, posts[2].MediaType)
	assert.Equal(t, core.MediaImage, posts[3].MediaType)
	assert.Equal(t, core.NullableString("https://media.test/wave.gif"), posts[3].MediaURL)
	assert.Equal(t, 2, f.api.getCount(1), "one re-read after all sends")

	state := f.controller.State()
	assert.Empty(t, state.Attachments)
	assert.Nil(t, state.GIF)
}

func TestSendAttachmentOnly(t *testing.T) {
	f := newWidgetFixture(t, Config{})
	f.controller.SelectRoom(f.ctx, 1)
	f.controller.AddAttachment(NewAttachment("cat.png", "image/png", []byte("png")))

	require.True(t, f.controller.Send(f.ctx, "", core.UserTypeUser))
	require.Len(t, f.api.postedInputs(), 1)
}

func TestSendFailure(t *testing.T) {
	f := newWidgetFixture(t, Config{})
	f.controller.SelectRoom(f.ctx, 1)
	f.controller.AddAttachment(NewAttachment("cat.png", "image/png", []byte("png")))
	f.api.mu.Lock()
	f.api.failPosts = true
	f.api.mu.Unlock()

	ok := f.controller.Send(f.ctx, "hi", core.UserTypeUser)

	assert.False(t, ok)
	assert.Equal(t, 1, f.view.alertCount())
	assert.Equal(t, 0, f.view.cleared)
	assert.Len(t, f.controller.State().Attachments, 1, "the draft is kept after a failure")
}

func TestRename(t *testing.T) {
	f := newWidgetFixture(t, Config{})

	assert.False(t, f.controller.Rename(f.ctx, "general"), "no room selected")

	f.controller.SelectRoom(f.ctx, 1)
	assert.False(t, f.controller.Rename(f.ctx, "  "))
	assert.True(t, f.controller.Rename(f.ctx, " general "))
	assert.Equal(t, "general", f.view.placeholder)
	assert.Equal(t, "general", f.controller.State().ChannelNames[1])
}

func TestSearchGIFs(t *testing.T) {
	f := newWidgetFixture(t, Config{})
	f.api.gifs = []gif.GIF{{Title: "cat", URL: "https://media.test/cat.gif"}}

	gifs := f.controller.SearchGIFs(f.ctx, "cat")

	require.Len(t, gifs, 1)
	assert.Equal(t, "cat", gifs[0].Title)
	assert.Nil(t, f.controller.SearchGIFs(f.ctx, " "))
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	f := newWidgetFixture(t, Config{ExportDir: dir, Rooms: []int{1, 2, 3, 4}})
	f.controller.now = func() time.Time { return time.UnixMilli(1700000000123) }

	_, err := f.controller.Export(f.ctx)
	assert.ErrorIs(t, err, ErrNoRoom)
	assert.Equal(t, 1, f.view.alertCount())

	f.api.seed(4, "exported")
	f.controller.SelectRoom(f.ctx, 4)
	path, err := f.controller.Export(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "chat_4_1700000000123.json"), path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  \"messages\": [")
	assert.Contains(t, string(b), "exported")
}

func TestPolling(t *testing.T) {
	f := newWidgetFixture(t, Config{PollInterval: 20 * time.Millisecond})
	f.controller.SelectRoom(f.ctx, 1)
	f.controller.Start(f.ctx)

	require.Eventually(t, func() bool { return f.api.getCount(1) >= 4 },
		baseTimeout, 10*time.Millisecond, "Timeout waiting for polls")

	f.controller.SelectRoom(f.ctx, 2)
	polled := f.api.getCount(1)
	require.Eventually(t, func() bool { return f.api.getCount(2) >= 3 },
		baseTimeout, 10*time.Millisecond, "Timeout waiting for polls of the new room")
	assert.LessOrEqual(t, f.api.getCount(1), polled+1, "the old room is no longer polled")
}

func TestWatch(t *testing.T) {
	f := newWidgetFixture(t, Config{PollInterval: time.Hour, Watch: true})
	f.controller.SelectRoom(f.ctx, 1)
	f.controller.Start(f.ctx)

	require.Eventually(t, func() bool { return f.api.cm.Listeners(1) == 1 },
		baseTimeout, 10*time.Millisecond, "Timeout waiting for the watcher to subscribe")

	f.api.seed(1, "pushed")
	require.NoError(t, f.api.emitter.EmitTo(core.RoomUpdatedEvent, core.RoomUpdatedPayload{RoomID: 1}, 1))

	require.Eventually(t, func() bool { return strings.Contains(f.view.html(), "pushed") },
		baseTimeout, 10*time.Millisecond, "Timeout waiting for the pushed update")
}

func TestSetMode(t *testing.T) {
	f := newWidgetFixture(t, Config{})

	f.controller.SetMode(ModeShare)
	assert.Equal(t, ModeShare, f.view.mode)
	f.controller.SetMode("broadcast")
	assert.Equal(t, ModeShare, f.controller.State().Mode)
	f.controller.SetMode(ModeChat)
	assert.Equal(t, ModeChat, f.view.mode)
}
