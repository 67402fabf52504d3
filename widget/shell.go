package widget

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/gif"
	"github.com/putto11262002/roomchat/settings"
)

var ErrUnknownCommand = errors.New("unknown command")

const shellHelp = `/room <id>              select a room
/rename <name>          rename the current room
/attach <path>          attach a file to the next message
/gifs <query>           search GIFs
/pick <n>               attach the n-th GIF of the last search
/mode chat|share        switch the composer mode
/volume up|down|mute|play  control the playback volume of videos
/name <username>        set the display name
/color <kind> [hue]     show or set primary, secondary, user or others colour
/set <key> <on|off>     toggle a setting: timestamps notifications sound desktop typing grouping enter
/export                 write the current room to a JSON file
/help                   show this help
anything else is sent as a message
`

// Shell drives a Controller from lines of text, one action per line.
type Shell struct {
	ctrl     *Controller
	settings *settings.Manager
	out      io.Writer
	userType core.UserType
	gifs     []gif.GIF
	media    *MediaControls
}

// NewShell returns a shell that sends messages as userType and reports to out.
// m may be nil, in which case the settings commands fail.
func NewShell(ctrl *Controller, m *settings.Manager, out io.Writer, userType core.UserType) *Shell {
	return &Shell{ctrl: ctrl, settings: m, out: out, userType: userType, media: NewMediaControls()}
}

// Run executes the lines read from r until r is exhausted or ctx is done.
// Command errors are reported to out and do not stop the shell.
func (s *Shell) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if err := s.Exec(ctx, line); err != nil {
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
		}
	}
}

// Exec executes a single line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		s.ctrl.Typing(line)
		s.ctrl.Send(ctx, line, s.userType)
		return nil
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "room":
		id, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("room id must be an integer: %q", arg)
		}
		if !s.ctrl.Offers(id) {
			return fmt.Errorf("room %d is not offered", id)
		}
		s.ctrl.SelectRoom(ctx, id)
	case "rename":
		s.ctrl.Rename(ctx, arg)
	case "attach":
		a, err := ReadAttachment(arg)
		if err != nil {
			return err
		}
		s.ctrl.AddAttachment(a)
		if w, h, ok := a.ImageSize(); ok {
			fw, fh := FitDimensions(float64(w), float64(h), DefaultViewportWidth, DefaultViewportHeight)
			fmt.Fprintf(s.out, "attached %s (%s, %dx%d shown at %dx%d)\n", a.Name, a.MIME, w, h, fw, fh)
		} else {
			fmt.Fprintf(s.out, "attached %s (%s)\n", a.Name, a.MIME)
		}
	case "gifs":
		s.gifs = s.ctrl.SearchGIFs(ctx, arg)
		for i, g := range s.gifs {
			fmt.Fprintf(s.out, "%d. %s\n", i+1, g.Title)
		}
	case "pick":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(s.gifs) {
			return fmt.Errorf("pick a GIF between 1 and %d", len(s.gifs))
		}
		s.ctrl.SelectGIF(s.gifs[n-1])
	case "mode":
		switch Mode(arg) {
		case ModeChat, ModeShare:
			s.ctrl.SetMode(Mode(arg))
		default:
			return fmt.Errorf("mode must be chat or share")
		}
	case "volume":
		switch arg {
		case "up":
			s.media.Scroll(-1)
		case "down":
			s.media.Scroll(1)
		case "mute":
			s.media.ToggleMute()
		case "play":
			s.media.Click()
		default:
			return fmt.Errorf("volume must be up, down, mute or play")
		}
		fmt.Fprintf(s.out, "volume %s\n", s.media.Indicator())
	case "export":
		path, err := s.ctrl.Export(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "exported to %s\n", path)
	case "name", "color", "set":
		return s.execSettings(ctx, cmd, arg)
	case "help":
		io.WriteString(s.out, shellHelp)
	default:
		return fmt.Errorf("%w: /%s", ErrUnknownCommand, cmd)
	}
	return nil
}

var toggles = map[string]func(*settings.Settings, bool){
	"timestamps":    func(st *settings.Settings, on bool) { st.ShowTimestamps = on },
	"notifications": func(st *settings.Settings, on bool) { st.Notifications = on },
	"sound":         func(st *settings.Settings, on bool) { st.SoundNotifications = on },
	"desktop":       func(st *settings.Settings, on bool) { st.DesktopNotifications = on },
	"typing":        func(st *settings.Settings, on bool) { st.TypingIndicator = on },
	"grouping":      func(st *settings.Settings, on bool) { st.GroupMessages = on },
	"enter":         func(st *settings.Settings, on bool) { st.EnterToSend = on },
}

func (s *Shell) execSettings(ctx context.Context, cmd, arg string) error {
	if s.settings == nil {
		return errors.New("settings are not available")
	}
	switch cmd {
	case "name":
		if arg == "" {
			return errors.New("name must not be empty")
		}
		return s.settings.Update(ctx, func(st *settings.Settings) { st.Username = &arg })
	case "color":
		kind, hueStr, _ := strings.Cut(arg, " ")
		switch settings.ColorKind(kind) {
		case settings.ColorPrimary, settings.ColorSecondary, settings.ColorUser, settings.ColorOthers:
		default:
			return fmt.Errorf("unknown colour %q", kind)
		}
		hueStr = strings.TrimSpace(hueStr)
		if hueStr == "" {
			current, ok := s.settings.Hue(settings.ColorKind(kind))
			if !ok {
				return fmt.Errorf("%s colour is not a hex colour", kind)
			}
			fmt.Fprintf(s.out, "%s colour is %s, hue %d\n", kind, s.settings.Current().Color(settings.ColorKind(kind)), current)
			return nil
		}
		hue, err := strconv.ParseFloat(hueStr, 64)
		if err != nil {
			return fmt.Errorf("hue must be a number: %q", hueStr)
		}
		hex, err := s.settings.UpdateColor(ctx, settings.ColorKind(kind), hue)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s colour set to %s\n", kind, hex)
		return nil
	default:
		key, value, _ := strings.Cut(arg, " ")
		toggle, ok := toggles[key]
		if !ok {
			return fmt.Errorf("unknown setting %q", key)
		}
		on, err := parseSwitch(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		return s.settings.Update(ctx, func(st *settings.Settings) { toggle(st, on) })
	}
}

func parseSwitch(v string) (bool, error) {
	switch v {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("value must be on or off: %q", v)
}
