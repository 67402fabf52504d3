package widget

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/putto11262002/roomchat/core"
	templstore "github.com/putto11262002/roomchat/pkg/template"
)

//go:embed templates
var templatesFS embed.FS

const (
	NoMessagesPlaceholder = "No messages yet. Start the conversation!"
	NoRoomPlaceholder     = "Select a chat room to start messaging."
)

var stylingIDs = map[core.UserType]string{
	core.UserTypeUser:    "userStyling",
	core.UserTypeAdmin:   "adminStyling",
	core.UserTypeOthers:  "othersStyling",
	core.UserTypeMention: "mentionStyling",
}

// StylingID returns the element id used to colour a username.
// Unknown user types are styled like others.
func StylingID(t core.UserType) string {
	if id, ok := stylingIDs[t]; ok {
		return id
	}
	return stylingIDs[core.UserTypeOthers]
}

type canvasSize struct {
	Width, Height int
}

type messageView struct {
	UID       int
	UserType  string
	StylingID string
	Username  template.HTML
	Time      string
	Date      string
	ShowTime  bool
	Text      template.HTML
	Media     string
	MediaURL  template.URL
	VideoType string
	Volume    int
	Canvas    canvasSize
}

type messagesData struct {
	Placeholder string
	Messages    []messageView
}

// RenderOptions control the optional parts of a rendered message.
type RenderOptions struct {
	ShowTimestamps bool
}

// Renderer turns message records into widget markup.
type Renderer struct {
	templates      *templstore.TemplStore
	textPolicy     *bluemonday.Policy
	usernamePolicy *bluemonday.Policy
}

func NewRenderer() (*Renderer, error) {
	fsys, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	templates, err := templstore.NewTemplStoreFS(fsys, template.FuncMap{"join": strings.Join})
	if err != nil {
		return nil, err
	}
	return &Renderer{
		templates: templates,
		textPolicy: bluemonday.UGCPolicy().
			AllowElements("b", "i", "em", "strong", "u", "s", "del", "code", "br").
			RequireNoFollowOnLinks(true),
		usernamePolicy: bluemonday.StrictPolicy(),
	}, nil
}

// RenderMessages writes the markup of messages to w. An empty slice renders
// the no-messages placeholder.
func (r *Renderer) RenderMessages(w io.Writer, messages []core.Message, opts RenderOptions) error {
	data := messagesData{Messages: make([]messageView, 0, len(messages))}
	if len(messages) == 0 {
		data.Placeholder = NoMessagesPlaceholder
	}
	for _, m := range messages {
		data.Messages = append(data.Messages, r.view(m, opts))
	}
	return r.templates.Render(w, "messages", data)
}

// Messages is RenderMessages into a string.
func (r *Renderer) Messages(messages []core.Message, opts RenderOptions) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderMessages(&buf, messages, opts); err != nil {
		return "", fmt.Errorf("render messages: %w", err)
	}
	return buf.String(), nil
}

// NoRoom renders the placeholder shown while no room is selected.
func (r *Renderer) NoRoom() (string, error) {
	var buf bytes.Buffer
	if err := r.templates.Render(&buf, "messages", messagesData{Placeholder: NoRoomPlaceholder}); err != nil {
		return "", fmt.Errorf("render placeholder: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) view(m core.Message, opts RenderOptions) messageView {
	v := messageView{
		UID:       m.UID,
		UserType:  string(m.UserType),
		StylingID: StylingID(m.UserType),
		Username:  template.HTML(r.usernamePolicy.Sanitize(m.Username)),
		Time:      m.Time,
		Date:      m.Date,
		ShowTime:  opts.ShowTimestamps,
		Text:      template.HTML(r.textPolicy.Sanitize(m.Message)),
		Volume:    DefaultVolume,
		Canvas:    canvasSize{Width: VisualizerWidth, Height: VisualizerHeight},
	}
	if !m.HasMedia() {
		return v
	}

	src, ok := mediaURL(m.MediaType, string(m.MediaURL))
	if !ok {
		return v
	}
	switch m.MediaType {
	case core.MediaImage:
		v.Media = string(core.MediaImage)
	case core.MediaVideo:
		v.Media = string(core.MediaVideo)
		v.VideoType = "video/mp4"
		if strings.HasPrefix(m.FileType, "video/") {
			v.VideoType = m.FileType
		}
	}
	v.MediaURL = src
	return v
}

// mediaURL accepts http(s) URLs, relative URLs and base64 data URLs whose
// MIME type matches the media type.
func mediaURL(t core.MediaType, raw string) (template.URL, bool) {
	if strings.HasPrefix(raw, "data:") {
		if !strings.HasPrefix(raw, "data:"+string(t)+"/") || !strings.Contains(raw, ";base64,") {
			return "", false
		}
		return template.URL(raw), true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch u.Scheme {
	case "", "http", "https":
		return template.URL(u.String()), true
	default:
		return "", false
	}
}
