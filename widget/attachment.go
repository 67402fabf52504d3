package widget

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/putto11262002/roomchat/core"
)

// Attachment is a file picked for sending. Each attachment is sent as its own message.
type Attachment struct {
	Name string
	MIME string
	Data []byte
}

// NewAttachment returns an attachment for data. When mime is empty or generic
// the type is detected from the content.
func NewAttachment(name, mime string, data []byte) Attachment {
	mime = strings.TrimSpace(mime)
	if mime == "" || mime == "application/octet-stream" {
		mime = mimetype.Detect(data).String()
	}
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return Attachment{Name: name, MIME: mime, Data: data}
}

// ReadAttachment loads a file from disk as an attachment.
func ReadAttachment(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	return NewAttachment(filepath.Base(path), "", data), nil
}

func (a Attachment) MediaType() core.MediaType {
	return core.MediaTypeFromMIME(a.MIME)
}

// DataURL is the base64 data URL of the attachment's content.
func (a Attachment) DataURL() string {
	return "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Input builds the message that carries the attachment. Files that are neither
// images nor videos carry their name as text so the record is never empty.
func (a Attachment) Input(username string, userType core.UserType, nonce string) core.MessageCreateInput {
	input := core.MessageCreateInput{
		Username:  username,
		UserType:  userType,
		MediaType: a.MediaType(),
		MediaURL:  core.NullableString(a.DataURL()),
		FileName:  a.Name,
		FileSize:  int64(len(a.Data)),
		FileType:  a.MIME,
		Nonce:     nonce,
	}
	if input.MediaType == core.MediaNone {
		input.Message = a.Name
	}
	return input
}

// ImageSize decodes the pixel size of an image attachment. It reports false
// for other media and for formats that cannot be decoded.
func (a Attachment) ImageSize() (int, int, bool) {
	if a.MediaType() != core.MediaImage {
		return 0, 0, false
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(a.Data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
