package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

const (
	// TimeLayout is the wall-clock format of Message.Time.
	TimeLayout = "15:04"
	// DateLayout is the calendar format of Message.Date.
	DateLayout = "02/01/2006"
)

// UserType tells the renderer how a message author should be styled.
type UserType string

const (
	UserTypeUser    UserType = "user"
	UserTypeAdmin   UserType = "admin"
	UserTypeOthers  UserType = "others"
	UserTypeMention UserType = "mention"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeUser, UserTypeAdmin, UserTypeOthers, UserTypeMention:
		return true
	default:
		return false
	}
}

// MediaType describes the single optional attachment of a message.
// The zero value means the message carries no media and is encoded as JSON null.
type MediaType string

const (
	MediaNone  MediaType = ""
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

func (t MediaType) MarshalJSON() ([]byte, error) {
	if t == MediaNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

func (t *MediaType) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil {
		*t = MediaNone
		return nil
	}
	*t = MediaType(*s)
	return nil
}

// MediaTypeFromMIME maps a MIME type to the media type of a message
// by its top-level type. Anything that is not an image or a video has no media type.
func MediaTypeFromMIME(mime string) MediaType {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MediaImage
	case strings.HasPrefix(mime, "video/"):
		return MediaVideo
	default:
		return MediaNone
	}
}

// NullableString is a string that is encoded as JSON null when empty.
type NullableString string

func (s NullableString) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *NullableString) UnmarshalJSON(b []byte) error {
	var v *string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == nil {
		*s = ""
		return nil
	}
	*s = NullableString(*v)
	return nil
}

// Room is an isolated message stream.
type Room struct {
	ID          int    `json:"id"`
	ChannelName string `json:"channel_name"`
}

// Message is a single chat entry. Messages are never modified once stored.
type Message struct {
	// UID is the position of the message in its room, starting at 0.
	UID       int            `json:"uid"`
	Username  string         `json:"username"`
	UserType  UserType       `json:"userType"`
	Message   string         `json:"message"`
	Time      string         `json:"time"`
	Date      string         `json:"date"`
	Timestamp string         `json:"timestamp,omitempty"`
	MediaType MediaType      `json:"mediaType"`
	MediaURL  NullableString `json:"mediaUrl"`
	FileName  string         `json:"fileName,omitempty"`
	FileSize  int64          `json:"fileSize,omitempty"`
	FileType  string         `json:"fileType,omitempty"`
	Nonce     string         `json:"nonce,omitempty"`
}

// HasMedia reports whether the message has an attachment that can be rendered.
func (m Message) HasMedia() bool {
	return m.MediaType != MediaNone && m.MediaURL != ""
}

// ChatLog is the body returned when reading a room.
type ChatLog struct {
	Messages    []Message `json:"messages"`
	ChannelName string    `json:"channel_name,omitempty"`
}

var (
	// ErrInvalidRoom is returned when a room id is out of range.
	ErrInvalidRoom = errors.New("invalid room")
	// ErrInvalidMessage is returned when a message fails validation.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrEmptyMessage is returned when a message has neither text nor media.
	ErrEmptyMessage = errors.New("empty message")
	// ErrInvalidChannelName is returned when a rename carries a blank name.
	ErrInvalidChannelName = errors.New("invalid channel name")
)

// MessageCreateInput represents the input for appending a message to a room.
// Time and Date are stamped by the store when they are left empty.
type MessageCreateInput struct {
	Username  string         `json:"username" validate:"required,max=64"`
	UserType  UserType       `json:"userType" validate:"required,oneof=user admin others mention"`
	Message   string         `json:"message"`
	Time      string         `json:"time" validate:"omitempty,datetime=15:04"`
	Date      string         `json:"date" validate:"omitempty,datetime=02/01/2006"`
	MediaType MediaType      `json:"mediaType" validate:"omitempty,oneof=image video"`
	MediaURL  NullableString `json:"mediaUrl" validate:"required_with=MediaType"`
	FileName  string         `json:"fileName" validate:"max=255"`
	FileSize  int64          `json:"fileSize" validate:"gte=0"`
	FileType  string         `json:"fileType" validate:"max=255"`
	Nonce     string         `json:"nonce" validate:"max=64"`
}

// Validate validates the message input.
// A message must carry text, media or both.
func (m *MessageCreateInput) Validate() error {
	if err := validate.Struct(m); err != nil {
		return err
	}
	if strings.TrimSpace(m.Message) == "" && m.MediaType == MediaNone {
		return ErrEmptyMessage
	}
	return nil
}

type ChatStore interface {
	// GetRoom returns the room with the given id. Rooms spring into existence
	// the first time they are read or written.
	// If the id is negative, it returns ErrInvalidRoom.
	GetRoom(ctx context.Context, roomID int) (*Room, error)

	// RenameRoom sets the channel name of a room and returns the updated room.
	// If the name is blank, it returns ErrInvalidChannelName.
	RenameRoom(ctx context.Context, roomID int, name string) (*Room, error)

	// AppendMessage validates the input, stamps the server fields and appends it to the room.
	// If the input is invalid, it returns ErrInvalidMessage.
	// If the input carries a nonce that was already stored in the room, the stored
	// message is returned and nothing is appended.
	AppendMessage(ctx context.Context, roomID int, input MessageCreateInput) (*Message, error)

	// GetRoomMessages returns every message in the room in the order they were appended.
	// An empty, non-nil slice is returned for an empty room.
	GetRoomMessages(ctx context.Context, roomID int) ([]Message, error)
}
