package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type SQLiteChatStore struct {
	db  *sql.DB
	now func() time.Time
}

type SQLiteChatStoreOption func(*SQLiteChatStore)

// WithClock replaces the clock used to stamp messages.
func WithClock(now func() time.Time) SQLiteChatStoreOption {
	return func(s *SQLiteChatStore) {
		s.now = now
	}
}

func NewSQLiteChatStore(db *sql.DB, opts ...SQLiteChatStoreOption) *SQLiteChatStore {
	s := &SQLiteChatStore{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteChatStore) ensureRoom(ctx context.Context, q querier, roomID int) (*Room, error) {
	if roomID < 0 {
		return nil, ErrInvalidRoom
	}

	query := `INSERT INTO rooms (id, channel_name, created_at) VALUES (@id, '', @created_at)
	          ON CONFLICT (id) DO NOTHING`
	if _, err := q.ExecContext(ctx, query,
		sql.Named("id", roomID), sql.Named("created_at", s.now().UTC())); err != nil {
		return nil, fmt.Errorf("ExecContext(insert room): %w", err)
	}

	room := Room{ID: roomID}
	row := q.QueryRowContext(ctx, `SELECT channel_name FROM rooms WHERE id = @id`, sql.Named("id", roomID))
	if err := row.Scan(&room.ChannelName); err != nil {
		return nil, fmt.Errorf("row.Scan: %w", err)
	}
	return &room, nil
}

func (s *SQLiteChatStore) GetRoom(ctx context.Context, roomID int) (*Room, error) {
	return s.ensureRoom(ctx, s.db, roomID)
}

func (s *SQLiteChatStore) RenameRoom(ctx context.Context, roomID int, name string) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidChannelName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BeginTx: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.ensureRoom(ctx, tx, roomID); err != nil {
		return nil, err
	}

	query := `UPDATE rooms SET channel_name = @channel_name WHERE id = @id`
	if _, err := tx.ExecContext(ctx, query,
		sql.Named("channel_name", name), sql.Named("id", roomID)); err != nil {
		return nil, fmt.Errorf("ExecContext(update room): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}
	return &Room{ID: roomID, ChannelName: name}, nil
}

func (s *SQLiteChatStore) AppendMessage(ctx context.Context, roomID int, input MessageCreateInput) (*Message, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("BeginTx: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.ensureRoom(ctx, tx, roomID); err != nil {
		return nil, err
	}

	if input.Nonce != "" {
		existing, err := s.messageByNonce(ctx, tx, roomID, input.Nonce)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	var uid int
	row := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM messages WHERE room_id = @room_id`, sql.Named("room_id", roomID))
	if err := row.Scan(&uid); err != nil {
		return nil, fmt.Errorf("row.Scan(count): %w", err)
	}

	now := s.now()
	msg := Message{
		UID:       uid,
		Username:  input.Username,
		UserType:  input.UserType,
		Message:   input.Message,
		Time:      input.Time,
		Date:      input.Date,
		Timestamp: now.Format(time.RFC3339),
		MediaType: input.MediaType,
		MediaURL:  input.MediaURL,
		FileName:  input.FileName,
		FileSize:  input.FileSize,
		FileType:  input.FileType,
		Nonce:     input.Nonce,
	}
	if msg.Time == "" {
		msg.Time = now.Format(TimeLayout)
	}
	if msg.Date == "" {
		msg.Date = now.Format(DateLayout)
	}

	var nonce sql.NullString
	if msg.Nonce != "" {
		nonce = sql.NullString{String: msg.Nonce, Valid: true}
	}

	query := `
	INSERT INTO messages (room_id, uid, username, user_type, message, time, date, timestamp,
	media_type, media_url, file_name, file_size, file_type, nonce)
	VALUES (@room_id, @uid, @username, @user_type, @message, @time, @date, @timestamp,
	@media_type, @media_url, @file_name, @file_size, @file_type, @nonce)`
	_, err = tx.ExecContext(ctx, query,
		sql.Named("room_id", roomID), sql.Named("uid", msg.UID),
		sql.Named("username", msg.Username), sql.Named("user_type", string(msg.UserType)),
		sql.Named("message", msg.Message), sql.Named("time", msg.Time),
		sql.Named("date", msg.Date), sql.Named("timestamp", msg.Timestamp),
		sql.Named("media_type", string(msg.MediaType)), sql.Named("media_url", string(msg.MediaURL)),
		sql.Named("file_name", msg.FileName), sql.Named("file_size", msg.FileSize),
		sql.Named("file_type", msg.FileType), sql.Named("nonce", nonce),
	)
	if err != nil {
		return nil, fmt.Errorf("ExecContext(insert message): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Commit: %w", err)
	}

	return &msg, nil
}

const messageColumns = `uid, username, user_type, message, time, date, timestamp,
	media_type, media_url, file_name, file_size, file_type, coalesce(nonce, '')`

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner, msg *Message) error {
	var userType, mediaType, mediaURL string
	if err := row.Scan(&msg.UID, &msg.Username, &userType, &msg.Message, &msg.Time, &msg.Date,
		&msg.Timestamp, &mediaType, &mediaURL, &msg.FileName, &msg.FileSize, &msg.FileType,
		&msg.Nonce); err != nil {
		return err
	}
	msg.UserType = UserType(userType)
	msg.MediaType = MediaType(mediaType)
	msg.MediaURL = NullableString(mediaURL)
	return nil
}

func (s *SQLiteChatStore) messageByNonce(ctx context.Context, q querier, roomID int, nonce string) (*Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE room_id = @room_id AND nonce = @nonce`
	row := q.QueryRowContext(ctx, query, sql.Named("room_id", roomID), sql.Named("nonce", nonce))
	var msg Message
	if err := scanMessage(row, &msg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}
	return &msg, nil
}

func (s *SQLiteChatStore) GetRoomMessages(ctx context.Context, roomID int) ([]Message, error) {
	if _, err := s.ensureRoom(ctx, s.db, roomID); err != nil {
		return nil, err
	}

	query := `SELECT ` + messageColumns + ` FROM messages WHERE room_id = @room_id ORDER BY uid ASC`
	rows, err := s.db.QueryContext(ctx, query, sql.Named("room_id", roomID))
	if err != nil {
		return nil, fmt.Errorf("QueryContext: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := scanMessage(rows, &msg); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return messages, nil
}
