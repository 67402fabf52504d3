package core

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var fixtureSeq atomic.Int64

// fixedNow is the clock used by every store fixture: 2024-03-09 14:05:00 UTC.
var fixedNow = time.Date(2024, time.March, 9, 14, 5, 0, 0, time.UTC)

type ChatFixture struct {
	db        *SQLiteDB
	chatStore *SQLiteChatStore
	ctx       context.Context
	tearDown  func()
	t         *testing.T
}

func NewChatFixture(t *testing.T) *ChatFixture {
	ctx, cancel := context.WithCancel(context.Background())

	name := fmt.Sprintf("%s-%d", strings.ReplaceAll(t.Name(), "/", "_"), fixtureSeq.Add(1))
	db, err := NewSQLiteDB(name, "", &SQLiteDBOption{Mode: "memory", Cache: "shared"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	return &ChatFixture{
		db:        db,
		chatStore: NewSQLiteChatStore(db.DB, WithClock(func() time.Time { return fixedNow })),
		ctx:       ctx,
		t:         t,
		tearDown: func() {
			cancel()
			db.Close()
		},
	}
}

func seedMessages(f *ChatFixture, roomID int, texts ...string) []Message {
	messages := make([]Message, 0, len(texts))
	for _, text := range texts {
		msg, err := f.chatStore.AppendMessage(f.ctx, roomID, MessageCreateInput{
			Username: "alice",
			UserType: UserTypeUser,
			Message:  text,
		})
		if err != nil {
			f.t.Fatal(err)
		}
		messages = append(messages, *msg)
	}
	return messages
}
