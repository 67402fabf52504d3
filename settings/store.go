package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
)

// Store persists raw values under string keys.
type Store interface {
	// Get returns the value under key. It reports false when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put overwrites the value under key.
	Put(ctx context.Context, key string, value []byte) error
}

// PebbleStore is a Store on a pebble database.
type PebbleStore struct {
	db *pebble.DB
}

type PebbleOption func(*pebble.Options)

// WithFS opens the database on fs instead of the local disk.
func WithFS(fs vfs.FS) PebbleOption {
	return func(o *pebble.Options) {
		o.FS = fs
	}
}

// WithLogger sends pebble's own log lines to logger. Informational lines are
// logged at debug level.
func WithLogger(logger *slog.Logger) PebbleOption {
	return func(o *pebble.Options) {
		o.Logger = pebbleLogger{logger: logger}
	}
}

type pebbleLogger struct {
	logger *slog.Logger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "pebble"))
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), slog.String("component", "pebble"))
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), slog.String("component", "pebble"))
	os.Exit(1)
}

// OpenPebbleStore opens the database in dir. Without WithLogger pebble's log
// lines are discarded.
func OpenPebbleStore(dir string, opts ...PebbleOption) (*PebbleStore, error) {
	options := &pebble.Options{
		Logger: pebbleLogger{logger: slog.New(slog.DiscardHandler)},
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.FS == nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create settings dir: %w", err)
		}
	}
	db, err := pebble.Open(dir, options)
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	defer closer.Close()
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, true, nil
}

func (s *PebbleStore) Put(_ context.Context, key string, value []byte) error {
	if err := s.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
