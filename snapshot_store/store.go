package snapshot_store

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultPlaceholder is returned by GetCurrentText before anything was saved.
const DefaultPlaceholder = "// Write JavaScript here..."

// currentKey is the fixed key of the current text slot.
const currentKey = "current"

// Options configures a Store.
type Options struct {
	BusyTimeout int // milliseconds
	Placeholder string
	MaxDepth    int // depth cap used when normalizing legacy rows
	Logger      *slog.Logger
}

// Store persists the current text slot and the snapshot log in one SQLite file.
// The connection is opened lazily, once, and shared by every operation.
type Store struct {
	path    string
	options Options
	now     func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	db    *sql.DB
	opens atomic.Int32
}

// New prepares a store backed by the SQLite file at path. Nothing is opened until first use.
func New(path string, options Options) *Store {
	if options.BusyTimeout <= 0 {
		options.BusyTimeout = 10_000
	}
	if options.Placeholder == "" {
		options.Placeholder = DefaultPlaceholder
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Store{path: path, options: options, now: time.Now}
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Init opens and migrates the database if that has not happened yet.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.handle(ctx)
	return err
}

// handle returns the shared connection. Concurrent first callers wait on the same
// open+migrate attempt; a failed attempt is retried by the next caller.
func (s *Store) handle(ctx context.Context) (*sql.DB, error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if db != nil {
		return db, nil
	}

	v, err, _ := s.group.Do("open", func() (interface{}, error) {
		s.mu.RLock()
		existing := s.db
		s.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		opened, err := s.open(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.db = opened
		s.mu.Unlock()
		return opened, nil
	})
	if err != nil {
		return nil, storageError("open", err)
	}
	return v.(*sql.DB), nil
}

func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	s.opens.Add(1)

	db, err := openDB(s.path, s.options.BusyTimeout)
	if err != nil {
		return nil, err
	}

	from, to, err := migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if from != to {
		s.options.Logger.Info("snapshot store schema upgraded", "path", s.path, "from", from, "to", to)
	} else {
		s.options.Logger.Debug("snapshot store opened", "path", s.path, "version", to)
	}
	return db, nil
}

// Close releases the connection. A later operation reopens it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return storageError("close", err)
}
