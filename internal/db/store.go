package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrDatabaseNotFound is returned by read operations when the SQLite file does not exist
var ErrDatabaseNotFound = errors.New("database file not found")

// EventMode controls how WriteTimeline treats events already stored for a match
type EventMode string

const (
	// EventsReplace deletes a match's events before inserting the new set
	EventsReplace EventMode = "replace"
	// EventsAppend inserts without deleting, so re-ingestion duplicates events
	EventsAppend EventMode = "append"
)

// ParseEventMode validates an EVENT_MODE value. Empty means replace.
func ParseEventMode(s string) (EventMode, error) {
	switch EventMode(strings.ToLower(s)) {
	case "", EventsReplace:
		return EventsReplace, nil
	case EventsAppend:
		return EventsAppend, nil
	}
	return "", fmt.Errorf("unknown event mode %q", s)
}

const pingTimeout = 10 * time.Second

// Store opens a short-lived connection for every unit of work
// (one match write, one report) and closes it afterwards.
type Store struct {
	dsn       string
	conn      string
	dialect   Dialect
	eventMode EventMode
	logger    *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithAuthToken sets the libSQL/Turso auth token
func WithAuthToken(token string) Option {
	return func(s *Store) {
		s.conn = connString(s.dialect, s.dsn, token)
	}
}

// WithEventMode sets the re-ingestion policy for timeline events
func WithEventMode(mode EventMode) Option {
	return func(s *Store) {
		s.eventMode = mode
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger.Named("store")
	}
}

// NewStore creates a Store for dsn. No connection is made until first use.
func NewStore(dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database location is required")
	}
	d := DetectDialect(dsn)
	s := &Store{
		dsn:       dsn,
		conn:      connString(d, dsn, ""),
		dialect:   d,
		eventMode: EventsReplace,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dialect returns the backend in use
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Location is the DSN with credentials stripped, for logs and reports
func (s *Store) Location() string {
	if i := strings.Index(s.dsn, "?"); i >= 0 {
		return s.dsn[:i]
	}
	return s.dsn
}

// EventMode returns the configured event re-ingestion policy
func (s *Store) EventMode() EventMode {
	return s.eventMode
}

func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	conn, err := sql.Open(s.dialect.driverName(), s.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", s.dialect, err)
	}
	conn.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", s.dialect, err)
	}
	return conn, nil
}

// with runs fn on a fresh connection and closes it afterwards
func (s *Store) with(ctx context.Context, fn func(*sql.DB) error) error {
	conn, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// Init creates the three tables if they do not exist
func (s *Store) Init(ctx context.Context) error {
	return s.with(ctx, func(conn *sql.DB) error {
		if err := createTables(ctx, conn, s.dialect); err != nil {
			return err
		}
		s.logger.Debug("schema ready", zap.String("dialect", s.dialect.String()), zap.String("location", s.Location()))
		return nil
	})
}

// checkExists fails fast for reads against a SQLite file that was never created,
// since opening it would silently create an empty database.
func (s *Store) checkExists() error {
	if s.dialect != SQLite {
		return nil
	}
	path := strings.TrimPrefix(s.Location(), "file:")
	if path == ":memory:" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w at: %s", ErrDatabaseNotFound, path)
		}
		return fmt.Errorf("failed to stat database: %w", err)
	}
	return nil
}

// View runs fn against a read-only Reader on a fresh connection
func (s *Store) View(ctx context.Context, fn func(*Reader) error) error {
	if err := s.checkExists(); err != nil {
		return err
	}
	return s.with(ctx, func(conn *sql.DB) error {
		return fn(&Reader{conn: conn, dialect: s.dialect})
	})
}
