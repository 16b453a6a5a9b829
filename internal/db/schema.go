package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL backend behind a DSN
type Dialect int

const (
	SQLite Dialect = iota
	LibSQL
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case LibSQL:
		return "libsql"
	case Postgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

// driverName is the database/sql driver registered for the dialect
func (d Dialect) driverName() string {
	switch d {
	case LibSQL:
		return "libsql"
	case Postgres:
		return "pgx"
	default:
		return "sqlite"
	}
}

// DetectDialect picks the backend from the DSN scheme. Anything without a
// known scheme is a local SQLite file path.
func DetectDialect(dsn string) Dialect {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Postgres
	case strings.HasPrefix(lower, "libsql://"), strings.HasPrefix(lower, "https://"),
		strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "wss://"), strings.HasPrefix(lower, "ws://"):
		return LibSQL
	default:
		return SQLite
	}
}

// connString builds the driver DSN
func connString(d Dialect, dsn, authToken string) string {
	switch d {
	case LibSQL:
		if authToken == "" {
			return dsn
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "authToken=" + url.QueryEscape(authToken)
	case SQLite:
		if strings.Contains(dsn, "?") {
			return dsn
		}
		return dsn + "?_pragma=busy_timeout(5000)"
	default:
		return dsn
	}
}

// rebind rewrites ? placeholders to $1..$n for Postgres
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// boolArg converts a Go bool to what the backend stores for BOOLEAN columns
func (d Dialect) boolArg(v bool) any {
	if d == Postgres {
		return v
	}
	if v {
		return 1
	}
	return 0
}

func (d Dialect) schema() []string {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	realType := "REAL"
	if d == Postgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
		realType = "DOUBLE PRECISION"
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			game_creation TEXT,
			game_duration INTEGER,
			game_mode TEXT,
			champion TEXT,
			kills INTEGER,
			deaths INTEGER,
			assists INTEGER,
			kda %s,
			cs INTEGER,
			gold_earned INTEGER,
			damage_dealt INTEGER,
			damage_taken INTEGER,
			vision_score INTEGER,
			win BOOLEAN,
			position TEXT,
			item_0 INTEGER,
			item_1 INTEGER,
			item_2 INTEGER,
			item_3 INTEGER,
			item_4 INTEGER,
			item_5 INTEGER,
			participant_id INTEGER NOT NULL DEFAULT 0
		)`, realType),
		`CREATE TABLE IF NOT EXISTS timeline_snapshots (
			match_id TEXT NOT NULL,
			minute INTEGER NOT NULL,
			cs INTEGER,
			gold INTEGER,
			xp INTEGER,
			level INTEGER,
			vision_score INTEGER,
			position_x INTEGER,
			position_y INTEGER,
			PRIMARY KEY (match_id, minute)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS timeline_events (
			%s,
			match_id TEXT NOT NULL,
			timestamp BIGINT,
			event_type TEXT,
			position_x INTEGER,
			position_y INTEGER,
			details TEXT
		)`, idColumn),
		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_matches_creation ON matches(game_creation)`,
		`CREATE INDEX IF NOT EXISTS idx_timeline_events_match ON timeline_events(match_id, timestamp)`,
	}
}

// createTables runs the idempotent DDL for the dialect
func createTables(ctx context.Context, conn *sql.DB, d Dialect) error {
	for _, query := range d.schema() {
		if _, err := conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
