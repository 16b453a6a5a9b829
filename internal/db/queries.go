package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Reader runs read-only queries on a connection owned by Store.View
type Reader struct {
	conn    *sql.DB
	dialect Dialect
}

const matchColumns = `match_id, game_creation, game_duration, game_mode, champion,
	kills, deaths, assists, kda, cs, gold_earned, damage_dealt, damage_taken,
	vision_score, win, position, item_0, item_1, item_2, item_3, item_4, item_5, participant_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (Match, error) {
	var (
		m        Match
		creation sql.NullString
		mode     sql.NullString
		position sql.NullString
	)
	err := row.Scan(&m.MatchID, &creation, &m.GameDuration, &mode, &m.Champion,
		&m.Kills, &m.Deaths, &m.Assists, &m.KDA, &m.CS, &m.GoldEarned, &m.DamageDealt, &m.DamageTaken,
		&m.VisionScore, &m.Win, &position,
		&m.Items[0], &m.Items[1], &m.Items[2], &m.Items[3], &m.Items[4], &m.Items[5],
		&m.ParticipantID)
	m.GameCreation = creation.String
	m.GameMode = mode.String
	m.Position = position.String
	return m, err
}

func positionFrom(x, y sql.NullInt64) *Position {
	if !x.Valid || !y.Valid {
		return nil
	}
	return &Position{X: int(x.Int64), Y: int(y.Int64)}
}

// RecentMatches returns up to limit matches, most recent first
func (r *Reader) RecentMatches(ctx context.Context, limit int) ([]Match, error) {
	rows, err := r.conn.QueryContext(ctx, r.dialect.rebind(
		`SELECT `+matchColumns+` FROM matches ORDER BY game_creation DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Match returns one match by id. The bool is false when it does not exist.
func (r *Reader) Match(ctx context.Context, matchID string) (Match, bool, error) {
	row := r.conn.QueryRowContext(ctx, r.dialect.rebind(
		`SELECT `+matchColumns+` FROM matches WHERE match_id = ?`), matchID)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return Match{}, false, nil
	}
	if err != nil {
		return Match{}, false, fmt.Errorf("failed to query match %s: %w", matchID, err)
	}
	return m, true, nil
}

// Snapshots returns a match's snapshots ordered by minute
func (r *Reader) Snapshots(ctx context.Context, matchID string) ([]TimelineSnapshot, error) {
	return r.snapshots(ctx, []string{matchID})
}

// SnapshotsForMatches returns snapshots for several matches ordered by match and minute
func (r *Reader) SnapshotsForMatches(ctx context.Context, matchIDs []string) ([]TimelineSnapshot, error) {
	return r.snapshots(ctx, matchIDs)
}

func (r *Reader) snapshots(ctx context.Context, matchIDs []string) ([]TimelineSnapshot, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}
	query := `SELECT match_id, minute, cs, gold, xp, level, vision_score, position_x, position_y
		FROM timeline_snapshots WHERE match_id IN (` + placeholders(len(matchIDs)) + `)
		ORDER BY match_id, minute`

	rows, err := r.conn.QueryContext(ctx, r.dialect.rebind(query), stringArgs(matchIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []TimelineSnapshot
	for rows.Next() {
		var (
			s    TimelineSnapshot
			x, y sql.NullInt64
		)
		if err := rows.Scan(&s.MatchID, &s.Minute, &s.CS, &s.Gold, &s.XP, &s.Level, &s.VisionScore, &x, &y); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.Position = positionFrom(x, y)
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// Events returns a match's events ordered by timestamp
func (r *Reader) Events(ctx context.Context, matchID string) ([]TimelineEvent, error) {
	rows, err := r.conn.QueryContext(ctx, r.dialect.rebind(
		`SELECT id, match_id, timestamp, event_type, position_x, position_y, details
		FROM timeline_events WHERE match_id = ? ORDER BY timestamp, id`), matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []TimelineEvent
	for rows.Next() {
		var (
			e       TimelineEvent
			x, y    sql.NullInt64
			details sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.MatchID, &e.Timestamp, &e.EventType, &x, &y, &details); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Position = positionFrom(x, y)
		if e.Detail, err = DecodeDetail(details.String); err != nil {
			return nil, fmt.Errorf("event %d: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Deaths returns CHAMPION_KILL events where the victim is the tracked player's
// slot for that match, across the given matches. Ordered oldest match first,
// then by timestamp, so the last entries are the most recent deaths.
func (r *Reader) Deaths(ctx context.Context, matchIDs []string) ([]Death, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}
	query := `SELECT e.match_id, e.timestamp, e.position_x, e.position_y, e.details, m.participant_id
		FROM timeline_events e JOIN matches m ON m.match_id = e.match_id
		WHERE e.match_id IN (` + placeholders(len(matchIDs)) + `) AND e.event_type = 'CHAMPION_KILL'
		ORDER BY m.game_creation, e.timestamp, e.id`

	rows, err := r.conn.QueryContext(ctx, r.dialect.rebind(query), stringArgs(matchIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deaths: %w", err)
	}
	defer rows.Close()

	var deaths []Death
	for rows.Next() {
		var (
			d       Death
			x, y    sql.NullInt64
			details sql.NullString
			slot    int
		)
		if err := rows.Scan(&d.MatchID, &d.Timestamp, &x, &y, &details, &slot); err != nil {
			return nil, fmt.Errorf("failed to scan death: %w", err)
		}
		detail, err := DecodeDetail(details.String)
		if err != nil {
			return nil, err
		}
		kill, ok := detail.(KillDetail)
		if !ok || slot == 0 || kill.Victim != slot {
			continue
		}
		d.Position = positionFrom(x, y)
		deaths = append(deaths, d)
	}
	return deaths, rows.Err()
}

// ChampionStats aggregates matches per champion, most played first.
// An empty champion aggregates every champion.
func (r *Reader) ChampionStats(ctx context.Context, champion string) ([]ChampionStat, error) {
	query := `SELECT champion, COUNT(*) AS games,
			SUM(CASE WHEN win THEN 1 ELSE 0 END) AS wins,
			AVG(kda), AVG(cs), AVG(vision_score)
		FROM matches`
	var args []any
	if champion != "" {
		query += ` WHERE champion = ?`
		args = append(args, champion)
	}
	query += ` GROUP BY champion ORDER BY games DESC, champion`

	rows, err := r.conn.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query champion stats: %w", err)
	}
	defer rows.Close()

	var stats []ChampionStat
	for rows.Next() {
		var (
			c               ChampionStat
			kda, cs, vision sql.NullFloat64
		)
		if err := rows.Scan(&c.Champion, &c.Games, &c.Wins, &kda, &cs, &vision); err != nil {
			return nil, fmt.Errorf("failed to scan champion stat: %w", err)
		}
		c.AvgKDA, c.AvgCS, c.AvgVision = kda.Float64, cs.Float64, vision.Float64
		stats = append(stats, c)
	}
	return stats, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
