package db

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

const upsertMatchSQL = `INSERT INTO matches (
		match_id, game_creation, game_duration, game_mode, champion,
		kills, deaths, assists, kda, cs, gold_earned, damage_dealt, damage_taken,
		vision_score, win, position, item_0, item_1, item_2, item_3, item_4, item_5, participant_id
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (match_id) DO UPDATE SET
		game_creation = excluded.game_creation,
		game_duration = excluded.game_duration,
		game_mode = excluded.game_mode,
		champion = excluded.champion,
		kills = excluded.kills,
		deaths = excluded.deaths,
		assists = excluded.assists,
		kda = excluded.kda,
		cs = excluded.cs,
		gold_earned = excluded.gold_earned,
		damage_dealt = excluded.damage_dealt,
		damage_taken = excluded.damage_taken,
		vision_score = excluded.vision_score,
		win = excluded.win,
		position = excluded.position,
		item_0 = excluded.item_0,
		item_1 = excluded.item_1,
		item_2 = excluded.item_2,
		item_3 = excluded.item_3,
		item_4 = excluded.item_4,
		item_5 = excluded.item_5,
		participant_id = excluded.participant_id`

const upsertSnapshotSQL = `INSERT INTO timeline_snapshots (
		match_id, minute, cs, gold, xp, level, vision_score, position_x, position_y
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (match_id, minute) DO UPDATE SET
		cs = excluded.cs,
		gold = excluded.gold,
		xp = excluded.xp,
		level = excluded.level,
		vision_score = excluded.vision_score,
		position_x = excluded.position_x,
		position_y = excluded.position_y`

const insertEventSQL = `INSERT INTO timeline_events (
		match_id, timestamp, event_type, position_x, position_y, details
	) VALUES (?, ?, ?, ?, ?, ?)`

// UpsertMatches writes match rows, replacing any existing row with the same
// match_id. Each row commits on its own. Returns the number of rows affected.
func (s *Store) UpsertMatches(ctx context.Context, matches []Match) (int, error) {
	if len(matches) == 0 {
		return 0, nil
	}

	affected := 0
	err := s.with(ctx, func(conn *sql.DB) error {
		query := s.dialect.rebind(upsertMatchSQL)
		for _, m := range matches {
			res, err := conn.ExecContext(ctx, query,
				m.MatchID, m.GameCreation, m.GameDuration, m.GameMode, m.Champion,
				m.Kills, m.Deaths, m.Assists, m.KDA, m.CS, m.GoldEarned, m.DamageDealt, m.DamageTaken,
				m.VisionScore, s.dialect.boolArg(m.Win), m.Position,
				m.Items[0], m.Items[1], m.Items[2], m.Items[3], m.Items[4], m.Items[5],
				m.ParticipantID)
			if err != nil {
				return fmt.Errorf("failed to upsert match %s: %w", m.MatchID, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				affected += int(n)
			} else {
				affected++
			}
		}
		return nil
	})
	return affected, err
}

// WriteTimeline stores one match's snapshots and events in a single transaction.
// Snapshots are upserted on (match_id, minute). Events follow the store's EventMode.
func (s *Store) WriteTimeline(ctx context.Context, matchID string, snapshots []TimelineSnapshot, events []TimelineEvent) error {
	if len(snapshots) == 0 && len(events) == 0 {
		return nil
	}

	return s.with(ctx, func(conn *sql.DB) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if s.eventMode == EventsReplace {
			if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM timeline_events WHERE match_id = ?`), matchID); err != nil {
				return fmt.Errorf("failed to clear events for %s: %w", matchID, err)
			}
		}

		if len(snapshots) > 0 {
			stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(upsertSnapshotSQL))
			if err != nil {
				return fmt.Errorf("failed to prepare snapshot upsert: %w", err)
			}
			for _, snap := range snapshots {
				x, y := nullablePosition(snap.Position)
				if _, err := stmt.ExecContext(ctx, matchID, snap.Minute, snap.CS, snap.Gold, snap.XP,
					snap.Level, snap.VisionScore, x, y); err != nil {
					stmt.Close()
					return fmt.Errorf("failed to upsert snapshot %s@%d: %w", matchID, snap.Minute, err)
				}
			}
			stmt.Close()
		}

		if len(events) > 0 {
			stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(insertEventSQL))
			if err != nil {
				return fmt.Errorf("failed to prepare event insert: %w", err)
			}
			for _, ev := range events {
				details, err := EncodeDetail(ev.Detail)
				if err != nil {
					stmt.Close()
					return err
				}
				x, y := nullablePosition(ev.Position)
				if _, err := stmt.ExecContext(ctx, matchID, ev.Timestamp, ev.EventType, x, y, details); err != nil {
					stmt.Close()
					return fmt.Errorf("failed to insert event %s@%d: %w", matchID, ev.Timestamp, err)
				}
			}
			stmt.Close()
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit timeline for %s: %w", matchID, err)
		}

		s.logger.Debug("timeline written",
			zap.String("match", matchID),
			zap.Int("snapshots", len(snapshots)),
			zap.Int("events", len(events)),
			zap.String("mode", string(s.eventMode)))
		return nil
	})
}

func nullablePosition(p *Position) (sql.NullInt64, sql.NullInt64) {
	if p == nil {
		return sql.NullInt64{}, sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(p.X), Valid: true}, sql.NullInt64{Int64: int64(p.Y), Valid: true}
}

// KnownMatchIDs returns every stored match id
func (s *Store) KnownMatchIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.with(ctx, func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, `SELECT match_id FROM matches`)
		if err != nil {
			return fmt.Errorf("failed to list match ids: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}
