package ingest

import (
	"maps"

	"summoner-insights/internal/db"
	"summoner-insights/internal/riot"
)

// NormalizeTimeline extracts the tracked player's per-minute snapshots and the
// events they took part in, both in frame order. A player without a slot in
// the timeline yields two empty slices.
func NormalizeTimeline(timeline *riot.TimelineResponse, puuid string) ([]db.TimelineSnapshot, []db.TimelineEvent) {
	snapshots := []db.TimelineSnapshot{}
	events := []db.TimelineEvent{}

	slot, ok := riot.ParticipantSlot(timeline, puuid)
	if !ok {
		return snapshots, events
	}
	matchID := timeline.Metadata.MatchID

	for _, frame := range timeline.Info.Frames {
		if pf, ok := frame.FrameFor(slot); ok {
			snapshots = append(snapshots, db.TimelineSnapshot{
				MatchID:  matchID,
				Minute:   int(frame.Timestamp / 60000),
				CS:       pf.MinionsKilled + pf.JungleMinionsKilled,
				Gold:     pf.TotalGold,
				XP:       pf.XP,
				Level:    pf.Level,
				Position: convertPosition(pf.Position),
			})
		}

		for _, ev := range frame.Events {
			if !ev.Involves(slot) {
				continue
			}
			events = append(events, db.TimelineEvent{
				MatchID:   matchID,
				Timestamp: ev.Timestamp,
				EventType: ev.Type,
				Position:  convertPosition(ev.Position),
				Detail:    EventDetail(ev),
			})
		}
	}

	return snapshots, events
}

// EventDetail picks the detail variant for an event's type
func EventDetail(ev riot.TimelineEvent) db.EventDetail {
	switch ev.Type {
	case riot.EventChampionKill:
		assistants := ev.AssistingParticipantIDs
		if assistants == nil {
			assistants = []int{}
		}
		return db.KillDetail{Killer: ev.KillerID, Victim: ev.VictimID, Assistants: assistants}
	case riot.EventItemPurchased:
		return db.ItemDetail{ItemID: ev.ItemID}
	case riot.EventEliteMonsterKill:
		return db.MonsterDetail{MonsterType: ev.MonsterType, MonsterSubType: ev.MonsterSubType}
	case riot.EventWardPlaced, riot.EventWardKill:
		return db.WardDetail{WardType: ev.WardType}
	default:
		return db.OpaqueDetail{Fields: maps.Clone(ev.Fields)}
	}
}

func convertPosition(p *riot.Position) *db.Position {
	if p == nil {
		return nil
	}
	return &db.Position{X: p.X, Y: p.Y}
}
