package db

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Match is one completed game for the tracked player
type Match struct {
	MatchID       string
	GameCreation  string // local time, "2006-01-02 15:04:05"
	GameDuration  int    // seconds
	GameMode      string
	Champion      string
	Kills         int
	Deaths        int
	Assists       int
	KDA           float64
	CS            int
	GoldEarned    int
	DamageDealt   int
	DamageTaken   int
	VisionScore   int
	Win           bool
	Position      string
	Items         [6]int
	ParticipantID int // per-match slot, 0 when unknown
}

// Position is a map coordinate
type Position struct {
	X int
	Y int
}

// TimelineSnapshot is the tracked player's state at one minute of a match
type TimelineSnapshot struct {
	MatchID     string
	Minute      int
	CS          int
	Gold        int
	XP          int
	Level       int
	VisionScore int       // not present in timeline frames, always 0
	Position    *Position // nil when the frame had no position
}

// XY returns the position, or (0, 0) when absent
func (s TimelineSnapshot) XY() (int, int) {
	if s.Position == nil {
		return 0, 0
	}
	return s.Position.X, s.Position.Y
}

// TimelineEvent is one timeline event the tracked player took part in
type TimelineEvent struct {
	ID        int64
	MatchID   string
	Timestamp int64 // ms since game start
	EventType string
	Position  *Position
	Detail    EventDetail
}

// XY returns the position, or (0, 0) when absent
func (e TimelineEvent) XY() (int, int) {
	if e.Position == nil {
		return 0, 0
	}
	return e.Position.X, e.Position.Y
}

// Minute is the game minute the event happened in
func (e TimelineEvent) Minute() int64 {
	return e.Timestamp / 60000
}

// EventDetail is the type-specific payload of a TimelineEvent.
// Implementations: KillDetail, ItemDetail, MonsterDetail, WardDetail, OpaqueDetail.
type EventDetail interface {
	Kind() string
}

const (
	kindKill    = "kill"
	kindItem    = "item"
	kindMonster = "monster"
	kindWard    = "ward"
	kindOpaque  = "opaque"
)

type KillDetail struct {
	Killer     int   `json:"killer"`
	Victim     int   `json:"victim"`
	Assistants []int `json:"assistants"`
}

type ItemDetail struct {
	ItemID int `json:"item_id"`
}

type MonsterDetail struct {
	MonsterType    string `json:"monster_type"`
	MonsterSubType string `json:"monster_subtype,omitempty"`
}

type WardDetail struct {
	WardType string `json:"ward_type"`
}

// OpaqueDetail carries fields of event types without a dedicated variant
type OpaqueDetail struct {
	Fields map[string]any `json:"fields,omitempty"`
}

func (KillDetail) Kind() string    { return kindKill }
func (ItemDetail) Kind() string    { return kindItem }
func (MonsterDetail) Kind() string { return kindMonster }
func (WardDetail) Kind() string    { return kindWard }
func (OpaqueDetail) Kind() string  { return kindOpaque }

// EncodeDetail serializes a detail with a "kind" discriminator.
// nil and empty opaque details encode to "".
func EncodeDetail(d EventDetail) (string, error) {
	var payload any
	switch v := d.(type) {
	case nil:
		return "", nil
	case KillDetail:
		if v.Assistants == nil {
			v.Assistants = []int{}
		}
		payload = struct {
			Kind string `json:"kind"`
			KillDetail
		}{kindKill, v}
	case ItemDetail:
		payload = struct {
			Kind string `json:"kind"`
			ItemDetail
		}{kindItem, v}
	case MonsterDetail:
		payload = struct {
			Kind string `json:"kind"`
			MonsterDetail
		}{kindMonster, v}
	case WardDetail:
		payload = struct {
			Kind string `json:"kind"`
			WardDetail
		}{kindWard, v}
	case OpaqueDetail:
		if len(v.Fields) == 0 {
			return "", nil
		}
		payload = struct {
			Kind string `json:"kind"`
			OpaqueDetail
		}{kindOpaque, v}
	default:
		return "", fmt.Errorf("unknown event detail type %T", d)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode event detail: %w", err)
	}
	return string(b), nil
}

// DecodeDetail parses a stored detail back into its variant
func DecodeDetail(s string) (EventDetail, error) {
	if s == "" {
		return OpaqueDetail{}, nil
	}

	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal([]byte(s), &head); err != nil {
		return nil, fmt.Errorf("failed to decode event detail: %w", err)
	}

	var (
		d   EventDetail
		err error
	)
	switch head.Kind {
	case kindKill:
		var v KillDetail
		err = json.Unmarshal([]byte(s), &v)
		d = v
	case kindItem:
		var v ItemDetail
		err = json.Unmarshal([]byte(s), &v)
		d = v
	case kindMonster:
		var v MonsterDetail
		err = json.Unmarshal([]byte(s), &v)
		d = v
	case kindWard:
		var v WardDetail
		err = json.Unmarshal([]byte(s), &v)
		d = v
	case kindOpaque:
		var v OpaqueDetail
		err = json.Unmarshal([]byte(s), &v)
		d = v
	default:
		return nil, fmt.Errorf("unknown event detail kind %q", head.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s detail: %w", head.Kind, err)
	}
	return d, nil
}

// ChampionStat is one row of the per-champion aggregate
type ChampionStat struct {
	Champion  string
	Games     int
	Wins      int
	AvgKDA    float64
	AvgCS     float64
	AvgVision float64
}

// WinRate returns wins/games as a percentage
func (c ChampionStat) WinRate() float64 {
	if c.Games == 0 {
		return 0
	}
	return float64(c.Wins) / float64(c.Games) * 100
}

// Death is a CHAMPION_KILL where the tracked player was the victim
type Death struct {
	MatchID   string
	Timestamp int64
	Position  *Position
}

// XY returns the position, or (0, 0) when absent
func (d Death) XY() (int, int) {
	if d.Position == nil {
		return 0, 0
	}
	return d.Position.X, d.Position.Y
}
