package storage

import json "github.com/goccy/go-json"

// RawRecord is one archived match: the untouched match-v5 and timeline
// payloads as fetched, one JSON line per match.
type RawRecord struct {
	MatchID   string          `json:"matchId"`
	PUUID     string          `json:"puuid"` // tracked player at fetch time
	FetchedAt int64           `json:"fetchedAt"`
	Match     json.RawMessage `json:"match"`
	Timeline  json.RawMessage `json:"timeline,omitempty"`
}
