// Package ingest turns raw match-v5 documents into store rows for the tracked player.
// Everything here is pure: no network and no storage access.
package ingest

import (
	"math"
	"time"

	"summoner-insights/internal/db"
	"summoner-insights/internal/riot"
)

// CreationLayout is the local-time format stored in matches.game_creation.
// It sorts lexically in chronological order.
const CreationLayout = "2006-01-02 15:04:05"

// KDA returns (kills+assists)/max(deaths,1) rounded to 2 decimals
func KDA(kills, deaths, assists int) float64 {
	d := deaths
	if d < 1 {
		d = 1
	}
	return math.Round(float64(kills+assists)/float64(d)*100) / 100
}

// FormatCreation converts an epoch-millisecond creation time to local time
func FormatCreation(epochMillis int64) string {
	return time.UnixMilli(epochMillis).Local().Format(CreationLayout)
}

// NormalizeMatch builds the Match row for puuid. It returns false when the
// player is not in the match; callers skip the match.
func NormalizeMatch(match *riot.MatchResponse, puuid string) (db.Match, bool) {
	p, ok := riot.FindParticipant(match, puuid)
	if !ok {
		return db.Match{}, false
	}

	return db.Match{
		MatchID:       match.Metadata.MatchID,
		GameCreation:  FormatCreation(match.Info.GameCreation),
		GameDuration:  match.Info.GameDuration,
		GameMode:      match.Info.GameMode,
		Champion:      p.ChampionName,
		Kills:         p.Kills,
		Deaths:        p.Deaths,
		Assists:       p.Assists,
		KDA:           KDA(p.Kills, p.Deaths, p.Assists),
		CS:            p.TotalMinionsKilled + p.NeutralMinionsKilled,
		GoldEarned:    p.GoldEarned,
		DamageDealt:   p.TotalDamageDealtToChampions,
		DamageTaken:   p.TotalDamageTaken,
		VisionScore:   p.VisionScore,
		Win:           p.Win,
		Position:      p.TeamPosition,
		Items:         [6]int{p.Item0, p.Item1, p.Item2, p.Item3, p.Item4, p.Item5},
		ParticipantID: p.ParticipantID,
	}, true
}
