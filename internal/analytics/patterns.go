package analytics

import (
	"sort"
	"strconv"
	"strings"

	"summoner-insights/internal/db"
)

// Phase is the game stage a death falls into
type Phase int

const (
	PhaseEarly Phase = iota // before 15m
	PhaseMid                // 15m up to 25m
	PhaseLate               // 25m and later
)

const (
	earlyGameEnd = 15 * 60 * 1000
	midGameEnd   = 25 * 60 * 1000
)

// DeathPhase buckets an event timestamp (ms since game start)
func DeathPhase(timestampMs int64) Phase {
	switch {
	case timestampMs < earlyGameEnd:
		return PhaseEarly
	case timestampMs < midGameEnd:
		return PhaseMid
	}
	return PhaseLate
}

// Area is a coarse map region
type Area int

const (
	AreaRiverMid Area = iota
	AreaJungleSide
)

// River and mid lane occupy the central square of the map, bounds inclusive
const (
	centerMin = 4000
	centerMax = 10000
)

// DeathArea classifies a map coordinate
func DeathArea(x, y int) Area {
	if x >= centerMin && x <= centerMax && y >= centerMin && y <= centerMax {
		return AreaRiverMid
	}
	return AreaJungleSide
}

// Trend compares the recent half of a history to the older half
type Trend string

const (
	TrendImproving Trend = "📈 Improving"
	TrendDeclining Trend = "📉 Declining"
	TrendStable    Trend = "➡️ Stable"
)

// ClassifyTrend compares two win rates
func ClassifyTrend(recentWinRate, olderWinRate float64) Trend {
	switch {
	case recentWinRate > olderWinRate:
		return TrendImproving
	case recentWinRate < olderWinRate:
		return TrendDeclining
	}
	return TrendStable
}

// SplitHalves splits a most-recent-first history into the recent ⌊n/2⌋ and the rest
func SplitHalves(matches []db.Match) (recent, older []db.Match) {
	half := len(matches) / 2
	return matches[:half], matches[half:]
}

func winRate(matches []db.Match) float64 {
	if len(matches) == 0 {
		return 0
	}
	return float64(countWins(matches)) / float64(len(matches)) * 100
}

func countWins(matches []db.Match) int {
	wins := 0
	for _, m := range matches {
		if m.Win {
			wins++
		}
	}
	return wins
}

// ProgressPoint is the average CS at one sampled minute
type ProgressPoint struct {
	Minute int
	AvgCS  float64
	Rate   float64 // CS per minute since the previous point
}

// progressionStep samples every fifth recorded minute
const progressionStep = 5

// CSProgression averages snapshot CS per minute across matches, then keeps every
// fifth distinct minute in ascending order. The first point's rate is its CS over
// its minute; later points use the gain over the sampling step.
func CSProgression(snapshots []db.TimelineSnapshot) []ProgressPoint {
	if len(snapshots) == 0 {
		return nil
	}

	byMinute := make(map[int][]int)
	for _, s := range snapshots {
		byMinute[s.Minute] = append(byMinute[s.Minute], s.CS)
	}
	minutes := make([]int, 0, len(byMinute))
	for m := range byMinute {
		minutes = append(minutes, m)
	}
	sort.Ints(minutes)

	var (
		points []ProgressPoint
		prev   float64
	)
	for i := 0; i < len(minutes); i += progressionStep {
		minute := minutes[i]
		avg := mean(byMinute[minute])

		var rate float64
		if len(points) == 0 {
			rate = avg / float64(max(minute, 1))
		} else {
			rate = (avg - prev) / progressionStep
		}
		points = append(points, ProgressPoint{Minute: minute, AvgCS: avg, Rate: rate})
		prev = avg
	}
	return points
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// championGroup keeps per-champion values in first-appearance order
type championGroup struct {
	order  []string
	values map[string][]int
}

func groupByChampion(matches []db.Match, value func(db.Match) int) championGroup {
	g := championGroup{values: make(map[string][]int)}
	for _, m := range matches {
		if _, ok := g.values[m.Champion]; !ok {
			g.order = append(g.order, m.Champion)
		}
		g.values[m.Champion] = append(g.values[m.Champion], value(m))
	}
	return g
}

// formatKDA prints a stored KDA the way it was computed, keeping one decimal for whole values
func formatKDA(kda float64) string {
	s := strconv.FormatFloat(kda, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// shortMatchID returns the last 8 characters of a match id
func shortMatchID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}
