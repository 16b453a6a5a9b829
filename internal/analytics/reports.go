package analytics

import (
	"context"
	"fmt"
	"strings"

	"summoner-insights/internal/db"

	"github.com/dustin/go-humanize"
)

const (
	noMatches        = "No match data found in database."
	noTrendData      = "No match data available for trend analysis."
	noChampionData   = "No champion data found."
	noDeathMatches   = "No matches found for death pattern analysis."
	noDeathData      = "No death data found in recent matches."
	noFarmingData    = "No farming data available."
	timelineSample   = 5
	recentDeathCount = 5
	listedEventCount = 5
)

func comma(n int) string {
	return humanize.Comma(int64(n))
}

func outcome(win bool) string {
	if win {
		return "WIN"
	}
	return "LOSS"
}

// RecentMatches lists the last limit matches, most recent first
func (e *Engine) RecentMatches(ctx context.Context, limit int) (string, error) {
	if err := checkLimit("limit", limit); err != nil {
		return "", err
	}

	var matches []db.Match
	err := e.view(ctx, "recent_matches", func(r *db.Reader) error {
		var err error
		matches, err = r.RecentMatches(ctx, limit)
		return err
	})
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return noMatches, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Recent %d Matches\n\n", len(matches))
	for _, m := range matches {
		status := "🔴 LOSS"
		if m.Win {
			status = "🟢 WIN"
		}
		fmt.Fprintf(&b, "## %s - %s\n", m.Champion, status)
		fmt.Fprintf(&b, "**Match ID:** %s\n", m.MatchID)
		fmt.Fprintf(&b, "**Date:** %s | **Duration:** %dm | **Mode:** %s | **Position:** %s\n",
			m.GameCreation, m.GameDuration/60, m.GameMode, m.Position)
		fmt.Fprintf(&b, "**KDA:** %d/%d/%d (%s) | **CS:** %d | **Gold:** %s | **Vision:** %d\n\n",
			m.Kills, m.Deaths, m.Assists, formatKDA(m.KDA), m.CS, comma(m.GoldEarned), m.VisionScore)
	}
	return b.String(), nil
}

// MatchTimeline reconstructs one match from its snapshots and events
func (e *Engine) MatchTimeline(ctx context.Context, matchID string) (string, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return "", fmt.Errorf("%w: match id is required", ErrInvalidArgument)
	}

	var (
		match     db.Match
		found     bool
		snapshots []db.TimelineSnapshot
		events    []db.TimelineEvent
	)
	err := e.view(ctx, "match_timeline", func(r *db.Reader) error {
		var err error
		if match, found, err = r.Match(ctx, matchID); err != nil || !found {
			return err
		}
		if snapshots, err = r.Snapshots(ctx, matchID); err != nil {
			return err
		}
		events, err = r.Events(ctx, matchID)
		return err
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "No match found with ID: " + matchID, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Timeline Analysis: %s (%s)\n", match.Champion, outcome(match.Win))
	fmt.Fprintf(&b, "**Match ID:** %s | **Duration:** %dm\n\n", match.MatchID, match.GameDuration/60)

	if len(snapshots) > 0 {
		b.WriteString("## Performance Progression\n")
		b.WriteString("| Min | CS | Gold | XP | Level | Position |\n")
		b.WriteString("|-----|----|----|-------|-------|---------|\n")
		for i := 0; i < len(snapshots); i += timelineSample {
			s := snapshots[i]
			x, y := s.XY()
			fmt.Fprintf(&b, "| %d | %d | %s | %s | %d | (%d, %d) |\n",
				s.Minute, s.CS, comma(s.Gold), comma(s.XP), s.Level, x, y)
		}
	}

	if len(events) > 0 {
		fmt.Fprintf(&b, "\n## Key Events (%d total)\n", len(events))
		deaths, kills := championKills(events, match.ParticipantID)
		writeKillList(&b, "Deaths", "Death", deaths)
		writeKillList(&b, "Kills/Assists", "Kill", kills)
	}
	return b.String(), nil
}

// championKills splits CHAMPION_KILL events into those where slot died and those where slot killed
func championKills(events []db.TimelineEvent, slot int) (deaths, kills []db.TimelineEvent) {
	if slot == 0 {
		return nil, nil
	}
	for _, ev := range events {
		if ev.EventType != "CHAMPION_KILL" {
			continue
		}
		kill, ok := ev.Detail.(db.KillDetail)
		if !ok {
			continue
		}
		switch slot {
		case kill.Victim:
			deaths = append(deaths, ev)
		case kill.Killer:
			kills = append(kills, ev)
		}
	}
	return deaths, kills
}

func writeKillList(b *strings.Builder, heading, label string, events []db.TimelineEvent) {
	if len(events) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s (%d)\n", heading, len(events))
	for _, ev := range events[:min(len(events), listedEventCount)] {
		x, y := ev.XY()
		detail, err := db.EncodeDetail(ev.Detail)
		if err != nil {
			detail = ev.Detail.Kind()
		}
		fmt.Fprintf(b, "- **%dm**: %s at (%d, %d) - %s\n", ev.Minute(), label, x, y, detail)
	}
}

// PerformanceTrends summarizes the last n matches and compares the recent half to the older half
func (e *Engine) PerformanceTrends(ctx context.Context, n int) (string, error) {
	if err := checkLimit("matches", n); err != nil {
		return "", err
	}

	var matches []db.Match
	err := e.view(ctx, "performance_trends", func(r *db.Reader) error {
		var err error
		matches, err = r.RecentMatches(ctx, n)
		return err
	})
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return noTrendData, nil
	}

	total := float64(len(matches))
	var kda, cs, vision, duration float64
	champions := make(map[string]struct{})
	for _, m := range matches {
		kda += m.KDA
		cs += float64(m.CS)
		vision += float64(m.VisionScore)
		duration += float64(m.GameDuration)
		champions[m.Champion] = struct{}{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Performance Trends (Last %d matches)\n\n", len(matches))
	b.WriteString("## Overall Statistics\n")
	fmt.Fprintf(&b, "- **Win Rate:** %.1f%% (%d/%d)\n", winRate(matches), countWins(matches), len(matches))
	fmt.Fprintf(&b, "- **Average KDA:** %.2f\n", kda/total)
	fmt.Fprintf(&b, "- **Average CS:** %.1f\n", cs/total)
	fmt.Fprintf(&b, "- **Average Vision Score:** %.1f\n", vision/total)
	fmt.Fprintf(&b, "- **Average Game Duration:** %.1f minutes\n\n", duration/total/60)

	b.WriteString("## Trend Analysis\n")
	recent, older := SplitHalves(matches)
	if len(recent) > 0 && len(older) > 0 {
		recentWR, olderWR := winRate(recent), winRate(older)
		fmt.Fprintf(&b, "- **Recent Performance:** %s\n", ClassifyTrend(recentWR, olderWR))
		fmt.Fprintf(&b, "  - Recent %d matches: %.1f%% WR\n", len(recent), recentWR)
		fmt.Fprintf(&b, "  - Previous %d matches: %.1f%% WR\n\n", len(older), olderWR)
	}
	fmt.Fprintf(&b, "- **Champion Pool:** %d unique champions\n", len(champions))
	return b.String(), nil
}

// ChampionPerformance tabulates per-champion results, optionally for one champion
func (e *Engine) ChampionPerformance(ctx context.Context, champion string) (string, error) {
	champion = strings.TrimSpace(champion)

	var stats []db.ChampionStat
	err := e.view(ctx, "champion_performance", func(r *db.Reader) error {
		var err error
		stats, err = r.ChampionStats(ctx, champion)
		return err
	})
	if err != nil {
		return "", err
	}
	if len(stats) == 0 {
		return noChampionData, nil
	}

	var b strings.Builder
	b.WriteString("# Champion Performance Analysis\n\n")
	b.WriteString("| Champion | Games | Win Rate | Avg KDA | Avg CS | Avg Vision |\n")
	b.WriteString("|----------|-------|----------|---------|---------|------------|\n")
	for _, c := range stats {
		fmt.Fprintf(&b, "| %s | %d | %.1f%% | %.2f | %.1f | %.1f |\n",
			c.Champion, c.Games, c.WinRate(), c.AvgKDA, c.AvgCS, c.AvgVision)
	}
	return b.String(), nil
}

// DeathPatterns buckets the tracked player's deaths over the last n matches by phase and area
func (e *Engine) DeathPatterns(ctx context.Context, n int) (string, error) {
	if err := checkLimit("matches", n); err != nil {
		return "", err
	}

	var (
		matchIDs []string
		deaths   []db.Death
	)
	err := e.view(ctx, "death_patterns", func(r *db.Reader) error {
		matches, err := r.RecentMatches(ctx, n)
		if err != nil {
			return err
		}
		for _, m := range matches {
			matchIDs = append(matchIDs, m.MatchID)
		}
		deaths, err = r.Deaths(ctx, matchIDs)
		return err
	})
	if err != nil {
		return "", err
	}
	if len(matchIDs) == 0 {
		return noDeathMatches, nil
	}
	if len(deaths) == 0 {
		return noDeathData, nil
	}

	var phases [3]int
	var riverMid, jungleSide int
	for _, d := range deaths {
		phases[DeathPhase(d.Timestamp)]++
		if DeathArea(d.XY()) == AreaRiverMid {
			riverMid++
		} else {
			jungleSide++
		}
	}
	total := float64(len(deaths))
	pct := func(count int) float64 { return float64(count) / total * 100 }

	var b strings.Builder
	fmt.Fprintf(&b, "# Death Pattern Analysis (Last %d matches)\n\n", n)
	fmt.Fprintf(&b, "**Total Deaths:** %d\n\n", len(deaths))

	b.WriteString("## Death Timing Distribution\n")
	fmt.Fprintf(&b, "- **Early Game (0-15m):** %d deaths (%.1f%%)\n", phases[PhaseEarly], pct(phases[PhaseEarly]))
	fmt.Fprintf(&b, "- **Mid Game (15-25m):** %d deaths (%.1f%%)\n", phases[PhaseMid], pct(phases[PhaseMid]))
	fmt.Fprintf(&b, "- **Late Game (25m+):** %d deaths (%.1f%%)\n\n", phases[PhaseLate], pct(phases[PhaseLate]))

	b.WriteString("## Death Location Patterns\n")
	fmt.Fprintf(&b, "- **River/Mid Area:** %d deaths\n", riverMid)
	fmt.Fprintf(&b, "- **Jungle/Side Areas:** %d deaths\n\n", jungleSide)

	fmt.Fprintf(&b, "## Recent Deaths (Last %d)\n", recentDeathCount)
	for _, d := range deaths[max(0, len(deaths)-recentDeathCount):] {
		x, y := d.XY()
		fmt.Fprintf(&b, "- **%dm** in match %s: Position (%d, %d)\n", d.Timestamp/60000, shortMatchID(d.MatchID), x, y)
	}
	return b.String(), nil
}

// FarmingAnalysis reports CS totals, outcome and champion splits, and the CS curve over the last n matches
func (e *Engine) FarmingAnalysis(ctx context.Context, n int) (string, error) {
	if err := checkLimit("matches", n); err != nil {
		return "", err
	}

	var (
		matches   []db.Match
		snapshots []db.TimelineSnapshot
	)
	err := e.view(ctx, "farming_analysis", func(r *db.Reader) error {
		var err error
		if matches, err = r.RecentMatches(ctx, n); err != nil {
			return err
		}
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.MatchID
		}
		snapshots, err = r.SnapshotsForMatches(ctx, ids)
		return err
	})
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return noFarmingData, nil
	}

	var totalCS, totalDuration int
	var wins, losses []int
	for _, m := range matches {
		totalCS += m.CS
		totalDuration += m.GameDuration
		if m.Win {
			wins = append(wins, m.CS)
		} else {
			losses = append(losses, m.CS)
		}
	}
	avgCS := float64(totalCS) / float64(len(matches))
	avgMinutes := float64(totalDuration) / float64(len(matches)) / 60
	var csPerMin float64
	if avgMinutes > 0 {
		csPerMin = avgCS / avgMinutes
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Farming Analysis (Last %d matches)\n\n", n)
	b.WriteString("## Overall Farming Performance\n")
	fmt.Fprintf(&b, "- **Average CS:** %.1f\n", avgCS)
	fmt.Fprintf(&b, "- **Average CS/min:** %.1f\n", csPerMin)
	fmt.Fprintf(&b, "- **Total CS:** %d\n\n", totalCS)

	if len(wins) > 0 && len(losses) > 0 {
		winAvg, lossAvg := mean(wins), mean(losses)
		b.WriteString("## CS by Game Outcome\n")
		fmt.Fprintf(&b, "- **Wins:** %.1f avg CS (%d games)\n", winAvg, len(wins))
		fmt.Fprintf(&b, "- **Losses:** %.1f avg CS (%d games)\n", lossAvg, len(losses))
		fmt.Fprintf(&b, "- **Difference:** %+.1f CS in wins\n\n", winAvg-lossAvg)
	}

	b.WriteString("## CS by Champion\n")
	byChampion := groupByChampion(matches, func(m db.Match) int { return m.CS })
	for _, champ := range byChampion.order {
		values := byChampion.values[champ]
		fmt.Fprintf(&b, "- **%s:** %.1f avg CS (%d games)\n", champ, mean(values), len(values))
	}

	if points := CSProgression(snapshots); len(points) > 0 {
		b.WriteString("\n## CS Progression Patterns\n")
		b.WriteString("| Minute | Avg CS | CS/min Rate |\n")
		b.WriteString("|--------|--------|-----------|\n")
		for _, p := range points {
			fmt.Fprintf(&b, "| %d | %.1f | %.1f |\n", p.Minute, p.AvgCS, p.Rate)
		}
	}
	return b.String(), nil
}
