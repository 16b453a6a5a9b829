package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"summoner-insights/internal/db"
	"summoner-insights/internal/ingest"
	"summoner-insights/internal/riot"
	"summoner-insights/internal/storage"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"
)

const (
	DefaultMatchCount   = 10
	DefaultRequestDelay = 100 * time.Millisecond

	// Bloom filter sizing for match ids seen across pull cycles
	expectedMatches = 100000
	falsePositive   = 0.001
)

// MatchSource is the slice of the Riot API the collector needs
type MatchSource interface {
	GetAccountByRiotID(ctx context.Context, gameName, tagLine string) (*riot.AccountResponse, error)
	GetSummoner(ctx context.Context, puuid string) (*riot.SummonerResponse, error)
	GetMatchHistory(ctx context.Context, puuid string, start, count int) ([]string, error)
	GetMatch(ctx context.Context, matchID string) (*riot.MatchResponse, error)
	GetTimeline(ctx context.Context, matchID string) (*riot.TimelineResponse, error)
}

// Store persists normalized rows
type Store interface {
	UpsertMatches(ctx context.Context, matches []db.Match) (int, error)
	WriteTimeline(ctx context.Context, matchID string, snapshots []db.TimelineSnapshot, events []db.TimelineEvent) error
	KnownMatchIDs(ctx context.Context) ([]string, error)
}

// Archiver keeps the raw payloads of every fetched match
type Archiver interface {
	Write(record storage.RawRecord) error
}

// Notifier is told when a run finishes or the API key is refused
type Notifier interface {
	RunComplete(ctx context.Context, summary RunSummary) error
	KeyRejected(ctx context.Context, summary RunSummary) error
}

// Config holds collector settings
type Config struct {
	GameName     string
	TagLine      string
	MatchCount   int
	RequestDelay time.Duration
	// SkipKnown skips match ids already stored or seen earlier in this process
	SkipKnown bool
}

// Player is the resolved tracked identity
type Player struct {
	PUUID    string
	GameName string
	TagLine  string
	Name     string
	Level    int
}

// RiotID returns "GameName#TagLine"
func (p Player) RiotID() string {
	return p.GameName + "#" + p.TagLine
}

// RunSummary describes one ingestion pass
type RunSummary struct {
	Player    string
	Found     int
	Processed int
	Skipped   int
	Failed    int
	Wins      int
	TotalKDA  float64
	Snapshots int
	Events    int
	StartedAt time.Time
	Elapsed   time.Duration
}

// WinRate returns wins/processed as a percentage
func (s RunSummary) WinRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Processed) * 100
}

// AvgKDA returns the mean KDA across processed matches
func (s RunSummary) AvgKDA() float64 {
	if s.Processed == 0 {
		return 0
	}
	return s.TotalKDA / float64(s.Processed)
}

func (s *RunSummary) add(m db.Match) {
	s.Processed++
	s.TotalKDA += m.KDA
	if m.Win {
		s.Wins++
	}
}

// Collector pulls the tracked player's recent matches and stores them, one match at a time
type Collector struct {
	source   MatchSource
	store    Store
	archive  Archiver
	notifier Notifier
	logger   *zap.Logger
	out      io.Writer
	cfg      Config

	seen   *bloom.BloomFilter
	seeded bool
	player *Player
}

// Option configures a Collector
type Option func(*Collector)

// WithArchive stores raw payloads of every fetched match
func WithArchive(a Archiver) Option {
	return func(c *Collector) { c.archive = a }
}

// WithNotifier reports run outcomes
func WithNotifier(n Notifier) Option {
	return func(c *Collector) { c.notifier = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) { c.logger = l.Named("collector") }
}

// WithOutput redirects progress lines (stdout by default)
func WithOutput(w io.Writer) Option {
	return func(c *Collector) { c.out = w }
}

// New creates a collector
func New(source MatchSource, store Store, cfg Config, opts ...Option) *Collector {
	if cfg.MatchCount <= 0 {
		cfg.MatchCount = DefaultMatchCount
	}
	if cfg.RequestDelay < 0 {
		cfg.RequestDelay = DefaultRequestDelay
	}

	c := &Collector{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: zap.NewNop(),
		out:    os.Stdout,
		seen:   bloom.NewWithEstimates(expectedMatches, falsePositive),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolvePlayer looks up the configured Riot ID once and caches the result
func (c *Collector) ResolvePlayer(ctx context.Context) (Player, error) {
	if c.player != nil {
		return *c.player, nil
	}

	fmt.Fprintf(c.out, "Retrieving stats for %s#%s...\n", c.cfg.GameName, c.cfg.TagLine)

	account, err := c.source.GetAccountByRiotID(ctx, c.cfg.GameName, c.cfg.TagLine)
	if err != nil {
		return Player{}, err
	}
	summoner, err := c.source.GetSummoner(ctx, account.PUUID)
	if err != nil {
		return Player{}, err
	}

	p := Player{
		PUUID:    account.PUUID,
		GameName: account.GameName,
		TagLine:  account.TagLine,
		Name:     summoner.Name,
		Level:    summoner.SummonerLevel,
	}
	if p.GameName == "" {
		p.GameName, p.TagLine = c.cfg.GameName, c.cfg.TagLine
	}
	if p.Name == "" {
		p.Name = p.GameName
	}

	fmt.Fprintf(c.out, "Found summoner: %s (Level %d)\n", p.Name, p.Level)
	c.player = &p
	return p, nil
}

// seedSeen loads stored match ids into the bloom filter, once per process
func (c *Collector) seedSeen(ctx context.Context) error {
	if c.seeded || !c.cfg.SkipKnown {
		return nil
	}
	ids, err := c.store.KnownMatchIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load known matches: %w", err)
	}
	for _, id := range ids {
		c.seen.AddString(id)
	}
	c.seeded = true
	c.logger.Debug("seeded known matches", zap.Int("count", len(ids)))
	return nil
}

// Run performs one ingestion pass over the most recent MatchCount matches.
// Per-match failures are logged and skipped. A rejected API key aborts the run.
func (c *Collector) Run(ctx context.Context) (summary RunSummary, err error) {
	summary.StartedAt = time.Now()
	defer func() { summary.Elapsed = time.Since(summary.StartedAt) }()

	player, err := c.ResolvePlayer(ctx)
	if err != nil {
		summary.Player = c.cfg.GameName + "#" + c.cfg.TagLine
		c.handleFatal(ctx, err, &summary)
		return summary, fmt.Errorf("failed to resolve player: %w", err)
	}
	summary.Player = player.RiotID()

	if err := c.seedSeen(ctx); err != nil {
		return summary, err
	}

	matchIDs, err := c.source.GetMatchHistory(ctx, player.PUUID, 0, c.cfg.MatchCount)
	if err != nil {
		c.handleFatal(ctx, err, &summary)
		return summary, err
	}
	summary.Found = len(matchIDs)
	fmt.Fprintf(c.out, "Found %d recent matches\n", len(matchIDs))

	for i, matchID := range matchIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if c.cfg.SkipKnown && c.seen.TestString(matchID) {
			summary.Skipped++
			c.logger.Debug("skipping known match", zap.String("match", matchID))
			continue
		}

		fmt.Fprintf(c.out, "Processing match %d/%d: %s\n", i+1, len(matchIDs), matchID)

		if err := c.fetchAndStore(ctx, player.PUUID, matchID, &summary); err != nil {
			if riot.IsKeyRejected(err) {
				c.handleFatal(ctx, err, &summary)
				return summary, err
			}
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			c.logger.Warn("error processing match", zap.String("match", matchID), zap.Error(err))
			fmt.Fprintf(c.out, "Error processing match %s: %v\n", matchID, err)
		}

		if err := sleep(ctx, c.cfg.RequestDelay); err != nil {
			return summary, err
		}
	}

	c.notifyComplete(ctx, summary)
	return summary, nil
}

// fetchAndStore fetches one match and its timeline, normalizes and writes them.
// A timeline failure keeps the already-written match row.
func (c *Collector) fetchAndStore(ctx context.Context, puuid, matchID string, summary *RunSummary) error {
	match, err := c.source.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}

	row, ok := ingest.NormalizeMatch(match, puuid)
	if !ok {
		summary.Skipped++
		c.seen.AddString(matchID)
		c.logger.Info("player not in match, skipping", zap.String("match", matchID))
		return nil
	}
	if _, err := c.store.UpsertMatches(ctx, []db.Match{row}); err != nil {
		return err
	}
	summary.add(row)

	fmt.Fprintf(c.out, "  Fetching timeline data...\n")
	timeline, err := c.source.GetTimeline(ctx, matchID)
	if err != nil {
		c.archiveRaw(puuid, matchID, match.Raw, nil)
		return fmt.Errorf("timeline: %w", err)
	}
	c.archiveRaw(puuid, matchID, match.Raw, timeline.Raw)

	n, err := c.storeTimeline(ctx, matchID, timeline, puuid)
	if err != nil {
		return err
	}
	// Only a fully stored match is marked seen so a failed timeline is retried next pull
	c.seen.AddString(matchID)
	summary.Snapshots += n.snapshots
	summary.Events += n.events
	fmt.Fprintf(c.out, "  Timeline: %d snapshots, %d events\n", n.snapshots, n.events)
	return nil
}

type timelineCounts struct {
	snapshots int
	events    int
}

func (c *Collector) storeTimeline(ctx context.Context, matchID string, timeline *riot.TimelineResponse, puuid string) (timelineCounts, error) {
	snapshots, events := ingest.NormalizeTimeline(timeline, puuid)
	// Some timelines omit metadata; rows always belong to the match we asked for
	for i := range snapshots {
		snapshots[i].MatchID = matchID
	}
	for i := range events {
		events[i].MatchID = matchID
	}
	if err := c.store.WriteTimeline(ctx, matchID, snapshots, events); err != nil {
		return timelineCounts{}, err
	}
	return timelineCounts{snapshots: len(snapshots), events: len(events)}, nil
}

func (c *Collector) archiveRaw(puuid, matchID string, match, timeline []byte) {
	if c.archive == nil || len(match) == 0 {
		return
	}
	err := c.archive.Write(storage.RawRecord{
		MatchID:   matchID,
		PUUID:     puuid,
		FetchedAt: time.Now().UnixMilli(),
		Match:     match,
		Timeline:  timeline,
	})
	if err != nil {
		c.logger.Warn("failed to archive raw match", zap.String("match", matchID), zap.Error(err))
	}
}

// Replay re-ingests every archived record for puuid without calling the API.
// An empty puuid replays records of any player, each under the PUUID it was fetched for.
func (c *Collector) Replay(ctx context.Context, archiveDir, puuid string) (summary RunSummary, err error) {
	summary.StartedAt = time.Now()
	summary.Player = puuid
	defer func() { summary.Elapsed = time.Since(summary.StartedAt) }()

	skipped, err := storage.ReadArchive(archiveDir, func(rec storage.RawRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tracked := rec.PUUID
		if puuid != "" {
			if rec.PUUID != "" && rec.PUUID != puuid {
				return nil
			}
			tracked = puuid
		}
		summary.Found++

		if err := c.replayRecord(ctx, rec, tracked, &summary); err != nil {
			summary.Failed++
			c.logger.Warn("failed to replay match", zap.String("match", rec.MatchID), zap.Error(err))
		}
		return nil
	})
	summary.Skipped += skipped
	if err != nil {
		return summary, fmt.Errorf("failed to replay archive: %w", err)
	}
	return summary, nil
}

func (c *Collector) replayRecord(ctx context.Context, rec storage.RawRecord, puuid string, summary *RunSummary) error {
	match, err := riot.DecodeMatch(rec.Match)
	if err != nil {
		return err
	}
	row, ok := ingest.NormalizeMatch(match, puuid)
	if !ok {
		summary.Skipped++
		return nil
	}
	if row.MatchID == "" {
		row.MatchID = rec.MatchID
	}
	if _, err := c.store.UpsertMatches(ctx, []db.Match{row}); err != nil {
		return err
	}
	summary.add(row)

	if len(rec.Timeline) == 0 {
		return nil
	}
	timeline, err := riot.DecodeTimeline(rec.Timeline)
	if err != nil {
		return err
	}
	n, err := c.storeTimeline(ctx, row.MatchID, timeline, puuid)
	if err != nil {
		return err
	}
	summary.Snapshots += n.snapshots
	summary.Events += n.events
	return nil
}

// RunPeriodic repeats Run every interval until ctx is cancelled.
// Failed passes are logged and retried on the next tick, except for a rejected key.
func (c *Collector) RunPeriodic(ctx context.Context, interval time.Duration) error {
	c.cfg.SkipKnown = true

	for {
		summary, err := c.Run(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case IsAbort(err):
			return err
		case err != nil:
			c.logger.Error("pull failed", zap.Error(err))
		default:
			c.PrintSummary(summary)
		}

		c.logger.Info("next pull scheduled", zap.Duration("in", interval))
		if err := sleep(ctx, interval); err != nil {
			return nil
		}
	}
}

func (c *Collector) handleFatal(ctx context.Context, err error, summary *RunSummary) {
	if !riot.IsKeyRejected(err) {
		return
	}
	c.logger.Error("API key rejected, aborting run", zap.Error(err))
	if c.notifier == nil {
		return
	}
	if nerr := c.notifier.KeyRejected(context.WithoutCancel(ctx), *summary); nerr != nil {
		c.logger.Warn("failed to send key rejected notification", zap.Error(nerr))
	}
}

func (c *Collector) notifyComplete(ctx context.Context, summary RunSummary) {
	if c.notifier == nil || summary.Processed == 0 {
		return
	}
	summary.Elapsed = time.Since(summary.StartedAt)
	if err := c.notifier.RunComplete(ctx, summary); err != nil {
		c.logger.Warn("failed to send run notification", zap.Error(err))
	}
}

// PrintSummary writes the end-of-run summary
func (c *Collector) PrintSummary(s RunSummary) {
	fmt.Fprintf(c.out, "\nSummary:\n")
	fmt.Fprintf(c.out, "Total matches processed: %d\n", s.Processed)
	if s.Processed == 0 {
		fmt.Fprintf(c.out, "No new matches\n")
		return
	}
	fmt.Fprintf(c.out, "Wins: %d/%d (%.1f%%)\n", s.Wins, s.Processed, s.WinRate())
	fmt.Fprintf(c.out, "Average KDA: %.2f\n", s.AvgKDA())
	fmt.Fprintf(c.out, "Timeline rows: %d snapshots, %d events\n", s.Snapshots, s.Events)
	if s.Skipped > 0 || s.Failed > 0 {
		fmt.Fprintf(c.out, "Skipped: %d, failed: %d\n", s.Skipped, s.Failed)
	}
	fmt.Fprintf(c.out, "Total time: %s\n", formatDuration(s.Elapsed))
}

// IsAbort reports whether err should stop the process rather than be retried
func IsAbort(err error) bool {
	return riot.IsKeyRejected(err) || errors.Is(err, context.Canceled)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%02ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%02dm%02ds", hours, mins, secs)
}
