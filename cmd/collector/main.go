package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"summoner-insights/internal/collector"
	"summoner-insights/internal/config"
	"summoner-insights/internal/db"
	"summoner-insights/internal/discord"
	"summoner-insights/internal/logging"
	"summoner-insights/internal/riot"
	"summoner-insights/internal/storage"

	"go.uber.org/zap"
)

func main() {
	envPath := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Parse flags
	matchCount := flag.Int("count", cfg.MatchCount, "Number of recent matches to fetch")
	interval := flag.Duration("interval", cfg.PullInterval, "Repeat the pull on this interval (0 runs once)")
	skipKnown := flag.Bool("skip-known", false, "Skip matches already in the database")
	archiveDir := flag.String("archive", cfg.ArchivePath, "Directory for raw match archives (empty disables archiving)")
	replay := flag.Bool("replay", false, "Re-ingest the archive instead of calling the Riot API")
	puuid := flag.String("puuid", "", "With --replay, only ingest records for this PUUID")
	dbPath := flag.String("db", cfg.DatabaseURL, "SQLite path, libsql:// or postgres:// URL")
	flag.Parse()

	logger := logging.Must(cfg.LogLevel)
	defer logger.Sync()

	if envPath != "" {
		logger.Debug("loaded .env", zap.String("path", envPath))
	} else {
		logger.Debug("no .env file found, using environment variables")
	}

	cfg.MatchCount = *matchCount
	cfg.DatabaseURL = *dbPath
	cfg.ArchivePath = *archiveDir

	if err := run(cfg, runOptions{
		interval:  *interval,
		skipKnown: *skipKnown,
		replay:    *replay,
		puuid:     *puuid,
	}, logger); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	interval  time.Duration
	skipKnown bool
	replay    bool
	puuid     string
}

func run(cfg config.Config, opts runOptions, logger *zap.Logger) error {
	mode, err := db.ParseEventMode(cfg.EventMode)
	if err != nil {
		return err
	}

	store, err := db.NewStore(cfg.DatabaseURL,
		db.WithAuthToken(cfg.AuthToken),
		db.WithEventMode(mode),
		db.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx := collector.SetupSignalHandler(context.Background(), logger, func() {
		fmt.Println("\n[Shutdown] Gracefully shutting down...")
	})

	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Printf("Using database: %s (%s)\n", store.Location(), store.Dialect())

	var collectorOpts []collector.Option
	collectorOpts = append(collectorOpts, collector.WithLogger(logger))

	if opts.replay {
		if cfg.ArchivePath == "" {
			return fmt.Errorf("--replay needs an archive directory (--archive or ARCHIVE_PATH)")
		}
		c := collector.New(nil, store, collector.Config{}, collectorOpts...)
		fmt.Printf("Replaying archive: %s\n", cfg.ArchivePath)
		summary, err := c.Replay(ctx, cfg.ArchivePath, opts.puuid)
		if err != nil {
			return err
		}
		c.PrintSummary(summary)
		return nil
	}

	if err := cfg.ValidateCollector(); err != nil {
		return err
	}

	var notifier *webhookNotifier
	if cfg.DiscordWebhookURL != "" {
		notifier = &webhookNotifier{
			client:    discord.NewWebhookClient(cfg.DiscordWebhookURL, discord.WithLogger(logger)),
			maskedKey: riot.MaskAPIKey(cfg.APIKey),
		}
		collectorOpts = append(collectorOpts, collector.WithNotifier(notifier))
	}

	if err := validateKey(ctx, cfg, notifier, logger); err != nil {
		return err
	}

	if cfg.ArchivePath != "" {
		rotator, err := storage.NewFileRotator(cfg.ArchivePath, logger)
		if err != nil {
			return err
		}
		defer closeArchive(rotator, logger)
		collectorOpts = append(collectorOpts, collector.WithArchive(rotator))
	}

	client, err := riot.NewClient(riot.Config{
		APIKey:   cfg.APIKey,
		Platform: cfg.Platform,
		Timeout:  cfg.RequestTimeout,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create Riot client: %w", err)
	}

	c := collector.New(client, store, collector.Config{
		GameName:     cfg.GameName,
		TagLine:      cfg.TagLine,
		MatchCount:   cfg.MatchCount,
		RequestDelay: cfg.RequestDelay,
		SkipKnown:    opts.skipKnown,
	}, collectorOpts...)

	if opts.interval > 0 {
		fmt.Printf("Pulling every %s (Ctrl+C to stop)\n", opts.interval)
		return c.RunPeriodic(ctx, opts.interval)
	}

	summary, err := c.Run(ctx)
	return finishRun(c, summary, err)
}

// finishRun prints the summary of a run that stopped on its own, on Ctrl+C or
// on a rejected key. Only the rejected key still fails the process.
func finishRun(c *collector.Collector, summary collector.RunSummary, err error) error {
	if err != nil && !collector.IsAbort(err) {
		return err
	}
	c.PrintSummary(summary)
	if riot.IsKeyRejected(err) {
		return err
	}
	return nil
}

// validateKey checks the key before any match is fetched. Network errors are
// logged and the run goes ahead; the collector aborts later if the key is refused.
func validateKey(ctx context.Context, cfg config.Config, notifier *webhookNotifier, logger *zap.Logger) error {
	validator := riot.NewKeyValidator(
		riot.WithPlatform(cfg.Platform),
		riot.WithTimeout(cfg.RequestTimeout),
	)
	status, err := validator.ValidateKey(ctx, cfg.APIKey)
	if err != nil {
		logger.Warn("could not validate API key", zap.Error(err))
		return nil
	}
	if status != riot.KeyRejected {
		return nil
	}

	riotID := cfg.GameName + "#" + cfg.TagLine
	if notifier != nil {
		if nerr := notifier.KeyRejected(ctx, collector.RunSummary{Player: riotID}); nerr != nil {
			logger.Warn("failed to send key rejected notification", zap.Error(nerr))
		}
	}
	return fmt.Errorf("API key %s was rejected - regenerate it at developer.riotgames.com", riot.MaskAPIKey(cfg.APIKey))
}

// closeArchive closes the current file and compresses everything waiting in warm/
func closeArchive(rotator *storage.FileRotator, logger *zap.Logger) {
	if err := rotator.Close(); err != nil {
		logger.Warn("failed to close archive", zap.Error(err))
	}
	if _, err := rotator.ArchiveWarm(); err != nil {
		logger.Warn("failed to compress archive", zap.Error(err))
	}
}

// webhookNotifier sends collector outcomes to a Discord webhook
type webhookNotifier struct {
	client    *discord.WebhookClient
	maskedKey string
}

func toRunStats(s collector.RunSummary) discord.RunStats {
	return discord.RunStats{
		Player:    strings.TrimSpace(s.Player),
		Processed: s.Processed,
		Wins:      s.Wins,
		AvgKDA:    s.AvgKDA(),
		Runtime:   s.Elapsed,
	}
}

func (n *webhookNotifier) RunComplete(ctx context.Context, s collector.RunSummary) error {
	return n.client.SendRunComplete(ctx, toRunStats(s))
}

func (n *webhookNotifier) KeyRejected(ctx context.Context, s collector.RunSummary) error {
	return n.client.SendKeyRejected(ctx, n.maskedKey, toRunStats(s))
}
