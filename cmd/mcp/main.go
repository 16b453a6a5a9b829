package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"summoner-insights/internal/analytics"
	"summoner-insights/internal/collector"
	"summoner-insights/internal/config"
	"summoner-insights/internal/db"
	"summoner-insights/internal/logging"
	"summoner-insights/internal/tools"

	"go.uber.org/zap"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dbPath := flag.String("db-path", cfg.DatabaseURL, "Path to SQLite database file, or a libsql:// or postgres:// URL")
	flag.Parse()

	// stdout carries the MCP protocol; logs go to stderr
	logger := logging.Must(cfg.LogLevel)
	defer logger.Sync()

	store, err := db.NewStore(*dbPath, db.WithAuthToken(cfg.AuthToken), db.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to configure database", zap.Error(err))
	}

	ctx := collector.SetupSignalHandler(context.Background(), logger, nil)
	logger.Info("serving MCP over stdio", zap.String("db", store.Location()))

	server := tools.New(analytics.NewEngine(store, logger), logger)
	if err := server.RunStdio(ctx); err != nil {
		logger.Fatal("MCP server stopped", zap.Error(err))
	}
}
