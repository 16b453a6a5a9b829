package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strconv"
	"time"

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

	dbPath := flag.String("db", cfg.DatabaseURL, "SQLite path, libsql:// or postgres:// URL")
	port := flag.String("port", cfg.Port, "HTTP port")
	flag.Parse()

	logger := logging.Must(cfg.LogLevel)
	defer logger.Sync()

	store, err := db.NewStore(*dbPath, db.WithAuthToken(cfg.AuthToken), db.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to configure database", zap.Error(err))
	}
	engine := analytics.NewEngine(store, logger)

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           newHandler(engine, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx := collector.SetupSignalHandler(context.Background(), logger, nil)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Server starting on http://localhost:%s\n", *port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// newHandler serves every report at GET /reports/<tool name>
func newHandler(engine *analytics.Engine, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /reports", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, name := range tools.Names {
			fmt.Fprintf(w, "/reports/%s\n", name)
		}
	})

	mux.HandleFunc("GET /reports/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if !slices.Contains(tools.Names, name) {
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown report: %s", name))
			return
		}

		args, err := parseArgs(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		text, err := tools.Call(r.Context(), engine, name, args)
		if err != nil {
			logger.Warn("report failed", zap.String("report", name), zap.Error(err))
			writeError(w, statusFor(err), err)
			return
		}

		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, text)
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	return mux
}

func parseArgs(r *http.Request) (tools.Args, error) {
	q := r.URL.Query()
	args := tools.Args{
		MatchID:  q.Get("match_id"),
		Champion: q.Get("champion"),
	}
	var err error
	if args.Limit, err = optionalInt(q.Get("limit"), "limit"); err != nil {
		return args, err
	}
	if args.Matches, err = optionalInt(q.Get("matches"), "matches"); err != nil {
		return args, err
	}
	return args, nil
}

func optionalInt(value, name string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", analytics.ErrInvalidArgument, name)
	}
	return &n, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, analytics.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrDatabaseNotFound):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "Error: %v", err)
}
