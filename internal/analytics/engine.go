// Package analytics answers questions over the stored match history and
// renders each answer as a Markdown report.
package analytics

import (
	"context"
	"errors"
	"fmt"

	"summoner-insights/internal/db"

	"go.uber.org/zap"
)

// ErrInvalidArgument is returned for a non-positive limit or an empty match id
var ErrInvalidArgument = errors.New("invalid argument")

// DefaultLimit is the number of matches a report covers when none is given
const DefaultLimit = 10

// Source opens a read-only view of the store. *db.Store satisfies it.
type Source interface {
	View(ctx context.Context, fn func(*db.Reader) error) error
}

// Engine builds reports. Every report opens its own connection through Source.
type Engine struct {
	source Source
	logger *zap.Logger
}

// NewEngine creates an Engine reading from source
func NewEngine(source Source, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{source: source, logger: logger.Named("analytics")}
}

func checkLimit(name string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidArgument, name, n)
	}
	return nil
}

func (e *Engine) view(ctx context.Context, report string, fn func(*db.Reader) error) error {
	if err := e.source.View(ctx, fn); err != nil {
		e.logger.Debug("report failed", zap.String("report", report), zap.Error(err))
		return err
	}
	return nil
}
