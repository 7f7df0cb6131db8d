// Package sweep runs the periodic delivery loop: every interval it
// collects due schedule entries and pushes them through the dispatcher
// with a bounded worker pool.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mbakke/nudge/internal/model"
)

// batchSize caps how many due entries one sweep picks up. Anything
// beyond the cap waits for the next tick.
const batchSize = 500

// Worker pool bounds. Configured concurrency outside this range is
// clamped rather than rejected.
const (
	minConcurrency = 4
	maxConcurrency = 8
)

// EntrySource yields due schedule entries.
type EntrySource interface {
	Due(ctx context.Context, now time.Time, limit int) ([]model.ScheduleEntry, error)
}

// Dispatcher resolves one due entry.
type Dispatcher interface {
	Dispatch(ctx context.Context, entry *model.ScheduleEntry) error
}

type Sweeper struct {
	entries     EntrySource
	dispatcher  Dispatcher
	interval    time.Duration
	concurrency int
	logger      zerolog.Logger
}

func NewSweeper(entries EntrySource, dispatcher Dispatcher, interval time.Duration, concurrency int, logger zerolog.Logger) *Sweeper {
	if concurrency < minConcurrency {
		concurrency = minConcurrency
	}
	if concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}
	return &Sweeper{
		entries:     entries,
		dispatcher:  dispatcher,
		interval:    interval,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "sweep").Logger(),
	}
}

// Run sweeps on every tick until the context is cancelled. An
// immediate sweep happens on startup so a restart never delays overdue
// reminders by a full interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep processes one batch of due entries. Entry failures are
// isolated: one bad entry never stops the rest of the batch, and a
// failed sweep never stops the loop.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()
	defer func() {
		sweepDuration.Observe(time.Since(start).Seconds())
	}()

	due, err := s.entries.Due(ctx, start.UTC(), batchSize)
	if err != nil {
		sweepErrors.Inc()
		s.logger.Error().Err(err).Msg("failed to collect due entries")
		return
	}
	if len(due) == 0 {
		return
	}

	s.logger.Info().Int("due", len(due)).Msg("sweeping due entries")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range due {
		entry := due[i]
		g.Go(func() error {
			entriesDispatched.Inc()
			if err := s.dispatcher.Dispatch(gctx, &entry); err != nil {
				dispatchErrors.Inc()
				s.logger.Error().Err(err).
					Str("entry_id", entry.ID).
					Str("invoice_id", entry.InvoiceID).
					Msg("dispatch failed")
			}
			return nil
		})
	}
	g.Wait()

	s.logger.Info().
		Int("due", len(due)).
		Dur("elapsed", time.Since(start)).
		Msg("sweep complete")
}
