package fallout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fallout/internal/bootstrap/logging"
	domain "fallout/internal/domain/fallout"
	"fallout/internal/errs"
)

// SweepSummary counts the outcomes of one RunOnce pass.
type SweepSummary struct {
	StartedAt  time.Time `json:"started_at"`
	Candidates int       `json:"candidates"`
	Resolved   int       `json:"resolved"`
	Escalated  int       `json:"escalated"`
	Skipped    int       `json:"skipped"`
	Conflicts  int       `json:"conflicts"`
	Aborted    int       `json:"aborted"`
	Errors     int       `json:"errors"`
}

func (s *SweepSummary) add(outcome Outcome, err error) {
	if err != nil {
		s.Errors++
		return
	}
	switch outcome.Kind {
	case OutcomeResolved:
		s.Resolved++
	case OutcomeEscalated:
		s.Escalated++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeConflict:
		s.Conflicts++
	case OutcomeAborted:
		s.Aborted++
	}
}

// RunOnce pulls one batch of Failed, unclaimed orders and runs them on a
// bounded pool. One order's failure never cancels the others.
func (s *Service) RunOnce(ctx context.Context) (SweepSummary, error) {
	if ctx == nil {
		return SweepSummary{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return SweepSummary{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "fallout.runner"), slog.String("worker_id", s.opts.WorkerID))
	now := s.now().UTC()
	summary := SweepSummary{StartedAt: now}

	candidates, err := storeCall(ctx, s.opts, func(callCtx context.Context) ([]domain.Order, error) {
		return s.store.GetFailedUnclaimed(callCtx, now, s.opts.BatchSize)
	})
	if err != nil {
		return summary, errs.Wrap(err, "list failed unclaimed orders")
	}
	summary.Candidates = len(candidates)

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, order := range candidates {
		orderID := order.OrderID
		g.Go(func() error {
			outcome, runErr := s.RunOrder(gCtx, orderID)
			if runErr != nil {
				logging.Error(logCtx, "order workflow failed", slog.String("order_id", orderID), slog.Any("err", errs.Loggable(runErr)))
			}
			mu.Lock()
			summary.add(outcome, runErr)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logging.Info(logCtx, "sweep finished",
		slog.Int("candidates", summary.Candidates),
		slog.Int("resolved", summary.Resolved),
		slog.Int("escalated", summary.Escalated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("conflicts", summary.Conflicts),
		slog.Int("errors", summary.Errors),
	)
	if raw, err := json.Marshal(summary); err == nil {
		s.setCacheBestEffort(ctx, cacheLastSweepKey, string(raw), 0)
	}
	return summary, nil
}

// LastSweep returns the summary cached by the most recent RunOnce, if any.
func (s *Service) LastSweep(ctx context.Context) (SweepSummary, bool, error) {
	if s.cache == nil {
		return SweepSummary{}, false, nil
	}
	raw, found, err := s.cache.Get(ctx, cacheLastSweepKey)
	if err != nil || !found {
		return SweepSummary{}, false, err
	}
	var summary SweepSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return SweepSummary{}, false, errs.Wrap(err, "decode last sweep summary")
	}
	return summary, true, nil
}

type WorkerInput struct {
	Once         bool
	PollInterval time.Duration
}

// RunWorker sweeps until ctx is cancelled. With Once it returns after the
// first sweep.
func (s *Service) RunWorker(ctx context.Context, input WorkerInput) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if input.PollInterval <= 0 && !input.Once {
		return errors.New("poll interval must be positive")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "fallout.worker"), slog.String("worker_id", s.opts.WorkerID))
	sweep := func() error {
		if _, err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return errs.Wrap(ctx.Err(), "worker loop stopped")
			}
			logging.Error(logCtx, "sweep failed", slog.Any("err", errs.Loggable(err)))
		}
		return nil
	}

	if err := sweep(); err != nil {
		return err
	}
	if input.Once {
		return nil
	}

	ticker := time.NewTicker(input.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return errs.Wrap(ctx.Err(), "worker loop stopped")
		case <-ticker.C:
		}
		if err := sweep(); err != nil {
			return err
		}
	}
}
