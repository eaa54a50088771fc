package fallout

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"fallout/internal/bootstrap/logging"
	"fallout/internal/errs"
)

type RelayInput struct {
	BatchSize int
}

type RelayResult struct {
	Publisher string
	From      uint64
	To        uint64
	Published int
}

// RelayAuditOnce forwards the next batch of audit entries after the stored
// cursor and advances the cursor only after the publisher accepted them.
// Delivery is at least once.
func (s *Service) RelayAuditOnce(ctx context.Context, input RelayInput) (RelayResult, error) {
	if ctx == nil {
		return RelayResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return RelayResult{}, errs.Wrap(err, "check context")
	}
	if s.publisher == nil {
		return RelayResult{}, errors.New("audit publisher is not configured")
	}
	if s.cache == nil {
		return RelayResult{}, errors.New("cache is required to keep the relay cursor")
	}

	batchSize := input.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	key := cacheRelayCursorKey(s.publisher.Name())
	logCtx := logging.WithAttrs(ctx, slog.String("component", "fallout.audit_relay"), slog.String("publisher", s.publisher.Name()))

	cursor, err := s.relayCursor(ctx, key)
	if err != nil {
		return RelayResult{}, err
	}
	result := RelayResult{Publisher: s.publisher.Name(), From: cursor, To: cursor}

	entries, err := s.store.ListLogsAfter(ctx, cursor, batchSize)
	if err != nil {
		return result, errs.Wrap(err, "list logs after cursor")
	}
	if len(entries) == 0 {
		return result, nil
	}

	if err := s.publisher.Publish(ctx, toAuditRecords(entries)); err != nil {
		return result, errs.Wrapf(err, "publish audit batch to %s", s.publisher.Name())
	}
	next := entries[len(entries)-1].Seq
	if err := s.cache.Set(ctx, key, strconv.FormatUint(next, 10), 0); err != nil {
		return result, errs.Wrap(err, "store relay cursor")
	}

	result.To = next
	result.Published = len(entries)
	logging.Info(logCtx, "audit batch relayed", slog.Uint64("from", cursor), slog.Uint64("to", next), slog.Int("count", len(entries)))
	return result, nil
}

type RelayLoopInput struct {
	BatchSize    int
	Once         bool
	PollInterval time.Duration
}

// RunAuditRelay drains the log in batches, then polls for new entries until
// ctx is cancelled.
func (s *Service) RunAuditRelay(ctx context.Context, input RelayLoopInput) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if input.PollInterval <= 0 && !input.Once {
		return 0, errors.New("poll interval must be positive")
	}

	total := 0
	drain := func() error {
		for {
			res, err := s.RelayAuditOnce(ctx, RelayInput{BatchSize: input.BatchSize})
			if err != nil {
				return err
			}
			total += res.Published
			if res.Published == 0 {
				return nil
			}
		}
	}

	if err := drain(); err != nil {
		return total, err
	}
	if input.Once {
		return total, nil
	}

	ticker := time.NewTicker(input.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return total, errs.Wrap(ctx.Err(), "audit relay loop stopped")
		case <-ticker.C:
		}
		if err := drain(); err != nil {
			if ctx.Err() != nil {
				return total, errs.Wrap(ctx.Err(), "audit relay loop stopped")
			}
			logging.Error(ctx, "audit relay batch failed", slog.Any("err", errs.Loggable(err)))
		}
	}
}

func (s *Service) relayCursor(ctx context.Context, key string) (uint64, error) {
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		return 0, errs.Wrap(err, "load relay cursor")
	}
	if !found || raw == "" {
		return 0, nil
	}
	cursor, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errs.Wrapf(err, "parse relay cursor %q", raw)
	}
	return cursor, nil
}
