package registry

// matcher.go drives a full matching run. Records are processed in fixed
// batches; lookups within a batch run concurrently, batches never
// overlap, and a fixed pause separates consecutive batches so the
// registry is not hammered. Cancellation is honored between batches and
// returns whatever accumulated so far.

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agrikit/rsbsa-validator/internal/core"
)

// Batch pacing defaults, matched to what the registry tolerates.
const (
	DefaultBatchSize  = 10
	DefaultBatchPause = 100 * time.Millisecond
)

// Matcher runs batched matching against a registry client. It implements
// core.RegistryMatcher.
type Matcher struct {
	client     *Client
	batchSize  int
	batchPause time.Duration
}

// NewMatcher creates a matcher. Non-positive batchSize or negative pause
// fall back to the defaults.
func NewMatcher(client *Client, batchSize int, batchPause time.Duration) *Matcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchPause < 0 {
		batchPause = DefaultBatchPause
	}
	return &Matcher{client: client, batchSize: batchSize, batchPause: batchPause}
}

// Run matches every record and reports cumulative progress after each
// batch. A failed lookup becomes an ERROR result for that row; the run
// keeps going. On cancellation the partial result is returned together
// with ctx.Err().
func (m *Matcher) Run(ctx context.Context, records []core.Record, onBatch core.MatchProgressFunc) (*core.MatchRunResult, error) {
	result := &core.MatchRunResult{}
	start := time.Now()

	for offset := 0; offset < len(records); offset += m.batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := offset + m.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[offset:end]

		// Results are indexed by batch position so row order survives
		// concurrent completion.
		outcomes := make([]core.MatchResult, len(batch))
		g, batchCtx := errgroup.WithContext(ctx)
		for i, rec := range batch {
			g.Go(func() error {
				outcome, err := m.client.Lookup(batchCtx, rec)
				if err != nil {
					outcomes[i] = core.MatchResult{
						Record:  rec,
						Status:  core.MatchError,
						Remarks: core.MapError(err).Message,
					}
					slog.Warn("registry lookup failed",
						"row", rec.Num,
						"error", err,
					)
					return nil
				}
				outcomes[i] = outcome
				return nil
			})
		}
		// Lookups never return errors to the group; Wait only surfaces
		// context cancellation.
		if err := g.Wait(); err != nil {
			return result, err
		}

		for _, outcome := range outcomes {
			if outcome.Status == core.MatchMatched {
				result.Matched = append(result.Matched, outcome)
			} else {
				result.Unmatched = append(result.Unmatched, outcome)
			}
		}

		if onBatch != nil {
			onBatch(result.Clone())
		}

		if end < len(records) && m.batchPause > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(m.batchPause):
			}
		}
	}

	slog.Info("matching run complete",
		"records", len(records),
		"matched", result.TotalMatched(),
		"unmatched", result.TotalUnmatched(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// CleanedRecords delegates to the client.
func (m *Matcher) CleanedRecords(ctx context.Context, identifiers []string) (map[string]core.StandardizedRow, error) {
	return m.client.CleanedRecords(ctx, identifiers)
}
