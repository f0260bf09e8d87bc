package scanner

import (
	"context"
	"fmt"
)

// Backfill scans from the resolved start height up to the current head once.
func (s *Scanner) Backfill(ctx context.Context) error {
	latest, err := s.chain.GetLatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest block: %w", err)
	}

	start, fromCheckpoint, err := s.resolveStart(ctx, latest)
	if err != nil {
		return err
	}

	if start > latest {
		if !fromCheckpoint {
			// polling then resumes exactly at the configured start block
			if err := s.checkpoints.SetCheckpoint(ctx, s.cfg.Source, start-1); err != nil {
				return fmt.Errorf("failed to seed checkpoint: %w", err)
			}
			s.metrics.SetCheckpoint(start - 1)
		}
		s.logger.Info("Nothing to backfill", "start", start, "latest", latest)
		return nil
	}

	ranges := SplitRange(start, latest, s.cfg.MaxBlockSpan)
	s.logger.Info("Starting backfill", "from", start, "to", latest, "ranges", len(ranges))
	return s.backfillRanges(ctx, ranges)
}

// backfillRanges processes every range in order. A range whose logs cannot be
// fetched is skipped, and from then on the checkpoint is frozen at the end of
// the last contiguous success so polling revisits the gap.
func (s *Scanner) backfillRanges(ctx context.Context, ranges []BlockRange) error {
	contiguous := true
	skipped := 0

	for _, r := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.processRange(ctx, ModeBackfill, r, contiguous)
		if err == nil {
			continue
		}
		if !isFetchError(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Warn("Skipping block range", "from", r.From, "to", r.To, "error", err)
		contiguous = false
		skipped++
	}

	if skipped > 0 {
		s.logger.Warn("Backfill finished with skipped ranges", "skipped", skipped, "ranges", len(ranges))
		return nil
	}
	s.logger.Info("Backfill finished", "ranges", len(ranges))
	return nil
}
