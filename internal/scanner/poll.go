package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Poll runs PollOnce every poll interval until ctx is cancelled. Tick errors are
// logged and the loop keeps going; only losing the lease stops it early.
func (s *Scanner) Poll(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.renewLock(ctx); err != nil {
				return err
			}
			if err := s.PollOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, ErrLockLost) {
					return err
				}
				s.logger.Error("Poll tick failed", "error", err)
			}
		}
	}
}

// PollOnce scans from the checkpoint to the current head.
func (s *Scanner) PollOnce(ctx context.Context) error {
	head, err := s.chain.GetLatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest block: %w", err)
	}

	start, _, err := s.resolveStart(ctx, head)
	if err != nil {
		return err
	}
	if start > head {
		return nil
	}

	return s.pollRanges(ctx, SplitRange(start, head, s.cfg.MaxBlockSpan))
}

// pollRanges stops at the first failing range, leaving the checkpoint at the end
// of the last range that completed.
func (s *Scanner) pollRanges(ctx context.Context, ranges []BlockRange) error {
	for _, r := range ranges {
		if err := s.processRange(ctx, ModePoll, r, true); err != nil {
			return err
		}
	}
	if len(ranges) > 0 {
		s.logger.Debug("Poll tick finished", "to", ranges[len(ranges)-1].To)
	}
	return nil
}
