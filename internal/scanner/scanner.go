package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/core-coin/vault-indexer/internal/blockchain"
	"github.com/core-coin/vault-indexer/internal/metrics"
	"github.com/core-coin/vault-indexer/internal/models"
	"github.com/core-coin/vault-indexer/pkg/logger"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultLockTTL      = 30 * time.Second

	ModeBackfill = "backfill"
	ModePoll     = "poll"

	releaseTimeout = 5 * time.Second
)

type State int32

const (
	StateIdle State = iota
	StateBackfilling
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateBackfilling:
		return "backfilling"
	case StatePolling:
		return "polling"
	default:
		return "idle"
	}
}

type Config struct {
	// Source keys the checkpoint row and the lease lock.
	Source       string
	VaultAddress common.Address
	TokenAddress common.Address
	// StartBlock is used only when no checkpoint exists yet.
	StartBlock   *uint64
	MaxBlockSpan uint64
	PollInterval time.Duration
	// Lookback sets the cold-start height to latest-Lookback when StartBlock is unset.
	Lookback uint64
	// Confirmations is reported but not applied: ranges always end at the head.
	Confirmations uint64
	LockTTL       time.Duration

	Currency string
	Decimals int32
}

// Scanner indexes token transfers into the vault, first catching up from the
// checkpoint and then following the chain head.
type Scanner struct {
	cfg     Config
	logger  *logger.Logger
	metrics *metrics.Metrics

	chain       models.BlockchainService
	checkpoints models.CheckpointStore
	deposits    models.DepositRepository
	locks       models.LockRepository
	notificator models.NotificationService

	instanceID string
	state      atomic.Int32
	// lease is the lock as of the last successful acquire or renewal; only Run's goroutine touches it.
	lease models.AppLock
}

// New validates cfg and builds a Scanner. locks and notificator may be nil.
func New(
	cfg Config,
	chain models.BlockchainService,
	checkpoints models.CheckpointStore,
	deposits models.DepositRepository,
	locks models.LockRepository,
	notificator models.NotificationService,
	m *metrics.Metrics,
	logger *logger.Logger,
) (*Scanner, error) {
	if cfg.Source == "" {
		return nil, errors.New("scanner source is required")
	}
	if cfg.VaultAddress == (common.Address{}) {
		return nil, errors.New("vault address is required")
	}
	if cfg.TokenAddress == (common.Address{}) {
		return nil, errors.New("token address is required")
	}
	if cfg.MaxBlockSpan == 0 {
		return nil, errors.New("max block span must be greater than zero")
	}
	if chain == nil || checkpoints == nil || deposits == nil {
		return nil, errors.New("chain, checkpoint store and deposit repository are required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}

	return &Scanner{
		cfg:         cfg,
		logger:      logger.With("source", cfg.Source),
		metrics:     m,
		chain:       chain,
		checkpoints: checkpoints,
		deposits:    deposits,
		locks:       locks,
		notificator: notificator,
		instanceID:  uuid.NewString(),
	}, nil
}

func (s *Scanner) State() State {
	return State(s.state.Load())
}

func (s *Scanner) setState(state State) {
	s.state.Store(int32(state))
}

// Run takes the lease, backfills once and then polls until ctx is cancelled.
// A failed backfill is logged and polling starts anyway, since polling resumes
// from the checkpoint.
func (s *Scanner) Run(ctx context.Context) error {
	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer s.releaseLock()
	defer s.setState(StateIdle)

	s.logger.Info("Starting vault scanner",
		"vault", strings.ToLower(s.cfg.VaultAddress.Hex()),
		"token", strings.ToLower(s.cfg.TokenAddress.Hex()),
		"max_block_span", s.cfg.MaxBlockSpan,
		"poll_interval", s.cfg.PollInterval,
		"confirmations", s.cfg.Confirmations,
	)

	s.setState(StateBackfilling)
	if err := s.Backfill(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrLockLost) {
			return err
		}
		s.logger.Error("Backfill failed, continuing with polling", "error", err)
	}

	s.setState(StatePolling)
	return s.Poll(ctx)
}

// resolveStart returns the first height to scan and whether it came from a checkpoint.
func (s *Scanner) resolveStart(ctx context.Context, latest uint64) (uint64, bool, error) {
	height, exists, err := s.checkpoints.GetCheckpoint(ctx, s.cfg.Source)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	if exists {
		return height + 1, true, nil
	}
	if s.cfg.StartBlock != nil {
		return *s.cfg.StartBlock, false, nil
	}
	if latest > s.cfg.Lookback {
		return latest - s.cfg.Lookback, false, nil
	}
	return 0, false, nil
}

// processRange fetches, decodes and stores one range. The checkpoint moves to
// r.To only when advance is set and every deposit in the range was stored.
// Nothing is written unless the lease is still held after the fetch.
func (s *Scanner) processRange(ctx context.Context, mode string, r BlockRange, advance bool) error {
	start := time.Now()
	defer func() { s.metrics.ObserveRange(mode, time.Since(start)) }()

	logs, err := s.chain.GetLogs(ctx, s.cfg.TokenAddress, r.From, r.To)
	if err != nil {
		return s.rangeError(mode, r, StageFetch, err)
	}
	if err := s.keepLease(ctx); err != nil {
		return err
	}

	for _, log := range logs {
		if log.Address != s.cfg.TokenAddress {
			continue
		}
		transfer, ok := blockchain.DecodeTransfer(log, s.cfg.VaultAddress)
		if !ok {
			continue
		}

		inserted, err := s.deposits.InsertDepositIfAbsent(ctx, transfer.Deposit())
		if err != nil {
			return s.rangeError(mode, r, StageStore, err)
		}
		s.metrics.IncDeposit(inserted)
		if !inserted {
			s.logger.Debug("Deposit already recorded", "tx_hash", transfer.TxHash.Hex())
			continue
		}

		s.logger.Info("Vault deposit recorded",
			"tx_hash", transfer.TxHash.Hex(),
			"block", transfer.BlockNumber,
			"sender", strings.ToLower(transfer.From.Hex()),
			"amount", transfer.Amount.String(),
		)
		s.notify(ctx, transfer)
	}

	if !advance {
		return nil
	}
	if err := s.checkpoints.SetCheckpoint(ctx, s.cfg.Source, r.To); err != nil {
		return s.rangeError(mode, r, StageCheckpoint, err)
	}
	s.metrics.SetCheckpoint(r.To)
	return nil
}

func (s *Scanner) rangeError(mode string, r BlockRange, stage Stage, err error) error {
	s.metrics.IncRangeError(mode, string(stage))
	return &RangeError{Range: r, Stage: stage, Err: err}
}

func (s *Scanner) notify(ctx context.Context, transfer *blockchain.Transfer) {
	if s.notificator == nil {
		return
	}
	s.notificator.SendNotification(ctx, &models.Notification{
		TxHash:      transfer.TxHash.Hex(),
		BlockNumber: transfer.BlockNumber,
		Sender:      strings.ToLower(transfer.From.Hex()),
		Vault:       strings.ToLower(transfer.To.Hex()),
		Amount:      transfer.Amount,
		Currency:    s.cfg.Currency,
		Decimals:    s.cfg.Decimals,
	})
}

func (s *Scanner) acquireLock(ctx context.Context) error {
	if s.locks == nil {
		return nil
	}
	now := time.Now()
	ok, err := s.locks.AcquireLock(ctx, s.cfg.Source, s.instanceID, s.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire scanner lock: %w", err)
	}
	if !ok {
		return ErrLockHeld
	}
	s.lease = models.NewAppLock(s.cfg.Source, s.instanceID, now, s.cfg.LockTTL)
	s.logger.Debug("Scanner lock acquired", "instance_id", s.instanceID)
	return nil
}

// renewLock extends the lease. Database errors are logged and tolerated until
// the lease is observed as lost or has lapsed since the last successful renewal.
func (s *Scanner) renewLock(ctx context.Context) error {
	if s.locks == nil {
		return nil
	}
	now := time.Now()
	ok, err := s.locks.RenewLock(ctx, s.cfg.Source, s.instanceID, s.cfg.LockTTL)
	if err != nil {
		if s.lease.Expired(now) {
			return fmt.Errorf("%w: lease lapsed while renewal failed: %v", ErrLockLost, err)
		}
		s.logger.Warn("Failed to renew scanner lock", "error", err)
		return nil
	}
	if !ok {
		return ErrLockLost
	}
	s.lease = models.NewAppLock(s.cfg.Source, s.instanceID, now, s.cfg.LockTTL)
	return nil
}

// keepLease renews a held lease once a third of its TTL has been used up.
// Scans started outside Run hold no lease and skip it.
func (s *Scanner) keepLease(ctx context.Context) error {
	if s.locks == nil || s.lease.InstanceID == "" {
		return nil
	}
	if time.Until(time.UnixMilli(s.lease.ExpiresAt)) > s.cfg.LockTTL*2/3 {
		return nil
	}
	return s.renewLock(ctx)
}

func (s *Scanner) releaseLock() {
	if s.locks == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.locks.ReleaseLock(ctx, s.cfg.Source, s.instanceID); err != nil {
		s.logger.Warn("Failed to release scanner lock", "error", err)
	}
	s.lease = models.AppLock{}
}
