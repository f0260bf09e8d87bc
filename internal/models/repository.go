package models

import (
	"context"
	"time"
)

// CheckpointStore persists the last fully processed height per source.
type CheckpointStore interface {
	// GetCheckpoint returns exists=false when the source has never been checkpointed.
	GetCheckpoint(ctx context.Context, source string) (height uint64, exists bool, err error)
	SetCheckpoint(ctx context.Context, source string, height uint64) error
}

// DepositRepository records deposits idempotently.
type DepositRepository interface {
	// InsertDepositIfAbsent reports inserted=false, without error, when the tx hash already exists.
	InsertDepositIfAbsent(ctx context.Context, deposit *Deposit) (inserted bool, err error)
}

// ListDepositsParams filters and pages ListDeposits.
type ListDepositsParams struct {
	Limit     int
	Offset    int
	FromBlock uint64
}

// DepositReader serves the read side of the deposit table.
type DepositReader interface {
	GetDeposit(ctx context.Context, txHash string) (*Deposit, error)
	ListDeposits(ctx context.Context, params ListDepositsParams) ([]*Deposit, error)
	CountDeposits(ctx context.Context) (int64, error)
}

// LockRepository manages lease locks in the database.
type LockRepository interface {
	AcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error)
	RenewLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, instanceID string) error
}

type Repository interface {
	CheckpointStore
	DepositRepository
	DepositReader
	LockRepository

	GetCheckpointRecord(ctx context.Context, source string) (*Checkpoint, error)
	Close() error
}
