package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/vault-indexer/internal/models"
	"github.com/core-coin/vault-indexer/pkg/logger/loggertest"
)

func newTestDB(t *testing.T) *PostgresDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "indexer.db"), loggertest.New(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testDeposit(txHash string, block uint64) *models.Deposit {
	txIndex := uint(3)
	return &models.Deposit{
		TxHash:       txHash,
		BlockNumber:  block,
		TxIndex:      &txIndex,
		Sender:       "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		ToAddress:    "0x1111111111111111111111111111111111111111",
		AmountWei:    "123456789012345678901234567890",
		TokenAddress: "0xaf88d065e77c8cc2239327c5edb3a432268e5831",
	}
}

func TestCheckpoint_GetMissing(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	height, exists, err := db.GetCheckpoint(context.Background(), "arbitrum_vault")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Zero(t, height)

	_, err = db.GetCheckpointRecord(context.Background(), "arbitrum_vault")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCheckpoint_Upsert(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SetCheckpoint(ctx, "arbitrum_vault", 100))
	require.NoError(t, db.SetCheckpoint(ctx, "arbitrum_vault", 110))
	require.NoError(t, db.SetCheckpoint(ctx, "other", 5))

	height, exists, err := db.GetCheckpoint(ctx, "arbitrum_vault")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, uint64(110), height)

	var rows int64
	require.NoError(t, db.Conn.Model(&models.Checkpoint{}).Where("source = ?", "arbitrum_vault").Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	record, err := db.GetCheckpointRecord(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), record.LastBlockNumber)
	assert.NotZero(t, record.UpdatedAt)
}

func TestInsertDepositIfAbsent_Idempotent(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	hash := "0x8a1f3c1ba0e1bc7a4fd25bde11d3c36ee7a0a0c2b1a0dbe7e0ba6ff9e46d7a11"

	inserted, err := db.InsertDepositIfAbsent(ctx, testDeposit(hash, 100))
	require.NoError(t, err)
	assert.True(t, inserted)

	replay := testDeposit(hash, 100)
	replay.AmountWei = "1"
	inserted, err = db.InsertDepositIfAbsent(ctx, replay)
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := db.CountDeposits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := db.GetDeposit(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", stored.AmountWei)
	assert.Equal(t, models.DepositStatusConfirmed, stored.Status)
	require.NotNil(t, stored.TxIndex)
	assert.Equal(t, uint(3), *stored.TxIndex)
	assert.Nil(t, stored.LogIndex)
}

func TestGetDeposit_NotFound(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	_, err := db.GetDeposit(context.Background(), "0xdead")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListDeposits(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	for i, block := range []uint64{100, 105, 110, 120} {
		_, err := db.InsertDepositIfAbsent(ctx, testDeposit(string(rune('a'+i))+"-hash", block))
		require.NoError(t, err)
	}

	all, err := db.ListDeposits(ctx, models.ListDepositsParams{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, uint64(120), all[0].BlockNumber)
	assert.Equal(t, uint64(100), all[3].BlockNumber)

	page, err := db.ListDeposits(ctx, models.ListDepositsParams{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(110), page[0].BlockNumber)
	assert.Equal(t, uint64(105), page[1].BlockNumber)

	recent, err := db.ListDeposits(ctx, models.ListDepositsParams{FromBlock: 106})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestLocks(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	ok, err := db.AcquireLock(ctx, "arbitrum_vault", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.AcquireLock(ctx, "arbitrum_vault", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "live lease must not be taken over")

	ok, err = db.AcquireLock(ctx, "arbitrum_vault", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "holder may re-acquire")

	ok, err = db.RenewLock(ctx, "arbitrum_vault", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.RenewLock(ctx, "arbitrum_vault", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.ReleaseLock(ctx, "arbitrum_vault", "a"))
	ok, err = db.AcquireLock(ctx, "arbitrum_vault", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocks_ExpiredLeaseTakeover(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	ok, err := db.AcquireLock(ctx, "arbitrum_vault", "a", -time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.AcquireLock(ctx, "arbitrum_vault", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.RenewLock(ctx, "arbitrum_vault", "a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "previous holder lost the lease")
}

func TestLocks_SubSecondTTL(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	ok, err := db.AcquireLock(ctx, "arbitrum_vault", "a", 400*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.AcquireLock(ctx, "arbitrum_vault", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lease is live until its TTL runs out")

	time.Sleep(500 * time.Millisecond)
	ok, err = db.AcquireLock(ctx, "arbitrum_vault", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
