package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/core-coin/vault-indexer/internal/models"
)

func (db *PostgresDB) InsertDepositIfAbsent(ctx context.Context, deposit *models.Deposit) (bool, error) {
	if deposit.Status == "" {
		deposit.Status = models.DepositStatusConfirmed
	}
	res := db.Conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}},
		DoNothing: true,
	}).Create(deposit)
	if res.Error != nil {
		return false, fmt.Errorf("failed to insert deposit %s: %w", deposit.TxHash, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (db *PostgresDB) GetDeposit(ctx context.Context, txHash string) (*models.Deposit, error) {
	var deposit models.Deposit
	if err := db.Conn.WithContext(ctx).Where("tx_hash = ?", txHash).First(&deposit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return &deposit, nil
}

func (db *PostgresDB) ListDeposits(ctx context.Context, params models.ListDepositsParams) ([]*models.Deposit, error) {
	var deposits []*models.Deposit
	query := db.Conn.WithContext(ctx).Order("block_number DESC").Order("tx_hash")
	if params.FromBlock > 0 {
		query = query.Where("block_number >= ?", params.FromBlock)
	}
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}
	if err := query.Find(&deposits).Error; err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	return deposits, nil
}

func (db *PostgresDB) CountDeposits(ctx context.Context) (int64, error) {
	var count int64
	if err := db.Conn.WithContext(ctx).Model(&models.Deposit{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count deposits: %w", err)
	}
	return count, nil
}
