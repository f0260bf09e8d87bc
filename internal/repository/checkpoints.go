package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/core-coin/vault-indexer/internal/models"
)

func (db *PostgresDB) GetCheckpoint(ctx context.Context, source string) (uint64, bool, error) {
	checkpoint, err := db.GetCheckpointRecord(ctx, source)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return checkpoint.LastBlockNumber, true, nil
}

func (db *PostgresDB) GetCheckpointRecord(ctx context.Context, source string) (*models.Checkpoint, error) {
	var checkpoint models.Checkpoint
	if err := db.Conn.WithContext(ctx).Where("source = ?", source).First(&checkpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get checkpoint for %s: %w", source, err)
	}
	return &checkpoint, nil
}

func (db *PostgresDB) SetCheckpoint(ctx context.Context, source string, height uint64) error {
	checkpoint := models.Checkpoint{
		Source:          source,
		LastBlockNumber: height,
		UpdatedAt:       time.Now().Unix(),
	}
	err := db.Conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_block_number", "updated_at"}),
	}).Create(&checkpoint).Error
	if err != nil {
		return fmt.Errorf("failed to set checkpoint for %s to %d: %w", source, height, err)
	}
	db.logger.Debug("Checkpoint updated", "source", source, "height", height)
	return nil
}
