package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/core-coin/vault-indexer/internal/models"
)

// AcquireLock takes the named lease for instanceID. It succeeds when the lease is
// free, already held by instanceID, or expired.
func (db *PostgresDB) AcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now()
	lock := models.NewAppLock(name, instanceID, now, ttl)

	res := db.Conn.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create lock %s: %w", name, res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	res = db.Conn.WithContext(ctx).Model(&models.AppLock{}).
		Where("lock_name = ? AND (instance_id = ? OR expires_at <= ?)", name, instanceID, now.UnixMilli()).
		Updates(map[string]interface{}{
			"instance_id": instanceID,
			"acquired_at": lock.AcquiredAt,
			"expires_at":  lock.ExpiresAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to take over lock %s: %w", name, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RenewLock extends a lease held by instanceID. It returns false when the lease was lost.
func (db *PostgresDB) RenewLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error) {
	res := db.Conn.WithContext(ctx).Model(&models.AppLock{}).
		Where("lock_name = ? AND instance_id = ?", name, instanceID).
		Update("expires_at", time.Now().Add(ttl).UnixMilli())
	if res.Error != nil {
		return false, fmt.Errorf("failed to renew lock %s: %w", name, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (db *PostgresDB) ReleaseLock(ctx context.Context, name, instanceID string) error {
	err := db.Conn.WithContext(ctx).
		Where("lock_name = ? AND instance_id = ?", name, instanceID).
		Delete(&models.AppLock{}).Error
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
