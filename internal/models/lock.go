package models

import "time"

// AppLock is a lease row that keeps a second scanner from writing the same source.
// The holder renews ExpiresAt while it runs; an expired lease may be taken over.
// Timestamps are unix milliseconds.
type AppLock struct {
	LockName   string `gorm:"primaryKey;size:255"`
	InstanceID string `gorm:"size:255;not null"`
	AcquiredAt int64  `gorm:"not null;index"`
	ExpiresAt  int64  `gorm:"not null;index"`
}

// TableName specifies the table name for GORM
func (AppLock) TableName() string {
	return "app_locks"
}

// NewAppLock builds a lease for instanceID that lapses ttl after now.
func NewAppLock(name, instanceID string, now time.Time, ttl time.Duration) AppLock {
	return AppLock{
		LockName:   name,
		InstanceID: instanceID,
		AcquiredAt: now.UnixMilli(),
		ExpiresAt:  now.Add(ttl).UnixMilli(),
	}
}

// Expired reports whether the lease has lapsed at now.
func (l AppLock) Expired(now time.Time) bool {
	return l.ExpiresAt <= now.UnixMilli()
}
