// Package repo implements the audit key-value store backed by GORM. This file
// holds the generic blob primitives: overwrite, read, the conditional
// notification claim and expiry purge.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simpleit/sitepilot/internal/domain"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("not found")

// PutBlob overwrites the value stored under key and refreshes its expiry.
// The notified flag of an existing row is left untouched.
func PutBlob(ctx context.Context, db *gorm.DB, key string, value []byte, ttl time.Duration) error {
	return putBlob(ctx, db, key, value, ttl, false)
}

// putBlob upserts a row. When resetNotified is set the notified flag is
// cleared as part of the same statement.
func putBlob(ctx context.Context, db *gorm.DB, key string, value []byte, ttl time.Duration, resetNotified bool) error {
	now := time.Now().UTC()
	row := &domain.Blob{
		Key:       key,
		Value:     string(value),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	cols := []string{"value", "updated_at", "expires_at"}
	if resetNotified {
		cols = append(cols, "notified")
	}

	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(row).Error
}

// GetBlob returns the raw value stored under key, or ErrNotFound when the key
// is absent or expired at now.
func GetBlob(ctx context.Context, db *gorm.DB, key string, now time.Time) ([]byte, error) {
	var row domain.Blob
	err := db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now.UTC()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Value), nil
}

// ClaimNotification atomically flips the notified flag of key from false to
// true. It reports true only to the single caller whose update applied; every
// later caller sees false. A missing key yields (false, nil).
func ClaimNotification(ctx context.Context, db *gorm.DB, key string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Blob{}).
		Where("key = ? AND notified = ?", key, false).
		Update("notified", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseNotification clears the notified flag so a later attempt may send.
func ReleaseNotification(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).
		Model(&domain.Blob{}).
		Where("key = ?", key).
		Update("notified", false).Error
}

// PurgeExpired deletes rows whose expiry is at or before now and returns the
// number of rows removed.
func PurgeExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&domain.Blob{})
	return res.RowsAffected, res.Error
}
