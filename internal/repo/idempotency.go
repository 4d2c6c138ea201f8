// Package repo implements the audit key-value store backed by GORM. This file
// maps Idempotency-Key headers on submit to the audit id they produced so a
// retried submit returns the original audit instead of starting a new one.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/simpleit/sitepilot/internal/domain"
)

// ErrDuplicate indicates that a mapping already exists for the key.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns the audit id recorded for key, or ErrNotFound when
// the key is blank, unknown or expired.
func GetIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrNotFound
	}
	raw, err := GetBlob(ctx, db, IdempotencyKey(key), now)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// CreateIdempotency records key → auditID and returns ErrDuplicate when a
// live mapping for key already exists. Expired mappings are replaced.
func CreateIdempotency(ctx context.Context, db *gorm.DB, key, auditID string, ttl time.Duration) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key = ? AND expires_at <= ?", IdempotencyKey(key), now).
			Delete(&domain.Blob{}).Error; err != nil {
			return err
		}
		row := &domain.Blob{
			Key:       IdempotencyKey(key),
			Value:     auditID,
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := tx.Create(row).Error; err != nil {
			// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
			low := strings.ToLower(err.Error())
			if errors.Is(err, gorm.ErrDuplicatedKey) ||
				strings.Contains(low, "unique constraint failed") ||
				strings.Contains(low, "constraint failed: unique") {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}
