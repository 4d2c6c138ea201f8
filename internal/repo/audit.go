// Package repo implements the audit key-value store backed by GORM. This file
// provides the typed views over the blob namespace: audit records, deferred
// notify requests and Idempotency-Key mappings.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/simpleit/sitepilot/internal/domain"
)

const (
	notifyPrefix = "email-"
	idemPrefix   = "idem-"
)

// NotifyKey returns the store key of the notify request for auditID.
func NotifyKey(auditID string) string { return notifyPrefix + auditID }

// IdempotencyKey returns the store key of an Idempotency-Key mapping.
func IdempotencyKey(key string) string { return idemPrefix + key }

// PutAudit overwrites the audit record stored under auditID. Writing a
// processing record re-arms the notification claim for a fresh run.
func PutAudit(ctx context.Context, db *gorm.DB, auditID string, rec domain.AuditRecord, ttl time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit %s: %w", auditID, err)
	}
	if rec.Status != domain.StatusProcessing {
		return PutBlob(ctx, db, auditID, b, ttl)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := PutBlob(ctx, tx, auditID, b, ttl); err != nil {
			return err
		}
		return ReleaseNotification(ctx, tx, NotifyKey(auditID))
	})
}

// GetAuditRaw returns the stored bytes of the audit record so repeated polls
// return byte-identical bodies.
func GetAuditRaw(ctx context.Context, db *gorm.DB, auditID string, now time.Time) ([]byte, error) {
	return GetBlob(ctx, db, auditID, now)
}

// GetAudit returns the decoded audit record for auditID.
func GetAudit(ctx context.Context, db *gorm.DB, auditID string, now time.Time) (*domain.AuditRecord, error) {
	raw, err := GetBlob(ctx, db, auditID, now)
	if err != nil {
		return nil, err
	}
	var rec domain.AuditRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode audit %s: %w", auditID, err)
	}
	return &rec, nil
}

// PutNotifyRequest stores (or replaces) the notify request for auditID. The
// claim on the request row is re-armed when the address changes, so a
// corrected address is still served after an earlier one was.
func PutNotifyRequest(ctx context.Context, db *gorm.DB, auditID string, req domain.NotifyRequest, ttl time.Duration) error {
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode notify request %s: %w", auditID, err)
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rearm := true
		prev, err := GetNotifyRequest(ctx, tx, auditID, time.Now())
		switch {
		case err == nil:
			rearm = !strings.EqualFold(prev.Email, req.Email)
		case !errors.Is(err, ErrNotFound):
			return err
		}
		return putBlob(ctx, tx, NotifyKey(auditID), b, ttl, rearm)
	})
}

// GetNotifyRequest returns the notify request for auditID, or ErrNotFound.
func GetNotifyRequest(ctx context.Context, db *gorm.DB, auditID string, now time.Time) (*domain.NotifyRequest, error) {
	raw, err := GetBlob(ctx, db, NotifyKey(auditID), now)
	if err != nil {
		return nil, err
	}
	var req domain.NotifyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode notify request %s: %w", auditID, err)
	}
	return &req, nil
}
