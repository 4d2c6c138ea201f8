package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/simpleit/sitepilot/internal/domain"
)

func newBlobDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid schema leakage across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestPutGetBlob_OverwriteAndMissing(t *testing.T) {
	db := newBlobDB(t)
	ctx := context.Background()

	if _, err := GetBlob(ctx, db, "missing", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := PutBlob(ctx, db, "k", []byte("one"), time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := PutBlob(ctx, db, "k", []byte("two"), time.Hour); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := GetBlob(ctx, db, "k", time.Now())
	if err != nil || string(got) != "two" {
		t.Fatalf("expected last write to win, got %q err=%v", got, err)
	}

	var n int64
	db.Model(&domain.Blob{}).Where("key = ?", "k").Count(&n)
	if n != 1 {
		t.Fatalf("expected a single row after overwrite, got %d", n)
	}
}

func TestGetBlob_ExpiredIsInvisible_AndPurged(t *testing.T) {
	db := newBlobDB(t)
	ctx := context.Background()

	if err := PutBlob(ctx, db, "old", []byte("x"), time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := PutBlob(ctx, db, "fresh", []byte("y"), 48*time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	later := time.Now().Add(2 * time.Hour)
	if _, err := GetBlob(ctx, db, "old", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired row to be invisible, got %v", err)
	}

	n, err := PurgeExpired(ctx, db, later)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}
	if _, err := GetBlob(ctx, db, "fresh", later); err != nil {
		t.Fatalf("fresh row should survive purge: %v", err)
	}
}

func TestClaimNotification_SingleWinner(t *testing.T) {
	db := newBlobDB(t)
	ctx := context.Background()
	// Shared-cache memory databases report table locks under concurrent
	// writers; a single connection serializes them like the file-backed store.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	rec := domain.NewProcessing("example.com", time.Now()).
		Complete(&domain.AuditResult{OverallScore: 80, OverallGrade: "B+"}, time.Now())
	if err := PutAudit(ctx, db, "a1", rec, time.Hour); err != nil {
		t.Fatalf("put audit: %v", err)
	}

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ClaimNotification(ctx, db, "a1")
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", wins.Load())
	}

	// Overwriting with a terminal record keeps the claim.
	if err := PutAudit(ctx, db, "a1", rec, time.Hour); err != nil {
		t.Fatalf("put audit: %v", err)
	}
	if ok, _ := ClaimNotification(ctx, db, "a1"); ok {
		t.Fatalf("claim must survive terminal overwrite")
	}

	// Release re-arms it.
	if err := ReleaseNotification(ctx, db, "a1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := ClaimNotification(ctx, db, "a1"); !ok {
		t.Fatalf("expected claim after release")
	}

}

func TestNotifyClaim_Rearming(t *testing.T) {
	db := newBlobDB(t)
	ctx := context.Background()
	key := NotifyKey("a1")

	put := func(email string) {
		t.Helper()
		if err := PutNotifyRequest(ctx, db, "a1", domain.NotifyRequest{Email: email}, time.Hour); err != nil {
			t.Fatalf("put notify: %v", err)
		}
	}

	put("typo@exampel.com")
	if ok, _ := ClaimNotification(ctx, db, key); !ok {
		t.Fatalf("fresh request must be claimable")
	}

	// Same address, any case: the claim holds.
	put("TYPO@exampel.com")
	if ok, _ := ClaimNotification(ctx, db, key); ok {
		t.Fatalf("repeat address must not re-arm the claim")
	}

	// A different address re-arms it.
	put("owner@example.com")
	if ok, _ := ClaimNotification(ctx, db, key); !ok {
		t.Fatalf("changed address must re-arm the claim")
	}

	// A new processing write for the audit re-arms it as well.
	if err := PutAudit(ctx, db, "a1", domain.NewProcessing("example.com", time.Now()), time.Hour); err != nil {
		t.Fatalf("put processing: %v", err)
	}
	if ok, _ := ClaimNotification(ctx, db, key); !ok {
		t.Fatalf("expected claim after processing rewrite")
	}

	// Terminal writes leave it alone.
	rec := domain.NewProcessing("example.com", time.Now()).Fail("boom", time.Now())
	if err := PutAudit(ctx, db, "a1", rec, time.Hour); err != nil {
		t.Fatalf("put error record: %v", err)
	}
	if ok, _ := ClaimNotification(ctx, db, key); ok {
		t.Fatalf("terminal write must keep the claim")
	}
}

func TestClaimNotification_MissingKey(t *testing.T) {
	db := newBlobDB(t)
	ok, err := ClaimNotification(context.Background(), db, "nope")
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
}

func TestAuditAndNotifyRoundTrip(t *testing.T) {
	db := newBlobDB(t)
	ctx := context.Background()
	now := time.Now()

	res := &domain.AuditResult{
		OverallScore: 72,
		OverallGrade: "B-",
		Summary:      "ok",
		Categories: map[string]domain.CategoryScore{
			domain.CategoryMeta: {Score: 70, VisibleIssue: "title"},
		},
		BlurredFindings: []string{"a", "b"},
	}
	rec := domain.NewProcessing("example.com", now).Complete(res, now)
	if err := PutAudit(ctx, db, "a2", rec, time.Hour); err != nil {
		t.Fatalf("put audit: %v", err)
	}

	got, err := GetAudit(ctx, db, "a2", now)
	if err != nil {
		t.Fatalf("get audit: %v", err)
	}
	if got.Status != domain.StatusComplete || got.Results == nil || got.Results.Categories[domain.CategoryMeta].VisibleIssue != "title" {
		t.Fatalf("unexpected record: %+v", got)
	}

	raw1, _ := GetAuditRaw(ctx, db, "a2", now)
	raw2, _ := GetAuditRaw(ctx, db, "a2", now)
	if string(raw1) != string(raw2) {
		t.Fatalf("repeated reads must be byte-identical")
	}

	if _, err := GetNotifyRequest(ctx, db, "a2", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no notify request yet, got %v", err)
	}
	req := domain.NotifyRequest{Email: "a@b.co", Name: "Ann", Domain: "example.com", RequestedAt: now.UnixMilli()}
	if err := PutNotifyRequest(ctx, db, "a2", req, time.Hour); err != nil {
		t.Fatalf("put notify: %v", err)
	}
	gotReq, err := GetNotifyRequest(ctx, db, "a2", now)
	if err != nil || *gotReq != req {
		t.Fatalf("notify round-trip failed: %+v err=%v", gotReq, err)
	}
}

func TestIdempotency_CreateGetDuplicate(t *testing.T) {
	db := newBlobDB(t)
	ctx := context.Background()

	if _, err := GetIdempotency(ctx, db, "  ", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank key: expected ErrNotFound, got %v", err)
	}

	if err := CreateIdempotency(ctx, db, "k1", "audit-1", time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := CreateIdempotency(ctx, db, "k1", "audit-2", time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	id, err := GetIdempotency(ctx, db, "k1", time.Now())
	if err != nil || id != "audit-1" {
		t.Fatalf("expected audit-1, got %q err=%v", id, err)
	}
}

func TestIdempotency_ExpiredIsReplaced(t *testing.T) {
	db := newBlobDB(t)
	ctx := context.Background()

	if err := CreateIdempotency(ctx, db, "k2", "old", time.Nanosecond); err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := GetIdempotency(ctx, db, "k2", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired mapping should be invisible, got %v", err)
	}
	if err := CreateIdempotency(ctx, db, "k2", "new", time.Hour); err != nil {
		t.Fatalf("expired mapping should be replaceable: %v", err)
	}
	id, _ := GetIdempotency(ctx, db, "k2", time.Now())
	if id != "new" {
		t.Fatalf("expected new mapping, got %q", id)
	}
}
