package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/simpleit/sitepilot/internal/domain"
	"github.com/simpleit/sitepilot/internal/fetcher"
	"github.com/simpleit/sitepilot/internal/mail"
	"github.com/simpleit/sitepilot/internal/worker"
)

// ---------- test helpers ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection serializes writers on the shared in-memory database.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.Blob{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func sampleResult(score int, grade string) *domain.AuditResult {
	cats := make(map[string]domain.CategoryScore, len(domain.CategoryKeys))
	for _, k := range domain.CategoryKeys {
		cats[k] = domain.CategoryScore{Score: score, VisibleIssue: "issue " + k}
	}
	return &domain.AuditResult{
		OverallScore:    score,
		OverallGrade:    grade,
		Summary:         "summary",
		Categories:      cats,
		CriticalCount:   1,
		WarningCount:    2,
		PassedCount:     3,
		BlurredFindings: []string{"a", "b"},
	}
}

type fakeFetcher struct {
	page fetcher.Page
	err  error

	mu     sync.Mutex
	called []string
}

func (f *fakeFetcher) Fetch(_ context.Context, d string) (fetcher.Page, error) {
	f.mu.Lock()
	f.called = append(f.called, d)
	f.mu.Unlock()
	return f.page, f.err
}

type fakeLLM struct {
	res   *domain.AuditResult
	err   error
	block chan struct{} // when set, Infer waits for close or ctx

	mu      sync.Mutex
	prompts []string
}

func (f *fakeLLM) Infer(ctx context.Context, p string) (*domain.AuditResult, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.res, f.err
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// recordingDispatcher captures jobs instead of running them.
type recordingDispatcher struct {
	err  error
	mu   sync.Mutex
	jobs []worker.Job
}

func (d *recordingDispatcher) Dispatch(_ context.Context, j worker.Job) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	d.jobs = append(d.jobs, j)
	d.mu.Unlock()
	return nil
}

type fakeMailer struct {
	mu         sync.Mutex
	reports    []string
	leads      []string
	guides     []string
	guideLeads []string
	tickets    []mail.Ticket
	guidePDF   []byte

	reportErr error
	leadErr   error
	guideErr  error
	ticketErr error
}

func (m *fakeMailer) SendAuditReport(_ context.Context, to, _, d string, _ *domain.AuditResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, to+"|"+d)
	return m.reportErr
}

func (m *fakeMailer) SendAuditLead(_ context.Context, email, _, d string, _ *domain.AuditResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads = append(m.leads, email+"|"+d)
	return m.leadErr
}

func (m *fakeMailer) SendGuide(_ context.Context, to, _ string, pdf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guides = append(m.guides, to)
	m.guidePDF = pdf
	return m.guideErr
}

func (m *fakeMailer) SendGuideLead(_ context.Context, name, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guideLeads = append(m.guideLeads, name)
	return nil
}

func (m *fakeMailer) SendTicketConfirmation(_ context.Context, t mail.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = append(m.tickets, t)
	return m.ticketErr
}

func (m *fakeMailer) counts() (reports, leads int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports), len(m.leads)
}
