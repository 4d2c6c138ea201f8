package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simpleit/sitepilot/internal/domain"
	"github.com/simpleit/sitepilot/internal/http/middleware"
	"github.com/simpleit/sitepilot/internal/mail"
	"github.com/simpleit/sitepilot/internal/reviews"
	"github.com/simpleit/sitepilot/internal/services"
	"github.com/simpleit/sitepilot/internal/spam"
	"github.com/simpleit/sitepilot/internal/worker"
)

type stubAudits struct {
	submitRes services.SubmitResult
	submitErr error
	gotDomain string
	gotID     string
	gotKey    string

	statusRaw []byte
	statusErr error

	nowRes *domain.AuditResult
	nowErr error
}

func (s *stubAudits) Submit(_ context.Context, d, id, key string) (services.SubmitResult, error) {
	s.gotDomain, s.gotID, s.gotKey = d, id, key
	return s.submitRes, s.submitErr
}

func (s *stubAudits) Status(context.Context, string) ([]byte, error) {
	return s.statusRaw, s.statusErr
}

func (s *stubAudits) AuditNow(_ context.Context, d string) (string, *domain.AuditResult, error) {
	return d, s.nowRes, s.nowErr
}

type stubNotify struct {
	sent bool
	err  error
	got  services.NotifyInput
}

func (s *stubNotify) Request(_ context.Context, in services.NotifyInput) (bool, error) {
	s.got = in
	return s.sent, s.err
}

type stubLeads struct {
	reason spam.Reason
	err    error
	got    services.LeadInput
}

func (s *stubLeads) Submit(_ context.Context, in services.LeadInput) (spam.Reason, error) {
	s.got = in
	return s.reason, s.err
}

type stubTickets struct {
	err error
	got mail.Ticket
}

func (s *stubTickets) Confirm(_ context.Context, t mail.Ticket) error {
	s.got = t
	return s.err
}

type stubReviews struct {
	sum *reviews.Summary
	err error
}

func (s *stubReviews) Place(context.Context, string) (*reviews.Summary, error) {
	return s.sum, s.err
}

type stubDispatcher struct {
	mu   sync.Mutex
	err  error
	jobs []worker.Job
}

func (d *stubDispatcher) Dispatch(_ context.Context, job worker.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type fixture struct {
	audits  *stubAudits
	notify  *stubNotify
	leads   *stubLeads
	tickets *stubTickets
	reviews *stubReviews
	bg      *stubDispatcher
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	RegisterValidators()

	f := &fixture{
		audits:  &stubAudits{},
		notify:  &stubNotify{},
		leads:   &stubLeads{},
		tickets: &stubTickets{},
		reviews: &stubReviews{},
		bg:      &stubDispatcher{},
	}
	h := New(f.audits, f.notify, f.leads, f.tickets, f.reviews, f.bg)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	r.POST("/submit", h.Submit)
	r.POST("/background", h.Background)
	r.GET("/status", h.Status)
	r.POST("/notify", h.Notify)
	r.POST("/audit", h.Audit)
	r.POST("/lead-magnet", h.LeadMagnet)
	r.POST("/ticket-confirmation", h.TicketConfirmation)
	r.GET("/reviews", h.Reviews)
	f.router = r
	return f
}

func (f *fixture) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	if er.RequestID == "" {
		t.Fatalf("error envelope without request id: %s", w.Body.String())
	}
	return er
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code, msg string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d body=%s", w.Code, status, w.Body.String())
	}
	er := decodeError(t, w)
	if er.Code != code || (msg != "" && er.Message != msg) {
		t.Fatalf("error = %+v; want code %q message %q", er, code, msg)
	}
}

