package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/simpleit/sitepilot/internal/domain"
	"github.com/simpleit/sitepilot/internal/fetcher"
	"github.com/simpleit/sitepilot/internal/llm"
	"github.com/simpleit/sitepilot/internal/repo"
	"github.com/simpleit/sitepilot/internal/worker"
)

func newAuditService(t *testing.T) (*AuditService, *recordingDispatcher, *fakeFetcher, *fakeLLM) {
	t.Helper()
	disp := &recordingDispatcher{}
	f := &fakeFetcher{page: fetcher.Page{URL: "https://example.com", Content: "<head><title>Ex</title></head>"}}
	l := &fakeLLM{res: sampleResult(70, "B-")}
	s := &AuditService{
		DB:              newTestDB(t),
		Fetcher:         f,
		LLM:             l,
		Dispatcher:      disp,
		Retention:       time.Hour,
		IdempotencyTTL:  time.Hour,
		PipelineTimeout: 5 * time.Second,
	}
	return s, disp, f, l
}

func decodeRecord(t *testing.T, raw []byte) domain.AuditRecord {
	t.Helper()
	var rec domain.AuditRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return rec
}

// ---------- Submit() ----------

func TestSubmit_WritesProcessingAndDispatches(t *testing.T) {
	s, disp, _, _ := newAuditService(t)
	ctx := context.Background()

	res, err := s.Submit(ctx, "https://Example.com/pricing", "", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.AuditID == "" || res.Domain != "example.com" || res.Replayed {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(disp.jobs) != 1 || disp.jobs[0] != (worker.Job{AuditID: res.AuditID, Domain: "example.com"}) {
		t.Fatalf("unexpected jobs: %+v", disp.jobs)
	}

	raw, err := s.Status(ctx, res.AuditID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	rec := decodeRecord(t, raw)
	if rec.Status != domain.StatusProcessing || rec.Results != nil || rec.Error != "" {
		t.Fatalf("want processing record, got %+v", rec)
	}
}

func TestSubmit_CallerSuppliedID(t *testing.T) {
	s, disp, _, _ := newAuditService(t)
	res, err := s.Submit(context.Background(), "example.com", "abc123", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.AuditID != "abc123" || disp.jobs[0].AuditID != "abc123" {
		t.Fatalf("caller id not used: %+v", res)
	}
}

func TestSubmit_Validation(t *testing.T) {
	s, disp, _, _ := newAuditService(t)
	tests := []struct {
		domain, id string
		want       error
	}{
		{"  ", "", ErrDomainRequired},
		{"not a domain", "", ErrInvalidDomain},
		{"localhost", "", ErrInvalidDomain},
		{"example.com", "../etc", ErrInvalidAuditID},
		{"example.com", "email-abc", ErrInvalidAuditID},
		{"example.com", "idem-abc", ErrInvalidAuditID},
	}
	for _, tc := range tests {
		_, err := s.Submit(context.Background(), tc.domain, tc.id, "")
		if !errors.Is(err, tc.want) {
			t.Errorf("Submit(%q, %q) err = %v, want %v", tc.domain, tc.id, err, tc.want)
		}
	}
	if len(disp.jobs) != 0 {
		t.Fatalf("no job may be dispatched for invalid input, got %d", len(disp.jobs))
	}
}

func TestSubmit_IdempotencyKeyReplays(t *testing.T) {
	s, disp, _, _ := newAuditService(t)
	ctx := context.Background()

	first, err := s.Submit(ctx, "example.com", "", "key-1")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := s.Submit(ctx, "example.com", "", "key-1")
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !second.Replayed || second.AuditID != first.AuditID {
		t.Fatalf("expected replay of %s, got %+v", first.AuditID, second)
	}
	if len(disp.jobs) != 1 {
		t.Fatalf("replay must not dispatch, got %d jobs", len(disp.jobs))
	}
}

func TestSubmit_DispatchFailureStoresError(t *testing.T) {
	s, disp, _, _ := newAuditService(t)
	disp.err = worker.ErrQueueFull

	_, err := s.Submit(context.Background(), "example.com", "q1", "")
	if !errors.Is(err, ErrDispatch) {
		t.Fatalf("want ErrDispatch, got %v", err)
	}
	raw, err := s.Status(context.Background(), "q1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	rec := decodeRecord(t, raw)
	if rec.Status != domain.StatusError || rec.Error == "" {
		t.Fatalf("want error record, got %+v", rec)
	}
}

// ---------- Status() ----------

func TestStatus_NotFoundAndMissingID(t *testing.T) {
	s, _, _, _ := newAuditService(t)
	if _, err := s.Status(context.Background(), "nope"); !errors.Is(err, ErrAuditNotFound) {
		t.Fatalf("want ErrAuditNotFound, got %v", err)
	}
	if _, err := s.Status(context.Background(), " "); !errors.Is(err, ErrAuditIDRequired) {
		t.Fatalf("want ErrAuditIDRequired, got %v", err)
	}
}

func TestStatus_OnlyServesAuditKeys(t *testing.T) {
	s, _, _, _ := newAuditService(t)
	ctx := context.Background()

	res, err := s.Submit(ctx, "example.com", "", "key-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	req := domain.NotifyRequest{Email: "owner@example.com", Name: "Pat"}
	if err := repo.PutNotifyRequest(ctx, s.DB, res.AuditID, req, time.Hour); err != nil {
		t.Fatalf("put notify: %v", err)
	}

	for _, id := range []string{repo.NotifyKey(res.AuditID), repo.IdempotencyKey("key-1")} {
		raw, err := s.Status(ctx, id)
		if !errors.Is(err, ErrAuditNotFound) {
			t.Fatalf("Status(%q) = %s, %v; want ErrAuditNotFound", id, raw, err)
		}
	}
	if _, err := s.Status(ctx, res.AuditID); err != nil {
		t.Fatalf("audit itself must stay readable: %v", err)
	}
}

func TestStatus_ByteIdenticalPolls(t *testing.T) {
	s, _, _, _ := newAuditService(t)
	ctx := context.Background()
	s.Run(ctx, "example.com", "same")

	a, err := s.Status(ctx, "same")
	if err != nil {
		t.Fatalf("status a: %v", err)
	}
	b, err := s.Status(ctx, "same")
	if err != nil {
		t.Fatalf("status b: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("polls differ:\n%s\n%s", a, b)
	}
}

// ---------- Run() ----------

func TestRun_CompleteRoundTrip(t *testing.T) {
	s, _, f, l := newAuditService(t)
	ctx := context.Background()

	rec := s.Run(ctx, "example.com", "r1")
	if rec.Status != domain.StatusComplete {
		t.Fatalf("want complete, got %+v", rec)
	}
	if len(f.called) != 1 || f.called[0] != "example.com" {
		t.Fatalf("fetcher not called with domain: %v", f.called)
	}
	if !strings.Contains(l.lastPrompt(), "<title>Ex</title>") {
		t.Fatalf("prompt must embed live HTML")
	}

	stored, err := repo.GetAudit(ctx, s.DB, "r1", time.Now())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := stored.Validate(); err != nil {
		t.Fatalf("stored record invalid: %v", err)
	}
	want, _ := json.Marshal(l.res)
	got, _ := json.Marshal(stored.Results)
	if !bytes.Equal(want, got) {
		t.Fatalf("results changed in store:\nwant %s\ngot  %s", want, got)
	}
	if stored.CompletedAt == 0 || stored.StartedAt == 0 {
		t.Fatalf("timestamps not set: %+v", stored)
	}
}

func TestRun_UnreachableSiteUsesFallbackAndTerminates(t *testing.T) {
	s, _, f, l := newAuditService(t)
	f.err = &fetcher.FetchError{URL: "http://example.com", Err: errors.New("dial tcp: no route to host")}

	rec := s.Run(context.Background(), "example.com", "offline")
	if !rec.Terminal() {
		t.Fatalf("record left non-terminal: %+v", rec)
	}
	p := l.lastPrompt()
	if !strings.Contains(p, "no route to host") {
		t.Fatalf("fallback prompt must carry fetch error, got %q", p[:200])
	}
}

func TestRun_ErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{llm.ErrNotConfigured, "API key not configured"},
		{&llm.ProviderError{Status: 529, Message: "Overloaded"}, "Overloaded"},
		{&llm.ProviderError{Status: 500}, "API error"},
		{llm.ErrEmptyResponse, "No text in API response"},
		{&llm.ParseError{NoObject: true}, "Unexpected response format"},
		{&llm.ParseError{}, "Could not parse results"},
		{&llm.IncompleteResultError{Missing: []string{"categories"}}, "Incomplete results"},
		{&llm.InvalidResultError{Field: "overall_score", Reason: "x"}, "Invalid results"},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "Audit timed out"},
	}
	for _, tc := range tests {
		s, _, _, l := newAuditService(t)
		l.err = tc.err
		l.res = nil

		rec := s.Run(context.Background(), "example.com", "e1")
		if rec.Status != domain.StatusError || rec.Error != tc.want {
			t.Errorf("err %v: got status=%s error=%q, want %q", tc.err, rec.Status, rec.Error, tc.want)
		}
		if rec.Results != nil {
			t.Errorf("err %v: error record must not carry results", tc.err)
		}
	}
}

func TestRun_TimeoutStillWritesTerminal(t *testing.T) {
	s, _, _, l := newAuditService(t)
	l.block = make(chan struct{})
	s.PipelineTimeout = 30 * time.Millisecond

	rec := s.Run(context.Background(), "example.com", "slow")
	if rec.Status != domain.StatusError || rec.Error != "Audit timed out" {
		t.Fatalf("want timed-out error, got %+v", rec)
	}
	stored, err := repo.GetAudit(context.Background(), s.DB, "slow", time.Now())
	if err != nil || stored.Status != domain.StatusError {
		t.Fatalf("terminal record not stored: %+v %v", stored, err)
	}
}

func TestRun_CanceledParentStillWritesTerminal(t *testing.T) {
	s, _, _, l := newAuditService(t)
	l.block = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	rec := s.Run(ctx, "example.com", "shutdown")
	if !rec.Terminal() {
		t.Fatalf("record not terminal: %+v", rec)
	}
	stored, err := repo.GetAudit(context.Background(), s.DB, "shutdown", time.Now())
	if err != nil || !stored.Terminal() {
		t.Fatalf("terminal record not stored: %+v %v", stored, err)
	}
}

type capturingNotifier struct {
	ids []string
}

func (c *capturingNotifier) OnComplete(_ context.Context, id string, _ domain.AuditRecord) {
	c.ids = append(c.ids, id)
}

func TestRun_NotifiesOnlyOnComplete(t *testing.T) {
	s, _, _, l := newAuditService(t)
	n := &capturingNotifier{}
	s.Notifier = n

	s.Run(context.Background(), "example.com", "ok")
	l.err, l.res = llm.ErrEmptyResponse, nil
	s.Run(context.Background(), "example.com", "bad")

	if len(n.ids) != 1 || n.ids[0] != "ok" {
		t.Fatalf("notifier calls = %v", n.ids)
	}
}

func TestSubmitThenStatusIsProcessingUntilRun(t *testing.T) {
	s, disp, _, _ := newAuditService(t)
	ctx := context.Background()

	res, err := s.Submit(ctx, "example.com", "", "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	raw, _ := s.Status(ctx, res.AuditID)
	if decodeRecord(t, raw).Status != domain.StatusProcessing {
		t.Fatalf("status right after submit must be processing")
	}

	s.RunJob(ctx, disp.jobs[0])
	raw, _ = s.Status(ctx, res.AuditID)
	if decodeRecord(t, raw).Status != domain.StatusComplete {
		t.Fatalf("status after run must be complete")
	}
}

// ---------- AuditNow() ----------

func TestAuditNow(t *testing.T) {
	s, _, f, l := newAuditService(t)
	d, res, err := s.AuditNow(context.Background(), "HTTP://Example.com/")
	if err != nil {
		t.Fatalf("audit now: %v", err)
	}
	if d != "example.com" || res.OverallGrade != "B-" {
		t.Fatalf("unexpected result: %s %+v", d, res)
	}
	if len(f.called) != 0 {
		t.Fatalf("knowledge-only audit must not fetch")
	}
	if !strings.Contains(l.lastPrompt(), "Based on your knowledge") {
		t.Fatalf("expected knowledge-only prompt")
	}

	if _, _, err := s.AuditNow(context.Background(), ""); !errors.Is(err, ErrDomainRequired) {
		t.Fatalf("want ErrDomainRequired, got %v", err)
	}
}

func TestValidAuditID(t *testing.T) {
	good := []string{"abc123", "8c4f6f0e-3b1a-4c1e-9d2a-000000000000", "a_b-c"}
	bad := []string{"", "-lead", "a/b", "a b", strings.Repeat("x", 129), "email-1", "idem-1"}
	for _, id := range good {
		if !ValidAuditID(id) {
			t.Errorf("ValidAuditID(%q) = false", id)
		}
	}
	for _, id := range bad {
		if ValidAuditID(id) {
			t.Errorf("ValidAuditID(%q) = true", id)
		}
	}
}
