// Package services – AuditService
//
// This file implements the asynchronous audit pipeline. Submit validates the
// domain, writes a processing record and hands the job to a dispatcher; Run
// (executed by the dispatcher) fetches the homepage, asks the model for a
// scored result and writes exactly one terminal record. Status returns the
// stored record bytes unchanged so repeated polls are byte-identical.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/simpleit/sitepilot/internal/domain"
	"github.com/simpleit/sitepilot/internal/fetcher"
	"github.com/simpleit/sitepilot/internal/llm"
	"github.com/simpleit/sitepilot/internal/observability"
	"github.com/simpleit/sitepilot/internal/prompt"
	"github.com/simpleit/sitepilot/internal/repo"
	"github.com/simpleit/sitepilot/internal/worker"
)

// Fetcher retrieves the audited homepage.
type Fetcher interface {
	Fetch(ctx context.Context, domain string) (fetcher.Page, error)
}

// Inferer turns a prompt into a validated audit result.
type Inferer interface {
	Infer(ctx context.Context, prompt string) (*domain.AuditResult, error)
}

// CompletionNotifier is told about every audit that reached complete.
type CompletionNotifier interface {
	OnComplete(ctx context.Context, auditID string, rec domain.AuditRecord)
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	AuditID string
	Domain  string
	// Replayed is true when an Idempotency-Key mapped the request to an
	// audit submitted earlier; no new job was started.
	Replayed bool
}

// AuditService runs and reports audits.
type AuditService struct {
	DB         *gorm.DB
	Fetcher    Fetcher
	LLM        Inferer
	Dispatcher worker.Dispatcher
	Notifier   CompletionNotifier

	// Retention is the lifetime of stored records.
	Retention time.Duration
	// IdempotencyTTL is the lifetime of Idempotency-Key mappings.
	IdempotencyTTL time.Duration
	// PipelineTimeout bounds one Run; the terminal write happens regardless.
	PipelineTimeout time.Duration

	Now func() time.Time
}

const (
	defaultRetention       = 30 * 24 * time.Hour
	defaultPipelineTimeout = 3 * time.Minute
	terminalWriteTimeout   = 10 * time.Second
)

var auditIDRE = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidAuditID reports whether id can be used as an audit key. Ids that
// would collide with the notify or idempotency key namespaces are refused.
func ValidAuditID(id string) bool {
	if !auditIDRE.MatchString(id) {
		return false
	}
	return !strings.HasPrefix(id, "email-") && !strings.HasPrefix(id, "idem-")
}

// Submit validates rawDomain, records a processing audit and dispatches the
// pipeline. auditID may be empty, in which case a UUID is generated.
func (s *AuditService) Submit(ctx context.Context, rawDomain, auditID, idemKey string) (SubmitResult, error) {
	if strings.TrimSpace(rawDomain) == "" {
		return SubmitResult{}, ErrDomainRequired
	}
	d, err := domain.NormalizeDomain(rawDomain)
	if err != nil {
		return SubmitResult{}, ErrInvalidDomain
	}

	auditID = strings.TrimSpace(auditID)
	if auditID == "" {
		auditID = uuid.NewString()
	} else if !ValidAuditID(auditID) {
		return SubmitResult{}, ErrInvalidAuditID
	}

	if idemKey != "" {
		existing, replayed, err := s.reserveIdempotency(ctx, idemKey, auditID)
		if err != nil {
			return SubmitResult{}, err
		}
		if replayed {
			return SubmitResult{AuditID: existing, Domain: d, Replayed: true}, nil
		}
	}

	now := s.now()
	if err := repo.PutAudit(ctx, s.DB, auditID, domain.NewProcessing(d, now), s.retention()); err != nil {
		return SubmitResult{}, err
	}

	if err := s.Dispatcher.Dispatch(ctx, worker.Job{AuditID: auditID, Domain: d}); err != nil {
		logFor(ctx).Error().Err(err).Str("audit_id", auditID).Msg("dispatch failed")
		rec := domain.NewProcessing(d, now).Fail("Could not start audit", s.now())
		if perr := repo.PutAudit(ctx, s.DB, auditID, rec, s.retention()); perr != nil {
			logFor(ctx).Error().Err(perr).Str("audit_id", auditID).Msg("store dispatch failure")
		}
		observability.AuditsTotal.WithLabelValues("error").Inc()
		return SubmitResult{}, ErrDispatch
	}

	return SubmitResult{AuditID: auditID, Domain: d}, nil
}

// reserveIdempotency maps key to auditID, or returns the audit id a live
// mapping already points at.
func (s *AuditService) reserveIdempotency(ctx context.Context, key, auditID string) (string, bool, error) {
	if existing, err := repo.GetIdempotency(ctx, s.DB, key, s.now()); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return "", false, err
	}

	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	err := repo.CreateIdempotency(ctx, s.DB, key, auditID, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		// Lost a race with a concurrent retry carrying the same key.
		existing, gerr := repo.GetIdempotency(ctx, s.DB, key, s.now())
		if gerr != nil {
			return "", false, gerr
		}
		return existing, true, nil
	}
	return "", false, err
}

// Status returns the stored record bytes for auditID. Keys outside the audit
// namespace, such as notify requests, are reported as not found.
func (s *AuditService) Status(ctx context.Context, auditID string) ([]byte, error) {
	auditID = strings.TrimSpace(auditID)
	if auditID == "" {
		return nil, ErrAuditIDRequired
	}
	if !ValidAuditID(auditID) {
		return nil, ErrAuditNotFound
	}
	raw, err := repo.GetAuditRaw(ctx, s.DB, auditID, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAuditNotFound
	}
	return raw, err
}

// RunJob adapts Run to worker.Handler.
func (s *AuditService) RunJob(ctx context.Context, job worker.Job) {
	s.Run(ctx, job.Domain, job.AuditID)
}

// Run executes the pipeline for auditID and returns the terminal record it
// stored. Every failure is converted into an error record; nothing is
// returned to a caller that could still be waiting.
func (s *AuditService) Run(ctx context.Context, auditedDomain, auditID string) domain.AuditRecord {
	lg := log.With().Str("audit_id", auditID).Str("domain", auditedDomain).Logger()
	ctx = lg.WithContext(ctx)

	tr := otel.Tracer("services/audit")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(
			attribute.String("audit.id", auditID),
			attribute.String("audit.domain", auditedDomain),
		),
	)
	defer span.End()

	start := s.now()
	rec := domain.NewProcessing(auditedDomain, start)
	if err := repo.PutAudit(ctx, s.DB, auditID, rec, s.retention()); err != nil {
		lg.Error().Err(err).Msg("store processing record")
	}

	timeout := s.PipelineTimeout
	if timeout <= 0 {
		timeout = defaultPipelineTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	res, err := s.audit(pctx, auditedDomain)
	cancel()

	if err != nil {
		rec = rec.Fail(FailureMessage(err), s.now())
		span.RecordError(err)
		span.SetStatus(codes.Error, rec.Error)
		lg.Warn().Err(err).Msg("audit failed")
	} else {
		rec = rec.Complete(res, s.now())
		lg.Info().Int("score", res.OverallScore).Str("grade", res.OverallGrade).Msg("audit complete")
	}

	// The terminal write must land even when the pipeline ran out of time
	// or the parent is shutting down.
	wctx, wcancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer wcancel()
	if err := repo.PutAudit(wctx, s.DB, auditID, rec, s.retention()); err != nil {
		lg.Error().Err(err).Msg("store terminal record")
	}

	observability.AuditsTotal.WithLabelValues(string(rec.Status)).Inc()
	observability.AuditDuration.Observe(s.now().Sub(start).Seconds())

	if rec.Status == domain.StatusComplete && s.Notifier != nil {
		s.Notifier.OnComplete(wctx, auditID, rec)
	}
	return rec
}

// audit performs fetch → prompt → inference. A failed fetch degrades to the
// fallback prompt.
func (s *AuditService) audit(ctx context.Context, auditedDomain string) (*domain.AuditResult, error) {
	lg := logFor(ctx)

	html, fetchErr := "", ""
	page, err := s.Fetcher.Fetch(ctx, auditedDomain)
	if err != nil {
		fetchErr = err.Error()
		var fe *fetcher.FetchError
		if errors.As(err, &fe) && fe.Err != nil {
			fetchErr = fe.Err.Error()
		}
		lg.Info().Str("fetch_error", fetchErr).Msg("live HTML unavailable, using fallback prompt")
		observability.FetchTotal.WithLabelValues("fallback").Inc()
	} else {
		html = page.Content
		lg.Debug().Str("url", page.URL).Int("bytes", len(html)).Msg("homepage fetched")
		observability.FetchTotal.WithLabelValues("ok").Inc()
	}

	res, err := s.LLM.Infer(ctx, prompt.Build(auditedDomain, html, fetchErr))
	if err != nil {
		return nil, err
	}
	if w := domain.WeightedScore(res.Categories); w != res.OverallScore {
		lg.Debug().Int("reported", res.OverallScore).Int("weighted", w).Msg("overall score differs from weighted categories")
	}
	return res, nil
}

// AuditNow runs a quick audit from the model's own knowledge of the domain
// and returns the result directly. Nothing is stored.
func (s *AuditService) AuditNow(ctx context.Context, rawDomain string) (string, *domain.AuditResult, error) {
	if strings.TrimSpace(rawDomain) == "" {
		return "", nil, ErrDomainRequired
	}
	d, err := domain.NormalizeDomain(rawDomain)
	if err != nil {
		return "", nil, ErrInvalidDomain
	}
	res, err := s.LLM.Infer(ctx, prompt.BuildKnowledgeOnly(d))
	if err != nil {
		return d, nil, err
	}
	return d, res, nil
}

func (s *AuditService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuditService) retention() time.Duration {
	if s.Retention > 0 {
		return s.Retention
	}
	return defaultRetention
}

// FailureMessage is the short error text stored on a failed audit and shown
// to pollers.
func FailureMessage(err error) string {
	var (
		pe  *llm.ProviderError
		pae *llm.ParseError
		ie  *llm.IncompleteResultError
		ve  *llm.InvalidResultError
	)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		return "API key not configured"
	case errors.Is(err, llm.ErrEmptyResponse):
		return "No text in API response"
	case errors.As(err, &pe):
		if pe.Message != "" {
			return pe.Message
		}
		return "API error"
	case errors.As(err, &pae):
		if pae.NoObject {
			return "Unexpected response format"
		}
		return "Could not parse results"
	case errors.As(err, &ie):
		return "Incomplete results"
	case errors.As(err, &ve):
		return "Invalid results"
	case errors.Is(err, context.DeadlineExceeded):
		return "Audit timed out"
	case errors.Is(err, context.Canceled):
		return "Audit cancelled"
	}
	return err.Error()
}

// logFor returns the request- or job-scoped logger, falling back to the
// global one.
func logFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
