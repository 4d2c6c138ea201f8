// Package services – NotifyService
//
// This file implements result notification. A visitor may ask for the
// report by email before or after the audit finishes, so delivery has two
// entry points: Request (the visitor's call) and OnComplete (the pipeline).
// Both funnel into deliver, which first claims the notify request's
// notified flag with a conditional update; only the caller that flips it
// sends, so the report and the lead alert go out at most once per address
// and completed run.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/simpleit/sitepilot/internal/domain"
	"github.com/simpleit/sitepilot/internal/observability"
	"github.com/simpleit/sitepilot/internal/repo"
	"github.com/simpleit/sitepilot/internal/spam"
)

// ReportMailer sends the two audit emails.
type ReportMailer interface {
	SendAuditReport(ctx context.Context, to, name, auditedDomain string, res *domain.AuditResult) error
	SendAuditLead(ctx context.Context, email, name, auditedDomain string, res *domain.AuditResult) error
}

// NotifyInput is a visitor's request to receive results by email.
type NotifyInput struct {
	AuditID string
	Email   string
	Name    string
	Domain  string
}

// NotifyService stores notify requests and delivers reports.
type NotifyService struct {
	DB        *gorm.DB
	Mailer    ReportMailer
	Retention time.Duration
	Now       func() time.Time
}

// Request stores the notify request for in.AuditID. When the audit is
// already complete the emails are sent before returning; otherwise the
// request waits for OnComplete. sent is true once the report has been handed
// to the relay for this address, by this call or an earlier one. Mail
// failures are logged and never returned.
func (s *NotifyService) Request(ctx context.Context, in NotifyInput) (sent bool, err error) {
	in.AuditID = strings.TrimSpace(in.AuditID)
	in.Email = strings.TrimSpace(in.Email)
	if in.AuditID == "" || in.Email == "" {
		return false, ErrNotifyFieldsRequired
	}
	if !ValidAuditID(in.AuditID) {
		return false, ErrInvalidAuditID
	}
	if !spam.ValidEmail(in.Email) {
		return false, ErrInvalidEmail
	}

	req := domain.NotifyRequest{
		Email:       in.Email,
		Name:        strings.TrimSpace(in.Name),
		Domain:      strings.TrimSpace(in.Domain),
		RequestedAt: s.now().UnixMilli(),
	}
	if err := repo.PutNotifyRequest(ctx, s.DB, in.AuditID, req, s.retention()); err != nil {
		return false, err
	}

	rec, err := repo.GetAudit(ctx, s.DB, in.AuditID, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rec.Status != domain.StatusComplete || rec.Results == nil {
		return false, nil
	}

	return s.deliver(ctx, in.AuditID, *rec), nil
}

// OnComplete sends the report if a notify request is waiting for auditID.
func (s *NotifyService) OnComplete(ctx context.Context, auditID string, rec domain.AuditRecord) {
	lg := logFor(ctx)
	req, err := repo.GetNotifyRequest(ctx, s.DB, auditID, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return
	}
	if err != nil {
		lg.Error().Err(err).Str("audit_id", auditID).Msg("load notify request")
		return
	}
	if req.Email == "" {
		return
	}
	s.deliver(ctx, auditID, rec)
}

// deliver claims the notify request and sends the report and the lead alert
// to the address stored at claim time. It reports whether the current
// address has been served. When both sends fail the claim is released so a
// later request can retry.
func (s *NotifyService) deliver(ctx context.Context, auditID string, rec domain.AuditRecord) bool {
	lg := logFor(ctx).With().Str("audit_id", auditID).Logger()

	won, err := repo.ClaimNotification(ctx, s.DB, repo.NotifyKey(auditID))
	if err != nil {
		lg.Error().Err(err).Msg("claim notification")
		return false
	}
	if !won {
		// The winner reads the address after claiming, and a changed address
		// re-arms the claim, so the current address is already served.
		lg.Debug().Msg("report already sent to this address")
		return true
	}

	// Re-read after claiming: a concurrent Request may have replaced the address.
	req, err := repo.GetNotifyRequest(ctx, s.DB, auditID, s.now())
	if err != nil {
		lg.Error().Err(err).Msg("load notify request")
		if rerr := repo.ReleaseNotification(context.WithoutCancel(ctx), s.DB, repo.NotifyKey(auditID)); rerr != nil {
			lg.Error().Err(rerr).Msg("release notification claim")
		}
		return false
	}

	d := req.Domain
	if d == "" {
		d = rec.Domain
	}

	reportErr := s.Mailer.SendAuditReport(ctx, req.Email, req.Name, d, rec.Results)
	countEmail("audit_report", reportErr)
	if reportErr != nil {
		lg.Error().Err(reportErr).Msg("send audit report")
	}

	leadErr := s.Mailer.SendAuditLead(ctx, req.Email, req.Name, d, rec.Results)
	countEmail("audit_lead", leadErr)
	if leadErr != nil {
		lg.Error().Err(leadErr).Msg("send lead notification")
	}

	if reportErr != nil && leadErr != nil {
		if err := repo.ReleaseNotification(context.WithoutCancel(ctx), s.DB, repo.NotifyKey(auditID)); err != nil {
			lg.Error().Err(err).Msg("release notification claim")
		}
		return false
	}
	lg.Info().Bool("report_sent", reportErr == nil).Bool("lead_sent", leadErr == nil).Msg("audit notification delivered")
	return reportErr == nil
}

func (s *NotifyService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *NotifyService) retention() time.Duration {
	if s.Retention > 0 {
		return s.Retention
	}
	return defaultRetention
}

func countEmail(kind string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	observability.EmailsTotal.WithLabelValues(kind, outcome).Inc()
}
