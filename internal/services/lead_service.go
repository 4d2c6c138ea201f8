// Package services – LeadService and TicketService
//
// This file implements the two form-backed email flows of the site: the
// lead-magnet guide download, screened by the spam heuristics, and the
// support ticket confirmation.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/simpleit/sitepilot/internal/mail"
	"github.com/simpleit/sitepilot/internal/observability"
	"github.com/simpleit/sitepilot/internal/spam"
)

// DefaultGuideURL is where the checklist PDF is published.
const DefaultGuideURL = "https://simple-it-us.netlify.app/downloads/it-security-checklist-guide.pdf"

// GuideMailer sends the lead-magnet emails.
type GuideMailer interface {
	SendGuide(ctx context.Context, to, name string, pdf []byte) error
	SendGuideLead(ctx context.Context, name, email, company string) error
}

// LeadInput is a lead-magnet form submission.
type LeadInput struct {
	Name         string
	Email        string
	Company      string
	TimingMillis int64
}

// LeadService delivers the guide to genuine leads.
type LeadService struct {
	Mailer   GuideMailer
	HTTP     *resty.Client
	GuideURL string

	mu    sync.Mutex
	guide []byte
}

// Submit validates in and, unless a spam heuristic fires, emails the guide
// and an internal lead alert. A flagged submission returns its reason with a
// nil error and sends nothing; callers answer it exactly like a success.
func (s *LeadService) Submit(ctx context.Context, in LeadInput) (spam.Reason, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" {
		return spam.ReasonNone, ErrNameEmailRequired
	}
	if !spam.ValidEmail(in.Email) {
		return spam.ReasonNone, ErrInvalidEmail
	}

	reason := spam.Check(spam.Submission{
		Name:         in.Name,
		Email:        in.Email,
		Company:      in.Company,
		TimingMillis: in.TimingMillis,
	})
	if reason != spam.ReasonNone {
		logFor(ctx).Info().Str("reason", string(reason)).Msg("lead suppressed")
		observability.EmailsTotal.WithLabelValues("guide", "suppressed").Inc()
		return reason, nil
	}

	pdf, err := s.loadGuide(ctx)
	if err != nil {
		return spam.ReasonNone, err
	}

	err = s.Mailer.SendGuide(ctx, in.Email, in.Name, pdf)
	countEmail("guide", err)
	if err != nil {
		return spam.ReasonNone, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	err = s.Mailer.SendGuideLead(ctx, in.Name, in.Email, in.Company)
	countEmail("guide_lead", err)
	if err != nil {
		return spam.ReasonNone, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return spam.ReasonNone, nil
}

// loadGuide downloads the PDF once and keeps it for later submissions.
func (s *LeadService) loadGuide(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guide != nil {
		return s.guide, nil
	}

	url := s.GuideURL
	if url == "" {
		url = DefaultGuideURL
	}
	rc := s.HTTP
	if rc == nil {
		rc = resty.New()
	}
	resp, err := rc.R().SetContext(ctx).SetHeader("Accept", "application/pdf").Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGuideUnavailable, err)
	}
	if !resp.IsSuccess() || len(resp.Body()) == 0 {
		return nil, fmt.Errorf("%w: status %d", ErrGuideUnavailable, resp.StatusCode())
	}
	s.guide = resp.Body()
	return s.guide, nil
}

// TicketMailer sends ticket confirmations.
type TicketMailer interface {
	SendTicketConfirmation(ctx context.Context, t mail.Ticket) error
}

// TicketService confirms support tickets by email.
type TicketService struct {
	Mailer TicketMailer
}

// Confirm validates t and sends one confirmation email to the contact.
func (s *TicketService) Confirm(ctx context.Context, t mail.Ticket) error {
	t.ContactEmail = strings.TrimSpace(t.ContactEmail)
	t.ContactName = strings.TrimSpace(t.ContactName)
	t.TicketNumber = strings.TrimSpace(t.TicketNumber)
	if t.ContactEmail == "" || t.ContactName == "" || t.TicketNumber == "" {
		return ErrTicketFieldsRequired
	}
	if !spam.ValidEmail(t.ContactEmail) {
		return ErrInvalidEmail
	}

	err := s.Mailer.SendTicketConfirmation(ctx, t)
	countEmail("ticket_confirmation", err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}
