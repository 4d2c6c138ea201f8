// Package handlers provides the Gin handlers of the SitePilot API.
//
// Handlers depend on small interfaces rather than concrete services so each
// endpoint can be tested against a stub.
package handlers

import (
	"context"

	"github.com/simpleit/sitepilot/internal/domain"
	"github.com/simpleit/sitepilot/internal/mail"
	"github.com/simpleit/sitepilot/internal/reviews"
	"github.com/simpleit/sitepilot/internal/services"
	"github.com/simpleit/sitepilot/internal/spam"
	"github.com/simpleit/sitepilot/internal/worker"
)

// AuditService is the audit pipeline as seen by the HTTP layer.
type AuditService interface {
	Submit(ctx context.Context, rawDomain, auditID, idemKey string) (services.SubmitResult, error)
	Status(ctx context.Context, auditID string) ([]byte, error)
	AuditNow(ctx context.Context, rawDomain string) (string, *domain.AuditResult, error)
}

// NotifyService records report requests.
type NotifyService interface {
	Request(ctx context.Context, in services.NotifyInput) (bool, error)
}

// LeadService handles the lead-magnet form.
type LeadService interface {
	Submit(ctx context.Context, in services.LeadInput) (spam.Reason, error)
}

// TicketService sends ticket confirmations.
type TicketService interface {
	Confirm(ctx context.Context, t mail.Ticket) error
}

// ReviewsClient fetches a place's Google reviews.
type ReviewsClient interface {
	Place(ctx context.Context, placeID string) (*reviews.Summary, error)
}

// Handlers groups the endpoint implementations.
type Handlers struct {
	audits     AuditService
	notify     NotifyService
	leads      LeadService
	tickets    TicketService
	reviews    ReviewsClient
	background worker.Dispatcher
}

// New wires the handlers. background receives jobs posted to the
// background endpoint; it is normally the in-process worker pool.
func New(audits AuditService, notify NotifyService, leads LeadService, tickets TicketService, rc ReviewsClient, background worker.Dispatcher) *Handlers {
	return &Handlers{
		audits:     audits,
		notify:     notify,
		leads:      leads,
		tickets:    tickets,
		reviews:    rc,
		background: background,
	}
}
