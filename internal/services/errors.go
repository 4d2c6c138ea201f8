// Package services holds the SitePilot business logic: the audit pipeline
// and its status reads, result notification, lead-magnet delivery and
// ticket confirmation.
//
// This file centralizes service-level error values so handlers can map them
// to HTTP results consistently. Translation into user-facing messages and
// status codes happens in the handler layer.
package services

import (
	"errors"

	"github.com/simpleit/sitepilot/internal/domain"
)

// Audit errors.
var (
	// ErrDomainRequired is returned when submit or audit receives a blank
	// domain.
	ErrDomainRequired = errors.New("domain is required")

	// ErrInvalidDomain is returned when the domain cannot be normalized.
	ErrInvalidDomain = domain.ErrInvalidDomain

	// ErrAuditIDRequired is returned when an operation needs an audit id and
	// none was given.
	ErrAuditIDRequired = errors.New("missing audit id")

	// ErrInvalidAuditID is returned for ids that are not safe store keys.
	ErrInvalidAuditID = errors.New("invalid audit id")

	// ErrAuditNotFound indicates the id is unknown or its record expired.
	ErrAuditNotFound = errors.New("audit not found")

	// ErrDispatch is returned when the background job could not be
	// scheduled. The audit record has already been moved to error.
	ErrDispatch = errors.New("could not start audit")
)

// Notification and form errors.
var (
	// ErrNotifyFieldsRequired is returned when a notify request lacks the
	// audit id or the email.
	ErrNotifyFieldsRequired = errors.New("missing auditId or email")

	// ErrNameEmailRequired is returned when the lead-magnet form lacks name
	// or email.
	ErrNameEmailRequired = errors.New("name and email are required")

	// ErrInvalidEmail is returned for malformed email addresses.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrTicketFieldsRequired is returned when a ticket confirmation lacks
	// contact_email, contact_name or ticketNumber.
	ErrTicketFieldsRequired = errors.New("missing required fields")

	// ErrGuideUnavailable is returned when the guide PDF cannot be
	// downloaded.
	ErrGuideUnavailable = errors.New("guide download failed")

	// ErrSendFailed wraps a mail transport failure on a synchronous
	// endpoint.
	ErrSendFailed = errors.New("failed to send email")
)
