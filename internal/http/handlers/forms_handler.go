// Form HTTP handlers.
//
// This file exposes the two email-backed site forms:
//   - POST /lead-magnet          (send the checklist guide)
//   - POST /ticket-confirmation  (confirm a support ticket)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simpleit/sitepilot/internal/http/middleware"
	"github.com/simpleit/sitepilot/internal/mail"
	"github.com/simpleit/sitepilot/internal/services"
	"github.com/simpleit/sitepilot/internal/spam"
)

// LeadMagnetRequest is the guide download form.
type LeadMagnetRequest struct {
	Name    string `json:"name" example:"Jane Doe"`
	Email   string `json:"email" example:"jane@acme.com"`
	Company string `json:"company" example:"Acme"`
	// Timing is the client-measured fill time in milliseconds.
	Timing int64 `json:"_timing" example:"12000"`
}

// TicketConfirmationRequest is posted by the helpdesk form after a ticket
// is created.
type TicketConfirmationRequest struct {
	ContactEmail string `json:"contact_email" example:"jane@acme.com"`
	ContactName  string `json:"contact_name" example:"Jane Doe"`
	Subject      string `json:"subject" example:"Printer offline"`
	TicketNumber string `json:"ticketNumber" example:"T-1042"`
	Priority     string `json:"priority" example:"high"`
}

// FormResponse acknowledges a form submission.
type FormResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Guide sent successfully!"`
}

// LeadMagnet godoc
// @ID          leadMagnet
// @Summary     Send the checklist guide
// @Description Emails the PDF guide to the visitor and alerts the team. Submissions flagged as spam get the same answer but nothing is sent.
// @Tags        Forms
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LeadMagnetRequest  true  "Lead form"
//
// @Success     200  {object}  handlers.FormResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Failed to send email"
// @Router      /lead-magnet [post]
func (h *Handlers) LeadMagnet(c *gin.Context) {
	var req LeadMagnetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}

	reason, err := h.leads.Submit(c.Request.Context(), services.LeadInput{
		Name:         req.Name,
		Email:        req.Email,
		Company:      req.Company,
		TimingMillis: req.Timing,
	})
	switch {
	case errors.Is(err, services.ErrNameEmailRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Name and email are required")
		return
	case errors.Is(err, services.ErrInvalidEmail):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid email address")
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("lead magnet")
		fail(c, http.StatusInternalServerError, ErrCodeSendFailed, "Failed to send email")
		return
	}

	if reason != spam.ReasonNone {
		middleware.LoggerFrom(c).Info().Str("reason", string(reason)).Msg("lead magnet suppressed")
	}
	ok(c, http.StatusOK, FormResponse{Success: true, Message: "Guide sent successfully!"})
}

// TicketConfirmation godoc
// @ID          ticketConfirmation
// @Summary     Confirm a support ticket
// @Description Sends the contact a confirmation with the ticket number and priority.
// @Tags        Forms
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.TicketConfirmationRequest  true  "Ticket"
//
// @Success     200  {object}  handlers.FormResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Failed to send confirmation email"
// @Router      /ticket-confirmation [post]
func (h *Handlers) TicketConfirmation(c *gin.Context) {
	var req TicketConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}

	err := h.tickets.Confirm(c.Request.Context(), mail.Ticket{
		ContactEmail: req.ContactEmail,
		ContactName:  req.ContactName,
		Subject:      req.Subject,
		TicketNumber: req.TicketNumber,
		Priority:     req.Priority,
	})
	switch {
	case errors.Is(err, services.ErrTicketFieldsRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Missing required fields")
		return
	case errors.Is(err, services.ErrInvalidEmail):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid email address")
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("ticket confirmation")
		fail(c, http.StatusInternalServerError, ErrCodeSendFailed, "Failed to send confirmation email")
		return
	}
	ok(c, http.StatusOK, FormResponse{Success: true, Message: "Confirmation email sent"})
}
