// Audit HTTP handlers.
//
// This file exposes the audit endpoints:
//   - POST /submit      (start an audit, 202)
//   - POST /background  (run a dispatched audit, 202)
//   - GET  /status      (poll a stored record)
//   - POST /notify      (email the report when ready)
//   - POST /audit       (synchronous knowledge-only audit)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simpleit/sitepilot/internal/domain"
	"github.com/simpleit/sitepilot/internal/http/middleware"
	"github.com/simpleit/sitepilot/internal/llm"
	"github.com/simpleit/sitepilot/internal/services"
	"github.com/simpleit/sitepilot/internal/worker"
)

// HeaderIdempotencyReplayed marks a submit answered from an earlier request.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

//
// DTOs
//

// SubmitRequest is the JSON payload for starting an audit.
type SubmitRequest struct {
	// Domain is the site to audit; scheme, path and case are ignored.
	Domain string `json:"domain" example:"example.com"`
	// AuditID optionally fixes the id; a UUID is generated when empty.
	AuditID string `json:"auditId,omitempty" example:"a1b2c3"`
}

// SubmitResponse acknowledges a started audit.
type SubmitResponse struct {
	AuditID string `json:"auditId" example:"4b0b6f2e-6a55-4a5b-9d55-1f0b8f3e2c11"`
	Status  string `json:"status" example:"processing"`
}

// BackgroundRequest is the job payload posted by an HTTP dispatcher.
type BackgroundRequest struct {
	Domain  string `json:"domain" binding:"required,domainname" example:"example.com"`
	AuditID string `json:"auditId" binding:"required,auditid" example:"4b0b6f2e-6a55-4a5b-9d55-1f0b8f3e2c11"`
}

// BackgroundResponse acknowledges an accepted job.
type BackgroundResponse struct {
	Accepted bool `json:"accepted" example:"true"`
}

// StatusNotFound is returned for unknown or expired ids.
type StatusNotFound struct {
	Status string `json:"status" example:"not_found"`
}

// NotifyRequest asks for the report of an audit by email.
type NotifyRequest struct {
	AuditID string `json:"auditId" binding:"required,auditid" example:"4b0b6f2e-6a55-4a5b-9d55-1f0b8f3e2c11"`
	Email   string `json:"email" binding:"required,email" example:"jane@acme.com"`
	Name    string `json:"name" example:"Jane"`
	Domain  string `json:"domain" example:"acme.com"`
}

// NotifyResponse tells whether the report went out now or is queued.
type NotifyResponse struct {
	Sent   bool `json:"sent,omitempty" example:"true"`
	Queued bool `json:"queued,omitempty"`
}

// AuditRequest is the JSON payload of the synchronous audit.
type AuditRequest struct {
	Domain string `json:"domain" example:"example.com"`
}

//
// Handlers
//

// Submit godoc
// @ID          submitAudit
// @Summary     Start an audit
// @Description Validates the domain, stores a processing record and schedules the audit. Poll /status with the returned id.
// @Tags        Audits
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false  "Replays return the original audit id"
// @Param       body             body    handlers.SubmitRequest  true  "Audit submission"
//
// @Success     202  {object}  handlers.SubmitResponse
// @Header      202  {string}  Idempotency-Replayed  "true when answered from an earlier request"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Failure     503  {object}  handlers.ErrorResponse  "Could not start audit"
// @Router      /submit [post]
func (h *Handlers) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	res, err := h.audits.Submit(c.Request.Context(), req.Domain, req.AuditID, key)
	switch {
	case errors.Is(err, services.ErrDomainRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Domain is required")
		return
	case errors.Is(err, services.ErrInvalidDomain):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid domain format")
		return
	case errors.Is(err, services.ErrInvalidAuditID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid audit ID")
		return
	case errors.Is(err, services.ErrDispatch):
		fail(c, http.StatusServiceUnavailable, ErrCodeDispatchFailed, "Could not start audit")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "Could not start audit")
		return
	}

	if res.Replayed {
		c.Header(HeaderIdempotencyReplayed, "true")
	}
	ok(c, http.StatusAccepted, SubmitResponse{AuditID: res.AuditID, Status: string(domain.StatusProcessing)})
}

// Background godoc
// @ID          runAudit
// @Summary     Run a dispatched audit
// @Description Accepts a job from an HTTP dispatcher and queues it on the local worker pool.
// @Tags        Audits
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.BackgroundRequest  true  "Job"
//
// @Success     202  {object}  handlers.BackgroundResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse  "Queue full or shutting down"
// @Router      /background [post]
func (h *Handlers) Background(c *gin.Context) {
	var req BackgroundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	d, err := domain.NormalizeDomain(req.Domain)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid domain format")
		return
	}

	err = h.background.Dispatch(c.Request.Context(), worker.Job{AuditID: req.AuditID, Domain: d})
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("audit_id", req.AuditID).Msg("background job rejected")
		if errors.Is(err, worker.ErrStopped) {
			fail(c, http.StatusServiceUnavailable, ErrCodeShuttingDown, "Server is shutting down")
			return
		}
		fail(c, http.StatusServiceUnavailable, ErrCodeQueueFull, "Audit queue is full")
		return
	}
	ok(c, http.StatusAccepted, BackgroundResponse{Accepted: true})
}

// Status godoc
// @ID          auditStatus
// @Summary     Poll an audit
// @Description Returns the stored record unchanged: processing, complete with results, or error with a message. Unknown or expired ids answer {"status":"not_found"}.
// @Tags        Audits
// @Produce     json
//
// @Param       id  query  string  true  "Audit id"
//
// @Success     200  {object}  domain.AuditRecord
// @Failure     400  {object}  handlers.ErrorResponse  "Missing audit ID"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /status [get]
func (h *Handlers) Status(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Missing audit ID")
		return
	}
	c.Header("Cache-Control", "no-store")

	raw, err := h.audits.Status(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrAuditNotFound):
		ok(c, http.StatusOK, StatusNotFound{Status: "not_found"})
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "Could not read audit")
		return
	}
	rawJSON(c, http.StatusOK, raw)
}

// Notify godoc
// @ID          notifyAudit
// @Summary     Email the report
// @Description Stores the address for the audit. If it is already complete the report is sent at once; otherwise it goes out when the audit finishes.
// @Tags        Audits
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.NotifyRequest  true  "Notify request"
//
// @Success     200  {object}  handlers.NotifyResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notify [post]
func (h *Handlers) Notify(c *gin.Context) {
	var req NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}

	sent, err := h.notify.Request(c.Request.Context(), services.NotifyInput{
		AuditID: req.AuditID,
		Email:   req.Email,
		Name:    req.Name,
		Domain:  req.Domain,
	})
	switch {
	case errors.Is(err, services.ErrNotifyFieldsRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Missing auditId or email")
		return
	case errors.Is(err, services.ErrInvalidAuditID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid audit ID")
		return
	case errors.Is(err, services.ErrInvalidEmail):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid email address")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeNotifyFailed, "Could not process notification request")
		return
	}

	if sent {
		ok(c, http.StatusOK, NotifyResponse{Sent: true})
		return
	}
	ok(c, http.StatusOK, NotifyResponse{Queued: true})
}

// Audit godoc
// @ID          quickAudit
// @Summary     Synchronous audit
// @Description Scores the domain from the model's own knowledge without fetching it. Nothing is stored.
// @Tags        Audits
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.AuditRequest  true  "Domain"
//
// @Success     200  {object}  domain.AuditResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Not configured"
// @Failure     502  {object}  handlers.ErrorResponse  "Audit failed"
// @Router      /audit [post]
func (h *Handlers) Audit(c *gin.Context) {
	var req AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}

	_, res, err := h.audits.AuditNow(c.Request.Context(), req.Domain)
	switch {
	case errors.Is(err, services.ErrDomainRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Domain is required")
		return
	case errors.Is(err, services.ErrInvalidDomain):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid domain format")
		return
	case errors.Is(err, llm.ErrNotConfigured):
		fail(c, http.StatusInternalServerError, ErrCodeNotConfigured, "API key not configured")
		return
	case err != nil:
		fail(c, http.StatusBadGateway, ErrCodeAuditFailed, services.FailureMessage(err))
		return
	}
	ok(c, http.StatusOK, res)
}
