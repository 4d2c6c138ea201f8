// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Generic codes mirror HTTP status semantics, while the
// domain-specific ones name the step of a flow that failed.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "bad_request",
//	  "message": "Invalid domain format"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeDispatchFailed = "dispatch_failed"
	ErrCodeQueueFull      = "queue_full"
	ErrCodeShuttingDown   = "shutting_down"
	ErrCodeAuditFailed    = "audit_failed"
	ErrCodeNotifyFailed   = "notify_failed"
	ErrCodeSendFailed     = "send_failed"
	ErrCodeNotConfigured  = "not_configured"
	ErrCodeUpstream       = "upstream_error"
)
