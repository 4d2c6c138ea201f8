package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPDispatcher posts each job to a background endpoint, which is expected
// to accept it (2xx) and run the pipeline on its own.
type HTTPDispatcher struct {
	rc  *resty.Client
	url string
}

// NewHTTPDispatcher returns a dispatcher targeting url. hc may be nil.
func NewHTTPDispatcher(url string, timeout time.Duration, hc *http.Client) *HTTPDispatcher {
	rc := resty.New()
	if hc != nil {
		rc = resty.NewWithClient(hc)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc.SetTimeout(timeout).SetHeader("Content-Type", "application/json")
	return &HTTPDispatcher{rc: rc, url: url}
}

// Dispatch sends {domain, auditId} to the background endpoint.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, job Job) error {
	resp, err := d.rc.R().
		SetContext(ctx).
		SetBody(job).
		Post(d.url)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", job.AuditID, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("dispatch %s: background endpoint returned %d", job.AuditID, resp.StatusCode())
	}
	return nil
}
