// Package domain defines the core audit types shared by the store, the
// pipeline and the HTTP layer, together with the pure scoring rules that
// do not depend on any I/O.
package domain

import (
	"errors"
	"math"
	"time"
)

// AuditStatus is the lifecycle state of an audit record.
type AuditStatus string

const (
	StatusProcessing AuditStatus = "processing"
	StatusComplete   AuditStatus = "complete"
	StatusError      AuditStatus = "error"

	// StatusNotFound is only ever reported to pollers; it is never stored.
	StatusNotFound AuditStatus = "not_found"
)

// Category keys, in report order.
const (
	CategoryMeta        = "meta"
	CategoryContent     = "content"
	CategorySchema      = "schema"
	CategoryMobile      = "mobile"
	CategoryPerformance = "performance"
	CategoryLocal       = "local"
)

// CategoryKeys lists the six scored categories in the order they are shown
// in report emails.
var CategoryKeys = []string{
	CategoryMeta,
	CategoryContent,
	CategorySchema,
	CategoryMobile,
	CategoryPerformance,
	CategoryLocal,
}

// CategoryWeights are the fixed weights the model is instructed to use when
// computing overall_score. They sum to 1.
var CategoryWeights = map[string]float64{
	CategoryContent:     0.25,
	CategoryLocal:       0.20,
	CategorySchema:      0.20,
	CategoryMeta:        0.15,
	CategoryMobile:      0.12,
	CategoryPerformance: 0.08,
}

// CategoryLabels are the human-readable category names used in emails.
var CategoryLabels = map[string]string{
	CategoryMeta:        "Meta Tags & Titles",
	CategoryContent:     "Content Quality",
	CategorySchema:      "Schema Markup",
	CategoryMobile:      "Mobile Friendliness",
	CategoryPerformance: "Page Speed",
	CategoryLocal:       "Local SEO",
}

// CategoryScore is the per-category verdict returned by the model.
type CategoryScore struct {
	Score        int    `json:"score"`
	VisibleIssue string `json:"visible_issue"`
}

// AuditResult is the validated assessment produced by the inference step.
type AuditResult struct {
	OverallScore    int                      `json:"overall_score"`
	OverallGrade    string                   `json:"overall_grade"`
	Summary         string                   `json:"summary"`
	Categories      map[string]CategoryScore `json:"categories"`
	CriticalCount   int                      `json:"critical_count"`
	WarningCount    int                      `json:"warning_count"`
	PassedCount     int                      `json:"passed_count"`
	BlurredFindings []string                 `json:"blurred_findings"`
}

// AuditRecord is the stored state of one audit, keyed by its audit id.
//
// Exactly one of the following holds:
//   - Status == processing, Results == nil, Error == ""
//   - Status == complete,   Results != nil, Error == ""
//   - Status == error,      Results == nil, Error != ""
//
// Timestamps are Unix milliseconds so that pollers written against the
// browser widget can keep comparing them with Date.now().
type AuditRecord struct {
	Status      AuditStatus  `json:"status"`
	Domain      string       `json:"domain"`
	StartedAt   int64        `json:"startedAt,omitempty"`
	CompletedAt int64        `json:"completedAt,omitempty"`
	Results     *AuditResult `json:"results,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// ErrInvalidRecord is returned by AuditRecord.Validate when the status and
// payload fields disagree.
var ErrInvalidRecord = errors.New("audit record violates status invariant")

// NewProcessing returns the initial record written on submit.
func NewProcessing(domain string, now time.Time) AuditRecord {
	return AuditRecord{
		Status:    StatusProcessing,
		Domain:    domain,
		StartedAt: now.UnixMilli(),
	}
}

// Complete moves the record to the complete state.
func (r AuditRecord) Complete(res *AuditResult, now time.Time) AuditRecord {
	r.Status = StatusComplete
	r.Results = res
	r.Error = ""
	r.CompletedAt = now.UnixMilli()
	return r
}

// Fail moves the record to the error state. An empty message is replaced
// with a generic one so the invariant still holds.
func (r AuditRecord) Fail(msg string, now time.Time) AuditRecord {
	if msg == "" {
		msg = "audit failed"
	}
	r.Status = StatusError
	r.Results = nil
	r.Error = msg
	r.CompletedAt = now.UnixMilli()
	return r
}

// Terminal reports whether the record reached complete or error.
func (r AuditRecord) Terminal() bool {
	return r.Status == StatusComplete || r.Status == StatusError
}

// Validate checks the status/payload invariant.
func (r AuditRecord) Validate() error {
	switch r.Status {
	case StatusProcessing:
		if r.Results != nil || r.Error != "" {
			return ErrInvalidRecord
		}
	case StatusComplete:
		if r.Results == nil || r.Error != "" {
			return ErrInvalidRecord
		}
	case StatusError:
		if r.Results != nil || r.Error == "" {
			return ErrInvalidRecord
		}
	default:
		return ErrInvalidRecord
	}
	return nil
}

// NotifyRequest is a stored intent to email audit results once available.
type NotifyRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Domain      string `json:"domain"`
	RequestedAt int64  `json:"requestedAt"`
}

// WeightedScore applies CategoryWeights to the category scores and rounds to
// the nearest integer. Missing categories count as zero.
func WeightedScore(cats map[string]CategoryScore) int {
	var sum float64
	for key, w := range CategoryWeights {
		sum += float64(cats[key].Score) * w
	}
	return int(math.Round(sum))
}

// gradeTable maps lower bounds to letter grades, highest first.
var gradeTable = []struct {
	min   int
	grade string
}{
	{95, "A+"},
	{90, "A"},
	{85, "A-"},
	{80, "B+"},
	{75, "B"},
	{70, "B-"},
	{65, "C+"},
	{60, "C"},
	{55, "C-"},
	{50, "D+"},
	{45, "D"},
}

// GradeFor returns the letter grade for an overall score.
func GradeFor(score int) string {
	for _, g := range gradeTable {
		if score >= g.min {
			return g.grade
		}
	}
	return "F"
}

// ScoreColor returns the report color for a 0-100 score.
func ScoreColor(score int) string {
	switch {
	case score >= 80:
		return "#00D4AA"
	case score >= 60:
		return "#FFBE0B"
	default:
		return "#FF4757"
	}
}
