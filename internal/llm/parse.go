package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/simpleit/sitepilot/internal/domain"
)

var (
	fenceJSONRE = regexp.MustCompile("```json\\s*")
	fenceRE     = regexp.MustCompile("```\\s*")
	objectRE    = regexp.MustCompile(`(?s)\{.*"overall_score".*\}`)

	requiredKeys = []string{"overall_score", "overall_grade", "categories"}

	knownGrades = []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "F"}
)

// ParseResult extracts and validates the audit JSON from free-form model
// output.
//
// Extraction strips Markdown code fences and decodes the remainder; when that
// fails it decodes the widest brace-delimited span containing
// "overall_score". The decoded object must carry overall_score,
// overall_grade and categories (IncompleteResultError) and every field must
// have the expected type and range (InvalidResultError).
func ParseResult(text string) (*domain.AuditResult, error) {
	cleaned := fenceJSONRE.ReplaceAllString(text, "")
	cleaned = strings.TrimSpace(fenceRE.ReplaceAllString(cleaned, ""))

	obj, err := decodeObject(cleaned)
	if err != nil {
		m := objectRE.FindString(cleaned)
		if m == "" {
			return nil, &ParseError{NoObject: true, Err: err}
		}
		if obj, err = decodeObject(m); err != nil {
			return nil, &ParseError{Err: err}
		}
	}

	missing := lo.Filter(requiredKeys, func(k string, _ int) bool {
		v, ok := obj[k]
		return !ok || v == nil
	})
	if len(missing) > 0 {
		return nil, &IncompleteResultError{Missing: missing}
	}

	return validate(obj)
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	if obj == nil {
		return nil, fmt.Errorf("not a JSON object")
	}
	return obj, nil
}

func validate(obj map[string]any) (*domain.AuditResult, error) {
	res := &domain.AuditResult{}
	var err error

	if res.OverallScore, err = intField(obj, "overall_score", 0, 100); err != nil {
		return nil, err
	}
	if res.OverallGrade, err = stringField(obj, "overall_grade"); err != nil {
		return nil, err
	}
	res.OverallGrade = strings.TrimSpace(res.OverallGrade)
	if !lo.Contains(knownGrades, res.OverallGrade) {
		return nil, &InvalidResultError{Field: "overall_grade", Reason: fmt.Sprintf("%q is not a known grade", res.OverallGrade)}
	}
	if res.Summary, err = stringField(obj, "summary"); err != nil {
		return nil, err
	}

	cats, ok := obj["categories"].(map[string]any)
	if !ok {
		return nil, &InvalidResultError{Field: "categories", Reason: "must be an object"}
	}
	res.Categories = make(map[string]domain.CategoryScore, len(domain.CategoryKeys))
	for _, key := range domain.CategoryKeys {
		field := "categories." + key
		raw, ok := cats[key]
		if !ok {
			return nil, &InvalidResultError{Field: field, Reason: "is missing"}
		}
		cat, ok := raw.(map[string]any)
		if !ok {
			return nil, &InvalidResultError{Field: field, Reason: "must be an object"}
		}
		score, err := intField(cat, "score", 0, 100)
		if err != nil {
			return nil, prefixed(field, err)
		}
		issue, err := stringField(cat, "visible_issue")
		if err != nil {
			return nil, prefixed(field, err)
		}
		res.Categories[key] = domain.CategoryScore{Score: score, VisibleIssue: issue}
	}

	if res.CriticalCount, err = intField(obj, "critical_count", 0, math.MaxInt32); err != nil {
		return nil, err
	}
	if res.WarningCount, err = intField(obj, "warning_count", 0, math.MaxInt32); err != nil {
		return nil, err
	}
	if res.PassedCount, err = intField(obj, "passed_count", 0, math.MaxInt32); err != nil {
		return nil, err
	}

	findings, ok := obj["blurred_findings"].([]any)
	if !ok {
		return nil, &InvalidResultError{Field: "blurred_findings", Reason: "must be an array"}
	}
	res.BlurredFindings = make([]string, 0, len(findings))
	for i, f := range findings {
		s, ok := f.(string)
		if !ok {
			return nil, &InvalidResultError{Field: fmt.Sprintf("blurred_findings[%d]", i), Reason: "must be a string"}
		}
		res.BlurredFindings = append(res.BlurredFindings, s)
	}

	return res, nil
}

func intField(obj map[string]any, key string, min, max int64) (int, error) {
	raw, ok := obj[key]
	if !ok {
		return 0, &InvalidResultError{Field: key, Reason: "is missing"}
	}
	num, ok := raw.(json.Number)
	if !ok {
		return 0, &InvalidResultError{Field: key, Reason: "must be a number"}
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, &InvalidResultError{Field: key, Reason: "must be an integer"}
	}
	if f < float64(min) || f > float64(max) {
		return 0, &InvalidResultError{Field: key, Reason: fmt.Sprintf("must be between %d and %d", min, max)}
	}
	return int(f), nil
}

func stringField(obj map[string]any, key string) (string, error) {
	raw, ok := obj[key]
	if !ok {
		return "", &InvalidResultError{Field: key, Reason: "is missing"}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &InvalidResultError{Field: key, Reason: "must be a string"}
	}
	return s, nil
}

func prefixed(field string, err error) error {
	if ie, ok := err.(*InvalidResultError); ok {
		return &InvalidResultError{Field: field + "." + ie.Field, Reason: ie.Reason}
	}
	return err
}
