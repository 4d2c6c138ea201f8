package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simpleit/sitepilot/internal/domain"
)

const validJSON = `{"overall_score":62,"overall_grade":"C","summary":"Decent local presence.","categories":{"meta":{"score":70,"visible_issue":"Title lacks city."},"content":{"score":60,"visible_issue":"Thin copy."},"schema":{"score":55,"visible_issue":"No FAQPage."},"mobile":{"score":85,"visible_issue":"No major issues detected"},"performance":{"score":65,"visible_issue":"Render-blocking CSS."},"local":{"score":50,"visible_issue":"No NAP in footer."}},"critical_count":2,"warning_count":5,"passed_count":11,"blurred_findings":["a","b","c"]}`

func TestParseResult_Plain(t *testing.T) {
	res, err := ParseResult(validJSON)
	require.NoError(t, err)
	assert.Equal(t, 62, res.OverallScore)
	assert.Equal(t, "C", res.OverallGrade)
	assert.Len(t, res.Categories, len(domain.CategoryKeys))
	assert.Equal(t, "Title lacks city.", res.Categories[domain.CategoryMeta].VisibleIssue)
	assert.Equal(t, []string{"a", "b", "c"}, res.BlurredFindings)
}

func TestParseResult_CodeFences(t *testing.T) {
	res, err := ParseResult("```json\n" + validJSON + "\n```")
	require.NoError(t, err)
	assert.Equal(t, 62, res.OverallScore)
}

func TestParseResult_RegexFallback(t *testing.T) {
	res, err := ParseResult("Here is the audit you asked for:\n" + validJSON + "\nLet me know!")
	require.NoError(t, err)
	assert.Equal(t, "C", res.OverallGrade)
}

func TestParseResult_NoObject(t *testing.T) {
	_, err := ParseResult("I cannot audit that site.")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.NoObject)
	assert.Equal(t, "unexpected response format", err.Error())
}

func TestParseResult_BrokenCandidate(t *testing.T) {
	_, err := ParseResult(`prefix {"overall_score": 5, oops }`)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.False(t, pe.NoObject)
	assert.Equal(t, "could not parse results", err.Error())
}

func TestParseResult_Incomplete(t *testing.T) {
	_, err := ParseResult(`{"overall_score":50,"summary":"x"}`)
	var ie *IncompleteResultError
	require.True(t, errors.As(err, &ie))
	assert.ElementsMatch(t, []string{"overall_grade", "categories"}, ie.Missing)
}

func TestParseResult_SchemaValidation(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(string) string
		field string
	}{
		{"score out of range", func(s string) string {
			return strings.Replace(s, `"overall_score":62`, `"overall_score":162`, 1)
		}, "overall_score"},
		{"score far out of range", func(s string) string {
			return strings.Replace(s, `"overall_score":62`, `"overall_score":1e19`, 1)
		}, "overall_score"},
		{"count far out of range", func(s string) string {
			return strings.Replace(s, `"passed_count":11`, `"passed_count":-1e300`, 1)
		}, "passed_count"},
		{"score not integer", func(s string) string {
			return strings.Replace(s, `"overall_score":62`, `"overall_score":61.5`, 1)
		}, "overall_score"},
		{"score is string", func(s string) string {
			return strings.Replace(s, `"overall_score":62`, `"overall_score":"62"`, 1)
		}, "overall_score"},
		{"unknown grade", func(s string) string {
			return strings.Replace(s, `"overall_grade":"C"`, `"overall_grade":"Z"`, 1)
		}, "overall_grade"},
		{"category missing", func(s string) string {
			return strings.Replace(s, `"local":{"score":50,"visible_issue":"No NAP in footer."}`, `"other":{"score":50,"visible_issue":"x"}`, 1)
		}, "categories.local"},
		{"category score negative", func(s string) string {
			return strings.Replace(s, `"schema":{"score":55`, `"schema":{"score":-1`, 1)
		}, "categories.schema.score"},
		{"issue not string", func(s string) string {
			return strings.Replace(s, `"visible_issue":"Thin copy."`, `"visible_issue":3`, 1)
		}, "categories.content.visible_issue"},
		{"negative count", func(s string) string {
			return strings.Replace(s, `"critical_count":2`, `"critical_count":-2`, 1)
		}, "critical_count"},
		{"findings not array", func(s string) string {
			return strings.Replace(s, `["a","b","c"]`, `"a"`, 1)
		}, "blurred_findings"},
		{"finding not string", func(s string) string {
			return strings.Replace(s, `["a","b","c"]`, `["a",2]`, 1)
		}, "blurred_findings[1]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseResult(tc.mut(validJSON))
			var ie *InvalidResultError
			require.True(t, errors.As(err, &ie), "got %v", err)
			assert.Equal(t, tc.field, ie.Field)
		})
	}
}

func TestParseResult_ZeroScoreIsPresent(t *testing.T) {
	res, err := ParseResult(strings.Replace(validJSON, `"overall_score":62,"overall_grade":"C"`, `"overall_score":0,"overall_grade":"F"`, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, res.OverallScore)
}

func TestParseResult_AcceptedResultsHaveAllCategories(t *testing.T) {
	res, err := ParseResult(validJSON)
	require.NoError(t, err)
	for _, k := range domain.CategoryKeys {
		_, ok := res.Categories[k]
		assert.True(t, ok, "missing %s", k)
	}
}
