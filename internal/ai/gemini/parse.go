package gemini

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spigell/applicant-screener/internal/ai"
)

const (
	labelSummary   = "Summary:"
	labelScore     = "Score:"
	labelIssues    = "Issues:"
	labelFollowUps = "Follow-Ups:"
)

// ErrUnparseableResponse is returned when a response carries none of the expected labels.
var ErrUnparseableResponse = errors.New("gemini response has no recognizable fields")

// ParseResponse reads the labelled lines of a model response.
// Every label is optional but at least one must be present.
func ParseResponse(raw string) (*ai.Analysis, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	summary, hasSummary := field(lines, labelSummary)
	score, hasScore := field(lines, labelScore)
	issues, hasIssues := field(lines, labelIssues)
	_, hasFollowUps := field(lines, labelFollowUps)

	if !hasSummary && !hasScore && !hasIssues && !hasFollowUps {
		return nil, ErrUnparseableResponse
	}

	analysis := &ai.Analysis{}
	if hasSummary {
		analysis.Summary = &summary
	}
	if hasIssues {
		analysis.Issues = &issues
	}
	if hasScore && isDigits(score) {
		if n, err := strconv.Atoi(score); err == nil {
			analysis.Score = &n
		}
	}
	if hasFollowUps {
		analysis.FollowUps = followUpsField(lines)
	}

	return analysis, nil
}

// field returns the trimmed text after the first colon of the first line starting with label.
func field(lines []string, label string) (string, bool) {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, label) {
			continue
		}
		_, value, _ := strings.Cut(trimmed, ":")
		return strings.TrimSpace(value), true
	}
	return "", false
}

// followUpsField joins the first follow-up list found. A value that is not a
// literal at all is kept verbatim. Literals that are not lists are skipped.
func followUpsField(lines []string) *string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, labelFollowUps) {
			continue
		}
		_, value, _ := strings.Cut(trimmed, ":")
		value = strings.TrimSpace(value)

		if items, err := parseStringList(value); err == nil {
			joined := strings.Join(items, "\n")
			return &joined
		}
		if isScalarLiteral(value) {
			continue
		}
		return &value
	}

	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
