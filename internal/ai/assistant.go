package ai

import (
	"context"

	"github.com/spigell/applicant-screener/internal/applicant"
)

// FailedIssues is reported in place of real issues when the model could not be reached.
const FailedIssues = "LLM request failed"

// Analysis is the qualitative assessment of an applicant. Nil fields were not reported.
type Analysis struct {
	Summary   *string `json:"summary"`
	Score     *int    `json:"score"`
	Issues    *string `json:"issues"`
	FollowUps *string `json:"follow_ups"`
	// Failed marks the fallback returned after every attempt failed.
	Failed bool `json:"-"`
}

type Analyzer interface {
	Analyze(ctx context.Context, compressed *applicant.Compressed) (*Analysis, error)
}

func FallbackAnalysis() *Analysis {
	issues := FailedIssues
	return &Analysis{Issues: &issues, Failed: true}
}
