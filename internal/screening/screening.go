package screening

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/applicant"
)

// Rule is a single eligibility check applied to an applicant.
type Rule interface {
	Name() string
	Evaluate(a *applicant.Applicant) Check
}

// Check describes the outcome of one rule.
type Check struct {
	Name   string
	Passed bool
	Reason string
}

// Result is the screening decision with its rationale.
type Result struct {
	Shortlisted bool
	// Reason holds one line per check, in rule order.
	Reason string
	Checks []Check
}

// Rules configures the thresholds used by the default rule set.
type Rules struct {
	Tier1Companies     []string `mapstructure:"tier1-companies"`
	MinYearsExperience float64  `mapstructure:"min-years-experience"`
	MaxRate            float64  `mapstructure:"max-rate"`
	MinAvailability    float64  `mapstructure:"min-availability"`
	Countries          []string `mapstructure:"countries"`
}

func DefaultRules() Rules {
	return Rules{
		Tier1Companies:     []string{"google", "meta", "openai"},
		MinYearsExperience: 4,
		MaxRate:            100,
		MinAvailability:    20,
		Countries:          []string{"USA", "Canada", "UK", "Germany", "India"},
	}
}

type Engine struct {
	steps  []Rule
	logger *zap.Logger
}

// New builds an engine running the experience, compensation and location rules.
func New(rules Rules, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return NewWithRules(logger,
		NewExperience(rules.MinYearsExperience, rules.Tier1Companies, logger),
		NewCompensation(rules.MaxRate, rules.MinAvailability),
		NewLocation(rules.Countries),
	)
}

// NewWithRules builds an engine from arbitrary rules. Every rule must pass for a shortlist.
func NewWithRules(logger *zap.Logger, steps ...Rule) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{steps: steps, logger: logger}
}

// Evaluate runs every rule. All rules are evaluated and reported even after one fails.
func (e *Engine) Evaluate(a *applicant.Applicant) *Result {
	result := &Result{Shortlisted: true}
	reasons := make([]string, 0, len(e.steps))

	for _, step := range e.steps {
		check := step.Evaluate(a)
		check.Name = step.Name()

		e.logger.Debug("screening step",
			zap.String("name", check.Name),
			zap.Bool("passed", check.Passed),
			zap.String("reason", check.Reason),
		)

		result.Checks = append(result.Checks, check)
		reasons = append(reasons, check.Reason)
		result.Shortlisted = result.Shortlisted && check.Passed
	}

	result.Reason = strings.Join(reasons, "\n")

	return result
}
