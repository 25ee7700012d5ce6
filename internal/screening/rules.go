package screening

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/applicant"
)

const (
	dateLayout    = "2006-1-2"
	daysPerYear   = 365
	secondsPerDay = 24 * 60 * 60

	missingRate = 999
)

type experienceRule struct {
	minYears float64
	tier1    map[string]struct{}
	logger   *zap.Logger
}

// NewExperience passes applicants with enough total experience or any tier-1 employer.
func NewExperience(minYears float64, tier1Companies []string, logger *zap.Logger) Rule {
	tier1 := make(map[string]struct{}, len(tier1Companies))
	for _, company := range tier1Companies {
		tier1[strings.ToLower(strings.TrimSpace(company))] = struct{}{}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &experienceRule{minYears: minYears, tier1: tier1, logger: logger}
}

func (r *experienceRule) Name() string { return "experience" }

func (r *experienceRule) Evaluate(a *applicant.Applicant) Check {
	years := TotalExperienceYears(a.Experience, r.logger)
	passed := years >= r.minYears || r.workedAtTier1(a.Experience)

	if passed {
		return Check{Passed: true, Reason: fmt.Sprintf("Experience: %.1f years or Tier-1 company", years)}
	}

	return Check{Reason: fmt.Sprintf("Experience: Only %.1f years and no Tier-1 company", years)}
}

func (r *experienceRule) workedAtTier1(experience []applicant.WorkExperience) bool {
	for _, exp := range experience {
		if exp.Company == nil {
			continue
		}
		if _, ok := r.tier1[strings.ToLower(*exp.Company)]; ok {
			return true
		}
	}

	return false
}

// TotalExperienceYears sums the day spans of all entries divided by 365.
// Entries with missing or unparsable dates are logged and skipped.
func TotalExperienceYears(experience []applicant.WorkExperience, logger *zap.Logger) float64 {
	if logger == nil {
		logger = zap.NewNop()
	}

	var totalDays int64
	for _, exp := range experience {
		days, err := spanDays(exp.Start, exp.End)
		if err != nil {
			logger.Warn("skipping experience entry", zap.Error(err))
			continue
		}
		totalDays += days
	}

	return float64(totalDays) / daysPerYear
}

// spanDays counts whole days between the dates. Unix seconds are used since time.Duration caps at about 292 years.
func spanDays(start, end *string) (int64, error) {
	if start == nil || end == nil {
		return 0, fmt.Errorf("error parsing dates: start or end date is missing")
	}

	from, err := time.Parse(dateLayout, strings.TrimSpace(*start))
	if err != nil {
		return 0, fmt.Errorf("error parsing dates: %w", err)
	}

	to, err := time.Parse(dateLayout, strings.TrimSpace(*end))
	if err != nil {
		return 0, fmt.Errorf("error parsing dates: %w", err)
	}

	return (to.Unix() - from.Unix()) / secondsPerDay, nil
}

type compensationRule struct {
	maxRate         float64
	minAvailability float64
}

// NewCompensation passes applicants asking at most maxRate and available at least minAvailability hours.
func NewCompensation(maxRate, minAvailability float64) Rule {
	return &compensationRule{maxRate: maxRate, minAvailability: minAvailability}
}

func (r *compensationRule) Name() string { return "compensation" }

func (r *compensationRule) Evaluate(a *applicant.Applicant) Check {
	rate := float64(missingRate)
	if a.Salary.PreferredRate != nil && *a.Salary.PreferredRate != 0 {
		rate = *a.Salary.PreferredRate
	}

	availability := 0.0
	if a.Salary.Availability != nil {
		availability = *a.Salary.Availability
	}

	// The reason text is the same whether the check passes or not.
	return Check{
		Passed: rate <= r.maxRate && availability >= r.minAvailability,
		Reason: fmt.Sprintf("Compensation: $%s/hr, %s hrs/week", formatNumber(rate), formatNumber(availability)),
	}
}

type locationRule struct {
	countries map[string]struct{}
}

// NewLocation passes applicants whose location is exactly one of countries. Matching is case-sensitive.
func NewLocation(countries []string) Rule {
	allowed := make(map[string]struct{}, len(countries))
	for _, country := range countries {
		allowed[country] = struct{}{}
	}

	return &locationRule{countries: allowed}
}

func (r *locationRule) Name() string { return "location" }

func (r *locationRule) Evaluate(a *applicant.Applicant) Check {
	location := ""
	if a.Personal.Location != nil {
		location = *a.Personal.Location
	}

	_, ok := r.countries[location]

	return Check{Passed: ok, Reason: fmt.Sprintf("Location: %s", location)}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
