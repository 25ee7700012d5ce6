package repository

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/airtable"
	"github.com/spigell/applicant-screener/internal/applicant"
)

const (
	linkPersonalDetails = "Personal Details"
	linkApplicants      = "Applicants"
)

// CompressedRecord is a row of the Applicants table.
type CompressedRecord struct {
	ApplicantID     string
	CompressedJSON  string
	ShortlistStatus string
	LLMScore        *int
	LLMSummary      *string
	LLMFollowUps    *string
}

type personalFields struct {
	Name     *string `mapstructure:"Full Name"`
	Email    *string `mapstructure:"Email"`
	Location *string `mapstructure:"Location"`
	LinkedIn *string `mapstructure:"LinkedIn"`
}

type experienceFields struct {
	Company      *string `mapstructure:"Company"`
	Title        *string `mapstructure:"Title"`
	Start        *string `mapstructure:"Start"`
	End          *string `mapstructure:"End"`
	Technologies *string `mapstructure:"Technologies"`
}

type salaryFields struct {
	PreferredRate *float64 `mapstructure:"Preferred Rate"`
	MinimumRate   *float64 `mapstructure:"Minimum Rate"`
	Currency      *string  `mapstructure:"Currency"`
	Availability  *float64 `mapstructure:"Availability (hrs/wk)"`
}

// GetPersonalInfo returns nil without an error when the applicant has no personal record.
func (r *Repository) GetPersonalInfo(ctx context.Context, applicantID string) (*applicant.PersonalInfo, error) {
	records, err := r.store.List(ctx, r.tables.Personal, IDFormula(FieldApplicantID, applicantID))
	if err != nil {
		return nil, fmt.Errorf("get personal info: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var fields personalFields
	if err := records[0].DecodeFields(&fields); err != nil {
		return nil, err
	}

	return &applicant.PersonalInfo{
		Name:     fields.Name,
		Email:    fields.Email,
		Location: fields.Location,
		LinkedIn: fields.LinkedIn,
	}, nil
}

func (r *Repository) GetWorkExperience(ctx context.Context, applicantID string) ([]applicant.WorkExperience, error) {
	records, err := r.store.List(ctx, r.tables.Experience, IDFormula(linkPersonalDetails, applicantID))
	if err != nil {
		return nil, fmt.Errorf("get work experience: %w", err)
	}

	experience := make([]applicant.WorkExperience, 0, len(records))
	for _, record := range records {
		var fields experienceFields
		if err := record.DecodeFields(&fields); err != nil {
			return nil, err
		}

		experience = append(experience, applicant.WorkExperience{
			Company:      fields.Company,
			Title:        fields.Title,
			Start:        fields.Start,
			End:          fields.End,
			Technologies: fields.Technologies,
		})
	}

	return experience, nil
}

// GetSalaryPreferences returns empty preferences when the applicant has none.
func (r *Repository) GetSalaryPreferences(ctx context.Context, applicantID string) (applicant.SalaryPreferences, error) {
	records, err := r.store.List(ctx, r.tables.Salary, IDFormula(linkPersonalDetails, applicantID))
	if err != nil {
		return applicant.SalaryPreferences{}, fmt.Errorf("get salary preferences: %w", err)
	}

	if len(records) == 0 {
		return applicant.SalaryPreferences{}, nil
	}

	var fields salaryFields
	if err := records[0].DecodeFields(&fields); err != nil {
		return applicant.SalaryPreferences{}, err
	}

	return applicant.SalaryPreferences{
		PreferredRate: fields.PreferredRate,
		MinimumRate:   fields.MinimumRate,
		Currency:      fields.Currency,
		Availability:  fields.Availability,
	}, nil
}

// GetApplicant returns nil without an error when the applicant does not exist.
func (r *Repository) GetApplicant(ctx context.Context, applicantID string) (*applicant.Applicant, error) {
	personal, err := r.GetPersonalInfo(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	if personal == nil {
		return nil, nil
	}

	experience, err := r.GetWorkExperience(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	salary, err := r.GetSalaryPreferences(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	return &applicant.Applicant{
		Personal:   *personal,
		Experience: experience,
		Salary:     salary,
	}, nil
}

// SaveCompressedApplicant upserts the result row keyed by applicant id. Empty LLM values are left out.
func (r *Repository) SaveCompressedApplicant(ctx context.Context, rec CompressedRecord) (*airtable.Record, error) {
	fields := airtable.Fields{
		FieldApplicantID:     rec.ApplicantID,
		FieldCompressedJSON:  rec.CompressedJSON,
		FieldShortlistStatus: rec.ShortlistStatus,
	}

	if rec.LLMScore != nil {
		fields[FieldLLMScore] = *rec.LLMScore
	}
	if rec.LLMSummary != nil && *rec.LLMSummary != "" {
		fields[FieldLLMSummary] = *rec.LLMSummary
	}
	if rec.LLMFollowUps != nil && *rec.LLMFollowUps != "" {
		fields[FieldLLMFollowUps] = *rec.LLMFollowUps
	}

	formula := fmt.Sprintf(`{%s} = "%s"`, FieldApplicantID, strings.ReplaceAll(rec.ApplicantID, `"`, `\"`))
	record, err := r.store.Upsert(ctx, r.tables.Applicants, formula, fields)
	if err != nil {
		return nil, fmt.Errorf("save compressed applicant: %w", err)
	}

	return record, nil
}

// GetCompressedApplicant returns nil without an error when no result row exists.
func (r *Repository) GetCompressedApplicant(ctx context.Context, applicantID string) (*airtable.Record, error) {
	records, err := r.store.List(ctx, r.tables.Applicants, IDFormula(FieldApplicantID, applicantID))
	if err != nil {
		return nil, fmt.Errorf("get compressed applicant: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	return records[0], nil
}

// SaveShortlistedLead replaces every lead linked to the applicant result record with a new one.
func (r *Repository) SaveShortlistedLead(ctx context.Context, applicantRecordID, compressedJSON, reason string) (*airtable.Record, error) {
	deleted, err := r.replaceLinked(ctx, r.tables.ShortlistedLeads, linkApplicants, applicantRecordID)
	if err != nil {
		return nil, fmt.Errorf("clear shortlisted leads: %w", err)
	}

	r.logger.Info("cleared shortlisted leads",
		zap.String("applicant_record_id", applicantRecordID),
		zap.Int("deleted", deleted),
	)

	record, err := r.store.Create(ctx, r.tables.ShortlistedLeads, airtable.Fields{
		linkApplicants:      []string{applicantRecordID},
		FieldCompressedJSON: compressedJSON,
		FieldScoreReason:    reason,
	})
	if err != nil {
		return nil, fmt.Errorf("create shortlisted lead: %w", err)
	}

	return record, nil
}

// SavePersonalInfo upserts the personal details record of the applicant.
func (r *Repository) SavePersonalInfo(ctx context.Context, applicantID string, info applicant.PersonalInfo) (*airtable.Record, error) {
	fields := airtable.Fields{
		FieldApplicantID: typedID(applicantID),
		FieldFullName:    info.Name,
		FieldEmail:       info.Email,
		FieldLocation:    info.Location,
		FieldLinkedIn:    info.LinkedIn,
	}

	record, err := r.store.Upsert(ctx, r.tables.Personal, IDFormula(FieldApplicantID, applicantID), fields)
	if err != nil {
		return nil, fmt.Errorf("save personal info: %w", err)
	}

	return record, nil
}

// SaveWorkExperience replaces all work experience linked to the personal details record.
func (r *Repository) SaveWorkExperience(ctx context.Context, personalID string, experience []applicant.WorkExperience) ([]*airtable.Record, error) {
	if _, err := r.replaceLinked(ctx, r.tables.Experience, linkPersonalDetails, personalID); err != nil {
		return nil, fmt.Errorf("clear work experience: %w", err)
	}

	created := make([]*airtable.Record, 0, len(experience))
	for _, exp := range experience {
		record, err := r.store.Create(ctx, r.tables.Experience, airtable.Fields{
			FieldCompany:        exp.Company,
			FieldTitle:          exp.Title,
			FieldStart:          exp.Start,
			FieldEnd:            exp.End,
			FieldTechnologies:   exp.Technologies,
			linkPersonalDetails: []string{personalID},
		})
		if err != nil {
			return created, fmt.Errorf("create work experience: %w", err)
		}
		created = append(created, record)
	}

	r.logger.Info("cleared and created work experience records",
		zap.String("personal_id", personalID),
		zap.Int("count", len(created)),
	)

	return created, nil
}

// SaveSalaryPreferences replaces the salary preferences linked to the personal details record.
func (r *Repository) SaveSalaryPreferences(ctx context.Context, personalID string, salary applicant.SalaryPreferences) (*airtable.Record, error) {
	deleted, err := r.replaceLinked(ctx, r.tables.Salary, linkPersonalDetails, personalID)
	if err != nil {
		return nil, fmt.Errorf("clear salary preferences: %w", err)
	}

	r.logger.Info("cleared salary preference records",
		zap.String("personal_id", personalID),
		zap.Int("deleted", deleted),
	)

	record, err := r.store.Create(ctx, r.tables.Salary, airtable.Fields{
		FieldPreferredRate:  salary.PreferredRate,
		FieldMinimumRate:    salary.MinimumRate,
		FieldCurrency:       salary.Currency,
		FieldAvailability:   salary.Availability,
		linkPersonalDetails: []string{personalID},
	})
	if err != nil {
		return nil, fmt.Errorf("create salary preferences: %w", err)
	}

	return record, nil
}
