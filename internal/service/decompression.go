package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/airtable"
	"github.com/spigell/applicant-screener/internal/applicant"
	"github.com/spigell/applicant-screener/internal/repository"
)

type decompressionStore interface {
	GetCompressedApplicant(ctx context.Context, applicantID string) (*airtable.Record, error)
	SavePersonalInfo(ctx context.Context, applicantID string, info applicant.PersonalInfo) (*airtable.Record, error)
	SaveWorkExperience(ctx context.Context, personalID string, experience []applicant.WorkExperience) ([]*airtable.Record, error)
	SaveSalaryPreferences(ctx context.Context, personalID string, salary applicant.SalaryPreferences) (*airtable.Record, error)
}

type DecompressionResult struct {
	ApplicantID string
	PersonalID  string
	Personal    applicant.PersonalInfo
	Experience  []applicant.WorkExperience
	Salary      applicant.SalaryPreferences
}

type DecompressionService struct {
	store  decompressionStore
	logger *zap.Logger
}

func NewDecompressionService(store decompressionStore, logger *zap.Logger) *DecompressionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DecompressionService{store: store, logger: logger}
}

// Decompress rebuilds the detailed records from the stored compressed JSON.
// Existing work experience and salary records of the applicant are replaced.
func (s *DecompressionService) Decompress(ctx context.Context, applicantID string) (*DecompressionResult, error) {
	s.logger.Info("decompressing applicant")

	record, err := s.store.GetCompressedApplicant(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: no compressed record for id %s", ErrNotFound, applicantID)
	}

	raw := record.String(repository.FieldCompressedJSON)
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: compressed json field is empty for id %s", ErrNotFound, applicantID)
	}

	compressed, err := applicant.Parse(raw)
	if err != nil {
		return nil, err
	}

	personal, err := s.store.SavePersonalInfo(ctx, applicantID, compressed.Personal)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.SaveWorkExperience(ctx, personal.ID, compressed.Experience); err != nil {
		return nil, err
	}

	if _, err := s.store.SaveSalaryPreferences(ctx, personal.ID, compressed.Salary); err != nil {
		return nil, err
	}

	s.logger.Info("decompressed applicant", zap.String("personal_id", personal.ID))

	return &DecompressionResult{
		ApplicantID: applicantID,
		PersonalID:  personal.ID,
		Personal:    compressed.Personal,
		Experience:  compressed.Experience,
		Salary:      compressed.Salary,
	}, nil
}
