package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/ai"
	"github.com/spigell/applicant-screener/internal/airtable"
	"github.com/spigell/applicant-screener/internal/applicant"
	"github.com/spigell/applicant-screener/internal/repository"
	"github.com/spigell/applicant-screener/internal/screening"
)

type compressionStore interface {
	GetApplicant(ctx context.Context, applicantID string) (*applicant.Applicant, error)
	SaveCompressedApplicant(ctx context.Context, rec repository.CompressedRecord) (*airtable.Record, error)
	SaveShortlistedLead(ctx context.Context, applicantRecordID, compressedJSON, reason string) (*airtable.Record, error)
}

type screener interface {
	Evaluate(a *applicant.Applicant) *screening.Result
}

// CompressionResult holds everything computed for one applicant by the compress pipeline.
type CompressionResult struct {
	ApplicantID     string
	RecordID        string
	Compressed      *applicant.Compressed
	CompressedJSON  string
	ShortlistStatus string
	Reason          string
	LLMScore        *int
	LLMSummary      *string
	LLMIssues       *string
	LLMFollowUps    *string
	LLMFailed       bool
}

func (r *CompressionResult) Shortlisted() bool {
	return r.ShortlistStatus == StatusShortlisted
}

type CompressionService struct {
	store    compressionStore
	screener screener
	analyzer ai.Analyzer
	logger   *zap.Logger
}

func NewCompressionService(store compressionStore, screener screener, analyzer ai.Analyzer, logger *zap.Logger) *CompressionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CompressionService{store: store, screener: screener, analyzer: analyzer, logger: logger}
}

// Compress flattens the applicant into one JSON document, screens and analyzes it, and stores the result.
// Shortlisted applicants also get a shortlisted lead.
func (s *CompressionService) Compress(ctx context.Context, applicantID string) (*CompressionResult, error) {
	a, err := s.store.GetApplicant(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: no applicant with id %s", ErrNotFound, applicantID)
	}

	compressed := applicant.Compress(a)
	payload, err := compressed.Marshal()
	if err != nil {
		return nil, err
	}

	screened := s.screener.Evaluate(a)
	status := StatusRejected
	if screened.Shortlisted {
		status = StatusShortlisted
	}

	s.logger.Debug("applicant screened",
		zap.String("status", status),
		zap.String("reason", screened.Reason),
	)

	analysis, err := s.analyzer.Analyze(ctx, compressed)
	if err != nil {
		return nil, fmt.Errorf("analyze applicant: %w", err)
	}

	result := &CompressionResult{
		ApplicantID:     applicantID,
		Compressed:      compressed,
		CompressedJSON:  payload,
		ShortlistStatus: status,
		Reason:          screened.Reason,
		LLMScore:        analysis.Score,
		LLMSummary:      analysis.Summary,
		LLMIssues:       analysis.Issues,
		LLMFollowUps:    formatFollowUps(analysis.FollowUps),
		LLMFailed:       analysis.Failed,
	}

	record, err := s.store.SaveCompressedApplicant(ctx, repository.CompressedRecord{
		ApplicantID:     applicantID,
		CompressedJSON:  payload,
		ShortlistStatus: status,
		LLMScore:        result.LLMScore,
		LLMSummary:      result.LLMSummary,
		LLMFollowUps:    result.LLMFollowUps,
	})
	if err != nil {
		return nil, err
	}
	result.RecordID = record.ID

	if screened.Shortlisted {
		if _, err := s.store.SaveShortlistedLead(ctx, record.ID, payload, screened.Reason); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// formatFollowUps prefixes every line with a bullet. A final line break does not start a new line.
// Empty input yields nil.
func formatFollowUps(followUps *string) *string {
	if followUps == nil || *followUps == "" {
		return nil
	}

	text := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(*followUps)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "• " + line
	}

	formatted := strings.Join(lines, "\n")
	return &formatted
}
