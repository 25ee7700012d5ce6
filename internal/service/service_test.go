package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/ai"
	"github.com/spigell/applicant-screener/internal/airtable"
	"github.com/spigell/applicant-screener/internal/airtable/airtabletest"
	"github.com/spigell/applicant-screener/internal/applicant"
	"github.com/spigell/applicant-screener/internal/repository"
	"github.com/spigell/applicant-screener/internal/screening"
)

type fakeAnalyzer struct {
	analysis *ai.Analysis
	err      error
	inputs   []*applicant.Compressed
}

func (f *fakeAnalyzer) Analyze(_ context.Context, compressed *applicant.Compressed) (*ai.Analysis, error) {
	f.inputs = append(f.inputs, compressed)
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.analysis
	return &copied, nil
}

func ptr[T any](v T) *T { return &v }

type fixture struct {
	store    *airtabletest.Store
	repo     *repository.Repository
	analyzer *fakeAnalyzer
	compress *CompressionService
	expand   *DecompressionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := airtabletest.New()
	tables := repository.DefaultTables()
	store.SetPrimaryField(tables.Personal, repository.FieldApplicantID)

	repo := repository.New(store, tables, zap.NewNop())
	analyzer := &fakeAnalyzer{analysis: &ai.Analysis{
		Summary:   ptr("Experienced engineer."),
		Score:     ptr(8),
		Issues:    ptr("None"),
		FollowUps: ptr("Notice period?\nVisa status?"),
	}}

	return &fixture{
		store:    store,
		repo:     repo,
		analyzer: analyzer,
		compress: NewCompressionService(repo, screening.New(screening.DefaultRules(), nil), analyzer, zap.NewNop()),
		expand:   NewDecompressionService(repo, zap.NewNop()),
	}
}

// seedApplicant stores applicant 42 with the given rate and a Meta job of five years.
func (f *fixture) seedApplicant(rate float64) {
	tables := f.repo.Tables()

	personal := f.store.Seed(tables.Personal, airtable.Fields{
		repository.FieldApplicantID: 42,
		repository.FieldFullName:    "Ann Lee",
		repository.FieldEmail:       "ann@example.com",
		repository.FieldLocation:    "USA",
	})
	f.store.Seed(tables.Experience, airtable.Fields{
		repository.FieldCompany:      "Meta",
		repository.FieldTitle:        "Engineer",
		repository.FieldStart:        "2019-01-01",
		repository.FieldEnd:          "2024-01-01",
		repository.FieldTechnologies: "Go, Kubernetes",
		"Personal Details":           []string{personal.ID},
	})
	f.store.Seed(tables.Salary, airtable.Fields{
		repository.FieldPreferredRate: rate,
		repository.FieldCurrency:      "USD",
		repository.FieldAvailability:  25,
		"Personal Details":            []string{personal.ID},
	})
}

func TestCompressShortlistsAndStoresResult(t *testing.T) {
	f := newFixture(t)
	f.seedApplicant(80)
	ctx := context.Background()

	result, err := f.compress.Compress(ctx, "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Shortlisted() {
		t.Fatalf("expected applicant to be shortlisted: %s", result.Reason)
	}
	for _, part := range []string{"5.0 years or Tier-1 company", "$80/hr, 25 hrs/week", "Location: USA"} {
		if !strings.Contains(result.Reason, part) {
			t.Fatalf("expected reason to contain %q, got %q", part, result.Reason)
		}
	}

	if *result.LLMFollowUps != "• Notice period?\n• Visa status?" {
		t.Fatalf("unexpected follow ups: %q", *result.LLMFollowUps)
	}

	records := f.store.Records(f.repo.Tables().Applicants)
	if len(records) != 1 {
		t.Fatalf("expected one applicants record, got %d", len(records))
	}
	saved := records[0]
	if saved.String(repository.FieldShortlistStatus) != StatusShortlisted ||
		saved.String(repository.FieldCompressedJSON) != result.CompressedJSON ||
		saved.Fields[repository.FieldLLMScore] != float64(8) ||
		saved.String(repository.FieldLLMFollowUps) != *result.LLMFollowUps {
		t.Fatalf("unexpected saved record: %+v", saved.Fields)
	}

	leads := f.store.Records(f.repo.Tables().ShortlistedLeads)
	if len(leads) != 1 || !leads[0].LinkedTo("Applicants", result.RecordID) {
		t.Fatalf("expected one lead linked to %s, got %+v", result.RecordID, leads)
	}
	if leads[0].String(repository.FieldScoreReason) != result.Reason {
		t.Fatalf("unexpected lead reason %q", leads[0].String(repository.FieldScoreReason))
	}

	if len(f.analyzer.inputs) != 1 || *f.analyzer.inputs[0].Personal.Name != "Ann Lee" {
		t.Fatal("expected compressed applicant to be analyzed")
	}
}

func TestCompressTwiceKeepsSingleRecords(t *testing.T) {
	f := newFixture(t)
	f.seedApplicant(80)
	ctx := context.Background()

	first, err := f.compress.Compress(ctx, "42")
	if err != nil {
		t.Fatalf("first compress: %v", err)
	}
	second, err := f.compress.Compress(ctx, "42")
	if err != nil {
		t.Fatalf("second compress: %v", err)
	}

	if first.RecordID != second.RecordID {
		t.Fatalf("expected upsert to reuse the record, got %s and %s", first.RecordID, second.RecordID)
	}
	if n := len(f.store.Records(f.repo.Tables().Applicants)); n != 1 {
		t.Fatalf("expected one applicants record, got %d", n)
	}
	if n := len(f.store.Records(f.repo.Tables().ShortlistedLeads)); n != 1 {
		t.Fatalf("expected one shortlisted lead, got %d", n)
	}
}

func TestCompressRejectedApplicantHasNoLead(t *testing.T) {
	f := newFixture(t)
	f.seedApplicant(150)

	result, err := f.compress.Compress(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ShortlistStatus != StatusRejected {
		t.Fatalf("expected rejection, got %s", result.ShortlistStatus)
	}
	if n := len(f.store.Records(f.repo.Tables().ShortlistedLeads)); n != 0 {
		t.Fatalf("expected no shortlisted leads, got %d", n)
	}
}

func TestCompressPersistsWhenAnalysisFails(t *testing.T) {
	f := newFixture(t)
	f.seedApplicant(80)
	f.analyzer.analysis = ai.FallbackAnalysis()

	result, err := f.compress.Compress(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.LLMFailed || result.LLMScore != nil || result.LLMFollowUps != nil {
		t.Fatalf("expected fallback values, got %+v", result)
	}
	if *result.LLMIssues != ai.FailedIssues {
		t.Fatalf("unexpected issues %q", *result.LLMIssues)
	}

	saved := f.store.Records(f.repo.Tables().Applicants)[0]
	if saved.String(repository.FieldShortlistStatus) != StatusShortlisted {
		t.Fatalf("expected status to be stored, got %+v", saved.Fields)
	}
	for _, field := range []string{repository.FieldLLMScore, repository.FieldLLMSummary, repository.FieldLLMFollowUps} {
		if _, ok := saved.Fields[field]; ok {
			t.Fatalf("did not expect %s to be written", field)
		}
	}
}

func TestCompressAnalyzerErrorAborts(t *testing.T) {
	f := newFixture(t)
	f.seedApplicant(80)
	f.analyzer.err = context.Canceled

	if _, err := f.compress.Compress(context.Background(), "42"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if n := len(f.store.Records(f.repo.Tables().Applicants)); n != 0 {
		t.Fatalf("expected nothing to be stored, got %d records", n)
	}
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.compress.Compress(ctx, "404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from compress, got %v", err)
	}
	if _, err := f.expand.Decompress(ctx, "404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from decompress, got %v", err)
	}

	f.store.Seed(f.repo.Tables().Applicants, airtable.Fields{repository.FieldApplicantID: "7"})
	if _, err := f.expand.Decompress(ctx, "7"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty compressed json, got %v", err)
	}
}

func TestDecompressMalformedJSON(t *testing.T) {
	f := newFixture(t)
	f.store.Seed(f.repo.Tables().Applicants, airtable.Fields{
		repository.FieldApplicantID:    "9",
		repository.FieldCompressedJSON: "{not json",
	})

	_, err := f.expand.Decompress(context.Background(), "9")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.seedApplicant(80)
	ctx := context.Background()
	tables := f.repo.Tables()

	first, err := f.compress.Compress(ctx, "42")
	if err != nil {
		t.Fatalf("compress: %v", err)
	}

	result, err := f.expand.Decompress(ctx, "42")
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}

	personal := f.store.Records(tables.Personal)
	if len(personal) != 1 || personal[0].ID != result.PersonalID {
		t.Fatalf("expected personal record to be updated in place, got %+v", personal)
	}
	if n := len(f.store.Records(tables.Experience)); n != 1 {
		t.Fatalf("expected experience to be replaced, got %d records", n)
	}
	if n := len(f.store.Records(tables.Salary)); n != 1 {
		t.Fatalf("expected salary to be replaced, got %d records", n)
	}
	if len(result.Experience) != 1 || *result.Personal.Email != "ann@example.com" || *result.Salary.PreferredRate != 80 {
		t.Fatalf("unexpected decompression result: %+v", result)
	}

	second, err := f.compress.Compress(ctx, "42")
	if err != nil {
		t.Fatalf("second compress: %v", err)
	}

	if first.CompressedJSON != second.CompressedJSON {
		t.Fatalf("round trip changed the compressed json:\n%s\n---\n%s", first.CompressedJSON, second.CompressedJSON)
	}
}

func TestFormatFollowUps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  *string
		expect *string
	}{
		{name: "nil", input: nil, expect: nil},
		{name: "empty", input: ptr(""), expect: nil},
		{name: "single", input: ptr("Why?"), expect: ptr("• Why?")},
		{name: "raw list kept", input: ptr("[a, b]"), expect: ptr("• [a, b]")},
		{name: "multi", input: ptr("A\nB"), expect: ptr("• A\n• B")},
		{name: "trailing newline", input: ptr("A\nB\n"), expect: ptr("• A\n• B")},
		{name: "crlf", input: ptr("A\r\nB\r\n"), expect: ptr("• A\n• B")},
		{name: "blank line kept", input: ptr("A\n\nB"), expect: ptr("• A\n• \n• B")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := formatFollowUps(tt.input)
			switch {
			case tt.expect == nil && got != nil:
				t.Fatalf("expected nil, got %q", *got)
			case tt.expect != nil && (got == nil || *got != *tt.expect):
				t.Fatalf("expected %q, got %v", *tt.expect, got)
			}
		})
	}
}
