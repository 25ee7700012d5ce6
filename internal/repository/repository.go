package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/applicant-screener/internal/airtable"
)

const (
	FieldApplicantID = "ApplicantId"

	FieldFullName = "Full Name"
	FieldEmail    = "Email"
	FieldLocation = "Location"
	FieldLinkedIn = "LinkedIn"

	FieldCompany      = "Company"
	FieldTitle        = "Title"
	FieldStart        = "Start"
	FieldEnd          = "End"
	FieldTechnologies = "Technologies"

	FieldPreferredRate = "Preferred Rate"
	FieldMinimumRate   = "Minimum Rate"
	FieldCurrency      = "Currency"
	FieldAvailability  = "Availability (hrs/wk)"

	FieldCompressedJSON  = "Compressed JSON"
	FieldShortlistStatus = "Shortlist Status"
	FieldLLMScore        = "LLM Score"
	FieldLLMSummary      = "LLM Summary"
	FieldLLMFollowUps    = "LLM Follow Ups"
	FieldScoreReason     = "Score Reason"
)

// Store is the record store the repository works on. *airtable.Client implements it.
type Store interface {
	List(ctx context.Context, table, formula string) ([]*airtable.Record, error)
	Create(ctx context.Context, table string, fields airtable.Fields) (*airtable.Record, error)
	Update(ctx context.Context, table, id string, fields airtable.Fields) (*airtable.Record, error)
	Delete(ctx context.Context, table, id string) (*airtable.Record, error)
	Upsert(ctx context.Context, table, formula string, fields airtable.Fields) (*airtable.Record, error)
}

// Tables holds the names of the tables in the base.
type Tables struct {
	Personal         string `mapstructure:"personal"`
	Experience       string `mapstructure:"experience"`
	Salary           string `mapstructure:"salary"`
	Applicants       string `mapstructure:"applicants"`
	ShortlistedLeads string `mapstructure:"shortlisted-leads"`
}

func DefaultTables() Tables {
	return Tables{
		Personal:         "Personal Details",
		Experience:       "Work Experience",
		Salary:           "Salary Preferences",
		Applicants:       "Applicants",
		ShortlistedLeads: "Shortlisted Leads",
	}
}

// Repository maps applicants to and from records of the five tables.
type Repository struct {
	store  Store
	tables Tables
	logger *zap.Logger
}

func New(store Store, tables Tables, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Repository{
		store:  store,
		tables: tables,
		logger: logger,
	}
}

// Tables returns the table names the repository was configured with.
func (r *Repository) Tables() Tables {
	return r.tables
}

// IDFormula builds an equality formula on field. Integer ids are compared unquoted since
// the store treats quoted and unquoted literals differently.
func IDFormula(field, id string) string {
	if n, err := strconv.Atoi(strings.TrimSpace(id)); err == nil {
		return fmt.Sprintf("{%s} = %d", field, n)
	}

	return fmt.Sprintf("{%s} = '%s'", field, strings.ReplaceAll(id, "'", `\'`))
}

// typedID returns the id as an integer when it is one, for writing into numeric columns.
func typedID(id string) any {
	if n, err := strconv.Atoi(strings.TrimSpace(id)); err == nil {
		return n
	}
	return id
}

func linkedFormula(field string) string {
	return fmt.Sprintf("COUNTA({%s}) > 0", field)
}

// replaceLinked deletes every record of table whose link field points at id.
// The store can only filter on a non-empty link, so the exact match happens here.
func (r *Repository) replaceLinked(ctx context.Context, table, field, id string) (int, error) {
	existing, err := r.store.List(ctx, table, linkedFormula(field))
	if err != nil {
		return 0, fmt.Errorf("list linked records of %s: %w", table, err)
	}

	r.logger.Info("found records with linked field",
		zap.String("table", table),
		zap.String("field", field),
		zap.Int("count", len(existing)),
	)

	deleted := 0
	for _, record := range existing {
		if !record.LinkedTo(field, id) {
			continue
		}

		r.logger.Info("deleting linked record",
			zap.String("table", table),
			zap.String("record_id", record.ID),
			zap.String("linked_to", id),
		)

		if _, err := r.store.Delete(ctx, table, record.ID); err != nil {
			return deleted, fmt.Errorf("delete %s record %s: %w", table, record.ID, err)
		}
		deleted++
	}

	return deleted, nil
}
