// Package airtabletest provides an in-memory stand-in for the Airtable API.
//
// The store understands the small formula subset used by the repository:
// `{Field} = 123`, `{Field} = 'text'`, `{Field} = "text"` and
// `COUNTA({Field}) > 0`. Comparisons on linked-record fields resolve each
// linked record to its primary field, the way Airtable does.
package airtabletest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/spigell/applicant-screener/internal/airtable"
)

var (
	equalityFormula = regexp.MustCompile(`^\{([^}]+)\}\s*=\s*(.+)$`)
	countaFormula   = regexp.MustCompile(`^COUNTA\(\{([^}]+)\}\)\s*>\s*0$`)
)

// Call records a single operation made against the store.
type Call struct {
	Op      string
	Table   string
	ID      string
	Formula string
}

type Store struct {
	mu      sync.Mutex
	seq     int
	tables  map[string][]*airtable.Record
	primary map[string]string
	calls   []Call
}

func New() *Store {
	return &Store{
		tables:  make(map[string][]*airtable.Record),
		primary: make(map[string]string),
	}
}

// SetPrimaryField declares the field that linked records of table are compared by.
func (s *Store) SetPrimaryField(table, field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary[table] = field
}

// Seed inserts a record without recording a call.
func (s *Store) Seed(table string, fields airtable.Fields) *airtable.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(table, fields)
}

// Records returns copies of the records currently stored in table.
func (s *Store) Records(table string) []*airtable.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*airtable.Record, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, clone(r))
	}
	return out
}

// Calls returns the operations made so far.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Store) List(_ context.Context, table, formula string) ([]*airtable.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "list", Table: table, Formula: formula})

	match, err := s.compile(formula)
	if err != nil {
		return nil, err
	}

	var out []*airtable.Record
	for _, r := range s.tables[table] {
		if match(r) {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, table string, fields airtable.Fields) (*airtable.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "create", Table: table})

	return clone(s.insert(table, fields)), nil
}

func (s *Store) Update(_ context.Context, table, id string, fields airtable.Fields) (*airtable.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "update", Table: table, ID: id})

	for _, r := range s.tables[table] {
		if r.ID != id {
			continue
		}
		for k, v := range decode(fields) {
			if v == nil {
				delete(r.Fields, k)
				continue
			}
			r.Fields[k] = v
		}
		return clone(r), nil
	}

	return nil, notFound(http.MethodPatch, table, id)
}

func (s *Store) Delete(_ context.Context, table, id string) (*airtable.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Op: "delete", Table: table, ID: id})

	records := s.tables[table]
	for i, r := range records {
		if r.ID != id {
			continue
		}
		s.tables[table] = append(records[:i], records[i+1:]...)
		return &airtable.Record{ID: id, Deleted: true}, nil
	}

	return nil, notFound(http.MethodDelete, table, id)
}

func (s *Store) Upsert(ctx context.Context, table, formula string, fields airtable.Fields) (*airtable.Record, error) {
	records, err := s.List(ctx, table, formula)
	if err != nil {
		return nil, err
	}

	if len(records) > 0 {
		return s.Update(ctx, table, records[0].ID, fields)
	}

	return s.Create(ctx, table, fields)
}

func (s *Store) insert(table string, fields airtable.Fields) *airtable.Record {
	s.seq++
	record := &airtable.Record{
		ID:     fmt.Sprintf("rec%04d", s.seq),
		Fields: normalize(fields),
	}
	s.tables[table] = append(s.tables[table], record)
	return record
}

func (s *Store) compile(formula string) (func(*airtable.Record) bool, error) {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return func(*airtable.Record) bool { return true }, nil
	}

	if m := countaFormula.FindStringSubmatch(formula); m != nil {
		field := m[1]
		return func(r *airtable.Record) bool {
			links, ok := r.Fields[field].([]any)
			return ok && len(links) > 0
		}, nil
	}

	if m := equalityFormula.FindStringSubmatch(formula); m != nil {
		field := m[1]
		literal, err := parseLiteral(m[2])
		if err != nil {
			return nil, err
		}
		return func(r *airtable.Record) bool {
			for _, v := range s.values(r.Fields[field]) {
				if v == literal {
					return true
				}
			}
			return false
		}, nil
	}

	return nil, &airtable.RemoteRequestError{
		Method:     http.MethodGet,
		StatusCode: http.StatusUnprocessableEntity,
		Body:       fmt.Sprintf(`{"error":{"type":"INVALID_FILTER_BY_FORMULA","formula":%q}}`, formula),
	}
}

// values returns the comparable string forms of a cell. Linked records resolve to their primary field.
func (s *Store) values(cell any) []string {
	switch typed := cell.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(typed))
		for _, link := range typed {
			id := fmt.Sprintf("%v", link)
			out = append(out, s.resolve(id))
		}
		return out
	default:
		return []string{format(typed)}
	}
}

func (s *Store) resolve(id string) string {
	for table, records := range s.tables {
		field, ok := s.primary[table]
		if !ok {
			continue
		}
		for _, r := range records {
			if r.ID == id {
				return format(r.Fields[field])
			}
		}
	}
	return id
}

func parseLiteral(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && (raw[0] == '\'' || raw[0] == '"') && raw[len(raw)-1] == raw[0] {
		quote := string(raw[0])
		return strings.ReplaceAll(raw[1:len(raw)-1], `\`+quote, quote), nil
	}

	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return "", fmt.Errorf("unsupported formula literal %q", raw)
	}
	return raw, nil
}

func format(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case string:
		return typed
	default:
		return fmt.Sprintf("%v", typed)
	}
}

// normalize makes stored values look like values decoded from the real API. Empty cells are dropped.
func normalize(fields airtable.Fields) airtable.Fields {
	out := decode(fields)
	for k, v := range out {
		if v == nil {
			delete(out, k)
		}
	}
	return out
}

func decode(fields airtable.Fields) airtable.Fields {
	out := airtable.Fields{}
	data, err := json.Marshal(fields)
	if err != nil {
		panic(fmt.Sprintf("airtabletest: fields are not serializable: %v", err))
	}
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("airtabletest: %v", err))
	}
	return out
}

func clone(r *airtable.Record) *airtable.Record {
	return &airtable.Record{
		ID:          r.ID,
		CreatedTime: r.CreatedTime,
		Fields:      normalize(r.Fields),
		Deleted:     r.Deleted,
	}
}

func notFound(method, table, id string) error {
	return &airtable.RemoteRequestError{
		Method:     method,
		URL:        table + "/" + id,
		StatusCode: http.StatusNotFound,
		Body:       `{"error":"NOT_FOUND"}`,
	}
}
