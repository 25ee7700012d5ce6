package airtable

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Fields holds the cell values of a record keyed by column name.
type Fields map[string]any

type Record struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields,omitempty"`
	Deleted     bool   `json:"deleted,omitempty"`
}

// DecodeFields decodes the record fields into target using `mapstructure` tags with column names.
func (r *Record) DecodeFields(target any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           target,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	if err := decoder.Decode(map[string]any(r.Fields)); err != nil {
		return fmt.Errorf("decode fields of record %s: %w", r.ID, err)
	}

	return nil
}

// String returns the field value as string. Missing fields return an empty string.
func (r *Record) String(name string) string {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return ""
	}

	switch typed := v.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// LinkedTo reports whether the linked-record field contains id.
func (r *Record) LinkedTo(field, id string) bool {
	switch links := r.Fields[field].(type) {
	case []any:
		for _, link := range links {
			if fmt.Sprintf("%v", link) == id {
				return true
			}
		}
	case []string:
		for _, link := range links {
			if link == id {
				return true
			}
		}
	}

	return false
}
