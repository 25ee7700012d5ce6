package applicant

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type PersonalInfo struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Location *string `json:"location"`
	LinkedIn *string `json:"linkedin"`
}

type WorkExperience struct {
	Company      *string `json:"company"`
	Title        *string `json:"title"`
	Start        *string `json:"start"`
	End          *string `json:"end"`
	Technologies *string `json:"technologies"`
}

type SalaryPreferences struct {
	PreferredRate *float64 `json:"preferred_rate"`
	MinimumRate   *float64 `json:"minimum_rate"`
	Currency      *string  `json:"currency"`
	Availability  *float64 `json:"availability"`
}

// Applicant aggregates the detailed records of one applicant.
type Applicant struct {
	Personal   PersonalInfo
	Experience []WorkExperience
	Salary     SalaryPreferences
}

// Compressed is the canonical flattened representation stored in the "Compressed JSON" field.
type Compressed struct {
	Personal   PersonalInfo      `json:"personal"`
	Experience []WorkExperience  `json:"experience"`
	Salary     SalaryPreferences `json:"salary"`
}

// Compress builds the canonical representation of the applicant.
func Compress(a *Applicant) *Compressed {
	experience := make([]WorkExperience, 0, len(a.Experience))
	experience = append(experience, a.Experience...)

	return &Compressed{
		Personal:   a.Personal,
		Experience: experience,
		Salary:     a.Salary,
	}
}

// Applicant expands the compressed representation back into detailed records.
func (c *Compressed) Applicant() *Applicant {
	experience := make([]WorkExperience, 0, len(c.Experience))
	experience = append(experience, c.Experience...)

	return &Applicant{
		Personal:   c.Personal,
		Experience: experience,
		Salary:     c.Salary,
	}
}

// Marshal returns the two-space indented JSON stored in the backing store.
func (c *Compressed) Marshal() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("marshal compressed applicant: %w", err)
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Parse decodes a stored compressed JSON blob. Missing sections decode as empty values.
func Parse(raw string) (*Compressed, error) {
	var c Compressed
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("parse compressed applicant: %w", err)
	}

	if c.Experience == nil {
		c.Experience = []WorkExperience{}
	}

	return &c, nil
}
