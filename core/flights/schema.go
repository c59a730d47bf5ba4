package flights

import (
	"fmt"
	"time"
)

// Schema maps the input columns onto flight record fields. Column names
// default to the headers of the airport arrivals export.
type Schema struct {
	DateColumn   string   `json:"date_column"`
	TimeColumn   string   `json:"time_column"`
	OriginColumn string   `json:"origin_column"`
	SeatsColumn  string   `json:"seats_column"`
	IDColumn     string   `json:"id_column"`
	DateLayouts  []string `json:"date_layouts"`
	TimeLayouts  []string `json:"time_layouts"`

	Location *time.Location `json:"-"`
}

// DefaultSchema returns the schema used by the arrivals spreadsheets.
func DefaultSchema() Schema {
	s := Schema{}
	s.SetDefaults()
	return s
}

// SetDefaults fills unset fields.
func (s *Schema) SetDefaults() {
	if s.DateColumn == "" {
		s.DateColumn = "F. Vuelo"
	}
	if s.TimeColumn == "" {
		s.TimeColumn = "Real"
	}
	if s.OriginColumn == "" {
		s.OriginColumn = "ORIGEN"
	}
	if s.SeatsColumn == "" {
		s.SeatsColumn = "Asientos Promedio"
	}
	if len(s.DateLayouts) == 0 {
		s.DateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05"}
	}
	if len(s.TimeLayouts) == 0 {
		s.TimeLayouts = []string{"15:04", "15:04:05"}
	}
	if s.Location == nil {
		s.Location = time.UTC
	}
}

// Validate checks that every required column has a name.
func (s Schema) Validate() error {
	fields := []struct{ key, col string }{
		{"date_column", s.DateColumn},
		{"time_column", s.TimeColumn},
		{"origin_column", s.OriginColumn},
		{"seats_column", s.SeatsColumn},
	}
	for _, f := range fields {
		if f.col == "" {
			return fmt.Errorf("%s is required", f.key)
		}
	}
	return nil
}

// Required returns the required column names in a stable order.
func (s Schema) Required() []string {
	return []string{s.DateColumn, s.TimeColumn, s.OriginColumn, s.SeatsColumn}
}
