package model

import (
	"fmt"
	"time"
)

// Row is one record from relocation_leads. The column set is read from the
// live table, so rows keep the column order the database returned.
type Row struct {
	Columns []string
	Values  map[string]any
}

// Get returns the value stored under col, or nil when the column is absent.
func (r Row) Get(col string) any {
	if r.Values == nil {
		return nil
	}
	return r.Values[col]
}

// ID returns the integer primary key, or 0 when it cannot be read.
func (r Row) ID() int64 {
	switch v := r.Get("id").(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		var id int64
		fmt.Sscanf(v, "%d", &id)
		return id
	}
	return 0
}

// String renders a single column for display.
func (r Row) String(col string) string {
	return FormatValue(r.Get(col))
}

// FormatValue is the canonical text form of a lead value, shared by the
// dashboard templates and the CSV export.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format("2006-01-02 15:04:05")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(t)
	}
}

type LeadStats struct {
	Today      int64 `json:"today" db:"today"`
	Last7Days  int64 `json:"last_7_days" db:"last_7_days"`
	Last30Days int64 `json:"last_30_days" db:"last_30_days"`
	AllTime    int64 `json:"all_time" db:"all_time"`
}

type DestinationCount struct {
	Destination string `json:"destination" db:"destination"`
	Count       int64  `json:"count" db:"cnt"`
}

type Submission struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Email     string    `json:"email"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

const SubmissionKindPartnerApplication = "partner_application"
