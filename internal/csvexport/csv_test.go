package csvexport

import (
	"encoding/csv"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/leadportal/internal/model"
)

func row(cols []string, vals ...any) model.Row {
	m := make(map[string]any, len(cols))
	for i, c := range cols {
		m[c] = vals[i]
	}
	return model.Row{Columns: cols, Values: m}
}

func TestWriteRoundTrip(t *testing.T) {
	cols := []string{"id", "name", "admin_notes", "created_at"}
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	rows := []model.Row{
		row(cols, int64(1), `Dana "DJ" Jones`, "called, no answer", created),
		row(cols, int64(2), "Lee", nil, []byte("raw")),
	}

	var sb strings.Builder
	require.NoError(t, Write(&sb, rows))

	r := csv.NewReader(strings.NewReader(sb.String()))
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"id", "name", "admin_notes", "created_at"},
		{"1", `Dana "DJ" Jones`, "called, no answer", "2026-02-03 04:05:06"},
		{"2", "Lee", "", "raw"},
	}, records)
}

func TestWriteQuotesEverything(t *testing.T) {
	cols := []string{"id", "note"}
	rows := []model.Row{row(cols, int64(7), nil)}

	var sb strings.Builder
	require.NoError(t, Write(&sb, rows))

	assert.Equal(t, "\"id\",\"note\"\r\n\"7\",\"\"", sb.String())
}

func TestWriteEmpty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Write(&sb, nil))
	assert.Equal(t, "", sb.String())
}

func TestWriteUsesFirstRowHeader(t *testing.T) {
	rows := []model.Row{
		row([]string{"a", "b"}, "1", "2"),
		row([]string{"b", "c"}, "3", "4"),
	}
	var sb strings.Builder
	require.NoError(t, Write(&sb, rows))
	assert.Equal(t, "\"a\",\"b\"\r\n\"1\",\"2\"\r\n\"\",\"3\"", sb.String())
}

func TestFilename(t *testing.T) {
	ts := time.Date(2026, 12, 31, 23, 59, 1, 0, time.FixedZone("PST", -8*3600))
	assert.Equal(t, "relocation_leads_2027-01-01-07-59-01.csv", Filename(ts))
}

func TestServe(t *testing.T) {
	rec := httptest.NewRecorder()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, Serve(rec, []model.Row{row([]string{"id"}, int64(1))}, now))

	assert.Equal(t, ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="relocation_leads_2026-01-02-03-04-05.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "\"id\"\r\n\"1\"", rec.Body.String())
}
