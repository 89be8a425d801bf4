// Package csvexport writes lead rows as CSV with every field quoted.
package csvexport

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/leadportal/internal/model"
)

const ContentType = "text/csv; charset=utf-8"

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Header is the column list of the first row, or nil for no rows.
func Header(rows []model.Row) []string {
	if len(rows) == 0 {
		return nil
	}
	return rows[0].Columns
}

// Write emits the header line and one line per row, separated by CRLF with
// no trailing separator. Every row is written against the first row's header.
func Write(w io.Writer, rows []model.Row) error {
	bw := bufio.NewWriter(w)
	header := Header(rows)

	writeLine := func(fields []string) {
		for i, f := range fields {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(quote(f))
		}
	}

	writeLine(header)
	for _, r := range rows {
		bw.WriteString("\r\n")
		fields := make([]string, len(header))
		for i, col := range header {
			fields[i] = model.FormatValue(r.Get(col))
		}
		writeLine(fields)
	}
	return bw.Flush()
}

// Filename is the attachment name for an export taken at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("relocation_leads_%s.csv", t.UTC().Format("2006-01-02-15-04-05"))
}

// Serve writes rows as a CSV download.
func Serve(w http.ResponseWriter, rows []model.Row, now time.Time) error {
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, Filename(now)))
	w.WriteHeader(http.StatusOK)
	return Write(w, rows)
}
