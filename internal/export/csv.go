// Package export moves submissions in and out of CSV files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"folio/internal/model"
)

var header = []string{"id", "name", "email", "subject", "message", "submitted_at", "status", "read_at"}

func toRecord(s model.Submission) []string {
	readAt := ""
	if s.ReadAt != nil {
		readAt = s.ReadAt.UTC().Format(time.RFC3339Nano)
	}
	return []string{s.ID, s.Name, s.Email, s.Subject, s.Message, s.SubmittedAt.UTC().Format(time.RFC3339Nano), string(s.Status), readAt}
}

// WriteCSV writes a header row followed by one row per submission.
func WriteCSV(w io.Writer, subs []model.Submission) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	for _, s := range subs {
		if err := cw.Write(toRecord(s)); err != nil {
			return fmt.Errorf("error writing submission %s: %w", s.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses what WriteCSV produced. Columns are matched by header name.
func ReadCSV(r io.Reader) ([]model.Submission, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv is empty")
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	for _, name := range header {
		if _, ok := col[name]; !ok && name != "read_at" {
			return nil, fmt.Errorf("csv is missing column %q", name)
		}
	}
	field := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	subs := make([]model.Submission, 0, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		s := model.Submission{
			ID:      field(rec, "id"),
			Name:    field(rec, "name"),
			Email:   field(rec, "email"),
			Subject: field(rec, "subject"),
			Message: field(rec, "message"),
			Status:  model.Status(field(rec, "status")),
		}
		if s.ID == "" {
			return nil, fmt.Errorf("line %d: empty id", line)
		}
		if !s.Status.Valid() {
			return nil, fmt.Errorf("line %d: invalid status %q", line, s.Status)
		}
		s.SubmittedAt, err = time.Parse(time.RFC3339Nano, field(rec, "submitted_at"))
		if err != nil {
			return nil, fmt.Errorf("line %d: submitted_at: %w", line, err)
		}
		if v := field(rec, "read_at"); v != "" {
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, fmt.Errorf("line %d: read_at: %w", line, err)
			}
			s.ReadAt = &t
		}
		subs = append(subs, s)
	}
	return subs, nil
}
