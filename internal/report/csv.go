// Package report renders the outputs of a grading run: the wide per-sheet
// score matrix, the final grade list and a human-readable summary table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"peermark/internal/domain"
)

// utf8BOM makes the CSVs open cleanly in spreadsheet applications that
// guess the encoding.
const utf8BOM = "\uFEFF"

// Report bundles everything a run produced, ready for rendering.
type Report struct {
	RunID   string
	Sheets  []string
	Records []*domain.StudentRecord
	Grades  []domain.FinalGrade
	Stats   domain.RunStats
}

// WriteScoresCSV writes the wide score matrix: one line per student, one
// column per ingested sheet, empty cells where a sheet produced no readable
// score for that student.
func (r *Report) WriteScoresCSV(w io.Writer, bom bool) error {
	if bom {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return fmt.Errorf("writing scores csv: %w", err)
		}
	}
	cw := csv.NewWriter(w)

	header := append([]string{"row", "roll_number", "name"}, r.Sheets...)
	header = append(header, "score_count")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing scores csv header: %w", err)
	}

	for _, rec := range r.Records {
		line := []string{strconv.Itoa(rec.Row), rec.RollNumber, rec.Name}
		for _, sheet := range r.Sheets {
			if score, ok := rec.BySheet[sheet]; ok {
				line = append(line, strconv.Itoa(score))
			} else {
				line = append(line, "")
			}
		}
		line = append(line, strconv.Itoa(len(rec.Scores)))
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("writing scores csv row %d: %w", rec.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGradesCSV writes the final grade per student. Students graded under
// the flag policy get an empty grade cell and a yes in the ungraded column.
func (r *Report) WriteGradesCSV(w io.Writer, bom bool) error {
	if bom {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return fmt.Errorf("writing grades csv: %w", err)
		}
	}
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"row", "roll_number", "name", "score_count", "grade", "ungraded"}); err != nil {
		return fmt.Errorf("writing grades csv header: %w", err)
	}

	byRow := make(map[int]*domain.StudentRecord, len(r.Records))
	for _, rec := range r.Records {
		byRow[rec.Row] = rec
	}

	for _, g := range r.Grades {
		roll, name := "", ""
		if rec, ok := byRow[g.Row]; ok {
			roll, name = rec.RollNumber, rec.Name
		}
		grade := strconv.Itoa(g.Grade)
		ungraded := ""
		if g.Ungraded {
			grade = ""
			ungraded = "yes"
		}
		line := []string{strconv.Itoa(g.Row), roll, name, strconv.Itoa(g.ScoreCount), grade, ungraded}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("writing grades csv row %d: %w", g.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
