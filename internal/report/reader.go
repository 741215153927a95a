package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"peermark/internal/domain"
)

// ReadScoresCSV parses a score matrix previously written by WriteScoresCSV,
// reconstructing the per-student records and sheet list so grades can be
// recomputed offline without re-transcribing anything.
func ReadScoresCSV(r io.Reader) ([]*domain.StudentRecord, []string, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading scores header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	if len(header) < 4 || header[0] != "row" || header[len(header)-1] != "score_count" {
		return nil, nil, fmt.Errorf("not a score matrix: unexpected header %v", header)
	}
	sheets := header[3 : len(header)-1]

	var records []*domain.StudentRecord
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading scores line %d: %w", line, err)
		}

		row, err := strconv.Atoi(record[0])
		if err != nil || !domain.ValidRow(row) {
			return nil, nil, fmt.Errorf("line %d: bad row %q", line, record[0])
		}

		rec := &domain.StudentRecord{
			Row:        row,
			RollNumber: record[1],
			Name:       record[2],
			BySheet:    make(map[string]int, len(sheets)),
		}
		for i, sheet := range sheets {
			cell := record[3+i]
			if cell == "" {
				continue
			}
			score, err := strconv.Atoi(cell)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: bad score %q for sheet %s", line, cell, sheet)
			}
			rec.Scores = append(rec.Scores, score)
			rec.BySheet[sheet] = score
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("score matrix has no student rows")
	}
	return records, sheets, nil
}

// Snapshot converts records into the row-to-sorted-scores view the grade
// calculator consumes.
func Snapshot(records []*domain.StudentRecord) map[int][]int {
	snap := make(map[int][]int, len(records))
	for _, rec := range records {
		scores := make([]int, len(rec.Scores))
		copy(scores, rec.Scores)
		sort.Ints(scores)
		snap[rec.Row] = scores
	}
	return snap
}
