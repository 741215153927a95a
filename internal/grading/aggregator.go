// Package grading implements the core transformation of the pipeline: the
// transposition of per-sheet transcriptions into per-student score lists,
// and the trimmed-mean final-grade computation over them.
package grading

import (
	"fmt"
	"sort"

	"peermark/internal/domain"
)

// Aggregator is the explicit mutable aggregation context for one run. It
// inverts the orientation of the data from "one sheet per judge, all
// students" to "one row per student, all judges' scores".
//
// The record set is the union of valid row indices across all ingested
// sheets, bounded by domain.MaxRows. Entries with unreadable cells are
// dropped and counted; entries with out-of-range scores or row indices are
// recorded as malformed and excluded. Neither fails the run.
//
// Determinism: Snapshot sorts every score list, so the result is identical
// for any permutation of sheet ingestion order. The Aggregator itself is not
// safe for concurrent use; parallel pipelines must serialize Ingest or
// reduce collected results single-threaded.
type Aggregator struct {
	records map[int]*domain.StudentRecord
	// sheets preserves ingestion order for the wide per-sheet output table.
	sheets map[string]int
	order  []string
	stats  domain.RunStats
}

// NewAggregator creates an empty aggregation context.
func NewAggregator() *Aggregator {
	return &Aggregator{
		records: make(map[int]*domain.StudentRecord),
		sheets:  make(map[string]int),
	}
}

// SeedRoster pre-creates one empty record per roster entry so students who
// receive no ratings still appear in the run report. Identity fields from
// the roster win over anything transcribed later.
func (a *Aggregator) SeedRoster(students []domain.StudentRecord) error {
	for _, s := range students {
		if !domain.ValidRow(s.Row) {
			return domain.NewConfigError("roster",
				fmt.Sprintf("row %d outside 1..%d", s.Row, domain.MaxRows))
		}
		rec := a.record(s.Row)
		rec.RollNumber = s.RollNumber
		rec.Name = s.Name
	}
	return nil
}

// Ingest merges one sheet's transcription into the student records.
// It returns an error only for caller bugs (duplicate sheet ID); every
// per-entry problem is counted and skipped instead.
func (a *Aggregator) Ingest(sheetID string, tr domain.Transcription) error {
	if _, dup := a.sheets[sheetID]; dup {
		return fmt.Errorf("sheet %q already ingested", sheetID)
	}
	a.sheets[sheetID] = len(a.order)
	a.order = append(a.order, sheetID)
	a.stats.SheetsIngested++

	seen := make(map[int]bool, len(tr.Rows))
	for _, row := range tr.Rows {
		if !domain.ValidRow(row.Row) {
			a.stats.RecordMalformed(domain.MalformedScoreError{
				SheetID: sheetID, Row: row.Row, Score: row.Score,
				Reason: fmt.Sprintf("row index outside 1..%d", domain.MaxRows),
			})
			continue
		}
		if seen[row.Row] {
			a.stats.RecordMalformed(domain.MalformedScoreError{
				SheetID: sheetID, Row: row.Row, Score: row.Score,
				Reason: "duplicate row on sheet",
			})
			continue
		}
		seen[row.Row] = true

		rec := a.record(row.Row)
		if rec.RollNumber == "" {
			rec.RollNumber = row.RollNumber
		}
		if rec.Name == "" {
			rec.Name = row.Name
		}

		if row.Unreadable {
			a.stats.UnreadableEntries++
			continue
		}
		if !domain.ValidScore(row.Score) {
			// Out-of-range scores are never clamped; they are excluded
			// and surfaced in the diagnostics.
			a.stats.RecordMalformed(domain.MalformedScoreError{
				SheetID: sheetID, Row: row.Row, Score: row.Score,
				Reason: fmt.Sprintf("score outside %d..%d", domain.MinScore, domain.MaxScore),
			})
			continue
		}

		rec.Scores = append(rec.Scores, row.Score)
		rec.BySheet[sheetID] = row.Score
	}
	return nil
}

// RecordSheetFailure counts a sheet whose transcription failed entirely.
// The sheet contributes no entries and does not appear as an output column.
func (a *Aggregator) RecordSheetFailure(sheetID string) {
	a.stats.RecordFailedSheet(sheetID)
}

func (a *Aggregator) record(row int) *domain.StudentRecord {
	rec, ok := a.records[row]
	if !ok {
		rec = &domain.StudentRecord{
			Row:     row,
			BySheet: make(map[string]int),
		}
		a.records[row] = rec
	}
	return rec
}

// Snapshot returns the deterministic per-student view: row index to
// ascending-sorted copy of the received scores. Two runs over the same
// sheets produce identical snapshots regardless of ingestion order.
func (a *Aggregator) Snapshot() map[int][]int {
	out := make(map[int][]int, len(a.records))
	for row, rec := range a.records {
		scores := make([]int, len(rec.Scores))
		copy(scores, rec.Scores)
		sort.Ints(scores)
		out[row] = scores
	}
	return out
}

// Records returns the student records ordered by row index. The returned
// records are the aggregator's own; callers treat them as read-only after
// the run's ingest phase completes.
func (a *Aggregator) Records() []*domain.StudentRecord {
	out := make([]*domain.StudentRecord, 0, len(a.records))
	for _, rec := range a.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

// Sheets returns the ingested sheet IDs in ingestion order.
func (a *Aggregator) Sheets() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Stats returns the run diagnostics with the derived per-student figures
// filled in. Call after all sheets have been ingested.
func (a *Aggregator) Stats() domain.RunStats {
	stats := a.stats
	stats.StudentsWithoutScores = nil
	stats.StudentsFullCoverage = 0

	total := 0
	for _, rec := range a.Records() {
		total += len(rec.Scores)
		if len(rec.Scores) == 0 {
			stats.StudentsWithoutScores = append(stats.StudentsWithoutScores, rec.Row)
		}
		if stats.SheetsIngested > 0 && len(rec.Scores) == stats.SheetsIngested {
			stats.StudentsFullCoverage++
		}
	}
	if len(a.records) > 0 {
		stats.AvgScoresPerStudent = float64(total) / float64(len(a.records))
	}
	return stats
}
