package domain

// RunStats aggregates the skip/exclude diagnostics a batch run must be able
// to report for audit: how many sheets failed outright, how many individual
// entries were unreadable or malformed, and which students ended the run
// without a single valid score.
type RunStats struct {
	// SheetsIngested counts sheets whose transcription was merged into the
	// student records.
	SheetsIngested int

	// SheetsFailed counts sheets excluded by whole-sheet transcription
	// failures.
	SheetsFailed int

	// UnreadableEntries counts cells the transcription service flagged as
	// unreadable. Dropped, never fatal.
	UnreadableEntries int

	// MalformedEntries counts entries excluded for out-of-range scores or
	// row indices; Malformed holds the per-occurrence detail.
	MalformedEntries int

	// Malformed retains one record per excluded entry for diagnostics.
	Malformed []MalformedScoreError

	// FailedSheets lists the sheet IDs excluded from the run.
	FailedSheets []string

	// StudentsWithoutScores lists row indices of students that ended the
	// run with zero valid ratings.
	StudentsWithoutScores []int

	// StudentsFullCoverage counts students rated on every ingested sheet.
	StudentsFullCoverage int

	// AvgScoresPerStudent is the mean number of valid ratings per student.
	AvgScoresPerStudent float64
}

// RecordMalformed counts one excluded entry and keeps its detail.
func (s *RunStats) RecordMalformed(e MalformedScoreError) {
	s.MalformedEntries++
	s.Malformed = append(s.Malformed, e)
}

// RecordFailedSheet counts one whole-sheet exclusion.
func (s *RunStats) RecordFailedSheet(sheetID string) {
	s.SheetsFailed++
	s.FailedSheets = append(s.FailedSheets, sheetID)
}
