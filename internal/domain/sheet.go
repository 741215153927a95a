// Package domain contains pure, dependency-free domain models and types
// for the score sheet transcription pipeline.
package domain

// Score bounds and form geometry limits shared across the pipeline.
const (
	// MinScore is the lowest valid handwritten score on a sheet.
	MinScore = 1

	// MaxScore is the highest valid handwritten score on a sheet.
	MaxScore = 10

	// MaxRows is the maximum number of student rows a score sheet form
	// supports: rows 1-18 in the left table and 19-37 in the right table.
	MaxRows = 37
)

// ValidScore reports whether a transcribed value is a legal score.
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// ValidRow reports whether a row index addresses a position on the form.
func ValidRow(row int) bool {
	return row >= 1 && row <= MaxRows
}

// RowScore is a single transcribed table cell: the score one judge gave the
// student at a fixed row position on the form.
type RowScore struct {
	// Row is the 1-based form position identifying the rated student.
	Row int `json:"order"`

	// Score is the transcribed score. Only meaningful when Unreadable is
	// false; valid values are MinScore..MaxScore.
	Score int `json:"score"`

	// Unreadable marks a cell the transcription service could not read
	// (blank box, illegible handwriting). Unreadable cells carry no score.
	Unreadable bool `json:"unreadable,omitempty"`

	// RollNumber and Name carry identity columns in full (non-privacy)
	// mode. Both are empty when the sheet was masked before transcription.
	RollNumber string `json:"student_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Transcription is the immutable result of transcribing one sheet.
// It maps form rows to the scores one judge wrote, in row order.
type Transcription struct {
	// SheetID identifies the source sheet, typically the PDF file name.
	SheetID string `json:"sheet_id"`

	// TotalStudents is the row count the transcription service reported
	// seeing on the form. Informational; Rows is authoritative.
	TotalStudents int `json:"total_students"`

	// Rows holds one entry per transcribed table cell.
	Rows []RowScore `json:"scores"`
}

// StudentRecord accumulates every score one student received across all
// ingested sheets. A record is owned by exactly one Aggregator for the
// duration of a run and becomes read-only after finalization.
type StudentRecord struct {
	// Row is the student's fixed position on the form, the primary key.
	Row int

	// RollNumber and Name are filled from the first sheet that carried
	// identity columns (non-privacy mode) or from a roster match.
	RollNumber string
	Name       string

	// Scores preserves append order across sheets. Consumers that need
	// determinism must sort; the multiset is ingestion-order independent.
	Scores []int

	// BySheet records which sheet contributed which score, for the wide
	// per-sheet output table.
	BySheet map[string]int
}

// FinalGrade is the derived, immutable grading result for one student.
type FinalGrade struct {
	// Row identifies the graded student.
	Row int

	// Grade is the trimmed-mean-derived value on the 0-100 scale.
	// Meaningless when Ungraded is set.
	Grade int

	// ScoreCount is the number of valid scores the grade was computed from.
	ScoreCount int

	// Ungraded marks a student who received no valid scores, emitted only
	// under the flag no-data policy.
	Ungraded bool
}
