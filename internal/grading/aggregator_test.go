package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peermark/internal/domain"
)

func sheet(rows ...domain.RowScore) domain.Transcription {
	return domain.Transcription{TotalStudents: len(rows), Rows: rows}
}

func TestAggregatorIngest(t *testing.T) {
	agg := NewAggregator()

	require.NoError(t, agg.Ingest("sheet-a", sheet(
		domain.RowScore{Row: 1, Score: 7, RollNumber: "21CS001", Name: "A. Rahman"},
		domain.RowScore{Row: 2, Score: 4},
		domain.RowScore{Row: 3, Unreadable: true},
	)))
	require.NoError(t, agg.Ingest("sheet-b", sheet(
		domain.RowScore{Row: 1, Score: 9},
		domain.RowScore{Row: 2, Score: 14}, // out of range
		domain.RowScore{Row: 40, Score: 5}, // row out of range
	)))

	snap := agg.Snapshot()
	assert.Equal(t, []int{7, 9}, snap[1])
	assert.Equal(t, []int{4}, snap[2])
	assert.Equal(t, []int{}, snap[3], "unreadable row still creates the record")

	stats := agg.Stats()
	assert.Equal(t, 2, stats.SheetsIngested)
	assert.Equal(t, 1, stats.UnreadableEntries)
	assert.Equal(t, 2, stats.MalformedEntries)
	assert.Equal(t, []int{3}, stats.StudentsWithoutScores)
	assert.Equal(t, 1, stats.StudentsFullCoverage)
	assert.InDelta(t, 1.0, stats.AvgScoresPerStudent, 1e-9)

	records := agg.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "21CS001", records[0].RollNumber)
	assert.Equal(t, "A. Rahman", records[0].Name)
	assert.Equal(t, map[string]int{"sheet-a": 7, "sheet-b": 9}, records[0].BySheet)
}

func TestAggregatorIngestDuplicateSheet(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.Ingest("sheet-a", sheet()))

	err := agg.Ingest("sheet-a", sheet())
	assert.ErrorContains(t, err, "already ingested")
}

func TestAggregatorDuplicateRowOnSheet(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.Ingest("sheet-a", sheet(
		domain.RowScore{Row: 5, Score: 6},
		domain.RowScore{Row: 5, Score: 2},
	)))

	assert.Equal(t, []int{6}, agg.Snapshot()[5], "first entry wins")

	stats := agg.Stats()
	require.Len(t, stats.Malformed, 1)
	assert.Contains(t, stats.Malformed[0].Reason, "duplicate row")
}

func TestAggregatorSnapshotOrderIndependent(t *testing.T) {
	a := domain.RowScore{Row: 1, Score: 3}
	b := domain.RowScore{Row: 1, Score: 8}
	c := domain.RowScore{Row: 1, Score: 5}

	forward := NewAggregator()
	require.NoError(t, forward.Ingest("s1", sheet(a)))
	require.NoError(t, forward.Ingest("s2", sheet(b)))
	require.NoError(t, forward.Ingest("s3", sheet(c)))

	reverse := NewAggregator()
	require.NoError(t, reverse.Ingest("s3", sheet(c)))
	require.NoError(t, reverse.Ingest("s2", sheet(b)))
	require.NoError(t, reverse.Ingest("s1", sheet(a)))

	assert.Equal(t, forward.Snapshot(), reverse.Snapshot())
}

func TestAggregatorSeedRoster(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.SeedRoster([]domain.StudentRecord{
		{Row: 1, RollNumber: "21CS001", Name: "A. Rahman"},
		{Row: 2, RollNumber: "21CS002", Name: "B. Karim"},
	}))
	require.NoError(t, agg.Ingest("sheet-a", sheet(
		domain.RowScore{Row: 1, Score: 8, Name: "transcribed name"},
	)))

	records := agg.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "A. Rahman", records[0].Name, "roster identity wins")
	assert.Empty(t, records[1].Scores)

	err := agg.SeedRoster([]domain.StudentRecord{{Row: 99}})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestAggregatorSheetFailure(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.Ingest("sheet-a", sheet(domain.RowScore{Row: 1, Score: 5})))
	agg.RecordSheetFailure("sheet-b")

	stats := agg.Stats()
	assert.Equal(t, 1, stats.SheetsIngested)
	assert.Equal(t, 1, stats.SheetsFailed)
	assert.Equal(t, []string{"sheet-b"}, stats.FailedSheets)
	assert.Equal(t, []string{"sheet-a"}, agg.Sheets())
}
