package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadScoresCSVRoundTrip(t *testing.T) {
	rep := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, rep.WriteScoresCSV(&buf, true))

	records, sheets, err := ReadScoresCSV(&buf)
	require.NoError(t, err)

	assert.Equal(t, rep.Sheets, sheets)
	require.Len(t, records, len(rep.Records))
	for i, rec := range records {
		assert.Equal(t, rep.Records[i].Row, rec.Row)
		assert.Equal(t, rep.Records[i].RollNumber, rec.RollNumber)
		assert.Equal(t, rep.Records[i].BySheet, rec.BySheet)
		assert.ElementsMatch(t, rep.Records[i].Scores, rec.Scores)
	}
}

func TestReadScoresCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "wrong header",
			input:   "name,grade\nA,90\n",
			wantErr: "not a score matrix",
		},
		{
			name:    "bad row index",
			input:   "row,roll_number,name,s1,score_count\nabc,r,n,5,1\n",
			wantErr: "bad row",
		},
		{
			name:    "bad score cell",
			input:   "row,roll_number,name,s1,score_count\n1,r,n,x,1\n",
			wantErr: "bad score",
		},
		{
			name:    "no students",
			input:   "row,roll_number,name,s1,score_count\n",
			wantErr: "no student rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadScoresCSV(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSnapshot(t *testing.T) {
	records, _, err := ReadScoresCSV(strings.NewReader(
		"row,roll_number,name,s1,s2,score_count\n" +
			"1,r,n,9,3,2\n" +
			"2,r,n,,,0\n"))
	require.NoError(t, err)

	snap := Snapshot(records)
	assert.Equal(t, []int{3, 9}, snap[1])
	assert.Empty(t, snap[2])
}
