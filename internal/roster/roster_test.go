package roster

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peermark/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []domain.StudentRecord
		wantErr string
	}{
		{
			name: "with header",
			input: "row,roll_number,name\n" +
				"1,21CS001,Ayesha Rahman\n" +
				"2,21CS002,Badal Karim\n",
			want: []domain.StudentRecord{
				{Row: 1, RollNumber: "21CS001", Name: "Ayesha Rahman"},
				{Row: 2, RollNumber: "21CS002", Name: "Badal Karim"},
			},
		},
		{
			name:  "without header",
			input: "5,21CS005,Chitra Das\n",
			want: []domain.StudentRecord{
				{Row: 5, RollNumber: "21CS005", Name: "Chitra Das"},
			},
		},
		{
			name:  "byte order mark stripped",
			input: "\uFEFF1,21CS001,Ayesha Rahman\n",
			want: []domain.StudentRecord{
				{Row: 1, RollNumber: "21CS001", Name: "Ayesha Rahman"},
			},
		},
		{
			name:    "duplicate row",
			input:   "1,a,A\n1,b,B\n",
			wantErr: "duplicate row",
		},
		{
			name:    "row out of range",
			input:   "38,a,A\n",
			wantErr: "outside",
		},
		{
			name:    "non-numeric row past header",
			input:   "row,roll_number,name\nabc,a,A\n",
			wantErr: "not a number",
		},
		{
			name:    "empty roster",
			input:   "row,roll_number,name\n",
			wantErr: "no student records",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcher(t *testing.T) {
	students := []domain.StudentRecord{
		{Row: 1, RollNumber: "21CS001", Name: "Ayesha Rahman"},
		{Row: 2, RollNumber: "21CS002", Name: "Badal Karim"},
		{Row: 3, RollNumber: "21CS003", Name: "Chitra Das"},
	}
	m := NewMatcher(students, 0)

	tests := []struct {
		name    string
		query   string
		wantRow int
		wantOK  bool
	}{
		{name: "exact", query: "Ayesha Rahman", wantRow: 1, wantOK: true},
		{name: "case folded", query: "AYESHA rahman", wantRow: 1, wantOK: true},
		{name: "extra whitespace", query: "  Badal   Karim ", wantRow: 2, wantOK: true},
		{name: "partial name", query: "Chitra", wantRow: 3, wantOK: true},
		{name: "small transcription error", query: "Ayesha Rahmen", wantRow: 1, wantOK: true},
		{name: "unrelated name", query: "Zulfiqar Chowdhury", wantOK: false},
		{name: "empty", query: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Match(tt.query)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantRow, got.Row)
			}
		})
	}
}
