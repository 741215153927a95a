// Package roster loads the class roster and reconciles transcribed student
// names against it.
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"peermark/internal/domain"
)

// Load reads a roster CSV of row,roll_number,name records. A header line is
// detected and skipped, as is a UTF-8 byte order mark. Rows must be unique
// and within the sheet template.
func Load(path string) ([]domain.StudentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening roster: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads roster records from r. See Load.
func Parse(r io.Reader) ([]domain.StudentRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var students []domain.StudentRecord
	seen := make(map[int]bool)
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading roster line %d: %w", line, err)
		}
		record[0] = strings.TrimPrefix(record[0], "\uFEFF")

		row, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, domain.NewConfigError("roster",
				fmt.Sprintf("line %d: row %q is not a number", line, record[0]))
		}
		if !domain.ValidRow(row) {
			return nil, domain.NewConfigError("roster",
				fmt.Sprintf("line %d: row %d outside 1..%d", line, row, domain.MaxRows))
		}
		if seen[row] {
			return nil, domain.NewConfigError("roster",
				fmt.Sprintf("line %d: duplicate row %d", line, row))
		}
		seen[row] = true

		students = append(students, domain.StudentRecord{
			Row:        row,
			RollNumber: strings.TrimSpace(record[1]),
			Name:       strings.TrimSpace(record[2]),
		})
	}
	if len(students) == 0 {
		return nil, domain.NewConfigError("roster", "no student records found")
	}
	return students, nil
}
