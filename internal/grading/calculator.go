package grading

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"

	"peermark/internal/domain"
)

// RoundingMode selects how the scaled mean is converted to a whole grade.
type RoundingMode string

const (
	// RoundHalfUp rounds halves away from zero (72.5 becomes 73).
	RoundHalfUp RoundingMode = "half_up"
	// RoundHalfEven rounds halves to the nearest even grade (72.5 becomes 72).
	RoundHalfEven RoundingMode = "half_even"
)

// NoDataPolicy decides what happens to a student with zero valid scores.
type NoDataPolicy string

const (
	// NoDataExclude omits the student from the grade output.
	NoDataExclude NoDataPolicy = "exclude"
	// NoDataZero emits a grade of zero.
	NoDataZero NoDataPolicy = "zero"
	// NoDataFlag emits the student marked ungraded, with no numeric grade.
	NoDataFlag NoDataPolicy = "flag"
)

// CalculatorConfig controls the trimmed-mean computation.
type CalculatorConfig struct {
	// TrimFraction is the share of scores removed from each end of the
	// sorted list before averaging. k = floor(n * TrimFraction).
	TrimFraction float64 `yaml:"trim_fraction" validate:"gte=0,lt=0.5"`

	Rounding RoundingMode `yaml:"rounding" validate:"omitempty,oneof=half_up half_even"`

	NoData NoDataPolicy `yaml:"no_data" validate:"omitempty,oneof=exclude zero flag"`
}

// DefaultCalculatorConfig returns the standard grading parameters: 10% trim
// from each end, halves rounded away from zero, scoreless students excluded.
func DefaultCalculatorConfig() CalculatorConfig {
	return CalculatorConfig{
		TrimFraction: 0.10,
		Rounding:     RoundHalfUp,
		NoData:       NoDataExclude,
	}
}

// Calculator turns a student's score list into a final grade on the 0..100
// scale using a symmetric trimmed mean.
type Calculator struct {
	cfg CalculatorConfig
}

// NewCalculator validates the configuration and returns a Calculator.
// Zero-valued Rounding and NoData fields take their defaults.
func NewCalculator(cfg CalculatorConfig) (*Calculator, error) {
	if cfg.Rounding == "" {
		cfg.Rounding = RoundHalfUp
	}
	if cfg.NoData == "" {
		cfg.NoData = NoDataExclude
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, domain.NewConfigError("grading", err.Error())
	}
	return &Calculator{cfg: cfg}, nil
}

// Finalize computes the trimmed-mean grade for one score list.
//
// The list is sorted, k = floor(n * TrimFraction) scores are dropped from
// each end, the remainder is averaged and scaled by 10. If trimming would
// leave nothing, k is reduced so at least the median-most score survives;
// the trim never empties or inverts the list. Returns domain.ErrNoScores
// for an empty input.
func (c *Calculator) Finalize(scores []int) (int, error) {
	n := len(scores)
	if n == 0 {
		return 0, domain.ErrNoScores
	}

	sorted := make([]int, n)
	copy(sorted, scores)
	sort.Ints(sorted)

	k := int(float64(n) * c.cfg.TrimFraction)
	if n-2*k < 1 {
		k = (n - 1) / 2
	}
	trimmed := sorted[k : n-k]

	sum := 0
	for _, s := range trimmed {
		sum += s
	}
	mean := float64(sum) / float64(len(trimmed))

	return c.round(mean * 10), nil
}

func (c *Calculator) round(v float64) int {
	if c.cfg.Rounding == RoundHalfEven {
		return int(math.RoundToEven(v))
	}
	return int(math.Round(v))
}

// FinalizeAll grades an aggregation snapshot and returns the results sorted
// by row index. Students with zero valid scores are handled per the
// configured NoDataPolicy.
func (c *Calculator) FinalizeAll(snapshot map[int][]int) ([]domain.FinalGrade, error) {
	if len(snapshot) == 0 {
		return nil, domain.ErrNoSheets
	}

	rows := make([]int, 0, len(snapshot))
	for row := range snapshot {
		rows = append(rows, row)
	}
	sort.Ints(rows)

	grades := make([]domain.FinalGrade, 0, len(rows))
	for _, row := range rows {
		scores := snapshot[row]
		if len(scores) == 0 {
			switch c.cfg.NoData {
			case NoDataZero:
				grades = append(grades, domain.FinalGrade{Row: row})
			case NoDataFlag:
				grades = append(grades, domain.FinalGrade{Row: row, Ungraded: true})
			}
			continue
		}
		grade, err := c.Finalize(scores)
		if err != nil {
			return nil, fmt.Errorf("grading row %d: %w", row, err)
		}
		grades = append(grades, domain.FinalGrade{
			Row:        row,
			Grade:      grade,
			ScoreCount: len(scores),
		})
	}
	return grades, nil
}
