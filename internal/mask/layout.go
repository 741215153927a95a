// Package mask computes and blanks the identity regions of a scanned score
// sheet so that roll numbers, student names and the rubric never leave the
// machine when a page is sent to a transcription provider.
package mask

import (
	"fmt"
	"image"

	"peermark/internal/domain"
)

// RegionKind labels what a masked rectangle covers.
type RegionKind string

const (
	KindRollNumber RegionKind = "roll_number"
	KindName       RegionKind = "name"
	KindRubric     RegionKind = "rubric"
)

// Region is one rectangle to blank, in pixel coordinates of the rendered
// page. Row is zero for the rubric band.
type Region struct {
	Rect image.Rectangle
	Row  int
	Kind RegionKind
}

type rectF struct {
	x0, y0, x1, y1 float64
}

// columnBlock describes one printed column of the sheet as fractions of the
// page, so the layout scales with whatever DPI the page was rendered at.
type columnBlock struct {
	bounds   rectF
	startRow int
	endRow   int
	// rollSplit is the share of the block width taken by the roll-number
	// cell; the remainder is the name cell.
	rollSplit float64
}

// Layout is the fractional geometry of the sheet template: where the
// identity columns and the rubric sit on the page.
type Layout struct {
	blocks []columnBlock
	rubric rectF
}

// DefaultLayout returns the geometry of the standard two-column sheet.
// Rows 1-18 run down the left column and rows 19-37 down the right; the
// rubric band sits below both. The fractions were measured on a reference
// scan of 2484x3475 pixels (A4 at 300 DPI).
func DefaultLayout() Layout {
	return Layout{
		blocks: []columnBlock{
			{
				bounds:   rectF{x0: 339.0 / 2484, y0: 394.0 / 3475, x1: 835.0 / 2484, y1: 1946.0 / 3475},
				startRow: 1, endRow: 18,
				rollSplit: 0.42,
			},
			{
				bounds:   rectF{x0: 1319.0 / 2484, y0: 404.0 / 3475, x1: 1808.0 / 2484, y1: 2067.0 / 3475},
				startRow: 19, endRow: 37,
				rollSplit: 0.42,
			},
		},
		rubric: rectF{x0: 147.0 / 2484, y0: 2085.0 / 3475, x1: 2008.0 / 2484, y1: 3147.0 / 3475},
	}
}

// BlockConfig is the YAML shape of one identity column block, in page
// fractions.
type BlockConfig struct {
	Left      float64 `yaml:"left" validate:"gte=0,lt=1"`
	Top       float64 `yaml:"top" validate:"gte=0,lt=1"`
	Right     float64 `yaml:"right" validate:"gt=0,lte=1"`
	Bottom    float64 `yaml:"bottom" validate:"gt=0,lte=1"`
	StartRow  int     `yaml:"start_row" validate:"required,min=1,max=37"`
	EndRow    int     `yaml:"end_row" validate:"required,min=1,max=37"`
	RollSplit float64 `yaml:"roll_split" validate:"gt=0,lt=1"`
}

// RectConfig is a page-fraction rectangle in YAML form. The zero value
// means no rectangle, so rubric masking can be left unconfigured.
type RectConfig struct {
	Left   float64 `yaml:"left" validate:"gte=0,lt=1"`
	Top    float64 `yaml:"top" validate:"gte=0,lt=1"`
	Right  float64 `yaml:"right" validate:"omitempty,gt=0,lte=1"`
	Bottom float64 `yaml:"bottom" validate:"omitempty,gt=0,lte=1"`
}

// LayoutConfig overrides the built-in sheet geometry from the run
// configuration, for forms printed from a different template.
type LayoutConfig struct {
	Blocks []BlockConfig `yaml:"blocks" validate:"required,min=1,dive"`
	Rubric RectConfig    `yaml:"rubric"`
}

// FromConfig builds a Layout from a configuration override. Field ranges
// are checked by struct tags upstream; this enforces the cross-field
// constraints tags cannot express.
func FromConfig(cfg LayoutConfig) (Layout, error) {
	layout := Layout{rubric: rectF{
		x0: cfg.Rubric.Left, y0: cfg.Rubric.Top,
		x1: cfg.Rubric.Right, y1: cfg.Rubric.Bottom,
	}}
	for i, blk := range cfg.Blocks {
		if blk.Right <= blk.Left || blk.Bottom <= blk.Top {
			return Layout{}, domain.NewConfigError("sheet.layout",
				fmt.Sprintf("block %d: bounds are inverted or empty", i+1))
		}
		if blk.EndRow < blk.StartRow {
			return Layout{}, domain.NewConfigError("sheet.layout",
				fmt.Sprintf("block %d: end_row %d before start_row %d", i+1, blk.EndRow, blk.StartRow))
		}
		layout.blocks = append(layout.blocks, columnBlock{
			bounds:    rectF{x0: blk.Left, y0: blk.Top, x1: blk.Right, y1: blk.Bottom},
			startRow:  blk.StartRow,
			endRow:    blk.EndRow,
			rollSplit: blk.RollSplit,
		})
	}
	return layout, nil
}

// RegionsFor computes the roll-number and name rectangles for the first
// rowCount rows at the given page size. Rectangles are clamped to integer
// pixel edges and never overlap.
func (l Layout) RegionsFor(pageW, pageH, rowCount int) ([]Region, error) {
	if pageW <= 0 || pageH <= 0 {
		return nil, domain.NewConfigError("mask",
			fmt.Sprintf("page dimensions %dx%d must be positive", pageW, pageH))
	}
	if rowCount < 1 || rowCount > domain.MaxRows {
		return nil, domain.NewConfigError("mask",
			fmt.Sprintf("row count %d outside 1..%d", rowCount, domain.MaxRows))
	}

	w, h := float64(pageW), float64(pageH)
	regions := make([]Region, 0, rowCount*2)

	for _, blk := range l.blocks {
		x0 := blk.bounds.x0 * w
		x1 := blk.bounds.x1 * w
		split := x0 + (x1-x0)*blk.rollSplit

		y0 := blk.bounds.y0 * h
		y1 := blk.bounds.y1 * h
		rowHeight := (y1 - y0) / float64(blk.endRow-blk.startRow+1)

		for row := blk.startRow; row <= blk.endRow && row <= rowCount; row++ {
			top := y0 + float64(row-blk.startRow)*rowHeight
			bottom := top + rowHeight

			regions = append(regions,
				Region{
					Rect: image.Rect(int(x0), int(top), int(split), int(bottom)),
					Row:  row,
					Kind: KindRollNumber,
				},
				Region{
					Rect: image.Rect(int(split), int(top), int(x1), int(bottom)),
					Row:  row,
					Kind: KindName,
				},
			)
		}
	}
	return regions, nil
}

// RubricRegion returns the rectangle covering the grading-rubric band at the
// bottom of the sheet.
func (l Layout) RubricRegion(pageW, pageH int) Region {
	w, h := float64(pageW), float64(pageH)
	return Region{
		Rect: image.Rect(
			int(l.rubric.x0*w), int(l.rubric.y0*h),
			int(l.rubric.x1*w), int(l.rubric.y1*h),
		),
		Kind: KindRubric,
	}
}
