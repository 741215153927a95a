package mask

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peermark/internal/domain"
)

func TestRegionsFor(t *testing.T) {
	layout := DefaultLayout()

	tests := []struct {
		name        string
		pageW       int
		pageH       int
		rowCount    int
		wantRegions int
		wantErr     bool
	}{
		{
			name:  "full sheet yields two regions per row",
			pageW: 2484, pageH: 3475, rowCount: 37,
			wantRegions: 74,
		},
		{
			name:  "left column only",
			pageW: 2484, pageH: 3475, rowCount: 12,
			wantRegions: 24,
		},
		{
			name:  "scaled page",
			pageW: 2000, pageH: 2800, rowCount: 37,
			wantRegions: 74,
		},
		{
			name:  "zero rows rejected",
			pageW: 2484, pageH: 3475, rowCount: 0,
			wantErr: true,
		},
		{
			name:  "row count above template rejected",
			pageW: 2484, pageH: 3475, rowCount: 38,
			wantErr: true,
		},
		{
			name:  "non-positive page rejected",
			pageW: 0, pageH: 3475, rowCount: 10,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regions, err := layout.RegionsFor(tt.pageW, tt.pageH, tt.rowCount)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Len(t, regions, tt.wantRegions)
		})
	}
}

func TestRegionsForGeometry(t *testing.T) {
	layout := DefaultLayout()
	regions, err := layout.RegionsFor(2000, 2800, 37)
	require.NoError(t, err)

	page := image.Rect(0, 0, 2000, 2800)
	rows := make(map[int][]RegionKind)
	for i, reg := range regions {
		assert.True(t, reg.Rect.In(page), "region %d out of page bounds: %v", i, reg.Rect)
		assert.False(t, reg.Rect.Empty(), "region %d empty", i)
		rows[reg.Row] = append(rows[reg.Row], reg.Kind)

		for j := i + 1; j < len(regions); j++ {
			assert.True(t, reg.Rect.Intersect(regions[j].Rect).Empty(),
				"regions %d and %d overlap", i, j)
		}
	}

	require.Len(t, rows, 37)
	for row, kinds := range rows {
		assert.ElementsMatch(t, []RegionKind{KindRollNumber, KindName}, kinds,
			"row %d has wrong region kinds", row)
	}
}

func TestRubricRegion(t *testing.T) {
	reg := DefaultLayout().RubricRegion(2484, 3475)

	assert.Equal(t, KindRubric, reg.Kind)
	assert.Equal(t, image.Rect(147, 2085, 2008, 3147), reg.Rect)
}

func TestFromConfig(t *testing.T) {
	cfg := LayoutConfig{
		Blocks: []BlockConfig{
			{Left: 0.1, Top: 0.1, Right: 0.4, Bottom: 0.6, StartRow: 1, EndRow: 10, RollSplit: 0.5},
		},
		Rubric: RectConfig{Left: 0.1, Top: 0.7, Right: 0.9, Bottom: 0.95},
	}

	layout, err := FromConfig(cfg)
	require.NoError(t, err)

	regions, err := layout.RegionsFor(1000, 1000, 10)
	require.NoError(t, err)
	assert.Len(t, regions, 20)
	assert.Equal(t, image.Rect(100, 700, 900, 950), layout.RubricRegion(1000, 1000).Rect)

	cfg.Blocks[0].Right = 0.05
	_, err = FromConfig(cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	cfg.Blocks[0].Right = 0.4
	cfg.Blocks[0].EndRow = 0
	_, err = FromConfig(cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestApply(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	black := color.RGBA{A: 0xFF}
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			src.SetRGBA(x, y, black)
		}
	}

	regions := []Region{
		{Rect: image.Rect(10, 10, 30, 20), Row: 1, Kind: KindRollNumber},
		{Rect: image.Rect(90, 90, 150, 150), Row: 2, Kind: KindName}, // clipped
		{Rect: image.Rect(200, 200, 300, 300), Row: 3, Kind: KindName}, // discarded
	}
	dst := Apply(src, regions)

	white := color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	assert.Equal(t, white, dst.RGBAAt(15, 15), "inside a region")
	assert.Equal(t, white, dst.RGBAAt(95, 95), "inside the clipped region")
	assert.Equal(t, black, dst.RGBAAt(50, 50), "outside all regions")
	assert.Equal(t, black, src.RGBAAt(15, 15), "source left untouched")
}

func TestOutline(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 50))
	dst := Outline(src, []Region{{Rect: image.Rect(10, 10, 40, 40)}}, 2)

	border := dst.RGBAAt(10, 10)
	assert.NotEqual(t, uint8(0), border.R, "border pixel painted")
	interior := dst.RGBAAt(25, 25)
	assert.Equal(t, color.RGBA{}, interior, "interior left untouched")
}
