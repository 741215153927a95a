package mask

import (
	"image"
	"image/color"
	"image/draw"
)

// Apply returns a copy of src with every region filled solid white. The
// source image is never modified. Regions outside the image bounds are
// clipped; fully out-of-bounds regions are ignored.
func Apply(src image.Image, regions []Region) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	for _, reg := range regions {
		fill := reg.Rect.Intersect(bounds)
		if fill.Empty() {
			continue
		}
		draw.Draw(dst, fill, image.White, image.Point{}, draw.Src)
	}
	return dst
}

// Outline returns a copy of src with each region traced by a red border of
// the given thickness. Used by the preview mode to calibrate the layout
// against a real scan before any page is uploaded.
func Outline(src image.Image, regions []Region, thickness int) *image.RGBA {
	if thickness < 1 {
		thickness = 1
	}
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	red := &image.Uniform{C: color.RGBA{R: 0xE5, G: 0x1C, B: 0x23, A: 0xFF}}
	for _, reg := range regions {
		r := reg.Rect
		edges := []image.Rectangle{
			image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
			image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
			image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
			image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
		}
		for _, e := range edges {
			e = e.Intersect(bounds)
			if e.Empty() {
				continue
			}
			draw.Draw(dst, e, red, image.Point{}, draw.Src)
		}
	}
	return dst
}
