// Package skintone buckets the mean color of a face region into a named tone.
package skintone

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/vzahanych/styleai/internal/vision"
)

// Tone labels, lightest first
const (
	Fair    = "Fair"
	Light   = "Light"
	Medium  = "Medium"
	Tan     = "Tan"
	Deep    = "Deep"
	Unknown = "Unknown"
)

// Labels lists every tone Classify can return
var Labels = []string{Fair, Light, Medium, Tan, Deep}

// Result is the classified tone and the mean color it was derived from
type Result struct {
	Label string  `json:"label"`
	R     float64 `json:"r"`
	G     float64 `json:"g"`
	B     float64 `json:"b"`
	Luma  float64 `json:"luma"`
	Hex   string  `json:"hex"`
}

// String renders the result as "Fair (R=231,G=201,B=190)"
func (r Result) String() string {
	if r.Label == Unknown {
		return Unknown
	}
	return fmt.Sprintf("%s (R=%d,G=%d,B=%d)", r.Label, int(r.R), int(r.G), int(r.B))
}

// Luma returns the Rec. 709 relative luminance of an 8-bit color
func Luma(r, g, b float64) float64 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// LabelForLuma maps a luma value to its bucket
func LabelForLuma(luma float64) string {
	switch {
	case luma >= 220:
		return Fair
	case luma >= 180:
		return Light
	case luma >= 140:
		return Medium
	case luma >= 100:
		return Tan
	default:
		return Deep
	}
}

// Classify averages the pixels of region, or of the central box when region is nil,
// and labels the result. It always returns one of Labels.
func Classify(img image.Image, region *image.Rectangle) Result {
	if img == nil {
		return newResult(0, 0, 0)
	}

	r, g, b := meanRGB(img, sampleRect(img.Bounds(), region))
	return newResult(r, g, b)
}

// ClassifyBytes decodes data and classifies the central box.
// Undecodable input yields a Result labelled Unknown.
func ClassifyBytes(data []byte) Result {
	img, err := vision.Decode(data)
	if err != nil {
		return Result{Label: Unknown}
	}
	return Classify(img, nil)
}

func newResult(r, g, b float64) Result {
	luma := Luma(r, g, b)
	c := colorful.Color{R: r / 255, G: g / 255, B: b / 255}
	return Result{
		Label: LabelForLuma(luma),
		R:     r,
		G:     g,
		B:     b,
		Luma:  luma,
		Hex:   c.Clamped().Hex(),
	}
}

func sampleRect(bounds image.Rectangle, region *image.Rectangle) image.Rectangle {
	if region != nil {
		if r := region.Intersect(bounds); !r.Empty() {
			return r
		}
	}

	w, h := bounds.Dx(), bounds.Dy()
	center := image.Rect(w/4, h/4, 3*w/4, 3*h/4).Add(bounds.Min)
	if center.Empty() {
		return bounds
	}
	return center
}

func meanRGB(img image.Image, r image.Rectangle) (float64, float64, float64) {
	if r.Empty() {
		return 0, 0, 0
	}

	px := imaging.Crop(img, r)
	var sr, sg, sb uint64
	n := uint64(0)
	for i := 0; i+3 < len(px.Pix); i += 4 {
		sr += uint64(px.Pix[i])
		sg += uint64(px.Pix[i+1])
		sb += uint64(px.Pix[i+2])
		n++
	}
	if n == 0 {
		return 0, 0, 0
	}
	return float64(sr) / float64(n), float64(sg) / float64(n), float64(sb) / float64(n)
}
