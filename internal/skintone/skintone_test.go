package skintone

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Rect, c)
	return img
}

func TestLabelForLuma_Boundaries(t *testing.T) {
	tests := []struct {
		luma float64
		want string
	}{
		{255, Fair},
		{220, Fair},
		{219.999, Light},
		{180, Light},
		{179.999, Medium},
		{140, Medium},
		{139.999, Tan},
		{100, Tan},
		{99.999, Deep},
		{0, Deep},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LabelForLuma(tt.luma), "luma %v", tt.luma)
	}
}

func TestClassify_SolidColors(t *testing.T) {
	tests := []struct {
		name string
		c    color.RGBA
		want string
	}{
		{"white", color.RGBA{255, 255, 255, 255}, Fair},
		{"pale", color.RGBA{231, 201, 190, 255}, Light},
		{"olive", color.RGBA{190, 150, 120, 255}, Medium},
		{"brown", color.RGBA{150, 110, 80, 255}, Tan},
		{"black", color.RGBA{0, 0, 0, 255}, Deep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(solid(40, 40, tt.c), nil)
			assert.Equal(t, tt.want, res.Label)
			assert.Equal(t, float64(tt.c.R), res.R)
			assert.Equal(t, float64(tt.c.G), res.G)
			assert.Equal(t, float64(tt.c.B), res.B)
		})
	}
}

func TestClassify_LumaExact(t *testing.T) {
	res := Classify(solid(8, 8, color.RGBA{231, 201, 190, 255}), nil)
	assert.InDelta(t, 0.2126*231+0.7152*201+0.0722*190, res.Luma, 1e-9)
	assert.Equal(t, "#e7c9be", res.Hex)
	assert.Equal(t, "Light (R=231,G=201,B=190)", res.String())
}

func TestClassify_CenterBoxOnly(t *testing.T) {
	// Dark frame around a white center box [25,75) x [25,75)
	img := solid(100, 100, color.RGBA{0, 0, 0, 255})
	fill(img, image.Rect(25, 25, 75, 75), color.RGBA{255, 255, 255, 255})

	res := Classify(img, nil)
	assert.Equal(t, Fair, res.Label)
	assert.Equal(t, 255.0, res.R)
}

func TestClassify_UsesRegion(t *testing.T) {
	img := solid(100, 100, color.RGBA{255, 255, 255, 255})
	fill(img, image.Rect(0, 0, 20, 20), color.RGBA{40, 30, 20, 255})

	region := image.Rect(0, 0, 20, 20)
	assert.Equal(t, Deep, Classify(img, &region).Label)
}

func TestClassify_RegionClampedOrEmpty(t *testing.T) {
	img := solid(100, 100, color.RGBA{255, 255, 255, 255})
	fill(img, image.Rect(90, 90, 100, 100), color.RGBA{10, 10, 10, 255})

	partly := image.Rect(90, 90, 200, 200)
	assert.Equal(t, Deep, Classify(img, &partly).Label)

	outside := image.Rect(300, 300, 400, 400)
	assert.Equal(t, Fair, Classify(img, &outside).Label, "falls back to the center box")
}

func TestClassify_TinyImages(t *testing.T) {
	// 1x1 has an empty center box and samples the whole image
	res := Classify(solid(1, 1, color.RGBA{200, 200, 200, 255}), nil)
	assert.Equal(t, Light, res.Label)

	assert.Equal(t, Deep, Classify(image.NewRGBA(image.Rectangle{}), nil).Label)
	assert.Equal(t, Deep, Classify(nil, nil).Label)
}

func TestClassify_NonZeroOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(50, 50, 150, 150))
	fill(img, img.Rect, color.RGBA{0, 0, 0, 255})
	fill(img, image.Rect(75, 75, 125, 125), color.RGBA{255, 255, 255, 255})

	assert.Equal(t, Fair, Classify(img, nil).Label)
}

func TestClassifyBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(20, 20, color.RGBA{150, 110, 80, 255})))

	assert.Equal(t, Tan, ClassifyBytes(buf.Bytes()).Label)

	res := ClassifyBytes([]byte("not an image"))
	assert.Equal(t, Unknown, res.Label)
	assert.Equal(t, Unknown, res.String())
	assert.Equal(t, Unknown, ClassifyBytes(nil).Label)
}
