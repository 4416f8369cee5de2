package vision

import (
	"image"

	"github.com/disintegration/imaging"
)

// ToGray converts img to 8-bit grayscale with the BT.601 fixed-point weights
// used by OpenCV's BGR2GRAY. The result has its origin at (0, 0).
func ToGray(img image.Image) *image.Gray {
	if img == nil {
		return image.NewGray(image.Rectangle{})
	}
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}

	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		si := y * src.Stride
		di := y * dst.Stride
		for x := 0; x < w; x++ {
			r := uint32(src.Pix[si])
			g := uint32(src.Pix[si+1])
			b := uint32(src.Pix[si+2])
			dst.Pix[di+x] = uint8((r*4899 + g*9617 + b*1868 + 8192) >> 14)
			si += 4
		}
	}
	return dst
}

// Crop returns the sub-image of img within r, copied to a new image with origin (0, 0)
func Crop(img image.Image, r image.Rectangle) image.Image {
	return imaging.Crop(img, r)
}

// CropGray returns the grayscale sub-image within r with origin (0, 0)
func CropGray(g *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Intersect(g.Rect)
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+r.Dx()], g.Pix[g.PixOffset(r.Min.X, r.Min.Y+y):])
	}
	return dst
}

// Laplacian returns the response of the 3x3 kernel [0 1 0; 1 -4 1; 0 1 0]
// with reflect-101 borders, one value per pixel in row-major order.
func Laplacian(g *image.Gray) []float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	at := func(x, y int) int {
		return int(g.Pix[(y)*g.Stride+x])
	}

	out := make([]float64, 0, w*h)
	for y := 0; y < h; y++ {
		up, down := reflect101(y-1, h), reflect101(y+1, h)
		for x := 0; x < w; x++ {
			left, right := reflect101(x-1, w), reflect101(x+1, w)
			v := at(x, up) + at(x, down) + at(left, y) + at(right, y) - 4*at(x, y)
			out = append(out, float64(v))
		}
	}
	return out
}

// reflect101 maps an out-of-range index like gfedcb|abcdefgh|gfedcba
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - 2 - i
	}
	return i
}
