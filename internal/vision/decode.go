package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Registered decoders for image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrEmptyImage is returned for zero-length input
	ErrEmptyImage = errors.New("empty image")
	// ErrUnsupportedType is returned when the bytes are not a supported image format
	ErrUnsupportedType = errors.New("unsupported image type")
)

var supportedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
}

// SniffType returns the MIME type of data or ErrUnsupportedType
func SniffType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", ErrUnsupportedType
	}
	if !supportedMIME[kind.MIME.Value] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind.MIME.Value)
	}
	return kind.MIME.Value, nil
}

// Decode sniffs and decodes an uploaded image, applying its EXIF orientation
func Decode(data []byte) (image.Image, error) {
	if _, err := SniffType(data); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return img, nil
}
