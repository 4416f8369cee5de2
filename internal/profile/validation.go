package profile

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/vzahanych/styleai/internal/gender"
	"github.com/vzahanych/styleai/internal/vision"
)

// ValidationError is a caller mistake detected before the pipeline runs
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ParseGender normalizes a declared gender to Male or Female, ignoring case
func ParseGender(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return gender.Male, nil
	case "female":
		return gender.Female, nil
	case "":
		return "", &ValidationError{Field: "gender", Message: "gender is required."}
	default:
		return "", &ValidationError{Field: "gender", Message: "gender must be Male or Female."}
	}
}

// ParseAgeGroup accepts an empty string or one of AgeGroups
func ParseAgeGroup(s string) (AgeGroup, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	for _, g := range AgeGroups {
		if string(g) == s {
			return g, nil
		}
	}
	return "", &ValidationError{Field: "age", Message: "age group must be one of 0-9, 10-15, 16-25, 25-above."}
}

// Request is a validated pipeline input
type Request struct {
	ID             string
	Image          image.Image
	DeclaredGender string
	AgeGroup       AgeGroup
}

// NewRequest validates the declared fields and decodes the upload
func NewRequest(data []byte, declaredGender, ageGroup string) (Request, error) {
	g, err := ParseGender(declaredGender)
	if err != nil {
		return Request{}, err
	}
	age, err := ParseAgeGroup(ageGroup)
	if err != nil {
		return Request{}, err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return Request{}, err
	}
	return Request{Image: img, DeclaredGender: g, AgeGroup: age}, nil
}

// DecodeImage decodes an upload, mapping failures to ValidationError
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Field: "image", Message: "no image uploaded."}
	}

	img, err := vision.Decode(data)
	switch {
	case err == nil:
		return img, nil
	case errors.Is(err, vision.ErrUnsupportedType):
		return nil, &ValidationError{Field: "image", Message: "unsupported image type.", Err: err}
	default:
		return nil, &ValidationError{Field: "image", Message: "could not decode image.", Err: err}
	}
}
