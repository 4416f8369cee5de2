// Package profile runs the image-derived profile pipeline: blur gate, face location,
// gender estimation and verification, and skin tone classification.
package profile

import (
	"github.com/vzahanych/styleai/internal/gender"
	"github.com/vzahanych/styleai/internal/skintone"
)

// Stage is a step of the pipeline
type Stage string

const (
	StageQualityCheck   Stage = "QUALITY_CHECK"
	StageFaceDetect     Stage = "FACE_DETECT"
	StageGenderEstimate Stage = "GENDER_ESTIMATE"
	StageGenderVerify   Stage = "GENDER_VERIFY"
	StageSkinTone       Stage = "SKIN_TONE"
	StageAccepted       Stage = "ACCEPTED"
)

// Reason identifies why a profile was rejected
type Reason string

const (
	ReasonBlur     Reason = "REJECT_BLUR"
	ReasonNoFace   Reason = "REJECT_NOFACE"
	ReasonMismatch Reason = "REJECT_MISMATCH"
)

// Rejection messages returned to callers
const (
	MessageBlur   = "image too blurry."
	MessageNoFace = "no face detected."
)

// AgeGroup is an optional age bucket used for recommendations only
type AgeGroup string

const (
	AgeUnder10   AgeGroup = "0-9"
	Age10To15    AgeGroup = "10-15"
	Age16To25    AgeGroup = "16-25"
	Age25AndOver AgeGroup = "25-above"
)

// AgeGroups lists the accepted buckets in order
var AgeGroups = []AgeGroup{AgeUnder10, Age10To15, Age16To25, Age25AndOver}

// Rejection describes a terminal pipeline rejection.
// Declared, Detected and Confidence are set for mismatches only.
type Rejection struct {
	Reason     Reason  `json:"reason"`
	Message    string  `json:"message"`
	Declared   string  `json:"declared_gender,omitempty"`
	Detected   string  `json:"detected_gender,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Profile is the outcome of one pipeline run. It is not modified after Run returns.
type Profile struct {
	AnalysisID     string           `json:"analysis_id"`
	Accepted       bool             `json:"accepted"`
	Stage          Stage            `json:"stage"`
	Rejection      *Rejection       `json:"rejection,omitempty"`
	DeclaredGender string           `json:"declared_gender"`
	DetectedGender string           `json:"detected_gender,omitempty"`
	Confidence     float64          `json:"confidence"`
	EstimatorMode  gender.Mode      `json:"estimator_mode,omitempty"`
	AgeGroup       AgeGroup         `json:"age_group,omitempty"`
	SkinTone       *skintone.Result `json:"skin_tone,omitempty"`
}
