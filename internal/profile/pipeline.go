package profile

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/vzahanych/styleai/internal/face"
	"github.com/vzahanych/styleai/internal/gender"
	"github.com/vzahanych/styleai/internal/logger"
	"github.com/vzahanych/styleai/internal/service"
	"github.com/vzahanych/styleai/internal/skintone"
)

// QualityGate decides whether an image is too blurry to analyse
type QualityGate interface {
	IsBlurry(img image.Image) bool
}

// FaceLocator finds the most prominent face
type FaceLocator interface {
	Locate(img image.Image) (*face.Region, bool)
}

// EstimatorSource yields the process-wide gender estimator
type EstimatorSource interface {
	Estimator(ctx context.Context) gender.Estimator
}

// Options tune the pipeline
type Options struct {
	// SkipGenderVerify disables the declared/detected gender gate
	SkipGenderVerify bool
}

// Pipeline runs QUALITY_CHECK, FACE_DETECT, GENDER_ESTIMATE, GENDER_VERIFY and
// SKIN_TONE in order, stopping at the first rejection.
type Pipeline struct {
	quality    QualityGate
	locator    FaceLocator
	estimators EstimatorSource
	opts       Options
	bus        *service.EventBus
	logger     *logger.Logger
}

// NewPipeline creates a pipeline. bus may be nil.
func NewPipeline(quality QualityGate, locator FaceLocator, estimators EstimatorSource, opts Options, bus *service.EventBus, log *logger.Logger) *Pipeline {
	return &Pipeline{
		quality:    quality,
		locator:    locator,
		estimators: estimators,
		opts:       opts,
		bus:        bus,
		logger:     log.Named("profile"),
	}
}

type stageTimer struct {
	start  time.Time
	fields []interface{}
}

func (t *stageTimer) done(s Stage) {
	now := time.Now()
	t.fields = append(t.fields, string(s), now.Sub(t.start).String())
	t.start = now
}

// Run executes the pipeline. Rejections are returned as a Profile with Accepted false;
// an error means the request itself was invalid.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Profile, error) {
	declared, err := ParseGender(req.DeclaredGender)
	if err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	prof := &Profile{
		AnalysisID:     id,
		DeclaredGender: declared,
		AgeGroup:       req.AgeGroup,
	}
	timer := &stageTimer{start: time.Now()}

	prof.Stage = StageQualityCheck
	blurry := p.quality.IsBlurry(req.Image)
	timer.done(StageQualityCheck)
	if blurry {
		return p.reject(prof, timer, &Rejection{Reason: ReasonBlur, Message: MessageBlur}), nil
	}

	prof.Stage = StageFaceDetect
	region, found := p.locator.Locate(req.Image)
	timer.done(StageFaceDetect)
	if !found {
		return p.reject(prof, timer, &Rejection{Reason: ReasonNoFace, Message: MessageNoFace}), nil
	}

	prof.Stage = StageGenderEstimate
	est, err := p.estimators.Estimator(ctx).Estimate(region.Color, region.Gray)
	if err != nil {
		return nil, fmt.Errorf("gender estimation failed: %w", err)
	}
	timer.done(StageGenderEstimate)
	prof.DetectedGender = est.Label
	prof.Confidence = est.Confidence
	prof.EstimatorMode = est.Mode

	if !p.opts.SkipGenderVerify {
		prof.Stage = StageGenderVerify
		if est.Label != declared {
			timer.done(StageGenderVerify)
			return p.reject(prof, timer, &Rejection{
				Reason:     ReasonMismatch,
				Message:    fmt.Sprintf("detected gender %s does not match declared gender %s.", est.Label, declared),
				Declared:   declared,
				Detected:   est.Label,
				Confidence: est.Confidence,
			}), nil
		}
		timer.done(StageGenderVerify)
	}

	prof.Stage = StageSkinTone
	tone := skintone.Classify(req.Image, &region.Rect)
	timer.done(StageSkinTone)
	prof.SkinTone = &tone

	prof.Stage = StageAccepted
	prof.Accepted = true

	p.logger.Debug("Profile accepted", append([]interface{}{
		"analysis_id", id,
		"skin_tone", tone.Label,
		"detected_gender", est.Label,
		"estimator_mode", est.Mode,
	}, timer.fields...)...)
	p.publish(service.EventTypeProfileAccepted, prof, "")

	return prof, nil
}

func (p *Pipeline) reject(prof *Profile, timer *stageTimer, r *Rejection) *Profile {
	prof.Rejection = r

	p.logger.Debug("Profile rejected", append([]interface{}{
		"analysis_id", prof.AnalysisID,
		"reason", r.Reason,
		"stage", prof.Stage,
	}, timer.fields...)...)
	p.publish(service.EventTypeProfileRejected, prof, string(r.Reason))

	return prof
}

func (p *Pipeline) publish(t service.EventType, prof *Profile, reason string) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(service.Event{
		Type:   t,
		Source: "profile",
		Data: map[string]interface{}{
			"analysis_id":    prof.AnalysisID,
			"stage":          string(prof.Stage),
			"reason":         reason,
			"estimator_mode": string(prof.EstimatorMode),
		},
	})
}
