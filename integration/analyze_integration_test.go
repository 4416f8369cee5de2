package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/vzahanych/styleai/internal/profile"
	"github.com/vzahanych/styleai/internal/recommend"
	"github.com/vzahanych/styleai/internal/service"
	"github.com/vzahanych/styleai/internal/state"
	"github.com/vzahanych/styleai/internal/telemetry"
)

// TestAnalyze_AcceptedFlow runs an upload through the pipeline, recommender and stats recorder
func TestAnalyze_AcceptedFlow(t *testing.T) {
	env := SetupTestEnvironment(t)
	photo := CheckerboardPNG(t)

	rec, body := env.Analyze(t, photo, "Male", "16-25")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["recommendations"] != "Wear navy and olive." {
		t.Errorf("Unexpected recommendations: %v", body["recommendations"])
	}
	if body["detected_gender"] != "Male" {
		t.Errorf("Expected detected gender Male, got %v", body["detected_gender"])
	}
	if body["estimator_mode"] != "heuristic" {
		t.Errorf("Expected heuristic estimator, got %v", body["estimator_mode"])
	}

	ctx := context.Background()
	recorded := WaitForCondition(2*time.Second, func() bool {
		stats, err := env.StateMgr.OutcomeCounts(ctx)
		return err == nil && stats.Accepted == 1
	})
	if !recorded {
		t.Fatal("Accepted outcome was not recorded")
	}
	if env.Registry.Value(telemetry.CounterAnalyses, map[string]string{"outcome": state.OutcomeAccepted}) != 1 {
		t.Error("Expected analyses counter to be incremented")
	}

	// Same profile is served from the in-process cache
	rec, _ = env.Analyze(t, photo, "male", "16-25")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on repeat, got %d", rec.Code)
	}
	if env.UpstreamCalls() != 1 {
		t.Errorf("Expected 1 upstream call, got %d", env.UpstreamCalls())
	}
}

// TestAnalyze_MismatchRecorded checks a gender mismatch is rejected and counted by reason
func TestAnalyze_MismatchRecorded(t *testing.T) {
	env := SetupTestEnvironment(t)

	rec, body := env.Analyze(t, CheckerboardPNG(t), "Female", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["reason"] != string(profile.ReasonMismatch) {
		t.Errorf("Expected mismatch reason, got %v", body["reason"])
	}

	ctx := context.Background()
	recorded := WaitForCondition(2*time.Second, func() bool {
		stats, err := env.StateMgr.OutcomeCounts(ctx)
		return err == nil && stats.ByReason[string(profile.ReasonMismatch)] == 1
	})
	if !recorded {
		t.Fatal("Mismatch rejection was not recorded")
	}
	if env.UpstreamCalls() != 0 {
		t.Errorf("Rejected analyses must not reach the recommender, got %d calls", env.UpstreamCalls())
	}
}

// TestRecommendations_SurviveRestart checks the database tier serves a fresh recommender
func TestRecommendations_SurviveRestart(t *testing.T) {
	env := SetupTestEnvironment(t)

	rec, body := env.Analyze(t, CheckerboardPNG(t), "Male", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	detail, _ := body["skin_tone_detail"].(map[string]interface{})
	label, _ := detail["label"].(string)
	if label == "" {
		t.Fatalf("Missing skin tone label in %v", body)
	}

	restarted := env.newRecommender()
	text, source, err := restarted.RecommendWithSource(context.Background(), recommend.Query{
		SkinToneLabel: label,
		Gender:        "Male",
	})
	if err != nil {
		t.Fatalf("RecommendWithSource failed: %v", err)
	}
	if text != "Wear navy and olive." {
		t.Errorf("Unexpected text %q", text)
	}
	if source != recommend.SourceDatabase {
		t.Errorf("Expected database source, got %s", source)
	}
	if env.UpstreamCalls() != 1 {
		t.Errorf("Expected 1 upstream call, got %d", env.UpstreamCalls())
	}
}

// TestServiceManager_Lifecycle checks every registered service reports running then stopped
func TestServiceManager_Lifecycle(t *testing.T) {
	env := SetupTestEnvironment(t)

	for name, status := range env.Services.GetAllStatuses() {
		if status.GetStatus() != service.StatusRunning {
			t.Errorf("Service %s: expected %v, got %v", name, service.StatusRunning, status.GetStatus())
		}
	}

	ctx, cancel := ContextWithTimeout(5 * time.Second)
	defer cancel()
	if err := env.Services.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	for name, status := range env.Services.GetAllStatuses() {
		if status.GetStatus() != service.StatusStopped {
			t.Errorf("Service %s: expected %v, got %v", name, service.StatusStopped, status.GetStatus())
		}
	}
}
