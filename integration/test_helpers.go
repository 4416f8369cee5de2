package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vzahanych/styleai/internal/config"
	"github.com/vzahanych/styleai/internal/face"
	"github.com/vzahanych/styleai/internal/gender"
	"github.com/vzahanych/styleai/internal/logger"
	"github.com/vzahanych/styleai/internal/profile"
	"github.com/vzahanych/styleai/internal/recommend"
	"github.com/vzahanych/styleai/internal/service"
	"github.com/vzahanych/styleai/internal/state"
	"github.com/vzahanych/styleai/internal/telemetry"
	"github.com/vzahanych/styleai/internal/vision"
	"github.com/vzahanych/styleai/internal/web"
)

// TestEnvironment wires the service the way serve does, with a fixed face
// detector and a fake chat completion endpoint
type TestEnvironment struct {
	TempDir     string
	Config      *config.Config
	StateMgr    *state.Manager
	Services    *service.Manager
	Registry    *telemetry.Registry
	Recommender *recommend.Service
	Server      *web.Server
	Logger      *logger.Logger

	upstream      *httptest.Server
	upstreamCalls atomic.Int32
}

type fixedDetector struct{}

func (fixedDetector) Detect(gray *image.Gray) []face.Candidate {
	return []face.Candidate{{Rect: image.Rect(50, 50, 110, 110), Score: 9}}
}

type heuristicSource struct{}

func (heuristicSource) Estimator(ctx context.Context) gender.Estimator {
	return gender.NewHeuristicEstimator()
}

// SetupTestEnvironment creates a running environment that is torn down with the test
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	env := &TestEnvironment{TempDir: t.TempDir()}

	env.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.upstreamCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-it",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "test-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": "Wear navy and olive."},
			}},
		})
	}))
	t.Cleanup(env.upstream.Close)

	cfg := config.Default()
	cfg.DataDir = env.TempDir
	cfg.Storage.DBPath = filepath.Join(env.TempDir, "styleai.db")
	cfg.Recommender.BaseURL = env.upstream.URL
	cfg.Recommender.APIKey = "test"
	cfg.Recommender.RetryDelay = 0
	cfg.Gender.Mode = "heuristic"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Invalid test config: %v", err)
	}
	env.Config = cfg

	env.Logger = logger.NewNopLogger()

	stateMgr, err := state.NewManager(cfg.Storage.DBPath, env.Logger)
	if err != nil {
		t.Fatalf("Failed to create state manager: %v", err)
	}
	env.StateMgr = stateMgr

	env.Registry = telemetry.NewRegistry()
	env.Services = service.NewManager(env.Logger)

	pipeline := profile.NewPipeline(
		vision.NewQualityGate(cfg.Vision.BlurThreshold),
		face.NewLocator(fixedDetector{}),
		heuristicSource{},
		profile.Options{SkipGenderVerify: cfg.Profile.SkipGenderVerify},
		env.Services.GetEventBus(),
		env.Logger,
	)

	env.Recommender = env.newRecommender()

	env.Server = web.NewServer(cfg.Server, env.Logger)
	env.Server.SetDependencies(pipeline, env.Recommender)
	env.Server.SetStatsSource(stateMgr)

	env.Services.Register(state.NewRecorder(stateMgr, env.Registry, env.Logger))
	env.Services.Register(env.Recommender)

	ctx, cancel := context.WithCancel(context.Background())
	if err := env.Services.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Failed to start services: %v", err)
	}

	t.Cleanup(func() {
		defer cancel()
		shutdownCtx, shutdownCancel := ContextWithTimeout(5 * time.Second)
		defer shutdownCancel()
		_ = env.Services.Shutdown(shutdownCtx)
		stateMgr.Close()
	})

	return env
}

func (e *TestEnvironment) newRecommender() *recommend.Service {
	client := recommend.NewClient(recommend.ClientConfig{
		BaseURL: e.Config.Recommender.BaseURL,
		APIKey:  e.Config.Recommender.APIKey,
		Model:   e.Config.Recommender.Model,
		Timeout: 5 * time.Second,
	})
	return recommend.NewService(client, e.StateMgr, e.Registry, recommend.Options{
		MaxRetries: e.Config.Recommender.MaxRetries,
		RetryDelay: e.Config.Recommender.RetryDelay,
		CacheTTL:   e.Config.Recommender.CacheTTL,
	}, e.Logger)
}

// UpstreamCalls returns how many completions the fake endpoint served
func (e *TestEnvironment) UpstreamCalls() int {
	return int(e.upstreamCalls.Load())
}

// Analyze posts a photo to the analysis endpoint
func (e *TestEnvironment) Analyze(t *testing.T, photo []byte, gender, age string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("gender", gender)
	if age != "" {
		_ = w.WriteField("age", age)
	}
	part, err := w.CreateFormFile("image", "selfie.png")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	_, _ = part.Write(photo)
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	e.Server.Handler().ServeHTTP(rec, req)

	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

// CheckerboardPNG returns a sharp photo the heuristic estimator reads as Male
func CheckerboardPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if (x+y)%2 == 0 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// WaitForCondition waits for a condition to become true
func WaitForCondition(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		<-ticker.C
	}

	return false
}

// ContextWithTimeout creates a context with timeout for tests
func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
