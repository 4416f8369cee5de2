package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/vzahanych/styleai/internal/logger"
	"github.com/vzahanych/styleai/internal/service"
	"github.com/vzahanych/styleai/internal/state"
	"github.com/vzahanych/styleai/internal/telemetry"
)

// ErrUpstream means the recommendation model could not be reached after retries
var ErrUpstream = errors.New("recommendation service unavailable")

// Completer turns a prompt into text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Store persists recommendations between restarts
type Store interface {
	GetRecommendation(ctx context.Context, key string) (*state.CachedRecommendation, bool, error)
	SaveRecommendation(ctx context.Context, rec state.CachedRecommendation, ttl time.Duration) error
}

// Options control retries and caching
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	// CacheTTL of zero or less disables both cache tiers
	CacheTTL time.Duration
}

// Source tells where a recommendation came from
type Source string

const (
	SourceMemory   Source = "memory"
	SourceDatabase Source = "database"
	SourceModel    Source = "model"
)

// Service answers queries from memory, then the database, then the model
type Service struct {
	*service.ServiceBase
	completer Completer
	store     Store
	mem       *cache.Cache
	registry  *telemetry.Registry
	opts      Options
}

// NewService creates a recommender. store and registry may be nil.
func NewService(completer Completer, store Store, registry *telemetry.Registry, opts Options, log *logger.Logger) *Service {
	s := &Service{
		ServiceBase: service.NewServiceBase("recommender", log),
		completer:   completer,
		store:       store,
		registry:    registry,
		opts:        opts,
	}
	if opts.CacheTTL > 0 {
		s.mem = cache.New(opts.CacheTTL, opts.CacheTTL*2)
	}
	return s
}

// Start marks the recommender running; it has no background work
func (s *Service) Start(ctx context.Context) error {
	s.GetStatus().SetStatus(service.StatusRunning)
	s.LogInfo("Recommender ready",
		"model", s.completer.Model(),
		"cache", s.cachingEnabled(),
	)
	return nil
}

// Stop flushes the memory cache
func (s *Service) Stop(ctx context.Context) error {
	if s.mem != nil {
		s.mem.Flush()
	}
	s.GetStatus().SetStatus(service.StatusStopped)
	return nil
}

func (s *Service) cachingEnabled() bool {
	return s.opts.CacheTTL > 0
}

// Recommend returns styling advice for q
func (s *Service) Recommend(ctx context.Context, q Query) (string, error) {
	text, _, err := s.RecommendWithSource(ctx, q)
	return text, err
}

// RecommendWithSource is Recommend that also reports which tier answered
func (s *Service) RecommendWithSource(ctx context.Context, q Query) (string, Source, error) {
	key := q.CacheKey()

	if s.cachingEnabled() {
		if v, ok := s.mem.Get(key); ok {
			s.count(ctx, SourceMemory)
			return v.(string), SourceMemory, nil
		}

		if s.store != nil {
			rec, ok, err := s.store.GetRecommendation(ctx, key)
			if err != nil {
				s.LogWarn("Recommendation cache lookup failed", "key", key, "error", err)
			} else if ok {
				s.mem.SetDefault(key, rec.Text)
				s.count(ctx, SourceDatabase)
				return rec.Text, SourceDatabase, nil
			}
		}
	}

	text, err := s.RecommendWithRetry(ctx, BuildPrompt(q))
	if err != nil {
		s.PublishEvent(service.EventTypeRecommendationFailed, map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return "", "", err
	}
	s.count(ctx, SourceModel)
	s.PublishEvent(service.EventTypeRecommendationGenerated, map[string]interface{}{
		"key":   key,
		"model": s.completer.Model(),
	})

	if s.cachingEnabled() {
		s.mem.SetDefault(key, text)
		if s.store != nil {
			rec := state.CachedRecommendation{Key: key, Text: text, Model: s.completer.Model()}
			if err := s.store.SaveRecommendation(context.WithoutCancel(ctx), rec, s.opts.CacheTTL); err != nil {
				s.LogWarn("Failed to persist recommendation", "key", key, "error", err)
			}
		}
	}

	return text, SourceModel, nil
}

// RecommendWithRetry calls the model up to MaxRetries+1 times.
// The final failure is wrapped in ErrUpstream.
func (s *Service) RecommendWithRetry(ctx context.Context, prompt string) (string, error) {
	attempts := s.opts.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUpstream, ctx.Err())
			case <-time.After(s.opts.RetryDelay):
			}
		}

		text, err := s.completer.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		s.LogWarn("Recommendation attempt failed",
			"attempt", i+1,
			"max_attempts", attempts,
			"error", err,
		)
	}

	return "", fmt.Errorf("%w: %v", ErrUpstream, lastErr)
}

func (s *Service) count(ctx context.Context, src Source) {
	if s.registry == nil {
		return
	}
	s.registry.Inc(ctx, telemetry.CounterRecommendations, map[string]string{"source": string(src)}, 1)
	if src != SourceModel {
		s.registry.Inc(ctx, telemetry.CounterCacheHits, map[string]string{"tier": string(src)}, 1)
	}
}
