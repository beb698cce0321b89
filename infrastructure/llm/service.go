package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/Jakedoes1111/BrandBible-sub001/internal/ports"
)

// RequestConfig tunes a single trip through the orchestration pipeline.
// Zero values fall back to the service defaults.
type RequestConfig struct {
	// Retry overrides the backoff policy for this request.
	Retry *RetryPolicy

	// Timeout bounds each attempt. The deadline sits inside the retry loop
	// so every attempt gets a fresh one.
	Timeout time.Duration

	// Cache enables response caching under CacheKey.
	Cache bool

	// CacheKey identifies the logical request; derive it with CacheKey so
	// it is content-addressed. Required when Cache is set.
	CacheKey string

	// CacheTTL overrides the cache default for this entry.
	CacheTTL time.Duration
}

// ServiceConfig assembles a Service. Only Caller is strictly required for
// generation; everything else has working defaults.
type ServiceConfig struct {
	// Caller performs the actual model requests, usually a ProviderRouter
	// wrapped in middleware.
	Caller ModelCaller

	// Registry is the static model table. Defaults to DefaultRegistry.
	Registry *ModelRegistry

	// RateLimit holds the sliding-window budgets.
	RateLimit RateLimitConfig

	// Retry is the default backoff policy.
	Retry RetryPolicy

	// Timeout is the default per-attempt deadline.
	Timeout time.Duration

	// CacheTTL is the default response cache TTL.
	CacheTTL time.Duration

	// QueuePollInterval is how often the queue drain loop re-checks the
	// limiter after a denial.
	QueuePollInterval time.Duration

	// Metrics receives queue depth and cache hit/miss observations.
	// Optional.
	Metrics ports.MetricsCollector
}

// Service is the orchestration layer's entry point. It owns the rate
// limiter, request queue, response cache, and model registry; every request
// flows through admission control, retry with per-attempt timeouts, and
// optional caching. One instance per process, injected into callers —
// explicit state instead of the usual sprawl of globals.
type Service struct {
	caller   ModelCaller
	registry *ModelRegistry
	limiter  *SlidingWindowLimiter
	queue    *RequestQueue
	cache    *ResponseCache
	metrics  ports.MetricsCollector

	retry    RetryPolicy
	timeout  time.Duration
	cacheTTL time.Duration
}

// QueueStatus is a diagnostic snapshot of admission state.
type QueueStatus struct {
	QueueLength        int
	RequestsLastMinute int
	RequestsLastHour   int
}

// NewService builds a Service from cfg, filling defaults for zero fields.
func NewService(cfg ServiceConfig) *Service {
	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	if cfg.RateLimit.RequestsPerMinute == 0 && cfg.RateLimit.RequestsPerHour == 0 {
		cfg.RateLimit = DefaultRateLimitConfig()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}

	limiter := NewSlidingWindowLimiter(cfg.RateLimit)

	s := &Service{
		caller:   cfg.Caller,
		registry: registry,
		limiter:  limiter,
		queue:    NewRequestQueue(limiter, cfg.QueuePollInterval),
		cache:    NewResponseCache(cfg.CacheTTL),
		metrics:  cfg.Metrics,
		retry:    cfg.Retry.withDefaults(),
		timeout:  cfg.Timeout,
		cacheTTL: cfg.CacheTTL,
	}
	// Depth is observed under the queue lock so concurrent enqueuers never
	// report stale values.
	s.queue.onDepth = func(depth int) {
		s.gauge("queue_depth", float64(depth))
	}
	return s
}

// Registry exposes the model table for selection queries.
func (s *Service) Registry() *ModelRegistry { return s.registry }

// Cache exposes the response cache for explicit invalidation, e.g. clearing
// a task's entries after a brand profile changes.
func (s *Service) Cache() *ResponseCache { return s.cache }

// Do runs an arbitrary operation through the full pipeline: cache lookup,
// rate-limit admission (queueing instead of dropping when over budget),
// retry with a fresh per-attempt deadline, and cache store on success.
// Errors from op are propagated unchanged.
func (s *Service) Do(ctx context.Context, op Operation, cfg RequestConfig) (any, error) {
	if cfg.Cache && cfg.CacheKey != "" {
		if value, ok := s.cache.Get(cfg.CacheKey); ok {
			s.count("cache_hits_total")
			return value, nil
		}
		s.count("cache_misses_total")
	}

	policy := s.retry
	if cfg.Retry != nil {
		policy = cfg.Retry.withDefaults()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}

	wrapped := func(ctx context.Context) (any, error) {
		return ExecuteWithRetry(ctx, WrapTimeout(op, timeout), policy)
	}

	value, err := s.admit(ctx, wrapped)
	if err != nil {
		return nil, err
	}

	if cfg.Cache && cfg.CacheKey != "" {
		s.cache.Set(cfg.CacheKey, value, cfg.CacheTTL)
	}
	return value, nil
}

// admit runs op immediately when the queue is empty and the limiter has
// budget; otherwise the operation joins the FIFO queue so it is deferred,
// not dropped. Checking the queue first keeps admission fair: a late
// arrival never jumps ahead of queued work.
func (s *Service) admit(ctx context.Context, op Operation) (any, error) {
	if s.queue.Len() == 0 && s.limiter.TryAcquire() {
		return op(ctx)
	}
	s.count("requests_queued_total")
	return s.queue.Enqueue(ctx, op)
}

var _ ports.GenerationClient = (*Service)(nil)

// Complete satisfies ports.GenerationClient: it sends a prompt to the named
// model through the full pipeline and returns the response text.
func (s *Service) Complete(ctx context.Context, model, prompt string, options map[string]any) (string, error) {
	value, err := s.Do(ctx, s.callOp(model, Payload{Prompt: prompt, Options: options}), RequestConfig{})
	if err != nil {
		return "", err
	}
	resp, ok := value.(*Response)
	if !ok {
		return "", fmt.Errorf("model %q returned unexpected result type %T", model, value)
	}
	return resp.Text, nil
}

// QueueStatus reports queue depth and recent request counts.
func (s *Service) QueueStatus() QueueStatus {
	return QueueStatus{
		QueueLength:        s.queue.Len(),
		RequestsLastMinute: s.limiter.CountWindow(time.Minute),
		RequestsLastHour:   s.limiter.CountWindow(time.Hour),
	}
}

func (s *Service) count(metric string) {
	if s.metrics != nil {
		s.metrics.RecordCounter(metric, 1, nil)
	}
}

func (s *Service) gauge(metric string, v float64) {
	if s.metrics != nil {
		s.metrics.RecordGauge(metric, v, nil)
	}
}
