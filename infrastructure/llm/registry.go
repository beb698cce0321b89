package llm

import (
	"fmt"
	"sync"

	"github.com/agnivade/levenshtein"
)

// TaskKind names a class of generation request used to select a default
// model, e.g. bulk social copy versus interactive chat.
type TaskKind string

// Task categories used across the brand-content pipeline.
const (
	// TaskBulkContent covers high-volume post and caption generation.
	TaskBulkContent TaskKind = "bulk_content"
	// TaskChatAssistant covers the interactive brand assistant.
	TaskChatAssistant TaskKind = "chat_assistant"
	// TaskBrandAnalysis covers structured brand-identity analysis
	// (palettes, consistency scoring) requiring JSON output.
	TaskBrandAnalysis TaskKind = "brand_analysis"
	// TaskLogoGeneration covers logo and social-image rendering.
	TaskLogoGeneration TaskKind = "logo_generation"
	// TaskVideoGeneration covers short promotional video rendering.
	TaskVideoGeneration TaskKind = "video_generation"
)

// Capabilities describes what a model can produce and at what cost tier.
type Capabilities struct {
	Text             bool `yaml:"text"`
	Images           bool `yaml:"images"`
	Video            bool `yaml:"video"`
	StructuredOutput bool `yaml:"structured_output"`
	// MaxTokens is the model's output ceiling.
	MaxTokens int `yaml:"max_tokens" validate:"min=0"`
	// CostTier orders models by expense; lower is cheaper.
	CostTier int `yaml:"cost_tier" validate:"min=0"`
}

// RateLimits holds the provider-advertised request budgets for a model.
type RateLimits struct {
	PerMinute       int `yaml:"per_minute" validate:"min=0"`
	PerDay          int `yaml:"per_day" validate:"min=0"`
	TokensPerMinute int `yaml:"tokens_per_minute" validate:"min=0"`
}

// ModelDescriptor is the static, read-only metadata for one model.
// Descriptors form a directed fallback graph; the graph is not guaranteed
// acyclic, so consumers bound total attempts instead of assuming it.
type ModelDescriptor struct {
	Name         string       `yaml:"name" validate:"required"`
	Provider     string       `yaml:"provider" validate:"required,oneof=openai anthropic google"`
	Capabilities Capabilities `yaml:"capabilities"`
	RateLimits   RateLimits   `yaml:"rate_limits"`
	// Fallbacks is the ordered list of models to try after this one fails
	// with an availability-class error.
	Fallbacks []string `yaml:"fallbacks"`
}

// TaskBinding maps a task category to its primary model and an optional
// fallback-list override. When Fallbacks is empty the primary model's own
// descriptor list applies.
type TaskBinding struct {
	Primary   string   `yaml:"primary" validate:"required"`
	Fallbacks []string `yaml:"fallbacks"`
}

// Requirements filters models during selection.
type Requirements struct {
	Text             bool
	Images           bool
	Video            bool
	StructuredOutput bool
	// MinPerMinute and MinPerDay exclude models with thinner rate budgets.
	MinPerMinute int
	MinPerDay    int
	// PreferLowCost orders candidates by ascending cost tier.
	PreferLowCost bool
}

// ModelRegistry is the static model table plus task bindings, loaded from
// configuration at process start and read-only afterward.
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[string]ModelDescriptor
	// order preserves registration order so selection without a cost
	// preference is deterministic.
	order []string
	tasks map[TaskKind]TaskBinding
}

// NewModelRegistry builds a registry from descriptors and task bindings.
// Every binding primary must name a known model; fallback names are allowed
// to dangle, they are skipped as unavailable at call time.
func NewModelRegistry(descriptors []ModelDescriptor, bindings map[TaskKind]TaskBinding) (*ModelRegistry, error) {
	r := &ModelRegistry{
		models: make(map[string]ModelDescriptor, len(descriptors)),
		tasks:  make(map[TaskKind]TaskBinding, len(bindings)),
	}

	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("model descriptor with empty name")
		}
		if _, dup := r.models[d.Name]; dup {
			return nil, fmt.Errorf("duplicate model descriptor %q", d.Name)
		}
		r.models[d.Name] = d
		r.order = append(r.order, d.Name)
	}

	for task, binding := range bindings {
		if _, known := r.models[binding.Primary]; !known {
			return nil, fmt.Errorf("task %q binds unknown primary model %q", task, binding.Primary)
		}
		r.tasks[task] = binding
	}

	return r, nil
}

// Lookup returns the descriptor for name.
func (r *ModelRegistry) Lookup(name string) (ModelDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.models[name]
	return d, ok
}

// Size reports the number of known models. The fallback router uses this to
// bound total attempts regardless of what the fallback graph looks like.
func (r *ModelRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// ResolvePrimaryModel returns the model to target for a task. A non-empty
// override wins when it names a known model satisfying req; otherwise the
// task's configured primary applies.
func (r *ModelRegistry) ResolvePrimaryModel(task TaskKind, override string, req Requirements) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if override != "" {
		if d, ok := r.models[override]; ok && satisfies(d, req) {
			return override, nil
		}
	}

	binding, ok := r.tasks[task]
	if !ok {
		return "", fmt.Errorf("no model binding for task %q", task)
	}
	return binding.Primary, nil
}

// ResolveFallbacks returns the static fallback list for a model, empty when
// the model is unknown or has none. The returned slice is a copy.
func (r *ModelRegistry) ResolveFallbacks(model string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.models[model]
	if !ok || len(d.Fallbacks) == 0 {
		return nil
	}
	out := make([]string, len(d.Fallbacks))
	copy(out, d.Fallbacks)
	return out
}

// TaskFallbacks returns the task's fallback override, or nil when the task
// is unbound or defers to the model's own list.
func (r *ModelRegistry) TaskFallbacks(task TaskKind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	binding, ok := r.tasks[task]
	if !ok || len(binding.Fallbacks) == 0 {
		return nil
	}
	out := make([]string, len(binding.Fallbacks))
	copy(out, binding.Fallbacks)
	return out
}

// SelectBestModel filters the known models by req. With PreferLowCost set it
// returns the cheapest match; otherwise the first match in registration
// order. The boolean is false when nothing qualifies.
func (r *ModelRegistry) SelectBestModel(req Requirements) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	bestTier := 0
	for _, name := range r.order {
		d := r.models[name]
		if !satisfies(d, req) {
			continue
		}
		if !req.PreferLowCost {
			return name, true
		}
		if best == "" || d.Capabilities.CostTier < bestTier {
			best = name
			bestTier = d.Capabilities.CostTier
		}
	}
	return best, best != ""
}

// UnknownModelError describes a request for a model the registry has never
// heard of, with a closest-match suggestion when one is plausible.
func (r *ModelRegistry) UnknownModelError(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	closest := ""
	closestDist := 0
	for _, known := range r.order {
		dist := levenshtein.ComputeDistance(name, known)
		if closest == "" || dist < closestDist {
			closest = known
			closestDist = dist
		}
	}

	// Only suggest near misses; a wildly different name is just unknown.
	if closest != "" && closestDist <= 3 {
		return &RequestError{
			Kind:    KindModelUnavailable,
			Model:   name,
			Message: fmt.Sprintf("unknown model %q (closest known model is %q)", name, closest),
		}
	}
	return &RequestError{
		Kind:    KindModelUnavailable,
		Model:   name,
		Message: fmt.Sprintf("unknown model %q", name),
	}
}

func satisfies(d ModelDescriptor, req Requirements) bool {
	caps := d.Capabilities
	if req.Text && !caps.Text {
		return false
	}
	if req.Images && !caps.Images {
		return false
	}
	if req.Video && !caps.Video {
		return false
	}
	if req.StructuredOutput && !caps.StructuredOutput {
		return false
	}
	if req.MinPerMinute > 0 && d.RateLimits.PerMinute < req.MinPerMinute {
		return false
	}
	if req.MinPerDay > 0 && d.RateLimits.PerDay < req.MinPerDay {
		return false
	}
	return true
}

// DefaultDescriptors lists the models the product ships with. Deployments
// override these through configuration.
var DefaultDescriptors = []ModelDescriptor{
	{
		Name:     "gemini-2.5-flash",
		Provider: "google",
		Capabilities: Capabilities{
			Text: true, StructuredOutput: true, MaxTokens: 65536, CostTier: 2,
		},
		RateLimits: RateLimits{PerMinute: 10, PerDay: 1500, TokensPerMinute: 1_000_000},
		Fallbacks:  []string{"gemini-2.0-flash", "gemini-2.0-flash-lite"},
	},
	{
		Name:     "gemini-2.5-pro",
		Provider: "google",
		Capabilities: Capabilities{
			Text: true, StructuredOutput: true, MaxTokens: 65536, CostTier: 4,
		},
		RateLimits: RateLimits{PerMinute: 5, PerDay: 100, TokensPerMinute: 250_000},
		Fallbacks:  []string{"gemini-2.5-flash", "gemini-2.0-flash"},
	},
	{
		Name:     "gemini-2.0-flash",
		Provider: "google",
		Capabilities: Capabilities{
			Text: true, StructuredOutput: true, MaxTokens: 8192, CostTier: 1,
		},
		RateLimits: RateLimits{PerMinute: 15, PerDay: 1500, TokensPerMinute: 1_000_000},
		Fallbacks:  []string{"gemini-2.0-flash-lite"},
	},
	{
		Name:     "gemini-2.0-flash-lite",
		Provider: "google",
		Capabilities: Capabilities{
			Text: true, StructuredOutput: true, MaxTokens: 8192, CostTier: 0,
		},
		RateLimits: RateLimits{PerMinute: 30, PerDay: 1500, TokensPerMinute: 1_000_000},
	},
	{
		Name:     "gpt-4o",
		Provider: "openai",
		Capabilities: Capabilities{
			Text: true, StructuredOutput: true, MaxTokens: 16384, CostTier: 4,
		},
		RateLimits: RateLimits{PerMinute: 500, PerDay: 10_000, TokensPerMinute: 30_000},
		Fallbacks:  []string{"gpt-4o-mini"},
	},
	{
		Name:     "gpt-4o-mini",
		Provider: "openai",
		Capabilities: Capabilities{
			Text: true, StructuredOutput: true, MaxTokens: 16384, CostTier: 1,
		},
		RateLimits: RateLimits{PerMinute: 500, PerDay: 10_000, TokensPerMinute: 200_000},
	},
	{
		Name:     "claude-3-5-sonnet",
		Provider: "anthropic",
		Capabilities: Capabilities{
			Text: true, StructuredOutput: true, MaxTokens: 8192, CostTier: 3,
		},
		RateLimits: RateLimits{PerMinute: 50, PerDay: 5000, TokensPerMinute: 40_000},
		Fallbacks:  []string{"claude-3-5-haiku"},
	},
	{
		Name:     "claude-3-5-haiku",
		Provider: "anthropic",
		Capabilities: Capabilities{
			Text: true, StructuredOutput: true, MaxTokens: 8192, CostTier: 1,
		},
		RateLimits: RateLimits{PerMinute: 50, PerDay: 5000, TokensPerMinute: 50_000},
	},
	{
		Name:     "imagen-3.0-generate",
		Provider: "google",
		Capabilities: Capabilities{
			Images: true, CostTier: 3,
		},
		RateLimits: RateLimits{PerMinute: 10, PerDay: 200},
		Fallbacks:  []string{"gemini-2.0-flash"},
	},
	{
		Name:     "veo-2.0-generate",
		Provider: "google",
		Capabilities: Capabilities{
			Video: true, CostTier: 5,
		},
		RateLimits: RateLimits{PerMinute: 2, PerDay: 50},
	},
}

// DefaultTaskBindings routes each product task to its stock primary model.
var DefaultTaskBindings = map[TaskKind]TaskBinding{
	TaskBulkContent:     {Primary: "gemini-2.0-flash-lite"},
	TaskChatAssistant:   {Primary: "gemini-2.5-flash"},
	TaskBrandAnalysis:   {Primary: "gemini-2.5-pro"},
	TaskLogoGeneration:  {Primary: "imagen-3.0-generate"},
	TaskVideoGeneration: {Primary: "veo-2.0-generate"},
}

// DefaultRegistry builds a registry from the stock descriptors and bindings.
// It panics only on programmer error in the defaults, which tests cover.
func DefaultRegistry() *ModelRegistry {
	r, err := NewModelRegistry(DefaultDescriptors, DefaultTaskBindings)
	if err != nil {
		panic(fmt.Sprintf("default registry is invalid: %v", err))
	}
	return r
}
