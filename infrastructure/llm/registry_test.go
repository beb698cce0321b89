package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptors() []ModelDescriptor {
	return []ModelDescriptor{
		{
			Name:         "alpha",
			Provider:     "openai",
			Capabilities: Capabilities{Text: true, StructuredOutput: true, CostTier: 3},
			RateLimits:   RateLimits{PerMinute: 60, PerDay: 1000},
			Fallbacks:    []string{"beta", "gamma"},
		},
		{
			Name:         "beta",
			Provider:     "anthropic",
			Capabilities: Capabilities{Text: true, CostTier: 1},
			RateLimits:   RateLimits{PerMinute: 30, PerDay: 500},
			Fallbacks:    []string{"gamma"},
		},
		{
			Name:         "gamma",
			Provider:     "google",
			Capabilities: Capabilities{Text: true, StructuredOutput: true, CostTier: 0},
			RateLimits:   RateLimits{PerMinute: 10, PerDay: 100},
		},
		{
			Name:         "painter",
			Provider:     "google",
			Capabilities: Capabilities{Images: true, CostTier: 2},
			RateLimits:   RateLimits{PerMinute: 5, PerDay: 50},
		},
	}
}

func testBindings() map[TaskKind]TaskBinding {
	return map[TaskKind]TaskBinding{
		TaskBulkContent:    {Primary: "beta"},
		TaskBrandAnalysis:  {Primary: "alpha", Fallbacks: []string{"gamma"}},
		TaskLogoGeneration: {Primary: "painter"},
	}
}

func newTestRegistry(t *testing.T) *ModelRegistry {
	t.Helper()
	r, err := NewModelRegistry(testDescriptors(), testBindings())
	require.NoError(t, err)
	return r
}

func TestNewModelRegistry_RejectsDuplicateModels(t *testing.T) {
	descriptors := testDescriptors()
	descriptors = append(descriptors, descriptors[0])

	_, err := NewModelRegistry(descriptors, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewModelRegistry_RejectsUnknownPrimary(t *testing.T) {
	bindings := map[TaskKind]TaskBinding{
		TaskBulkContent: {Primary: "does-not-exist"},
	}

	_, err := NewModelRegistry(testDescriptors(), bindings)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown primary")
}

func TestNewModelRegistry_AllowsDanglingFallbacks(t *testing.T) {
	// Fallback names may point at models a deployment has disabled; they
	// are skipped at call time rather than rejected at load time.
	descriptors := []ModelDescriptor{
		{Name: "solo", Provider: "openai", Fallbacks: []string{"retired-model"}},
	}

	_, err := NewModelRegistry(descriptors, nil)

	assert.NoError(t, err)
}

func TestResolvePrimaryModel_UsesTaskBinding(t *testing.T) {
	r := newTestRegistry(t)

	model, err := r.ResolvePrimaryModel(TaskBulkContent, "", Requirements{})

	require.NoError(t, err)
	assert.Equal(t, "beta", model)
}

func TestResolvePrimaryModel_OverrideWinsWhenKnown(t *testing.T) {
	r := newTestRegistry(t)

	model, err := r.ResolvePrimaryModel(TaskBulkContent, "gamma", Requirements{})

	require.NoError(t, err)
	assert.Equal(t, "gamma", model)
}

func TestResolvePrimaryModel_UnknownOverrideFallsBackToBinding(t *testing.T) {
	r := newTestRegistry(t)

	model, err := r.ResolvePrimaryModel(TaskBulkContent, "no-such-model", Requirements{})

	require.NoError(t, err)
	assert.Equal(t, "beta", model)
}

func TestResolvePrimaryModel_OverrideMustSatisfyRequirements(t *testing.T) {
	r := newTestRegistry(t)

	// beta cannot produce structured output, so the override is ignored.
	model, err := r.ResolvePrimaryModel(TaskBrandAnalysis, "beta", Requirements{StructuredOutput: true})

	require.NoError(t, err)
	assert.Equal(t, "alpha", model)
}

func TestResolvePrimaryModel_UnboundTaskFails(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.ResolvePrimaryModel(TaskVideoGeneration, "", Requirements{})

	assert.Error(t, err)
}

func TestResolveFallbacks_ReturnsCopy(t *testing.T) {
	r := newTestRegistry(t)

	fallbacks := r.ResolveFallbacks("alpha")
	require.Equal(t, []string{"beta", "gamma"}, fallbacks)

	// Mutating the returned slice must not corrupt the registry.
	fallbacks[0] = "mutated"
	assert.Equal(t, []string{"beta", "gamma"}, r.ResolveFallbacks("alpha"))
}

func TestTaskFallbacks_OverridesModelList(t *testing.T) {
	r := newTestRegistry(t)

	assert.Equal(t, []string{"gamma"}, r.TaskFallbacks(TaskBrandAnalysis))
	assert.Nil(t, r.TaskFallbacks(TaskBulkContent), "a binding without fallbacks defers to the model's own list")
}

func TestSelectBestModel_PrefersLowCost(t *testing.T) {
	r := newTestRegistry(t)

	model, ok := r.SelectBestModel(Requirements{Text: true, PreferLowCost: true})

	require.True(t, ok)
	assert.Equal(t, "gamma", model, "gamma carries the lowest cost tier")
}

func TestSelectBestModel_RegistrationOrderWithoutCostPreference(t *testing.T) {
	r := newTestRegistry(t)

	model, ok := r.SelectBestModel(Requirements{Text: true})

	require.True(t, ok)
	assert.Equal(t, "alpha", model)
}

func TestSelectBestModel_FiltersByCapabilityAndBudget(t *testing.T) {
	r := newTestRegistry(t)

	images, ok := r.SelectBestModel(Requirements{Images: true})
	require.True(t, ok)
	assert.Equal(t, "painter", images)

	busy, ok := r.SelectBestModel(Requirements{Text: true, MinPerMinute: 50})
	require.True(t, ok)
	assert.Equal(t, "alpha", busy)

	_, ok = r.SelectBestModel(Requirements{Video: true})
	assert.False(t, ok)
}

func TestUnknownModelError_SuggestsClosestMatch(t *testing.T) {
	r := newTestRegistry(t)

	err := r.UnknownModelError("alhpa")

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, KindModelUnavailable, reqErr.Kind)
	assert.Contains(t, reqErr.Message, `"alpha"`, "a near miss should name the closest known model")
}

func TestUnknownModelError_NoSuggestionForDistantNames(t *testing.T) {
	r := newTestRegistry(t)

	err := r.UnknownModelError("totally-unrelated-name")

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.NotContains(t, reqErr.Message, "closest")
}

func TestDefaultRegistry_IsValid(t *testing.T) {
	r := DefaultRegistry()

	assert.Greater(t, r.Size(), 0)
	for task := range DefaultTaskBindings {
		model, err := r.ResolvePrimaryModel(task, "", Requirements{})
		require.NoError(t, err, string(task))
		_, known := r.Lookup(model)
		assert.True(t, known, string(task))
	}
}
