package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRouter_RoutesByProvider(t *testing.T) {
	// Given one caller per provider
	registry := newTestRegistry(t)
	openaiMock := NewMockCaller()
	googleMock := NewMockCaller()
	router := NewProviderRouter(registry, map[string]ModelCaller{
		"openai": openaiMock,
		"google": googleMock,
	})

	// When calling models hosted by different providers
	_, err := router.DoRequest(context.Background(), "alpha", Payload{Prompt: "hi"})
	require.NoError(t, err)
	_, err = router.DoRequest(context.Background(), "gamma", Payload{Prompt: "hi"})
	require.NoError(t, err)

	// Then each call lands on its provider's caller
	assert.Equal(t, []string{"alpha"}, openaiMock.GetModelsSeen())
	assert.Equal(t, []string{"gamma"}, googleMock.GetModelsSeen())
}

func TestProviderRouter_UnknownModel(t *testing.T) {
	router := NewProviderRouter(newTestRegistry(t), nil)

	_, err := router.DoRequest(context.Background(), "no-such-model", Payload{})

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, KindModelUnavailable, reqErr.Kind)
	assert.True(t, IsModelUnavailable(err), "unknown models must trigger fallback, not abort")
}

func TestProviderRouter_MissingProviderCaller(t *testing.T) {
	// Given a deployment with no anthropic credentials
	router := NewProviderRouter(newTestRegistry(t), map[string]ModelCaller{
		"openai": NewMockCaller(),
	})

	// When calling an anthropic-hosted model
	_, err := router.DoRequest(context.Background(), "beta", Payload{})

	// Then the model classifies as unavailable so the chain moves on
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, KindModelUnavailable, reqErr.Kind)
	assert.Equal(t, "beta", reqErr.Model)
}
