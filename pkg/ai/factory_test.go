package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProviderDefaultsToOpenAI(t *testing.T) {
	provider, err := NewProvider(FactoryConfig{APIKey: "test-key"})
	require.NoError(t, err)
	require.IsType(t, &OpenAIProvider{}, provider)

	provider, err = NewProvider(FactoryConfig{Provider: "openai", APIKey: "test-key"})
	require.NoError(t, err)
	require.IsType(t, &OpenAIProvider{}, provider)
}

func TestNewProviderAzureRequiresBaseURL(t *testing.T) {
	_, err := NewProvider(FactoryConfig{Provider: "azure", APIKey: "test-key"})
	require.Error(t, err)

	provider, err := NewProvider(FactoryConfig{Provider: "azure", APIKey: "test-key", BaseURL: "https://example.openai.azure.com"})
	require.NoError(t, err)
	require.IsType(t, &OpenAIProvider{}, provider)
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(FactoryConfig{Provider: "acme", APIKey: "test-key"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown ai provider")
}
