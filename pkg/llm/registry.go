package llm

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ProviderFactory creates providers from config.
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

// DefaultModels maps provider names to their default vision-capable models.
var DefaultModels = map[string]string{
	"gemini":     "gemini-2.0-flash",
	"anthropic":  "claude-sonnet-4-20250514",
	"openai":     "gpt-4o-mini",
	"openrouter": "google/gemini-2.0-flash-001",
	"ollama":     "llava",
}

var registry = map[string]ProviderFactory{}

func init() {
	RegisterProvider("gemini", func(cfg ProviderConfig) (Provider, error) {
		return NewGeminiProvider(cfg)
	})
	RegisterProvider("anthropic", func(cfg ProviderConfig) (Provider, error) {
		return NewAnthropicProvider(cfg)
	})
	RegisterProvider("openai", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenAIProvider(cfg)
	})
	RegisterProvider("openrouter", func(cfg ProviderConfig) (Provider, error) {
		return NewOpenRouterProvider(cfg)
	})
	RegisterProvider("ollama", func(cfg ProviderConfig) (Provider, error) {
		return NewOllamaProvider(cfg)
	})
}

// NewProvider creates a provider by name.
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %s)", name, strings.Join(AvailableProviders(), ", "))
	}
	return factory(cfg)
}

// RegisterProvider adds a custom provider factory.
func RegisterProvider(name string, factory ProviderFactory) {
	registry[name] = factory
}

// AvailableProviders returns the sorted list of registered providers.
func AvailableProviders() []string {
	providers := make([]string, 0, len(registry))
	for name := range registry {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

// providerEnvKeys lists, in detection priority, the environment variables
// that carry each provider's API key.
var providerEnvKeys = []struct {
	provider string
	env      string
}{
	{"gemini", "GEMINI_API_KEY"},
	{"gemini", "GOOGLE_API_KEY"},
	{"anthropic", "ANTHROPIC_API_KEY"},
	{"openai", "OPENAI_API_KEY"},
	{"openrouter", "OPENROUTER_API_KEY"},
}

// DetectProvider auto-detects a provider based on available API keys.
// Priority: GEMINI_API_KEY / GOOGLE_API_KEY > ANTHROPIC_API_KEY >
// OPENAI_API_KEY > OPENROUTER_API_KEY > ollama (no key needed).
func DetectProvider() (provider string, apiKey string) {
	for _, k := range providerEnvKeys {
		if key := os.Getenv(k.env); key != "" {
			return k.provider, key
		}
	}
	return "ollama", ""
}

// APIKeyFromEnv returns the first API key set for the named provider.
func APIKeyFromEnv(provider string) string {
	for _, k := range providerEnvKeys {
		if k.provider != provider {
			continue
		}
		if key := os.Getenv(k.env); key != "" {
			return key
		}
	}
	return ""
}

// GetDefaultModel returns the default model for a provider.
func GetDefaultModel(provider string) string {
	return DefaultModels[provider]
}

// IsRegistered returns true if a provider is registered.
func IsRegistered(name string) bool {
	_, ok := registry[name]
	return ok
}
