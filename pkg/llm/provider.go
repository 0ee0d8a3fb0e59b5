// Package llm provides a unified interface over multimodal model providers.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Image is an inline image attached to a message.
type Image struct {
	Data     []byte
	MIMEType string
}

// Base64 returns the image data encoded for JSON transports.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURI returns the image as a data: URI.
func (i Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64()
}

// Message represents a chat message. Images are only honoured on user messages.
type Message struct {
	Role    Role
	Content string
	Images  []Image
}

// Request represents a completion request.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response represents the result of a model call.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
	Model        string
	Duration     time.Duration
}

var (
	// ErrAPIKeyRequired is returned by providers that need a key when none is configured.
	ErrAPIKeyRequired = errors.New("API key required")
	// ErrNoContent is returned when a provider answers without any text.
	ErrNoContent = errors.New("no content in response")
)

// Provider is the interface every model backend implements.
type Provider interface {
	// Execute sends a completion request and returns the response.
	Execute(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider identifier (e.g., "gemini", "anthropic").
	Name() string

	// Model returns the configured model name.
	Model() string
}

// ProviderConfig holds common configuration for providers.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string // For custom endpoints, OpenRouter, or a remote Ollama
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// DefaultProviderConfig returns sensible defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		MaxRetries: 2,
		Timeout:    60 * time.Second,
	}
}

// defaultMaxTokens is used when a request leaves MaxTokens unset.
const defaultMaxTokens = 256
