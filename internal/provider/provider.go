// Package provider defines the uniform calling contract implemented once per
// backend model family, the classified error taxonomy, and retry handling
// for transient failures.
package provider

import (
	"context"
)

// Request is the uniform call shape every provider family accepts.
type Request struct {
	// Model is the provider-native model identifier (without the provider
	// prefix used in capability IDs).
	Model        string
	SystemPrompt string
	Payload      string
	MaxTokens    int
	Temperature  float64
	// JSONMode asks the provider to return a single JSON object. Providers
	// without native JSON output enforce it via the system prompt.
	JSONMode bool
}

// Caller is implemented once per backend model family. Implementations hold
// no shared mutable state between concurrent calls.
type Caller interface {
	// Call issues one generation request and returns the generated text or a
	// *CallError carrying a classified failure.
	Call(ctx context.Context, req Request) (string, error)
	// Name returns the provider name as used in capability IDs.
	Name() string
	// Available reports whether credentials are configured for this provider.
	Available() bool
}
