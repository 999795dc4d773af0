package provider

import (
	"github.com/rao305/Syntra.ai-sub006/internal/config"
)

const (
	groqBaseURL = "https://api.groq.com/openai/v1"
	xaiBaseURL  = "https://api.x.ai/v1"
)

// Pool holds one Caller per provider family, built once at startup from the
// immutable configuration. Safe for concurrent use; callers share nothing
// mutable between calls.
type Pool struct {
	callers map[string]Caller
}

// NewPool constructs adapters for every known provider family. Providers
// without credentials are still present but report unavailable.
func NewPool(cfg config.ProvidersConfig) *Pool {
	p := &Pool{callers: make(map[string]Caller)}
	p.add(NewAnthropic(cfg.Anthropic.APIKey))
	p.add(NewOpenAICompatible("openai", cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL))

	groqURL := cfg.Groq.BaseURL
	if groqURL == "" {
		groqURL = groqBaseURL
	}
	p.add(NewOpenAICompatible("groq", cfg.Groq.APIKey, groqURL))

	xaiURL := cfg.XAI.BaseURL
	if xaiURL == "" {
		xaiURL = xaiBaseURL
	}
	p.add(NewOpenAICompatible("xai", cfg.XAI.APIKey, xaiURL))
	return p
}

// NewPoolWithCallers builds a pool from explicit callers, used by tests and
// by anything that needs to inject fakes.
func NewPoolWithCallers(callers ...Caller) *Pool {
	p := &Pool{callers: make(map[string]Caller, len(callers))}
	for _, c := range callers {
		p.add(c)
	}
	return p
}

func (p *Pool) add(c Caller) {
	p.callers[c.Name()] = c
}

// For returns the caller for a provider family.
func (p *Pool) For(provider string) (Caller, bool) {
	c, ok := p.callers[provider]
	return c, ok
}

// Available reports whether the named provider has credentials configured.
func (p *Pool) Available(provider string) bool {
	c, ok := p.callers[provider]
	return ok && c.Available()
}

// AvailableProviders returns the names of all configured providers.
func (p *Pool) AvailableProviders() []string {
	var out []string
	for name, c := range p.callers {
		if c.Available() {
			out = append(out, name)
		}
	}
	return out
}
