// Package provider implements translation service clients: Google Cloud
// Translation (v2 REST), keyless Google Translate, and LLM chat APIs
// (OpenAI-compatible and Gemini). Every client satisfies batch.Translator.
package provider

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/minios-linux/transync/batch"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderGoogle       = "google"
	ProviderGoogleFree   = "google-free"
	ProviderOpenAI       = "openai"
	ProviderGroq         = "groq"
	ProviderOllama       = "ollama"
	ProviderCustomOpenAI = "custom-openai"
	ProviderGemini       = "gemini"
)

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// Provider holds the configuration for a translation service.
type Provider struct {
	// ID is the provider identifier (google, openai, groq, etc.).
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key (empty for local or keyless services).
	APIKey string
	// Model is the model identifier (LLM providers only).
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the request timeout.
	Timeout time.Duration
	// NeedsKey reports whether requests fail without an API key.
	NeedsKey bool
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderGoogle: {
			ID:       ProviderGoogle,
			Name:     "Google Cloud Translation",
			BaseURL:  "https://translation.googleapis.com",
			Timeout:  60 * time.Second,
			NeedsKey: true,
		},
		ProviderGoogleFree: {
			ID:      ProviderGoogleFree,
			Name:    "Google Translate (keyless)",
			Timeout: 60 * time.Second,
		},
		ProviderOpenAI: {
			ID:       ProviderOpenAI,
			Name:     "OpenAI",
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
			Timeout:  120 * time.Second,
			NeedsKey: true,
		},
		ProviderGroq: {
			ID:       ProviderGroq,
			Name:     "Groq",
			BaseURL:  "https://api.groq.com/openai/v1",
			Model:    "llama-3.3-70b-versatile",
			Timeout:  60 * time.Second,
			NeedsKey: true,
		},
		ProviderOllama: {
			ID:      ProviderOllama,
			Name:    "Ollama",
			BaseURL: "http://localhost:11434/v1",
			Timeout: 300 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:      ProviderCustomOpenAI,
			Name:    "Custom OpenAI",
			Timeout: 120 * time.Second,
		},
		ProviderGemini: {
			ID:       ProviderGemini,
			Name:     "Google AI (Gemini)",
			BaseURL:  "https://generativelanguage.googleapis.com",
			Model:    "gemini-2.0-flash",
			Timeout:  120 * time.Second,
			NeedsKey: true,
		},
	}
}

// IDs returns the known provider IDs, sorted.
func IDs() []string {
	ids := make([]string, 0, len(DefaultProviders()))
	for id := range DefaultProviders() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns the default definition of a provider.
func Lookup(id string) (Provider, bool) {
	p, ok := DefaultProviders()[id]
	return p, ok
}

// ---------------------------------------------------------------------------
// Client options
// ---------------------------------------------------------------------------

// Options controls client behavior.
type Options struct {
	// Provider is the service configuration.
	Provider Provider
	// Timeout is the per-request timeout (overrides provider timeout if set).
	Timeout time.Duration
	// MaxRetries is the maximum number of retries on 429, 5xx and transport
	// errors. Default: 3.
	MaxRetries int
	// SystemPrompt overrides the LLM system prompt.
	SystemPrompt string
	// Verbose enables request tracing.
	Verbose bool
}

func (o *Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	if o.Provider.Timeout > 0 {
		return o.Provider.Timeout
	}
	return 120 * time.Second
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

func (o *Options) debugf(format string, args ...any) {
	if o.Verbose {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// New returns a Translator for the configured provider.
func New(opts Options) (batch.Translator, error) {
	prov := opts.Provider
	if prov.NeedsKey && prov.APIKey == "" {
		return nil, fmt.Errorf("provider %s requires an API key", prov.ID)
	}

	switch prov.ID {
	case ProviderGoogle:
		return newGoogleClient(opts), nil
	case ProviderGoogleFree:
		return newFreeClient(opts), nil
	case ProviderGemini:
		if prov.Model == "" {
			return nil, fmt.Errorf("provider %s requires a model", prov.ID)
		}
		return newChatClient(opts, formatGeminiNative), nil
	case ProviderOpenAI, ProviderGroq, ProviderOllama, ProviderCustomOpenAI:
		if strings.TrimSpace(prov.BaseURL) == "" {
			return nil, fmt.Errorf("provider %s requires a base URL", prov.ID)
		}
		if prov.Model == "" {
			return nil, fmt.Errorf("provider %s requires a model", prov.ID)
		}
		return newChatClient(opts, formatOpenAIChat), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (available: %s)", prov.ID, strings.Join(IDs(), ", "))
	}
}
