// Package ollama provides a model adapter for a local Ollama daemon.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/llm"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure Adapter implements the interfaces.
var (
	_ driven.ModelAdapter = (*Adapter)(nil)
	_ driven.Prober       = (*Adapter)(nil)
)

// DefaultBaseURL is where the Ollama daemon listens by default.
const DefaultBaseURL = "http://localhost:11434"

// Config holds configuration for an Ollama adapter.
type Config struct {
	// Descriptor describes the model. Endpoint overrides DefaultBaseURL.
	Descriptor domain.ModelDescriptor

	// HTTPClient is optional.
	HTTPClient *http.Client

	// RequestsPerSecond throttles calls. Zero means unlimited.
	RequestsPerSecond float64
}

// Adapter talks to one model served by Ollama.
type Adapter struct {
	*llm.Base
	client *llm.Client
	model  string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Suffix  string   `json:"suffix,omitempty"`
	System  string   `json:"system,omitempty"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
	Options  *options             `json:"options,omitempty"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message domain.ChatMessage `json:"message"`
	Done    bool               `json:"done"`
	Error   string             `json:"error,omitempty"`
}

// tagsResponse is the Ollama /api/tags response format.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// New creates an uninitialised Ollama adapter.
func New(cfg Config) *Adapter {
	baseURL := cfg.Descriptor.Endpoint
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Descriptor.Model
	if model == "" {
		model = cfg.Descriptor.ID
	}
	return &Adapter{
		Base:   llm.NewBase(cfg.Descriptor, cfg.RequestsPerSecond),
		client: llm.NewClient(baseURL, cfg.HTTPClient, nil),
		model:  model,
	}
}

// Initialize checks the daemon is up and the model has been pulled.
func (a *Adapter) Initialize(ctx context.Context) error {
	return a.Initialise(ctx, a.checkModel)
}

func (a *Adapter) checkModel(ctx context.Context) error {
	var tags tagsResponse
	if err := a.client.GetJSON(ctx, "/api/tags", &tags); err != nil {
		return err
	}
	for _, m := range tags.Models {
		if modelMatches(m.Name, a.model) {
			return nil
		}
	}
	return &domain.BackendError{
		ModelID:   a.Descriptor().ID,
		Operation: "initialize",
		Kind:      domain.ErrBackendUnavailable,
		Err:       fmt.Errorf("model %q is not pulled", a.model),
	}
}

// modelMatches compares tag names, treating a missing tag as ":latest".
func modelMatches(installed, want string) bool {
	if installed == want {
		return true
	}
	if !strings.Contains(want, ":") {
		return installed == want+":latest"
	}
	return false
}

// Probe checks the daemon answers.
func (a *Adapter) Probe(ctx context.Context) error {
	return llm.Classify(a.Descriptor().ID, "probe", a.client.GetJSON(ctx, "/api/tags", nil))
}

// Complete continues the payload with the model's raw generation endpoint.
func (a *Adapter) Complete(ctx context.Context, req domain.DispatchRequest) (string, error) {
	return a.Call(ctx, "complete", func(ctx context.Context) (string, error) {
		return a.generate(ctx, generateRequest{
			Model:   a.model,
			Prompt:  req.Payload,
			System:  req.SystemPrompt,
			Options: a.options(req),
		})
	})
}

// InlineComplete fills the gap between the payload and the suffix.
func (a *Adapter) InlineComplete(ctx context.Context, req domain.DispatchRequest) (string, error) {
	return a.Call(ctx, "inline-completion", func(ctx context.Context) (string, error) {
		return a.generate(ctx, generateRequest{
			Model:   a.model,
			Prompt:  req.Payload,
			Suffix:  req.Suffix,
			Options: a.options(req),
		})
	})
}

// Chat sends the conversation to /api/chat.
func (a *Adapter) Chat(ctx context.Context, req domain.DispatchRequest) (string, error) {
	return a.Call(ctx, "chat", func(ctx context.Context) (string, error) {
		body := chatRequest{
			Model:    a.model,
			Messages: llm.Messages(req, true),
			Options:  a.options(req),
		}
		var resp chatResponse
		if err := a.client.PostJSON(ctx, "/api/chat", body, &resp); err != nil {
			return "", err
		}
		if resp.Error != "" {
			return "", llm.Rejected(resp.Error)
		}
		return strings.TrimSpace(resp.Message.Content), nil
	})
}

func (a *Adapter) generate(ctx context.Context, body generateRequest) (string, error) {
	var resp generateResponse
	if err := a.client.PostJSON(ctx, "/api/generate", body, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", llm.Rejected(resp.Error)
	}
	return resp.Response, nil
}

func (a *Adapter) options(req domain.DispatchRequest) *options {
	return &options{
		NumPredict:  llm.MaxTokens(req, a.Descriptor()),
		Temperature: req.Limits.Temperature,
		Stop:        req.Stop,
	}
}

// Cleanup disposes the adapter. It is idempotent.
func (a *Adapter) Cleanup() error {
	a.Dispose()
	return nil
}
