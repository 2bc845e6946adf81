package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Ensure Dispatcher implements the interface.
var _ driving.Dispatcher = (*Dispatcher)(nil)

// Token budgets and temperatures per task.
const (
	chatMaxTokens         = 2048
	completionMaxTokens   = 512
	inlineMaxTokens       = 64
	chatTemperature       = 0.7
	completionTemperature = 0.2
	inlineTemperature     = 0.1
)

// probeTimeout bounds TestAPIKey.
const probeTimeout = 10 * time.Second

// Operation names recorded in transactions.
const (
	opChat     = "chat"
	opComplete = "complete"
	opInline   = "inline-complete"
	opSwitch   = "switch-model"
	opAdd      = "add-model"
	opRemove   = "remove-model"
	opKey      = "update-api-key"
	opTestKey  = "test-api-key"
)

const redacted = "[REDACTED]"

// Default system prompts used when no PromptStore is configured.
const (
	defaultChatSystemPrompt = `You are a coding assistant embedded in a code editor.
Answer concisely. Prefer code over prose. Use fenced code blocks with a language tag.`

	defaultCompletionSystemPrompt = `You complete source code. Return only the code that continues the input, without explanations or code fences.`

	defaultInlineSystemPrompt = `You are an inline {{language}} code completion engine. Return only the text to insert at the cursor. Never repeat the existing code.`
)

// Dispatcher routes editor requests to models and records every interaction.
// A dispatched call is detached from the caller's cancellation: it runs until
// it completes or its per-task timeout fires.
type Dispatcher struct {
	registry *Registry
	log      *TransactionLog
	factory  driven.ModelAdapterFactory
	settings driving.SettingsService
	catalog  driven.ModelCatalog
	prompts  driven.PromptStore

	mu      sync.RWMutex
	current string
}

// NewDispatcher creates a dispatcher over a registry and transaction log.
// factory may be nil, in which case AddModel, UpdateAPIKey and TestAPIKey fail.
// settings may be nil, in which case defaults are used.
func NewDispatcher(
	registry *Registry,
	log *TransactionLog,
	factory driven.ModelAdapterFactory,
	settings driving.SettingsService,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		log:      log,
		factory:  factory,
		settings: settings,
	}
}

// SetPromptStore sets the store used to load system prompts.
func (d *Dispatcher) SetPromptStore(store driven.PromptStore) {
	d.prompts = store
}

// SetCatalog sets the catalog consulted when a new credential enables more models.
func (d *Dispatcher) SetCatalog(catalog driven.ModelCatalog) {
	d.catalog = catalog
}

// Chat answers a message in the editor's context.
func (d *Dispatcher) Chat(ctx context.Context, message string, rc domain.RequestContext) domain.Reply {
	req := domain.DispatchRequest{
		Task:         domain.TaskChat,
		Payload:      message,
		SystemPrompt: d.loadPrompt(driven.PromptChatSystem, defaultChatSystemPrompt),
		Context:      rc,
		Limits:       domain.ResourceLimits{MaxTokens: chatMaxTokens, Temperature: chatTemperature},
	}

	text, desc, err := d.dispatch(ctx, req, opChat)
	if err != nil {
		return domain.Reply{Text: fallbackMessage(desc, opChat, err), Model: desc.ID}
	}
	return domain.Reply{Text: text, Model: desc.ID}
}

// Complete continues a prompt as code.
func (d *Dispatcher) Complete(ctx context.Context, prompt string, rc domain.RequestContext) domain.Reply {
	req := domain.DispatchRequest{
		Task:         domain.TaskCompletion,
		Payload:      prompt,
		SystemPrompt: d.loadPrompt(driven.PromptCompletionSystem, defaultCompletionSystemPrompt),
		Context:      rc,
		Limits:       domain.ResourceLimits{MaxTokens: completionMaxTokens, Temperature: completionTemperature},
	}

	text, desc, err := d.dispatch(ctx, req, opComplete)
	if err != nil {
		return domain.Reply{Text: fallbackMessage(desc, opComplete, err), Model: desc.ID}
	}
	return domain.Reply{Text: text, Model: desc.ID}
}

// InlineComplete returns a short continuation at the cursor. The text is
// empty on any failure.
func (d *Dispatcher) InlineComplete(
	ctx context.Context,
	code string,
	cursor domain.CursorPosition,
	language string,
) domain.Reply {
	prefix, suffix := SplitAtCursor(code, cursor)
	if language == "" {
		language = "source"
	}
	cur := cursor
	req := domain.DispatchRequest{
		Task:         domain.TaskInlineCompletion,
		Payload:      prefix,
		Suffix:       suffix,
		SystemPrompt: inlineSystemPrompt(d.loadPrompt(driven.PromptInlineSystem, defaultInlineSystemPrompt), language),
		Context:      domain.RequestContext{Language: language, Cursor: &cur},
		Limits:       domain.ResourceLimits{MaxTokens: inlineMaxTokens, Temperature: inlineTemperature},
		Stop:         []string{"\n\n"},
	}

	text, desc, err := d.dispatch(ctx, req, opInline)
	if err != nil {
		return domain.Reply{Model: desc.ID}
	}
	return domain.Reply{Text: text, Model: desc.ID}
}

// inlineSystemPrompt fills in the language. The prompt is user-editable, so it
// is treated as plain text rather than a format string.
func inlineSystemPrompt(prompt, language string) string {
	return strings.ReplaceAll(prompt, driven.LanguagePlaceholder, language)
}

// dispatch selects a model, invokes it under the task timeout and logs the exchange.
// The returned descriptor is zero when no model was selected.
func (d *Dispatcher) dispatch(
	ctx context.Context,
	req domain.DispatchRequest,
	op string,
) (string, domain.ModelDescriptor, error) {
	settings := d.currentSettings()

	id, err := SelectModel(req, settings.Routing.Preferences(), d.registry.ListReady())
	if err != nil {
		d.log.Append(domain.Transaction{
			Kind:      domain.TransactionError,
			Operation: op,
			Prompt:    req.Payload,
			Error:     err.Error(),
		})
		logger.Debug("dispatch %s: %v", op, err)
		return "", domain.ModelDescriptor{}, err
	}

	adapter, ok := d.registry.Get(id)
	if !ok {
		return "", domain.ModelDescriptor{}, fmt.Errorf("dispatch %s: %w", id, domain.ErrUnknownModel)
	}
	desc := adapter.Descriptor()
	d.setCurrent(id)

	if desc.MaxTokens > 0 && req.Limits.MaxTokens > desc.MaxTokens {
		req.Limits.MaxTokens = desc.MaxTokens
	}

	meta := domain.TransactionMetadata{
		Endpoint:      desc.Endpoint,
		Provider:      desc.Provider.String(),
		Locality:      desc.Locality,
		MaxTokens:     req.Limits.MaxTokens,
		Temperature:   req.Limits.Temperature,
		TokenEstimate: req.EstimatedTokens(),
	}
	d.log.Append(domain.Transaction{
		Kind:      domain.TransactionRequest,
		ModelID:   id,
		Operation: op,
		Prompt:    req.Payload,
		Metadata:  meta,
	})

	timeout := settings.Dispatch.TimeoutFor(req.Task)
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	start := time.Now()
	text, err := invoke(callCtx, adapter, req)
	elapsed := time.Since(start)

	meta.LatencyMs = elapsed.Milliseconds()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrBackendTimeout) {
			err = &domain.BackendError{ModelID: id, Operation: op, Kind: domain.ErrBackendTimeout, Err: err}
		}
		meta.TokenEstimate = 0
		d.log.Append(domain.Transaction{
			Kind:      domain.TransactionError,
			ModelID:   id,
			Operation: op,
			Prompt:    req.Payload,
			Error:     redact(err.Error(), desc.Credential),
			Metadata:  meta,
		})
		logger.Warn("dispatch %s via %s failed after %s: %s", op, id, elapsed, redact(err.Error(), desc.Credential))
		return "", desc, err
	}

	meta.TokenEstimate = domain.EstimateTokens(len(text))
	d.log.Append(domain.Transaction{
		Kind:      domain.TransactionResponse,
		ModelID:   id,
		Operation: op,
		Response:  text,
		Metadata:  meta,
	})
	logger.Debug("dispatch %s via %s took %s", op, id, elapsed)
	return text, desc, nil
}

func invoke(ctx context.Context, adapter driven.ModelAdapter, req domain.DispatchRequest) (string, error) {
	switch req.Task {
	case domain.TaskChat:
		return adapter.Chat(ctx, req)
	case domain.TaskInlineCompletion:
		return adapter.InlineComplete(ctx, req)
	default:
		return adapter.Complete(ctx, req)
	}
}

// ListModels returns every registered model in registration order.
func (d *Dispatcher) ListModels() []domain.ModelStatus {
	current, _ := d.CurrentModel()
	adapters := d.registry.List()
	out := make([]domain.ModelStatus, len(adapters))
	for i, a := range adapters {
		desc := a.Descriptor()
		out[i] = domain.ModelStatus{
			Descriptor: desc,
			State:      a.State(),
			Current:    desc.ID == current,
		}
	}
	return out
}

// CurrentModel returns the model most recently selected or switched to.
func (d *Dispatcher) CurrentModel() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current, d.current != ""
}

// SwitchModel points the current model at a ready model.
// The pointer is informational; every dispatch still runs selection.
func (d *Dispatcher) SwitchModel(id string) error {
	adapter, ok := d.registry.Get(id)
	if !ok || !adapter.State().IsSelectable() {
		return fmt.Errorf("switch to %s: %w", id, domain.ErrUnknownModel)
	}
	d.setCurrent(id)
	d.info(id, opSwitch, "current model set to "+adapter.Descriptor().String())
	return nil
}

// AddModel builds, initialises and registers a model at runtime.
func (d *Dispatcher) AddModel(ctx context.Context, desc domain.ModelDescriptor) error {
	if d.factory == nil {
		return fmt.Errorf("add model %s: no adapter factory configured", desc.ID)
	}
	if err := desc.Validate(); err != nil {
		return err
	}
	if desc.Credential == "" && desc.Provider.RequiresAPIKey() {
		desc = desc.WithCredential(d.currentSettings().Provider(desc.Provider).APIKey)
	}

	adapter, err := d.factory.Create(desc)
	if err != nil {
		return fmt.Errorf("add model %s: %w", desc.ID, err)
	}
	if err := d.registry.Register(ctx, adapter); err != nil {
		return err
	}

	if adapter.IsAvailable() {
		d.info(desc.ID, opAdd, "model added: "+desc.String())
	} else {
		d.info(desc.ID, opAdd, "model added but unavailable: "+desc.String())
	}
	return nil
}

// RemoveModel unregisters and disposes a model.
func (d *Dispatcher) RemoveModel(id string) error {
	if err := d.registry.Unregister(id); err != nil {
		return err
	}

	d.mu.Lock()
	if d.current == id {
		d.current = ""
	}
	d.mu.Unlock()

	d.info(id, opRemove, "model removed")
	return nil
}

// Transactions returns the log in chronological order.
func (d *Dispatcher) Transactions() []domain.Transaction {
	return d.log.List()
}

// ClearTransactions empties the log.
func (d *Dispatcher) ClearTransactions() {
	d.log.Clear()
}

// UpdateAPIKey persists a credential and rebuilds every adapter of that provider.
// Catalog models of the provider that were not yet registered are added.
func (d *Dispatcher) UpdateAPIKey(ctx context.Context, provider domain.AIProvider, key string) error {
	if !provider.RequiresAPIKey() {
		return fmt.Errorf("%w: provider %q does not use an API key", domain.ErrInvalidInput, provider)
	}
	if d.factory == nil {
		return fmt.Errorf("update %s key: no adapter factory configured", provider)
	}
	if d.settings != nil {
		if err := d.settings.SetAPIKey(provider, key); err != nil {
			return fmt.Errorf("saving %s key: %w", provider, err)
		}
	}

	var errs []error
	rotated := 0
	for _, a := range d.registry.List() {
		desc := a.Descriptor()
		if desc.Provider != provider {
			continue
		}
		replacement, err := d.factory.Create(desc.WithCredential(key))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := d.registry.Replace(ctx, replacement); err != nil {
			errs = append(errs, err)
			continue
		}
		rotated++
	}

	added := 0
	if d.catalog != nil {
		descs, err := d.catalog.Load()
		if err != nil {
			errs = append(errs, fmt.Errorf("loading catalog: %w", err))
		}
		for _, desc := range descs {
			if desc.Provider != provider {
				continue
			}
			if _, exists := d.registry.Get(desc.ID); exists {
				continue
			}
			adapter, err := d.factory.Create(desc.WithCredential(key))
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := d.registry.Register(ctx, adapter); err != nil {
				errs = append(errs, err)
				continue
			}
			added++
		}
	}

	d.info("", opKey, fmt.Sprintf("%s credential updated: %d model(s) rotated, %d added", provider, rotated, added))
	return errors.Join(errs...)
}

// TestAPIKey verifies a credential with a transient adapter.
// The registry is never touched and the adapter is always disposed.
func (d *Dispatcher) TestAPIKey(ctx context.Context, provider domain.AIProvider, key string) bool {
	if d.factory == nil || !provider.IsValid() {
		return false
	}

	adapter, err := d.factory.Create(d.probeDescriptor(provider).WithCredential(key))
	if err != nil {
		d.info("", opTestKey, fmt.Sprintf("%s credential test failed: %v", provider, err))
		return false
	}
	defer adapter.Cleanup() //nolint:errcheck

	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), probeTimeout)
	defer cancel()

	if err = adapter.Initialize(probeCtx); err == nil {
		if prober, ok := adapter.(driven.Prober); ok {
			err = prober.Probe(probeCtx)
		}
	}

	if err != nil {
		d.info("", opTestKey, fmt.Sprintf("%s credential test failed: %s", provider, redact(err.Error(), key)))
		return false
	}
	d.info("", opTestKey, fmt.Sprintf("%s credential test passed", provider))
	return true
}

// Close disposes every adapter.
func (d *Dispatcher) Close() error {
	return d.registry.Close()
}

// probeDescriptor picks a descriptor to build a transient adapter from.
func (d *Dispatcher) probeDescriptor(provider domain.AIProvider) domain.ModelDescriptor {
	for _, a := range d.registry.List() {
		if desc := a.Descriptor(); desc.Provider == provider {
			return desc
		}
	}
	if d.catalog != nil {
		if descs, err := d.catalog.Load(); err == nil {
			for _, desc := range descs {
				if desc.Provider == provider {
					return desc
				}
			}
		}
	}

	locality := domain.LocalityCloud
	if provider.IsLocal() {
		locality = domain.LocalityLocal
	}
	return domain.ModelDescriptor{
		ID:          "probe-" + provider.String(),
		Provider:    provider,
		Kind:        domain.ModelKindChat,
		Specialties: []string{domain.SpecialtyChat},
		Latency:     domain.LatencyHigh,
		Locality:    locality,
		Endpoint:    d.currentSettings().Provider(provider).BaseURL,
	}
}

func (d *Dispatcher) setCurrent(id string) {
	d.mu.Lock()
	d.current = id
	d.mu.Unlock()
}

func (d *Dispatcher) info(modelID, op, message string) {
	d.log.Append(domain.Transaction{
		Kind:      domain.TransactionInfo,
		ModelID:   modelID,
		Operation: op,
		Message:   message,
	})
}

func (d *Dispatcher) currentSettings() domain.AppSettings {
	if d.settings == nil {
		return domain.DefaultAppSettings()
	}
	s, err := d.settings.Get()
	if err != nil || s == nil {
		return domain.DefaultAppSettings()
	}
	return *s
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (d *Dispatcher) loadPrompt(name, fallback string) string {
	if d.prompts == nil {
		return fallback
	}
	prompt, err := d.prompts.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}

// fallbackMessage is the user-safe text shown when chat or completion fails.
// It names the model and operation and never includes backend error text.
func fallbackMessage(desc domain.ModelDescriptor, op string, err error) string {
	if errors.Is(err, domain.ErrNoModelAvailable) || desc.ID == "" {
		return fmt.Sprintf("AI unavailable: no ready model can handle %s requests. "+
			"Check that a backend is running or add an API key with 'codeassist settings set-key'.", op)
	}

	name := desc.DisplayName
	if name == "" {
		name = desc.ID
	}
	return fmt.Sprintf("%s could not complete the %s request: %s. "+
		"Re-run with --trace, or read the transaction log from the server "+
		"(GET /api/v1/transactions or the codeassist://transactions resource) for details.",
		name, op, failureReason(err))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrBackendTimeout), errors.Is(err, context.DeadlineExceeded):
		return "the backend timed out"
	case errors.Is(err, domain.ErrBackendRejected):
		return "the backend rejected the request"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "the backend is unreachable"
	case errors.Is(err, domain.ErrMissingCredential):
		return "no API key is configured"
	default:
		return "an unexpected error occurred"
	}
}

// redact removes a credential from text.
func redact(text, credential string) string {
	if credential == "" {
		return text
	}
	return strings.ReplaceAll(text, credential, redacted)
}

// SplitAtCursor splits code into the text before and after a zero-based cursor.
// Out-of-range positions are clamped.
func SplitAtCursor(code string, cursor domain.CursorPosition) (string, string) {
	lines := strings.SplitAfter(code, "\n")
	if cursor.Line < 0 {
		return "", code
	}
	if cursor.Line >= len(lines) {
		return code, ""
	}

	offset := 0
	for i := 0; i < cursor.Line; i++ {
		offset += len(lines[i])
	}
	line := strings.TrimSuffix(lines[cursor.Line], "\n")
	col := cursor.Column
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}
	offset += col
	return code[:offset], code[offset:]
}
