package domain

import (
	"fmt"
	"slices"
)

// ModelKind is the primary capability of a model.
type ModelKind string

// Available model kinds.
const (
	ModelKindCompletion ModelKind = "completion"
	ModelKindChat       ModelKind = "chat"
	ModelKindEmbedding  ModelKind = "embedding"
)

// IsValid returns true if the kind is recognised.
func (k ModelKind) IsValid() bool {
	switch k {
	case ModelKindCompletion, ModelKindChat, ModelKindEmbedding:
		return true
	default:
		return false
	}
}

// Latency is a coarse latency class advertised by a model.
type Latency string

// Available latency classes.
const (
	LatencyLow    Latency = "low"
	LatencyMedium Latency = "medium"
	LatencyHigh   Latency = "high"
)

// IsValid returns true if the latency class is recognised.
func (l Latency) IsValid() bool {
	switch l {
	case LatencyLow, LatencyMedium, LatencyHigh:
		return true
	default:
		return false
	}
}

// Locality says where inference runs.
type Locality string

// Available localities.
const (
	LocalityLocal Locality = "local"
	LocalityCloud Locality = "cloud"
)

// IsValid returns true if the locality is recognised.
func (l Locality) IsValid() bool {
	return l == LocalityLocal || l == LocalityCloud
}

// Well-known specialty tags used as selection fallbacks.
const (
	SpecialtyGeneralCoding = "general-coding"
	SpecialtyChat          = "chat"
)

// ModelDescriptor is the static description of a model.
// Descriptors are treated as immutable once registered; credential rotation
// replaces the descriptor rather than mutating it.
type ModelDescriptor struct {
	// ID is unique within the registry.
	ID string `json:"id" yaml:"id"`

	// DisplayName is shown to users.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// Provider identifies the backend family.
	Provider AIProvider `json:"provider" yaml:"provider"`

	// Model is the vendor model name sent on the wire.
	Model string `json:"model" yaml:"model"`

	// Kind is the primary capability.
	Kind ModelKind `json:"kind" yaml:"kind"`

	// MaxTokens is the largest generation budget the model accepts.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// ContextWindow is the number of tokens the model can attend to.
	ContextWindow int `json:"context_window" yaml:"context_window"`

	// Specialties are task tags such as "inline-completion" or "general-coding".
	Specialties []string `json:"specialties" yaml:"specialties"`

	// Languages the model is tuned for. Empty means any.
	Languages []string `json:"languages,omitempty" yaml:"languages,omitempty"`

	// Latency is the advertised latency class.
	Latency Latency `json:"latency" yaml:"latency"`

	// Locality is local or cloud.
	Locality Locality `json:"locality" yaml:"locality"`

	// Endpoint is the backend base URL.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Credential is the API key for cloud models. Never serialised.
	Credential string `json:"-" yaml:"-"`
}

// HasSpecialty reports whether the descriptor lists the given tag.
func (d ModelDescriptor) HasSpecialty(tag string) bool {
	return slices.Contains(d.Specialties, tag)
}

// IsLocal returns true if inference runs on this machine.
func (d ModelDescriptor) IsLocal() bool {
	return d.Locality == LocalityLocal
}

// WithCredential returns a copy carrying a new credential.
func (d ModelDescriptor) WithCredential(key string) ModelDescriptor {
	out := d
	out.Specialties = slices.Clone(d.Specialties)
	out.Languages = slices.Clone(d.Languages)
	out.Credential = key
	return out
}

// Validate checks the descriptor for required fields and known enums.
func (d ModelDescriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: model id is required", ErrInvalidInput)
	}
	if !d.Provider.IsValid() {
		return fmt.Errorf("%w: model %s has unknown provider %q", ErrInvalidInput, d.ID, d.Provider)
	}
	if !d.Kind.IsValid() {
		return fmt.Errorf("%w: model %s has unknown kind %q", ErrInvalidInput, d.ID, d.Kind)
	}
	if !d.Latency.IsValid() {
		return fmt.Errorf("%w: model %s has unknown latency %q", ErrInvalidInput, d.ID, d.Latency)
	}
	if !d.Locality.IsValid() {
		return fmt.Errorf("%w: model %s has unknown locality %q", ErrInvalidInput, d.ID, d.Locality)
	}
	return nil
}

// String returns a display form that never includes the credential.
func (d ModelDescriptor) String() string {
	name := d.DisplayName
	if name == "" {
		name = d.ID
	}
	return fmt.Sprintf("%s (%s, %s)", name, d.Provider, d.Locality)
}

// AdapterState is the lifecycle state of a model adapter.
type AdapterState string

// Adapter lifecycle states.
const (
	AdapterUninitialized AdapterState = "uninitialized"
	AdapterReady         AdapterState = "ready"
	AdapterBusy          AdapterState = "busy"
	AdapterUnavailable   AdapterState = "unavailable"
	AdapterDisposed      AdapterState = "disposed"
)

// IsSelectable reports whether an adapter in this state may receive dispatches.
// Busy adapters stay selectable; concurrent dispatches are allowed.
func (s AdapterState) IsSelectable() bool {
	return s == AdapterReady || s == AdapterBusy
}

// ModelStatus pairs a descriptor with its adapter's current state.
type ModelStatus struct {
	Descriptor ModelDescriptor `json:"descriptor"`
	State      AdapterState    `json:"state"`
	Current    bool            `json:"current"`
}
