package domain

import "time"

// TransactionKind classifies a log entry.
type TransactionKind string

// Transaction kinds.
const (
	TransactionRequest  TransactionKind = "request"
	TransactionResponse TransactionKind = "response"
	TransactionError    TransactionKind = "error"
	TransactionInfo     TransactionKind = "info"
)

// TransactionMetadata holds measurements attached to a transaction.
type TransactionMetadata struct {
	LatencyMs     int64    `json:"latency_ms,omitempty"`
	TokenEstimate int      `json:"token_estimate,omitempty"`
	Endpoint      string   `json:"endpoint,omitempty"`
	Provider      string   `json:"provider,omitempty"`
	Locality      Locality `json:"locality,omitempty"`
	MaxTokens     int      `json:"max_tokens,omitempty"`
	Temperature   float64  `json:"temperature,omitempty"`
}

// Transaction is one entry in the AI interaction log.
type Transaction struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Kind      TransactionKind     `json:"kind"`
	ModelID   string              `json:"model_id,omitempty"`
	Operation string              `json:"operation,omitempty"`
	Prompt    string              `json:"prompt,omitempty"`
	Response  string              `json:"response,omitempty"`
	Error     string              `json:"error,omitempty"`
	Message   string              `json:"message,omitempty"`
	Metadata  TransactionMetadata `json:"metadata"`
}
