package llm

import (
	"strings"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// DefaultMaxTokens applies when neither the request nor the model sets a budget.
const DefaultMaxTokens = 1024

// MaxTokens returns the generation budget for a request against a model.
func MaxTokens(req domain.DispatchRequest, desc domain.ModelDescriptor) int {
	switch {
	case req.Limits.MaxTokens > 0:
		return req.Limits.MaxTokens
	case desc.MaxTokens > 0:
		return desc.MaxTokens
	default:
		return DefaultMaxTokens
	}
}

// UserContent renders the latest user turn: the payload, preceded by the
// file and selection the user is looking at.
func UserContent(req domain.DispatchRequest) string {
	var b strings.Builder
	if req.Context.FilePath != "" {
		b.WriteString("File: ")
		b.WriteString(req.Context.FilePath)
		b.WriteString("\n")
	}
	if req.Context.Selection != "" {
		b.WriteString("Selected code")
		if req.Context.Language != "" {
			b.WriteString(" (" + req.Context.Language + ")")
		}
		b.WriteString(":\n```\n")
		b.WriteString(req.Context.Selection)
		b.WriteString("\n```\n\n")
	}
	b.WriteString(req.Payload)
	return b.String()
}

// Messages builds the chat transcript: optional system prompt, prior
// history, then the user turn. System messages in history are dropped when
// includeSystem is false, for APIs that take the system prompt separately.
func Messages(req domain.DispatchRequest, includeSystem bool) []domain.ChatMessage {
	msgs := make([]domain.ChatMessage, 0, len(req.Context.History)+2)
	if includeSystem && req.SystemPrompt != "" {
		msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.Context.History {
		if m.Role == domain.RoleSystem && !includeSystem {
			continue
		}
		msgs = append(msgs, m)
	}
	return append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: UserContent(req)})
}

// CompletionPrompt frames a code continuation for chat-only APIs.
func CompletionPrompt(req domain.DispatchRequest) string {
	var b strings.Builder
	b.WriteString("Continue the following")
	if req.Context.Language != "" {
		b.WriteString(" " + req.Context.Language)
	}
	b.WriteString(" code. Reply with code only.\n\n")
	b.WriteString(req.Payload)
	if req.Suffix != "" {
		b.WriteString("<CURSOR>")
		b.WriteString(req.Suffix)
		b.WriteString("\n\nReply with the text that replaces <CURSOR> only.")
	}
	return b.String()
}

// StripFences removes a single surrounding markdown code fence.
func StripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	t = strings.TrimSuffix(strings.TrimPrefix(t, "```"), "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 && !strings.ContainsAny(t[:i], " \t") {
		t = t[i+1:]
	}
	return strings.TrimRight(t, "\n")
}
