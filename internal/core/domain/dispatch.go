package domain

// TaskType is the kind of work a dispatch asks for.
type TaskType string

// Available task types.
const (
	TaskCompletion       TaskType = "completion"
	TaskChat             TaskType = "chat"
	TaskInlineCompletion TaskType = "inline-completion"
)

// IsValid returns true if the task type is recognised.
func (t TaskType) IsValid() bool {
	switch t {
	case TaskCompletion, TaskChat, TaskInlineCompletion:
		return true
	default:
		return false
	}
}

// IsLatencySensitive reports whether the task is interactive.
func (t TaskType) IsLatencySensitive() bool {
	return t == TaskInlineCompletion || t == TaskChat
}

// String returns the string representation.
func (t TaskType) String() string {
	return string(t)
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn of conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CursorPosition locates the caret in the editor buffer.
type CursorPosition struct {
	// Line is zero-based.
	Line int `json:"line"`

	// Column is zero-based.
	Column int `json:"column"`
}

// RequestContext carries editor state alongside a dispatch.
type RequestContext struct {
	Language  string          `json:"language,omitempty"`
	FilePath  string          `json:"file_path,omitempty"`
	Selection string          `json:"selection,omitempty"`
	History   []ChatMessage   `json:"history,omitempty"`
	Cursor    *CursorPosition `json:"cursor,omitempty"`
}

// ResourceLimits bounds a single generation.
type ResourceLimits struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// DispatchRequest is one task routed to exactly one model.
type DispatchRequest struct {
	Task    TaskType
	Payload string

	// Suffix is the text after the cursor for fill-in-the-middle completion.
	Suffix       string
	SystemPrompt string
	Context      RequestContext
	Limits       ResourceLimits
	Stop         []string
}

// Reply is the outcome of one editor request. Model names the model that
// served it and is empty when none was selected.
type Reply struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// EstimatedTokens approximates the prompt size of the request.
func (r DispatchRequest) EstimatedTokens() int {
	n := len(r.Payload) + len(r.Suffix) + len(r.Context.Selection) + len(r.SystemPrompt)
	for _, m := range r.Context.History {
		n += len(m.Content)
	}
	return EstimateTokens(n)
}

// EstimateTokens converts a character count into tokens at four characters per token.
func EstimateTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + 3) / 4
}

// PinMode controls how a pinned model interacts with selection.
type PinMode string

// Available pin modes.
const (
	// PinModeTiebreak picks the pinned model only when it survives every filter.
	PinModeTiebreak PinMode = "tiebreak"

	// PinModeOverride picks the pinned model whenever it is ready and suits the task.
	PinModeOverride PinMode = "override"
)

// IsValid returns true if the pin mode is recognised.
func (m PinMode) IsValid() bool {
	return m == PinModeTiebreak || m == PinModeOverride
}

// Preferences are user routing preferences.
type Preferences struct {
	// PreferLocal nil means prefer local models.
	PreferLocal *bool

	// PinnedModelID is an optional user-chosen model.
	PinnedModelID string

	// PinMode defaults to tiebreak.
	PinMode PinMode

	// ContextThreshold is the token estimate above which context window size matters.
	ContextThreshold int
}

// WantsLocal reports whether local models should be preferred.
func (p Preferences) WantsLocal() bool {
	return p.PreferLocal == nil || *p.PreferLocal
}
