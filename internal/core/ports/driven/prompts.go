package driven

// PromptStore supplies system prompt templates by name.
type PromptStore interface {
	// Load returns the template. The names below always resolve, falling
	// back to built-in text; other names resolve only from storage.
	Load(name string) (string, error)

	// Reload discards anything cached.
	Reload()
}

// Prompt names.
const (
	PromptChatSystem       = "chat_system"
	PromptCompletionSystem = "completion_system"

	// PromptInlineSystem may contain LanguagePlaceholder.
	PromptInlineSystem = "inline_system"
)

// LanguagePlaceholder is replaced with the language name in inline prompts.
const LanguagePlaceholder = "{{language}}"
