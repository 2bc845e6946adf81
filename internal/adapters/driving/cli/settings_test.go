package cli

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestReadPassword_NonTerminalReadsLine(t *testing.T) {
	in := strings.NewReader("  sk-secret  \nnext\n")
	assert.Equal(t, "sk-secret", readPassword(in, bufio.NewReader(in)))
}

func TestParseProvider(t *testing.T) {
	p, err := parseProvider(" OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, p)

	_, err = parseProvider("hashed")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsCmd_NotConfigured(t *testing.T) {
	setupTestServices(t, Services{})

	_, _, err := execute(t, "settings")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings service not configured")
}

func TestSettingsCmd_ShowMasksKeys(t *testing.T) {
	settings := newTestSettings()
	require.NoError(t, settings.SetAPIKey(domain.AIProviderOpenAI, "sk-1234567890abcdef"))
	require.NoError(t, settings.SetProviderBaseURL(domain.AIProviderOllama, "http://gpu-box:11434"))
	setupTestServices(t, Services{Settings: settings})

	out, _, err := execute(t, "settings", "show")
	require.NoError(t, err)

	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.NotContains(t, out, "sk-1234567890abcdef")
	assert.Contains(t, out, "API Key: (not set)")
	assert.Contains(t, out, "Base URL: http://gpu-box:11434")
	assert.Contains(t, out, "Prefer local: default (yes)")
	assert.Contains(t, out, "Pinned model: (none)")
	assert.Contains(t, out, "Backend: memory")
}

func TestSettingsCmd_SetKeyThroughDispatcher(t *testing.T) {
	d := &mockDispatcher{}
	settings := newTestSettings()
	setupTestServices(t, Services{Dispatcher: d, Settings: settings})

	out, _, err := execute(t, "settings", "set-key", "anthropic", "sk-ant-0123456789")
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-0123456789", d.keys[domain.AIProviderAnthropic])
	assert.Contains(t, out, "sk-a...6789")
	assert.NotContains(t, out, "sk-ant-0123456789")
}

func TestSettingsCmd_SetKeyWithoutDispatcher(t *testing.T) {
	settings := newTestSettings()
	setupTestServices(t, Services{Settings: settings})
	rootCmd.SetIn(strings.NewReader("sk-from-stdin-123\n"))

	_, _, err := execute(t, "settings", "set-key", "openai")
	require.NoError(t, err)

	got, err := settings.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-stdin-123", got.Provider(domain.AIProviderOpenAI).APIKey)
}

func TestSettingsCmd_SetKeyRejectsLocalProvider(t *testing.T) {
	setupTestServices(t, Services{Settings: newTestSettings()})

	_, _, err := execute(t, "settings", "set-key", "ollama", "key")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsCmd_SetKeyEmpty(t *testing.T) {
	setupTestServices(t, Services{Settings: newTestSettings()})
	rootCmd.SetIn(strings.NewReader("\n"))

	_, _, err := execute(t, "settings", "set-key", "openai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestSettingsCmd_TestKey(t *testing.T) {
	d := &mockDispatcher{keyValid: true}
	setupTestServices(t, Services{Dispatcher: d, Settings: newTestSettings()})

	out, _, err := execute(t, "settings", "test-key", "openai", "sk-candidate-key")
	require.NoError(t, err)
	assert.Equal(t, "sk-candidate-key", d.testedKey)
	assert.Contains(t, out, "OK")

	d.keyValid = false
	out, _, err = execute(t, "settings", "test-key", "openai", "sk-candidate-key")
	require.Error(t, err)
	assert.Contains(t, out, "FAILED")
}

func TestSettingsCmd_TestStoredKey(t *testing.T) {
	d := &mockDispatcher{keyValid: true}
	settings := newTestSettings()
	require.NoError(t, settings.SetAPIKey(domain.AIProviderAnthropic, "sk-stored-abcdefgh"))
	setupTestServices(t, Services{Dispatcher: d, Settings: settings})

	_, _, err := execute(t, "settings", "test-key", "anthropic")
	require.NoError(t, err)
	assert.Equal(t, "sk-stored-abcdefgh", d.testedKey)
}

func TestSettingsCmd_TestKeyNothingStored(t *testing.T) {
	setupTestServices(t, Services{Dispatcher: &mockDispatcher{}, Settings: newTestSettings()})

	_, _, err := execute(t, "settings", "test-key", "openai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no openai API key")
}

func TestSettingsCmd_BaseURL(t *testing.T) {
	settings := newTestSettings()
	setupTestServices(t, Services{Settings: settings})

	_, _, err := execute(t, "settings", "base-url", "ollama", "http://remote:11434")
	require.NoError(t, err)
	got, err := settings.Get()
	require.NoError(t, err)
	assert.Equal(t, "http://remote:11434", got.Provider(domain.AIProviderOllama).BaseURL)

	out, _, err := execute(t, "settings", "base-url", "ollama")
	require.NoError(t, err)
	assert.Contains(t, out, "reset to default")
	got, err = settings.Get()
	require.NoError(t, err)
	assert.Empty(t, got.Provider(domain.AIProviderOllama).BaseURL)
}

func TestSettingsCmd_PreferLocal(t *testing.T) {
	settings := newTestSettings()
	setupTestServices(t, Services{Settings: settings})

	_, _, err := execute(t, "settings", "prefer-local", "false")
	require.NoError(t, err)
	got, err := settings.Get()
	require.NoError(t, err)
	require.NotNil(t, got.Routing.PreferLocal)
	assert.False(t, *got.Routing.PreferLocal)

	_, _, err = execute(t, "settings", "prefer-local", "default")
	require.NoError(t, err)
	got, err = settings.Get()
	require.NoError(t, err)
	assert.Nil(t, got.Routing.PreferLocal)

	_, _, err = execute(t, "settings", "prefer-local", "sometimes")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsCmd_Pin(t *testing.T) {
	settings := newTestSettings()
	setupTestServices(t, Services{Settings: settings})

	out, _, err := execute(t, "settings", "pin", "cloud-chat", "--mode", "override")
	require.NoError(t, err)
	assert.Contains(t, out, "Pinned cloud-chat (override)")

	got, err := settings.Get()
	require.NoError(t, err)
	assert.Equal(t, "cloud-chat", got.Routing.PinnedModel)
	assert.Equal(t, domain.PinModeOverride, got.Routing.PinMode)

	_, _, err = execute(t, "settings", "pin", "--clear")
	require.NoError(t, err)
	got, err = settings.Get()
	require.NoError(t, err)
	assert.Empty(t, got.Routing.PinnedModel)
}

func TestSettingsCmd_PinErrors(t *testing.T) {
	setupTestServices(t, Services{Settings: newTestSettings()})

	_, _, err := execute(t, "settings", "pin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model id is required")

	_, _, err = execute(t, "settings", "pin", "m", "--mode", "always")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsCmd_Embedding(t *testing.T) {
	settings := newTestSettings()
	setupTestServices(t, Services{Settings: settings})

	_, _, err := execute(t, "settings", "embedding", "hashed")
	require.NoError(t, err)
	got, err := settings.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderHashed, got.Embedding.Provider)

	_, _, err = execute(t, "settings", "embedding", "anthropic")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsCmd_Backend(t *testing.T) {
	settings := newTestSettings()
	setupTestServices(t, Services{Settings: settings})

	_, _, err := execute(t, "settings", "backend", "sqlite")
	require.NoError(t, err)
	got, err := settings.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.IndexBackendSQLite, got.Index.Backend)

	_, _, err = execute(t, "settings", "backend", "postgres")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsCmd_Wizard(t *testing.T) {
	d := &mockDispatcher{}
	settings := newTestSettings()
	setupTestServices(t, Services{Dispatcher: d, Settings: settings})

	// openai key, skip anthropic, prefer cloud, hashed embeddings, default model.
	rootCmd.SetIn(strings.NewReader("sk-wizard-openai-key\n\n2\n3\n\n"))

	out, _, err := execute(t, "settings", "wizard")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration Complete!")

	assert.Equal(t, "sk-wizard-openai-key", d.keys[domain.AIProviderOpenAI])
	_, anthropicSet := d.keys[domain.AIProviderAnthropic]
	assert.False(t, anthropicSet)

	got, err := settings.Get()
	require.NoError(t, err)
	require.NotNil(t, got.Routing.PreferLocal)
	assert.False(t, *got.Routing.PreferLocal)
	assert.Equal(t, domain.AIProviderHashed, got.Embedding.Provider)
}
