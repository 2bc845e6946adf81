package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

func chatRequest(payload string) domain.DispatchRequest {
	return domain.DispatchRequest{Task: domain.TaskChat, Payload: payload}
}

func TestSelectModel_PrefersLocal(t *testing.T) {
	a := descriptor("a", domain.LocalityLocal, domain.LatencyLow, "chat")
	b := descriptor("b", domain.LocalityCloud, domain.LatencyLow, "chat")

	id, err := SelectModel(chatRequest("hi"), domain.Preferences{PreferLocal: boolPtr(true)}, []domain.ModelDescriptor{b, a})

	require.NoError(t, err)
	assert.Equal(t, "a", id)
}

func TestSelectModel_NilPreferLocalMeansLocal(t *testing.T) {
	a := descriptor("a", domain.LocalityLocal, domain.LatencyLow, "chat")
	b := descriptor("b", domain.LocalityCloud, domain.LatencyLow, "chat")

	id, err := SelectModel(chatRequest("hi"), domain.Preferences{}, []domain.ModelDescriptor{b, a})

	require.NoError(t, err)
	assert.Equal(t, "a", id)
}

func TestSelectModel_NoLocalPreferenceUsesRegistrationOrder(t *testing.T) {
	a := descriptor("a", domain.LocalityLocal, domain.LatencyLow, "chat")
	b := descriptor("b", domain.LocalityCloud, domain.LatencyLow, "chat")

	id, err := SelectModel(chatRequest("hi"), domain.Preferences{PreferLocal: boolPtr(false)}, []domain.ModelDescriptor{b, a})

	require.NoError(t, err)
	assert.Equal(t, "b", id)
}

func TestSelectModel_FallsBackToCloudWhenNoLocal(t *testing.T) {
	b := descriptor("b", domain.LocalityCloud, domain.LatencyLow, "chat")

	id, err := SelectModel(chatRequest("hi"), domain.Preferences{PreferLocal: boolPtr(true)}, []domain.ModelDescriptor{b})

	require.NoError(t, err)
	assert.Equal(t, "b", id)
}

func TestSelectModel_TaskSuitability(t *testing.T) {
	completionOnly := descriptor("comp", domain.LocalityLocal, domain.LatencyLow, "completion")
	general := descriptor("gen", domain.LocalityLocal, domain.LatencyLow, domain.SpecialtyGeneralCoding)

	id, err := SelectModel(chatRequest("hi"), domain.Preferences{}, []domain.ModelDescriptor{completionOnly, general})
	require.NoError(t, err)
	assert.Equal(t, "gen", id)

	req := domain.DispatchRequest{Task: domain.TaskCompletion, Payload: "func main"}
	id, err = SelectModel(req, domain.Preferences{}, []domain.ModelDescriptor{completionOnly, general})
	require.NoError(t, err)
	assert.Equal(t, "comp", id)
}

func TestSelectModel_ExcludesEmbeddingModels(t *testing.T) {
	emb := descriptor("emb", domain.LocalityLocal, domain.LatencyLow, "chat")
	emb.Kind = domain.ModelKindEmbedding

	_, err := SelectModel(chatRequest("hi"), domain.Preferences{}, []domain.ModelDescriptor{emb})

	assert.ErrorIs(t, err, domain.ErrNoModelAvailable)
}

func TestSelectModel_LatencyFilter(t *testing.T) {
	tests := []struct {
		name    string
		desc    domain.ModelDescriptor
		task    domain.TaskType
		allowed bool
	}{
		{"inline local low", descriptor("m", domain.LocalityLocal, domain.LatencyLow, "chat"), domain.TaskInlineCompletion, true},
		{"inline local medium", descriptor("m", domain.LocalityLocal, domain.LatencyMedium, "chat"), domain.TaskInlineCompletion, true},
		{"inline cloud medium", descriptor("m", domain.LocalityCloud, domain.LatencyMedium, "chat"), domain.TaskInlineCompletion, false},
		{"inline local high", descriptor("m", domain.LocalityLocal, domain.LatencyHigh, "chat"), domain.TaskInlineCompletion, false},
		{"chat cloud high", descriptor("m", domain.LocalityCloud, domain.LatencyHigh, "chat"), domain.TaskChat, false},
		{"completion cloud high", descriptor("m", domain.LocalityCloud, domain.LatencyHigh, "chat"), domain.TaskCompletion, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := domain.DispatchRequest{Task: tt.task, Payload: "x"}
			id, err := SelectModel(req, domain.Preferences{}, []domain.ModelDescriptor{tt.desc})
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, "m", id)
			} else {
				assert.ErrorIs(t, err, domain.ErrNoModelAvailable)
			}
		})
	}
}

func TestSelectModel_ContextFilter(t *testing.T) {
	small := descriptor("small", domain.LocalityLocal, domain.LatencyLow, "chat")
	large := descriptor("large", domain.LocalityCloud, domain.LatencyLow, "chat")
	large.ContextWindow = 128000

	req := chatRequest(strings.Repeat("x", 40000))

	id, err := SelectModel(req, domain.Preferences{}, []domain.ModelDescriptor{small, large})

	require.NoError(t, err)
	assert.Equal(t, "large", id, "context fit outranks locality")
}

func TestSelectModel_ContextFilterSkippedWhenNothingFits(t *testing.T) {
	small := descriptor("small", domain.LocalityLocal, domain.LatencyLow, "chat")
	req := chatRequest(strings.Repeat("x", 40000))

	id, err := SelectModel(req, domain.Preferences{}, []domain.ModelDescriptor{small})

	require.NoError(t, err)
	assert.Equal(t, "small", id)
}

func TestSelectModel_ContextBelowThresholdIgnored(t *testing.T) {
	small := descriptor("small", domain.LocalityLocal, domain.LatencyLow, "chat")
	small.ContextWindow = 10
	large := descriptor("large", domain.LocalityLocal, domain.LatencyLow, "chat")
	large.ContextWindow = 128000

	id, err := SelectModel(chatRequest(strings.Repeat("x", 400)), domain.Preferences{}, []domain.ModelDescriptor{small, large})

	require.NoError(t, err)
	assert.Equal(t, "small", id)
}

func TestSelectModel_PinnedTiebreak(t *testing.T) {
	a := descriptor("a", domain.LocalityLocal, domain.LatencyLow, "chat")
	b := descriptor("b", domain.LocalityLocal, domain.LatencyLow, "chat")
	c := descriptor("c", domain.LocalityCloud, domain.LatencyLow, "chat")
	ready := []domain.ModelDescriptor{a, b, c}

	id, err := SelectModel(chatRequest("hi"), domain.Preferences{PinnedModelID: "b"}, ready)
	require.NoError(t, err)
	assert.Equal(t, "b", id)

	// A pinned cloud model loses to the local preference in tiebreak mode.
	id, err = SelectModel(chatRequest("hi"), domain.Preferences{PinnedModelID: "c"}, ready)
	require.NoError(t, err)
	assert.Equal(t, "a", id)
}

func TestSelectModel_PinnedOverride(t *testing.T) {
	a := descriptor("a", domain.LocalityLocal, domain.LatencyLow, "chat")
	slow := descriptor("slow", domain.LocalityCloud, domain.LatencyHigh, "chat")
	prefs := domain.Preferences{PinnedModelID: "slow", PinMode: domain.PinModeOverride}

	req := domain.DispatchRequest{Task: domain.TaskInlineCompletion, Payload: "x"}
	id, err := SelectModel(req, prefs, []domain.ModelDescriptor{a, slow})

	require.NoError(t, err)
	assert.Equal(t, "slow", id)
}

func TestSelectModel_PinnedOverrideStillRequiresSuitability(t *testing.T) {
	a := descriptor("a", domain.LocalityLocal, domain.LatencyLow, "chat")
	emb := descriptor("emb", domain.LocalityLocal, domain.LatencyLow, "chat")
	emb.Kind = domain.ModelKindEmbedding
	prefs := domain.Preferences{PinnedModelID: "emb", PinMode: domain.PinModeOverride}

	id, err := SelectModel(chatRequest("hi"), prefs, []domain.ModelDescriptor{a, emb})

	require.NoError(t, err)
	assert.Equal(t, "a", id)
}

func TestSelectModel_EmptyReadySet(t *testing.T) {
	_, err := SelectModel(chatRequest("hi"), domain.Preferences{}, nil)
	assert.ErrorIs(t, err, domain.ErrNoModelAvailable)
}

func TestSelectModel_Deterministic(t *testing.T) {
	ready := []domain.ModelDescriptor{
		descriptor("c1", domain.LocalityCloud, domain.LatencyLow, "chat"),
		descriptor("l1", domain.LocalityLocal, domain.LatencyMedium, "chat"),
		descriptor("l2", domain.LocalityLocal, domain.LatencyLow, "chat"),
	}
	req := domain.DispatchRequest{Task: domain.TaskInlineCompletion, Payload: "x"}

	first, err := SelectModel(req, domain.Preferences{}, ready)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		id, err := SelectModel(req, domain.Preferences{}, ready)
		require.NoError(t, err)
		assert.Equal(t, first, id)
	}
}
