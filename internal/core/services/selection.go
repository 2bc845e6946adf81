package services

import (
	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// SelectModel picks the model for a request from a snapshot of ready descriptors.
// It is a pure function: identical inputs always produce the same id.
//
// Filters run in order: task suitability, latency for interactive tasks,
// context size (skipped if it would leave nothing), then locality preference.
// Remaining ties go to the pinned model or, failing that, registration order.
func SelectModel(req domain.DispatchRequest, prefs domain.Preferences, ready []domain.ModelDescriptor) (string, error) {
	candidates := filter(ready, func(d domain.ModelDescriptor) bool {
		return d.Kind != domain.ModelKindEmbedding && suitsTask(d, req.Task)
	})

	if prefs.PinMode == domain.PinModeOverride && prefs.PinnedModelID != "" {
		for _, d := range candidates {
			if d.ID == prefs.PinnedModelID {
				return d.ID, nil
			}
		}
	}

	if req.Task.IsLatencySensitive() {
		candidates = filter(candidates, func(d domain.ModelDescriptor) bool {
			return d.Latency == domain.LatencyLow || (d.IsLocal() && d.Latency == domain.LatencyMedium)
		})
	}

	threshold := prefs.ContextThreshold
	if threshold <= 0 {
		threshold = domain.DefaultContextThreshold
	}
	if need := req.EstimatedTokens(); need > threshold {
		fits := filter(candidates, func(d domain.ModelDescriptor) bool {
			return d.ContextWindow >= need
		})
		if len(fits) > 0 {
			candidates = fits
		}
	}

	if prefs.WantsLocal() {
		local := filter(candidates, domain.ModelDescriptor.IsLocal)
		if len(local) > 0 {
			candidates = local
		}
	}

	if len(candidates) == 0 {
		return "", domain.ErrNoModelAvailable
	}

	if prefs.PinnedModelID != "" {
		for _, d := range candidates {
			if d.ID == prefs.PinnedModelID {
				return d.ID, nil
			}
		}
	}
	return candidates[0].ID, nil
}

// suitsTask reports whether the descriptor advertises the task or a generic fallback tag.
func suitsTask(d domain.ModelDescriptor, task domain.TaskType) bool {
	return d.HasSpecialty(string(task)) ||
		d.HasSpecialty(domain.SpecialtyGeneralCoding) ||
		d.HasSpecialty(domain.SpecialtyChat)
}

func filter(in []domain.ModelDescriptor, keep func(domain.ModelDescriptor) bool) []domain.ModelDescriptor {
	out := make([]domain.ModelDescriptor, 0, len(in))
	for _, d := range in {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
