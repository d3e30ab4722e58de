package ai

import (
	"context"
	"errors"
)

// NoModel is the TextGenerator used when no model credentials are
// configured. Every call fails, so the orchestrator serves its fallback
// reply and the rest of the service stays usable.
type NoModel struct{}

// Generate always reports that no model is configured.
func (NoModel) Generate(context.Context, PromptContext) (string, error) {
	return "", errors.New("text model not configured")
}
