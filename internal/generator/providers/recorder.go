package providers

import (
	"context"

	"github.com/ibeckermayer/icebreaker/internal/types"
)

// Recorder keeps prompt/response pairs for debugging.
type Recorder interface {
	RecordExchange(ctx context.Context, provider types.ProviderID, model, prompt, response string) error
}

// record is best-effort; a failing recorder never fails generation.
func record(ctx context.Context, r Recorder, provider types.ProviderID, model, prompt, response string) {
	if r == nil {
		return
	}
	_ = r.RecordExchange(ctx, provider, model, prompt, response)
}
