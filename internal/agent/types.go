package agent

import (
	"context"

	"github.com/chadiek/speaking-coach/internal/voice"
)

// Transport is the voice-call connection a Session drives.
// Implementations deliver events on their own goroutine.
type Transport interface {
	Start(ctx context.Context, assistant voice.AssistantConfig, overrides voice.Overrides) error
	Stop() error
	SetMuted(muted bool) error
	IsMuted() bool
	Subscribe(t voice.EventType, fn voice.Handler) voice.Unsubscribe
}

// Suggester receives one prompt per finalized examiner utterance.
type Suggester interface {
	Generate(prompt string)
}

// closer is implemented by suggesters that hold background work.
type closer interface {
	Close()
}
