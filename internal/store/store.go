// Package store persists practice sessions, their ratings and learner
// profiles.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chadiek/speaking-coach/internal/domain"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("store: not found")

// Store is the session store consumed by the HTTP layer and the evaluation
// pipeline. Writes are last-writer-wins per row.
type Store interface {
	CreateSession(ctx context.Context, userID, level string) (*domain.Session, error)
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	UpdateEvaluation(ctx context.Context, id string, ev domain.Evaluation) error
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// transcriptKey is the object path of an archived transcript.
func transcriptKey(sessionID string) string {
	return fmt.Sprintf("sessions/%s/transcript.txt", sessionID)
}

func renderTranscript(messages []domain.SavedMessage) []byte {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.ToUpper(string(m.Role)))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	b.WriteString("\n")
	return []byte(b.String())
}
