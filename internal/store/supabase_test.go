package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadiek/speaking-coach/internal/domain"
)

// fakePostgREST serves a single sessions row and records writes.
type fakePostgREST struct {
	mu      sync.Mutex
	patches []map[string]json.RawMessage
	uploads map[string]string
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasPrefix(r.URL.Path, "/rest/v1/sessions"):
		id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			if id != "s-1" {
				_, _ = io.WriteString(w, `[]`)
				return
			}
			_, _ = io.WriteString(w, `[{"id":"s-1","user_id":"u-1","level":"B2","created_at":"2026-02-01T10:00:00Z",
				"ielts_rating":{"fluency":6,"grammar":6,"vocabulary":6.5,"pronunciation":7,"overall":6.5},
				"toefl_rating":{"delivery":3,"language_use":3,"topic_development":3,"overall":90},
				"feedback":{"positives":["a","b","c","d"],"negatives":["e","f","g","h"]}}]`)
		case http.MethodPatch:
			var body map[string]json.RawMessage
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.patches = append(f.patches, body)
			if id != "s-1" {
				_, _ = io.WriteString(w, `[]`)
				return
			}
			_, _ = io.WriteString(w, `[{"id":"s-1","user_id":"u-1","level":"B2"}]`)
		case http.MethodPost:
			var body sessionInsert
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode([]domain.Session{{ID: "new-id", UserID: body.UserID, Level: body.Level}})
		}
	case strings.HasPrefix(r.URL.Path, "/rest/v1/profiles"):
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("user_id") == "eq.u-1" {
			_, _ = io.WriteString(w, `[{"user_id":"u-1","name":"Ana","occupation":"nurse"}]`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	case strings.HasPrefix(r.URL.Path, "/storage/v1/object/"):
		b, _ := io.ReadAll(r.Body)
		if f.uploads == nil {
			f.uploads = map[string]string{}
		}
		f.uploads[strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")] = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"Key":"transcripts/x"}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestSupabase(t *testing.T) (*Supabase, *fakePostgREST) {
	t.Helper()
	fake := &fakePostgREST{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := NewSupabase(SupabaseConfig{URL: srv.URL, ServiceRoleKey: "service", Bucket: "transcripts"})
	require.NoError(t, err)
	return s, fake
}

func TestNewSupabase_RequiresConfig(t *testing.T) {
	_, err := NewSupabase(SupabaseConfig{URL: "http://localhost"})
	assert.Error(t, err)
}

func TestSupabase_GetSession(t *testing.T) {
	s, _ := newTestSupabase(t)
	ctx := context.Background()

	got, err := s.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "B2", got.Level)
	require.True(t, got.Evaluated())
	assert.Equal(t, 6.5, got.IELTSRating.Overall)
	assert.Equal(t, 90.0, got.TOEFLRating.Overall)

	_, err = s.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabase_UpdateEvaluation(t *testing.T) {
	s, fake := newTestSupabase(t)
	ev := domain.Evaluation{
		IELTS:    domain.IELTSRatings{Overall: 7},
		TOEFL:    domain.TOEFLRatings{Delivery: 4, LanguageUse: 4, TopicDevelopment: 4, Overall: 120},
		Feedback: domain.Feedback{Positives: []string{"a", "b", "c", "d"}, Negatives: []string{"e", "f", "g", "h"}},
	}
	require.NoError(t, s.UpdateEvaluation(context.Background(), "s-1", ev))
	require.Len(t, fake.patches, 1)
	assert.Contains(t, fake.patches[0], "ielts_rating")
	assert.Contains(t, fake.patches[0], "toefl_rating")
	assert.Contains(t, fake.patches[0], "feedback")

	assert.ErrorIs(t, s.UpdateEvaluation(context.Background(), "nope", ev), ErrNotFound)
}

func TestSupabase_CreateSessionAndProfile(t *testing.T) {
	s, _ := newTestSupabase(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "u-1", "C1")
	require.NoError(t, err)
	assert.Equal(t, "new-id", sess.ID)
	assert.Equal(t, "C1", sess.Level)

	p, err := s.GetProfile(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.Name)
	_, err = s.GetProfile(ctx, "u-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabase_ArchiveTranscript(t *testing.T) {
	s, fake := newTestSupabase(t)
	msgs := []domain.SavedMessage{{Role: domain.RoleAssistant, Content: "Hi."}, {Role: domain.RoleUser, Content: "Hello!"}}
	require.NoError(t, s.ArchiveTranscript(context.Background(), "s-1", msgs))
	assert.Equal(t, "ASSISTANT: Hi.\n\nUSER: Hello!\n", fake.uploads["transcripts/sessions/s-1/transcript.txt"])
}
