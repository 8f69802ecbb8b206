package evaluation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadiek/speaking-coach/internal/apperr"
	"github.com/chadiek/speaking-coach/internal/domain"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeStore struct {
	updates map[string]domain.Evaluation
	calls   int
	err     error
}

func (f *fakeStore) UpdateEvaluation(_ context.Context, id string, ev domain.Evaluation) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.updates == nil {
		f.updates = map[string]domain.Evaluation{}
	}
	f.updates[id] = ev
	return nil
}

type fakeCache struct {
	puts map[string]any
	err  error
}

func (f *fakeCache) Put(_ context.Context, key string, v any) error {
	if f.puts == nil {
		f.puts = map[string]any{}
	}
	f.puts[key] = v
	return f.err
}

type fakeArchiver struct{ archived []string }

func (f *fakeArchiver) ArchiveTranscript(_ context.Context, id string, _ []domain.SavedMessage) error {
	f.archived = append(f.archived, id)
	return errors.New("bucket unavailable")
}

var conversation = []domain.SavedMessage{
	{Role: domain.RoleUser, Content: "hello"},
	{Role: domain.RoleAssistant, Content: "Tell me about your hometown"},
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestEvaluate_WellFormedResponse(t *testing.T) {
	gen := &fakeGenerator{reply: wellFormed}
	st := &fakeStore{}
	c := &fakeCache{}
	arch := &fakeArchiver{}
	p := NewPipeline(gen, st, WithCache(c), WithArchiver(arch), WithClock(func() time.Time { return fixedNow }))

	rep, err := p.Evaluate(context.Background(), "s-1", conversation, "B1")
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "B1")
	iu := strings.Index(prompt, "USER: hello")
	ia := strings.Index(prompt, "ASSISTANT: Tell me about your hometown")
	require.True(t, iu >= 0 && ia > iu, "transcript lines missing or out of order")

	require.False(t, rep.Degraded())
	assert.Equal(t, 6.5, rep.Evaluation.IELTS.Overall)
	assert.Len(t, rep.Evaluation.Feedback.Positives, 4)
	assert.Equal(t, 2, rep.MessageCount)
	assert.Equal(t, "B1", rep.Level)
	assert.Equal(t, fixedNow, rep.ProcessedAt)

	assert.Equal(t, 1, st.calls)
	assert.Equal(t, *rep.Evaluation, st.updates["s-1"])
	assert.Equal(t, CachedResult{SessionID: "s-1", Level: "B1", Evaluation: *rep.Evaluation}, c.puts["evaluation_s-1"])
	assert.Equal(t, []string{"s-1"}, arch.archived, "archive failure is not fatal")
}

func TestEvaluate_FencedResponse(t *testing.T) {
	st := &fakeStore{}
	p := NewPipeline(&fakeGenerator{reply: "```json\n" + wellFormed + "\n```"}, st)
	rep, err := p.Evaluate(context.Background(), "s-2", conversation, "B1")
	require.NoError(t, err)
	require.NotNil(t, rep.Evaluation)
	assert.Equal(t, Decode(wellFormed).Value, *rep.Evaluation)
}

func TestEvaluate_ProseIsDegraded(t *testing.T) {
	st := &fakeStore{}
	c := &fakeCache{}
	prose := "Overall a solid performance, roughly band 6."
	p := NewPipeline(&fakeGenerator{reply: prose}, st, WithCache(c))

	rep, err := p.Evaluate(context.Background(), "s-3", conversation, "C1")
	require.NoError(t, err)
	assert.True(t, rep.Degraded())
	assert.Equal(t, prose, rep.RawResponse)
	assert.Equal(t, ParseFailure, rep.Error)
	assert.Equal(t, "s-3", rep.SessionID)
	assert.Equal(t, 2, rep.MessageCount)
	assert.False(t, rep.ProcessedAt.IsZero())
	assert.Zero(t, st.calls, "degraded results are not persisted")
	assert.Empty(t, c.puts)
}

func TestEvaluate_WrongFeedbackCountIsDegraded(t *testing.T) {
	bad := strings.Replace(wellFormed, `"Clear opening.", `, "", 1)
	rep, err := NewPipeline(&fakeGenerator{reply: bad}, &fakeStore{}).Evaluate(context.Background(), "s-4", conversation, "B2")
	require.NoError(t, err)
	assert.Equal(t, ParseFailure, rep.Error)
	assert.Contains(t, rep.Reason, "feedback")
}

func TestEvaluate_EmptyMessages(t *testing.T) {
	gen := &fakeGenerator{reply: wellFormed}
	_, err := NewPipeline(gen, &fakeStore{}).Evaluate(context.Background(), "s-5", nil, "B1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, gen.prompts)
}

func TestEvaluate_BackendFailure(t *testing.T) {
	_, err := NewPipeline(&fakeGenerator{err: errors.New("503")}, &fakeStore{}).Evaluate(context.Background(), "s-6", conversation, "B1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrBackend)
}

func TestEvaluate_StoreFailure(t *testing.T) {
	st := &fakeStore{err: apperr.Database("update session", errors.New("conn reset"))}
	_, err := NewPipeline(&fakeGenerator{reply: wellFormed}, st).Evaluate(context.Background(), "s-7", conversation, "B1")
	require.Error(t, err)
	assert.Equal(t, 1, st.calls)
}
