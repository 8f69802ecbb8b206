// Package agent drives one practice call: it owns the call status and the
// transcript, forwards examiner turns to the suggestion engine and hands the
// finished conversation to whoever ends the call.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/domain"
	"github.com/chadiek/speaking-coach/internal/logger"
	"github.com/chadiek/speaking-coach/internal/metrics"
	"github.com/chadiek/speaking-coach/internal/suggestion"
	"github.com/chadiek/speaking-coach/internal/voice"
)

// ErrCallFinished is returned by Start once the Session has ended.
var ErrCallFinished = errors.New("agent: call already finished")

// Snapshot is the observable state of a Session.
type Snapshot struct {
	SessionID   string                `json:"sessionId"`
	Status      domain.CallStatus     `json:"status"`
	IsSpeaking  bool                  `json:"isSpeaking"`
	IsMuted     bool                  `json:"isMuted"`
	SessionTime time.Duration         `json:"sessionTime"`
	Messages    []domain.SavedMessage `json:"messages"`
	LastError   string                `json:"lastError,omitempty"`
}

// Option configures a Session.
type Option func(*Session)

// WithProfile personalizes suggestion prompts.
func WithProfile(p *domain.Profile) Option { return func(s *Session) { s.profile = p } }

// WithAssistant replaces the default examiner configuration.
func WithAssistant(a voice.AssistantConfig) Option { return func(s *Session) { s.assistant = a } }

// WithStateObserver registers fn for every state change. Calls are serialized.
func WithStateObserver(fn func(Snapshot)) Option { return func(s *Session) { s.onState = fn } }

// WithClock sets the time source of the session timer.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.timer = NewTimer(now) } }

// Session is the call orchestrator for a single practice session.
type Session struct {
	transport Transport
	suggester Suggester
	assistant voice.AssistantConfig
	profile   *domain.Profile
	timer     *Timer
	onState   func(Snapshot)
	log       *zap.Logger

	mu        sync.Mutex
	status    domain.CallStatus
	speaking  bool
	messages  []domain.SavedMessage
	lastErr   error
	sessionID string
	level     string
	onMessage func(domain.SavedMessage)
	onCallEnd func([]domain.SavedMessage)
	ended     bool
	done      chan struct{}
	disposers []voice.Unsubscribe

	pubMu sync.Mutex
}

// NewSession builds an inactive Session. suggester may be nil.
func NewSession(t Transport, suggester Suggester, opts ...Option) *Session {
	s := &Session{
		transport: t,
		suggester: suggester,
		assistant: voice.DefaultAssistant(),
		status:    domain.CallInactive,
		done:      make(chan struct{}),
		log:       logger.Named("agent"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.timer == nil {
		s.timer = NewTimer(nil)
	}
	return s
}

// Start connects the call for sessionID at level. It is a no-op while a call
// is connecting or active. On failure the Session returns to inactive and the
// caller may retry.
func (s *Session) Start(ctx context.Context, level, sessionID string, onMessage func(domain.SavedMessage), onCallEnd func([]domain.SavedMessage)) error {
	s.mu.Lock()
	switch s.status {
	case domain.CallConnecting, domain.CallActive:
		s.mu.Unlock()
		s.log.Debug("start ignored, call in progress", zap.String("session_id", sessionID))
		return nil
	case domain.CallFinished:
		s.mu.Unlock()
		return ErrCallFinished
	}
	s.sessionID = sessionID
	s.level = level
	s.onMessage = onMessage
	s.onCallEnd = onCallEnd
	s.messages = nil
	s.speaking = false
	s.lastErr = nil
	s.timer.Reset()
	s.setStatusLocked(domain.CallConnecting)
	s.subscribeLocked()
	cfg := s.assistant.Render(level)
	s.mu.Unlock()
	s.publish()

	s.log.Info("starting call", zap.String("session_id", sessionID), zap.String("level", level))
	err := s.transport.Start(ctx, cfg, voice.LevelOverrides(level))

	s.mu.Lock()
	if err != nil {
		if s.status == domain.CallConnecting {
			s.setStatusLocked(domain.CallInactive)
		}
		s.lastErr = err
		s.releaseLocked()
		s.mu.Unlock()
		s.publish()
		s.log.Error("call start failed", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("start call: %w", err)
	}
	switch s.status {
	case domain.CallConnecting:
		s.setStatusLocked(domain.CallActive)
	case domain.CallActive:
	default:
		// ended or failed while dialing; the fresh connection must not outlive the call
		status := s.status
		s.mu.Unlock()
		if err := s.transport.Stop(); err != nil {
			s.log.Warn("stopping transport", zap.String("session_id", sessionID), zap.Error(err))
		}
		s.log.Info("call torn down after connect", zap.String("session_id", sessionID), zap.String("status", string(status)))
		return nil
	}
	s.mu.Unlock()
	s.publish()
	return nil
}

func (s *Session) subscribeLocked() {
	s.disposers = append(s.disposers,
		s.transport.Subscribe(voice.EventCallStart, s.handleCallStart),
		s.transport.Subscribe(voice.EventCallEnd, func(voice.Event) { s.EndCall() }),
		s.transport.Subscribe(voice.EventMessage, s.handleMessage),
		s.transport.Subscribe(voice.EventSpeechStart, func(voice.Event) { s.setSpeaking(true) }),
		s.transport.Subscribe(voice.EventSpeechEnd, func(voice.Event) { s.setSpeaking(false) }),
		s.transport.Subscribe(voice.EventError, s.handleError),
	)
}

func (s *Session) releaseLocked() {
	for _, d := range s.disposers {
		d()
	}
	s.disposers = nil
}

func (s *Session) handleCallStart(voice.Event) {
	s.mu.Lock()
	if s.status == domain.CallConnecting {
		s.setStatusLocked(domain.CallActive)
	}
	s.mu.Unlock()
	s.publish()
}

func (s *Session) handleMessage(ev voice.Event) {
	m := ev.Message
	if !m.IsFinalTranscript() {
		return
	}
	if !m.Role.Valid() {
		s.log.Warn("dropping transcript with unknown role", zap.String("role", string(m.Role)))
		return
	}
	msg := domain.SavedMessage{Role: m.Role, Content: m.Transcript}

	s.mu.Lock()
	if s.status == domain.CallFinished {
		s.mu.Unlock()
		return
	}
	s.messages = append(s.messages, msg)
	onMessage, level := s.onMessage, s.level
	s.mu.Unlock()

	if onMessage != nil {
		onMessage(msg)
	}
	if msg.Role == domain.RoleAssistant && s.suggester != nil {
		s.suggester.Generate(suggestion.BuildPrompt(level, msg.Content, s.profile))
	}
	s.publish()
}

func (s *Session) setSpeaking(v bool) {
	s.mu.Lock()
	s.speaking = v
	s.mu.Unlock()
	s.publish()
}

func (s *Session) handleError(ev voice.Event) {
	err := ev.Err
	if err == nil {
		err = errors.New("voice transport error")
	}
	s.mu.Lock()
	if s.status != domain.CallFinished {
		s.setStatusLocked(domain.CallInactive)
	}
	s.speaking = false
	s.lastErr = err
	s.releaseLocked()
	id := s.sessionID
	s.mu.Unlock()
	s.log.Error("call error", zap.String("session_id", id), zap.Error(err))
	if err := s.transport.Stop(); err != nil {
		s.log.Warn("stopping transport", zap.String("session_id", id), zap.Error(err))
	}
	s.publish()
}

// ToggleMicrophone flips the learner's mute state. Without an active call it
// only logs a warning.
func (s *Session) ToggleMicrophone() error {
	s.mu.Lock()
	status := s.status
	s.mu.Unlock()
	if status != domain.CallActive {
		s.log.Warn("toggle microphone without an active call", zap.String("status", string(status)))
		return nil
	}
	if err := s.transport.SetMuted(!s.transport.IsMuted()); err != nil {
		return fmt.Errorf("toggle microphone: %w", err)
	}
	s.publish()
	return nil
}

// EndCall finishes the call and hands a copy of the transcript to the
// end-of-call callback. Repeated calls do nothing.
func (s *Session) EndCall() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	defer close(s.done)
	s.setStatusLocked(domain.CallFinished)
	s.speaking = false
	s.releaseLocked()
	msgs := append([]domain.SavedMessage(nil), s.messages...)
	cb := s.onCallEnd
	id := s.sessionID
	s.mu.Unlock()

	if err := s.transport.Stop(); err != nil {
		s.log.Warn("stopping transport", zap.String("session_id", id), zap.Error(err))
	}
	if c, ok := s.suggester.(closer); ok {
		c.Close()
	}
	s.log.Info("call ended", zap.String("session_id", id), zap.Int("messages", len(msgs)))
	s.publish()
	if cb != nil {
		cb(msgs)
	}
}

// setStatusLocked moves to next and keeps the timer and gauge in step.
func (s *Session) setStatusLocked(next domain.CallStatus) {
	prev := s.status
	if prev == next {
		return
	}
	s.status = next
	if next == domain.CallActive {
		s.timer.Resume()
		metrics.ActiveCalls.Inc()
	} else {
		s.timer.Pause()
	}
	if prev == domain.CallActive {
		metrics.ActiveCalls.Dec()
	}
}

// Done is closed once EndCall has run the end-of-call callback.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Status() domain.CallStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Messages returns a copy of the transcript so far.
func (s *Session) Messages() []domain.SavedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SavedMessage(nil), s.messages...)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		SessionID:   s.sessionID,
		Status:      s.status,
		IsSpeaking:  s.speaking,
		SessionTime: s.timer.Elapsed(),
		Messages:    append([]domain.SavedMessage(nil), s.messages...),
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	active := s.status == domain.CallActive
	s.mu.Unlock()
	if active {
		snap.IsMuted = s.transport.IsMuted()
	}
	return snap
}

func (s *Session) publish() {
	if s.onState == nil {
		return
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.onState(s.Snapshot())
}
