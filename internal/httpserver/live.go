package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/agent"
	"github.com/chadiek/speaking-coach/internal/apperr"
	"github.com/chadiek/speaking-coach/internal/domain"
	"github.com/chadiek/speaking-coach/internal/evaluation"
	"github.com/chadiek/speaking-coach/internal/logger"
	"github.com/chadiek/speaking-coach/internal/store"
	"github.com/chadiek/speaking-coach/internal/suggestion"
)

const (
	liveWriteTimeout   = 5 * time.Second
	evaluationDeadline = 90 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// liveCommand is sent by the browser.
type liveCommand struct {
	Type  string `json:"type"` // start, mute, end
	Level string `json:"level,omitempty"`
}

// liveFrame is pushed to the browser.
type liveFrame struct {
	Type       string             `json:"type"` // state, suggestion, evaluation, error
	State      *agent.Snapshot    `json:"state,omitempty"`
	Suggestion *suggestion.State  `json:"suggestion,omitempty"`
	Evaluation *evaluation.Report `json:"evaluation,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// liveConn serializes writes to one browser socket.
type liveConn struct {
	conn *websocket.Conn
	log  *zap.Logger
	mu   sync.Mutex
}

func (l *liveConn) send(f liveFrame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	if err := l.conn.WriteJSON(f); err != nil {
		l.log.Debug("live write failed", zap.String("type", f.Type), zap.Error(err))
	}
}

// live bridges one browser tab to a voice call for the session. Only one
// bridge may own a session id at a time.
func (s *Server) live(c echo.Context) error {
	if s.deps.NewTransport == nil {
		return apperr.Configuration("VOICE_WS_URL is not configured")
	}
	sessionID := c.Param("sessionId")
	level := c.QueryParam("level")
	userID := c.QueryParam("userId")
	ctx := c.Request().Context()
	log := logger.FromContext(ctx).With(zap.String("session_id", sessionID))

	var profile *domain.Profile
	if userID != "" && s.deps.Sessions != nil {
		p, err := s.deps.Sessions.GetProfile(ctx, userID)
		switch {
		case err == nil:
			profile = p
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("loading profile", zap.Error(err))
		}
	}

	var lc *liveConn
	engine := suggestion.NewEngine(s.deps.Suggestions, func(st suggestion.State) {
		if lc != nil {
			lc.send(liveFrame{Type: "suggestion", Suggestion: &st})
		}
	})
	sess, err := s.deps.Registry.Acquire(sessionID, func() *agent.Session {
		return agent.NewSession(s.deps.NewTransport(), engine,
			agent.WithProfile(profile),
			agent.WithStateObserver(func(sn agent.Snapshot) {
				if lc != nil {
					lc.send(liveFrame{Type: "state", State: &sn})
				}
			}),
		)
	})
	if err != nil {
		engine.Close()
		return apperr.New(apperr.CodeConflict, "Session already has a live call").WithStatus(http.StatusConflict)
	}
	defer s.deps.Registry.Release(sessionID, sess)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		engine.Close()
		return nil
	}
	defer conn.Close()
	lc = &liveConn{conn: conn, log: log}
	lc.send(liveFrame{Type: "state", State: ptr(sess.Snapshot())})

	var evalWG sync.WaitGroup
	onCallEnd := func(msgs []domain.SavedMessage) {
		evalWG.Add(1)
		go func() {
			defer evalWG.Done()
			s.evaluateLive(lc, log, sessionID, level, msgs)
		}()
	}

	for {
		var cmd liveCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("live socket closed", zap.Error(err))
			}
			break
		}
		switch cmd.Type {
		case "start":
			if cmd.Level != "" {
				level = cmd.Level
			}
			if err := sess.Start(context.WithoutCancel(ctx), level, sessionID, nil, onCallEnd); err != nil {
				ae := apperr.Transport("Could not start the call", err)
				log.Error("live start failed", zap.Error(ae))
				lc.send(liveFrame{Type: "error", Error: ae.Message})
			}
		case "mute":
			if err := sess.ToggleMicrophone(); err != nil {
				lc.send(liveFrame{Type: "error", Error: err.Error()})
			}
		case "end":
			sess.EndCall()
		default:
			lc.send(liveFrame{Type: "error", Error: "unknown command " + cmd.Type})
		}
	}

	// a closed tab ends the call; whatever was said is still rated, even
	// after a transport error left the call inactive
	if sess.Status() != domain.CallInactive || len(sess.Messages()) > 0 {
		sess.EndCall()
		<-sess.Done()
	}
	engine.Close()
	evalWG.Wait()
	return nil
}

func (s *Server) evaluateLive(lc *liveConn, log *zap.Logger, sessionID, level string, msgs []domain.SavedMessage) {
	if len(msgs) == 0 {
		lc.send(liveFrame{Type: "error", Error: "Call ended before anything was said"})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), evaluationDeadline)
	defer cancel()
	report, err := s.deps.Evaluator.Evaluate(ctx, sessionID, msgs, level)
	if err != nil {
		log.Error("live evaluation failed", zap.Error(err))
		lc.send(liveFrame{Type: "error", Error: apperr.As(err).Message})
		return
	}
	lc.send(liveFrame{Type: "evaluation", Evaluation: report})
}

func ptr[T any](v T) *T { return &v }
