// Package httpserver exposes the rating, results, suggestion and live
// session endpoints over echo.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/agent"
	"github.com/chadiek/speaking-coach/internal/apperr"
	"github.com/chadiek/speaking-coach/internal/config"
	"github.com/chadiek/speaking-coach/internal/domain"
	"github.com/chadiek/speaking-coach/internal/evaluation"
	"github.com/chadiek/speaking-coach/internal/logger"
	"github.com/chadiek/speaking-coach/internal/results"
)

type Evaluator interface {
	Evaluate(ctx context.Context, sessionID string, messages []domain.SavedMessage, level string) (*evaluation.Report, error)
}

type ResultReader interface {
	GetResult(ctx context.Context, sessionID string) (*results.Result, error)
}

// TextStreamer backs both the suggestions endpoint and live suggestions.
type TextStreamer interface {
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

type SessionStore interface {
	CreateSession(ctx context.Context, userID, level string) (*domain.Session, error)
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// Deps bundles what the handlers need. Registry and NewTransport are only
// required by the live endpoint.
type Deps struct {
	Config       config.Config
	Evaluator    Evaluator
	Results      ResultReader
	Suggestions  TextStreamer
	Sessions     SessionStore
	Registry     *agent.Registry
	NewTransport func() agent.Transport
}

// Server bundles the echo router and its dependencies.
type Server struct {
	Echo *echo.Echo
	deps Deps
	log  *zap.Logger
}

// New constructs the HTTP server with routes.
func New(d Deps) *Server {
	if d.Registry == nil {
		d.Registry = agent.NewRegistry()
	}
	s := &Server{deps: d, log: logger.Named("http")}
	s.Echo = newRouter(s)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.Echo.ServeHTTP(w, r) }

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// handleError renders every failure as {"error", "code"} JSON.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, errorBody{Error: fmt.Sprint(he.Message), Code: http.StatusText(he.Code)})
		return
	}
	ae := apperr.As(err)
	if ae.StatusCode >= http.StatusInternalServerError {
		logger.FromContext(c.Request().Context()).Error("request failed",
			zap.String("path", c.Path()), zap.String("code", string(ae.Code)), zap.Error(err))
	}
	_ = c.JSON(ae.StatusCode, errorBody{Error: ae.Message, Code: string(ae.Code)})
}
