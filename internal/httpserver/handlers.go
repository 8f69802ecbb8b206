package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/apperr"
	"github.com/chadiek/speaking-coach/internal/domain"
	"github.com/chadiek/speaking-coach/internal/logger"
)

type ratingRequest struct {
	Messages []domain.SavedMessage `json:"messages"`
	Level    string                `json:"level"`
}

func (s *Server) rating(c echo.Context) error {
	sessionID := c.Param("sessionId")
	var req ratingRequest
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidInput("Messages array is required")
	}
	if len(req.Messages) == 0 {
		return apperr.InvalidInput("Messages array is required")
	}
	for _, m := range req.Messages {
		if !m.Role.Valid() {
			return apperr.InvalidInput(fmt.Sprintf("Messages array is required: unknown role %q", m.Role))
		}
	}
	if strings.TrimSpace(req.Level) == "" {
		return apperr.MissingField("Level is required")
	}
	if s.deps.Config.LLMKey() == "" {
		return apperr.Configuration(s.deps.Config.LLMKeyName() + " is not configured")
	}

	report, err := s.deps.Evaluator.Evaluate(c.Request().Context(), sessionID, req.Messages, req.Level)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) result(c echo.Context) error {
	res, err := s.deps.Results.GetResult(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		// the results page treats a missing rating as a server error
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("Session not found").WithStatus(http.StatusInternalServerError)
		}
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type suggestionRequest struct {
	Prompt string `json:"prompt"`
}

// suggestions streams the generated text as chunked text/plain. A failure
// before the first chunk is a 500; after that the body is cut short.
func (s *Server) suggestions(c echo.Context) error {
	var req suggestionRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		return apperr.InvalidInput("Prompt is required")
	}
	if s.deps.Config.LLMKey() == "" && s.deps.Config.SuggestionEndpoint == "" {
		return apperr.Configuration(s.deps.Config.LLMKeyName() + " is not configured")
	}

	ctx := c.Request().Context()
	res := c.Response()
	wrote := false
	for delta, err := range s.deps.Suggestions.Stream(ctx, req.Prompt) {
		if err != nil {
			if !wrote {
				return apperr.Backend("Failed to generate suggestion", err)
			}
			logger.FromContext(ctx).Warn("suggestion stream aborted", zap.Error(err))
			return nil
		}
		if !wrote {
			res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
			res.Header().Set("Cache-Control", "no-cache")
			res.WriteHeader(http.StatusOK)
			wrote = true
		}
		if _, err := res.Write([]byte(delta)); err != nil {
			return nil
		}
		res.Flush()
	}
	if !wrote {
		res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
		res.WriteHeader(http.StatusOK)
	}
	return nil
}

type createSessionRequest struct {
	Level  string `json:"level"`
	UserID string `json:"userId"`
}

type createSessionResponse struct {
	ID string `json:"id"`
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.InvalidInput("invalid request body")
	}
	if strings.TrimSpace(req.Level) == "" {
		return apperr.MissingField("Level is required")
	}
	sess, err := s.deps.Sessions.CreateSession(c.Request().Context(), req.UserID, req.Level)
	if err != nil {
		return apperr.Database("failed to create session", err)
	}
	return c.JSON(http.StatusCreated, createSessionResponse{ID: sess.ID})
}
