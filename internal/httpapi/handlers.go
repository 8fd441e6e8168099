package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bull/localrag/internal/retrieval"
	"github.com/bull/localrag/internal/session"
)

// DefaultConversationID is used when a chat request names no conversation.
const DefaultConversationID = "default"

const healthTimeout = 3 * time.Second

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error       string `json:"error"`
	BackingPath string `json:"backing_path,omitempty"`
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// ChatResponse is the response body for POST /api/chat.
type ChatResponse struct {
	Response       string   `json:"response"`
	Sources        []string `json:"sources"`
	Outcome        string   `json:"outcome"`
	Attempts       int      `json:"attempts"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
	ConversationID string   `json:"conversation_id"`
	Timestamp      string   `json:"timestamp"`
}

// ConversationResponse is the response body for GET /api/conversations/:id.
type ConversationResponse struct {
	ConversationID string            `json:"conversation_id"`
	Messages       []session.Message `json:"messages"`
}

// HealthResponse is the response body for GET /api/health.
type HealthResponse struct {
	Status         string `json:"status"`
	Store          string `json:"store"`
	DocumentCount  int    `json:"document_count"`
	Model          string `json:"model,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	Timestamp      string `json:"timestamp"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Message cannot be empty"})
	}
	convID := req.ConversationID
	if convID == "" {
		convID = DefaultConversationID
	}

	ctx := c.Request().Context()
	asked := time.Now().UTC()

	ans, err := s.pipeline.Answer(ctx, message)
	if errors.Is(err, retrieval.ErrInvalidQuery) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Message cannot be empty"})
	}
	if err != nil {
		s.logger.Error("Chat request failed", "conversation_id", convID, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	answered := time.Now().UTC()
	sources := ans.Sources
	if sources == nil {
		sources = []string{}
	}

	err = s.sessions.Append(ctx, convID,
		session.Message{Role: session.RoleUser, Content: message, Timestamp: asked},
		session.Message{Role: session.RoleAssistant, Content: ans.Text, Timestamp: answered, Sources: sources},
	)
	if err != nil {
		// The answer is still useful; history is best effort.
		s.logger.Warn("Failed to record conversation", "conversation_id", convID, "error", err)
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Response:       ans.Text,
		Sources:        sources,
		Outcome:        string(ans.Kind),
		Attempts:       ans.Attempts,
		ElapsedSeconds: ans.Elapsed.Seconds(),
		ConversationID: convID,
		Timestamp:      answered.Format(time.RFC3339),
	})
}

func (s *Server) handleConversation(c echo.Context) error {
	id := c.Param("id")
	msgs, err := s.sessions.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	if msgs == nil {
		msgs = []session.Message{}
	}
	return c.JSON(http.StatusOK, ConversationResponse{ConversationID: id, Messages: msgs})
}

func (s *Server) handleClearConversations(c echo.Context) error {
	if err := s.sessions.Clear(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "All conversations cleared"})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.pipeline.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:       err.Error(),
			BackingPath: stats.BackingPath,
		})
	}
	return c.JSON(http.StatusOK, stats)
}

// handleHealth reports whether the vector store answers a count within a
// few seconds.
func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	stats, err := s.pipeline.Stats(ctx)
	response := HealthResponse{
		Model:          s.config.Model,
		EmbeddingModel: s.config.EmbeddingModel,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	if err != nil {
		s.logger.Warn("Health check failed", "store", stats.BackingPath, "error", err)
		response.Status = "unhealthy"
		response.Store = "disconnected"
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	response.Status = "healthy"
	response.Store = "connected"
	response.DocumentCount = stats.DocumentCount
	return c.JSON(http.StatusOK, response)
}
