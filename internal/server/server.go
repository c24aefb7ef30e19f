// Package server exposes the chat service over HTTP: a single POST /chat
// endpoint accepting {"message"} and returning {"response"} or {"error"}.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"ragchat/internal/domain"
	"ragchat/internal/service"
)

// ingestionRequiredMessage tells callers the actionable fix for a missing
// index, rather than a generic failure.
const ingestionRequiredMessage = "Chatbot initialization failed: the vector index has not been built. Run ragchat-ingest against your corpus first."

const internalErrorMessage = "An internal error occurred. Please try again later."

// ChatPort is the server-facing subset of the chat service.
type ChatPort interface {
	Ask(ctx context.Context, question string) (*service.Answer, error)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	svc ChatPort
	log *log.Logger
}

// New builds the echo application around the chat service.
func New(svc ChatPort) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	h := &handler{
		svc: svc,
		log: log.New(os.Stderr, "[HTTP] ", log.LstdFlags),
	}
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/chat", h.chat)
	return e
}

// chat handles one question. Client errors name the offending field; server
// errors are logged in full and returned with a non-leaking message, except
// the missing-index case which carries actionable guidance.
func (h *handler) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Request must be a JSON object with a string 'message'"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "Missing 'message' in request body"})
	}

	ans, err := h.svc.Ask(c.Request().Context(), req.Message)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Missing 'message' in request body"})
		}
		h.log.Printf("chat failed: %v", err)
		if errors.Is(err, domain.ErrIndexNotFound) {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: ingestionRequiredMessage})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: internalErrorMessage})
	}
	return c.JSON(http.StatusOK, chatResponse{Response: ans.Text})
}
