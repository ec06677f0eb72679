package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/sprintai/internal/store"
)

func (s *Server) handleListMessages(c echo.Context) error {
	msgs, err := s.services.Chat.List(c.Request().Context(), session(c).UserID())
	if err != nil {
		return s.fail(c, err)
	}
	if msgs == nil {
		msgs = []store.ChatMessage{}
	}
	return c.JSON(http.StatusOK, MessagesResponse{Messages: msgs})
}

func (s *Server) handleSendMessage(c echo.Context) error {
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ex, err := s.services.Chat.Send(c.Request().Context(), session(c).UserID(), req.Content)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, ex)
}

// handleProxy forwards a message list to the model. Only a malformed body
// is an error; upstream failures still produce a 200 with a fallback reply.
func (s *Server) handleProxy(c echo.Context) error {
	var req ProxyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	reply := s.services.Chat.Proxy(c.Request().Context(), req.Messages)
	return c.JSON(http.StatusOK, ProxyResponse{Reply: reply})
}
