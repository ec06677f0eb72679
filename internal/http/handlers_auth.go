package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/sprintai/internal/identity"
)

func (s *Server) handleRegister(c echo.Context) error {
	var req identity.RegisterInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sess, err := s.services.Identity.Register(c.Request().Context(), req)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, authResponse(sess))
}

func (s *Server) handleLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	sess, err := s.services.Identity.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, authResponse(sess))
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.services.Identity.SignOut(c.Request().Context(), session(c).Token); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMe(c echo.Context) error {
	return c.JSON(http.StatusOK, authResponse(session(c)))
}

func authResponse(sess *identity.Session) AuthResponse {
	return AuthResponse{Token: sess.Token, User: sess.User, ExpiresAt: sess.ExpiresAt}
}
