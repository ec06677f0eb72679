package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/sprintai/internal/identity"
	"github.com/fyrsmithlabs/sprintai/internal/logging"
)

// accessTokenParam carries the bearer token for clients that cannot set
// headers (EventSource). Only the events stream accepts it.
const accessTokenParam = "access_token"

// requireSession resolves the bearer token and stores the session in the
// request context.
func (s *Server) requireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			sess, err := s.services.Identity.Authenticate(c.Request().Context(), token)
			if errors.Is(err, identity.ErrClosed) {
				return s.fail(c, err)
			}
			if err != nil {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="sprintai"`)
				return echo.NewHTTPError(http.StatusUnauthorized, identity.ErrUnauthenticated.Error())
			}

			ctx := identity.WithSession(c.Request().Context(), sess)
			ctx = logging.WithUserID(ctx, sess.UserID())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if c.Path() == "/api/v1/events" {
		return c.QueryParam(accessTokenParam)
	}
	return ""
}

// session returns the authenticated session set by requireSession.
func session(c echo.Context) *identity.Session {
	sess, _ := identity.SessionFromContext(c.Request().Context())
	return sess
}
