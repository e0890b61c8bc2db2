package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/Eursukkul/event-admission/internal/token"
	"github.com/labstack/echo/v4"
)

const sessionKey = "session_context"

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.SessionContext, error)
}

// RequireSession resolves the bearer access token into a SessionContext and
// stores it on the echo context. Requests without a valid, unrevoked token
// never reach the handler.
func RequireSession(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			sc, err := auth.Authenticate(c.Request().Context(), raw)
			if err != nil {
				switch {
				case errors.Is(err, token.ErrTokenExpired):
					return echo.NewHTTPError(http.StatusUnauthorized, "access token expired")
				case errors.Is(err, token.ErrTokenRevoked):
					return echo.NewHTTPError(http.StatusUnauthorized, "access token revoked")
				case errors.Is(err, token.ErrTokenMalformed):
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
				case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
					return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled").SetInternal(err)
				default:
					return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable").SetInternal(err)
				}
			}

			SetSession(c, sc)
			return next(c)
		}
	}
}

func SetSession(c echo.Context, sc models.SessionContext) {
	c.Set(sessionKey, sc)
}

// SessionFrom returns the context stored by RequireSession.
func SessionFrom(c echo.Context) (models.SessionContext, bool) {
	sc, ok := c.Get(sessionKey).(models.SessionContext)
	return sc, ok
}

func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
