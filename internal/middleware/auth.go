package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

// TokenVerifier checks a Firebase ID token. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

func errorBody(code, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]string{"code": code, "message": message},
	}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token subject under "uid".
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr, ok := bearer(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "not logged in"))
		}
		uid, err := m.verify(c.Request().Context(), tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorBody("invalid_token", "invalid token"))
		}
		c.Set("uid", uid)
		return next(c)
	}
}

// OptionalAuth sets "uid" when a bearer token is present. A token that is
// present but invalid is still rejected.
func (m *AuthMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr, ok := bearer(c)
		if !ok {
			return next(c)
		}
		uid, err := m.verify(c.Request().Context(), tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorBody("invalid_token", "invalid token"))
		}
		c.Set("uid", uid)
		return next(c)
	}
}

func (m *AuthMiddleware) verify(ctx context.Context, tokenStr string) (string, error) {
	if m == nil || m.verifier == nil {
		return "", echo.NewHTTPError(http.StatusInternalServerError, "auth is not configured")
	}
	token, err := m.verifier.VerifyIDToken(ctx, tokenStr)
	if err != nil {
		return "", err
	}
	return token.UID, nil
}

func bearer(c echo.Context) (string, bool) {
	authz := c.Request().Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return tokenStr, tokenStr != ""
}
