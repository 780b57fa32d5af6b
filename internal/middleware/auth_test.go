package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/leaflog/leaflog-backend/internal/logctx"
)

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	uid, ok := f[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: uid}, nil
}

func run(t *testing.T, mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var seen string
	h := mw(func(c echo.Context) error {
		seen, _ = c.Get("uid").(string)
		return c.NoContent(http.StatusNoContent)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec, seen
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware(fakeVerifier{"good": "alice"})
	tests := []struct {
		name   string
		header string
		status int
		uid    string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, ""},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid", "Bearer good", http.StatusNoContent, "alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, uid := run(t, m.RequireAuth, tt.header)
			if rec.Code != tt.status || uid != tt.uid {
				t.Fatalf("status=%d uid=%q", rec.Code, uid)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	m := NewAuthMiddleware(fakeVerifier{"good": "alice"})
	if rec, uid := run(t, m.OptionalAuth, ""); rec.Code != http.StatusNoContent || uid != "" {
		t.Fatalf("anonymous: status=%d uid=%q", rec.Code, uid)
	}
	if rec, uid := run(t, m.OptionalAuth, "Bearer good"); rec.Code != http.StatusNoContent || uid != "alice" {
		t.Fatalf("valid: status=%d uid=%q", rec.Code, uid)
	}
	if rec, _ := run(t, m.OptionalAuth, "Bearer nope"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid: status=%d", rec.Code)
	}
}

func TestRequestContextCarriesRequestID(t *testing.T) {
	e := echo.New()
	var rid string
	e.Use(echomw.RequestID())
	e.Use(RequestContext)
	e.GET("/", func(c echo.Context) error {
		rid = logctx.RID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rid != "req-42" {
		t.Fatalf("rid=%q", rid)
	}
}
