package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	sessions map[string]Session
	err      error
}

func (r *stubResolver) Resolve(_ context.Context, token string) (Session, error) {
	if r.err != nil {
		return Session{}, r.err
	}
	sess, ok := r.sessions[token]
	if !ok {
		return Session{}, ErrSessionExpired
	}
	return sess, nil
}

func newTestRouter(resolver SessionResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(LoadSession(resolver, "session", logger))
	router.GET("/public", func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, sess.Username)
	})
	router.GET("/private", RequireSession("/login"), func(c *gin.Context) {
		c.String(http.StatusOK, MustSession(c).Username)
	})
	return router
}

func TestLoadSession(t *testing.T) {
	alice := Session{ID: "sid-1", UserID: uuid.New(), Username: "alice"}
	resolver := &stubResolver{sessions: map[string]Session{"good-token": alice}}
	router := newTestRouter(resolver)

	tests := []struct {
		name       string
		cookie     *http.Cookie
		wantBody   string
		wantClears bool
	}{
		{name: "no cookie", wantBody: "anonymous"},
		{name: "valid cookie", cookie: &http.Cookie{Name: "session", Value: "good-token"}, wantBody: "alice"},
		{name: "stale cookie", cookie: &http.Cookie{Name: "session", Value: "expired"}, wantBody: "anonymous", wantClears: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/public", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
			if tt.wantClears {
				assert.Contains(t, w.Header().Get("Set-Cookie"), "session=;")
			}
		})
	}
}

func TestLoadSession_ResolverFailureIsAnonymous(t *testing.T) {
	router := newTestRouter(&stubResolver{err: errors.New("redis down")})

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "whatever"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "anonymous", w.Body.String())
	assert.Empty(t, w.Header().Get("Set-Cookie"), "cookie must survive a store outage")
}

func TestLoadSession_WrappedExpiryClearsCookie(t *testing.T) {
	router := newTestRouter(&stubResolver{err: fmt.Errorf("token rejected: %w", ErrSessionExpired)})

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "tampered"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "anonymous", w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), "session=;")
}

func TestRequireSession(t *testing.T) {
	bob := Session{ID: "sid-2", UserID: uuid.New(), Username: "bob"}
	router := newTestRouter(&stubResolver{sessions: map[string]Session{"bob-token": bob}})

	t.Run("redirects anonymous to login with next", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/private?x=1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?next=%2Fprivate%3Fx%3D1", w.Header().Get("Location"))
	})

	t.Run("passes authenticated request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "bob-token"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "bob", w.Body.String())
	})
}
