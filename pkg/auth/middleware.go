package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

const sessionContextKey = "auth.session"

// SessionResolver turns a session cookie value into the Session it stands for.
// It returns ErrSessionExpired when the token is invalid or the record is gone.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (Session, error)
}

// LoadSession attaches the caller's Session to the gin context when the
// request carries a valid session cookie. Requests without one continue
// anonymously. The cookie is cleared only when the session is gone, not when
// the resolver fails for another reason.
func LoadSession(resolver SessionResolver, cookieName string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		sess, err := resolver.Resolve(c.Request.Context(), token)
		if errors.Is(err, ErrSessionExpired) {
			// Drop the stale cookie so the browser stops sending it
			c.SetCookie(cookieName, "", -1, "/", "", false, true)
			c.Next()
			return
		}
		if err != nil {
			// Store outage: serve anonymously but keep the cookie for the next request
			logger.Warn("Failed to resolve session", "error", err)
			c.Next()
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// RequireSession redirects anonymous requests to loginURL, passing the
// requested path as the next parameter.
func RequireSession(loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentSession(c); ok {
			c.Next()
			return
		}
		target := loginURL + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

// CurrentSession returns the Session stored by LoadSession.
func CurrentSession(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return Session{}, false
	}
	sess, ok := v.(Session)
	return sess, ok && !sess.IsZero()
}

// MustSession is CurrentSession for handlers mounted behind RequireSession.
func MustSession(c *gin.Context) Session {
	sess, ok := CurrentSession(c)
	if !ok {
		panic(ErrNoSession)
	}
	return sess
}
