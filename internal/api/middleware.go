package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfagent/internal/session"
)

const (
	// SessionCookieName carries the id of the mounted session.
	SessionCookieName = "pdfagent_session"

	sessionContextKey = "pdfagent_session"
)

// sessionMiddleware resolves the session cookie, mounting a fresh session
// when the cookie is missing or names one that no longer exists.
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var s *session.Session
		if id, err := c.Cookie(SessionCookieName); err == nil && id != "" {
			s, _ = h.sessions.Get(id)
		}
		if s == nil {
			s = h.sessions.Mount()
			h.setSessionCookie(c, s.ID())
		}
		c.Set(sessionContextKey, s)
		c.Next()
	}
}

// sessionFromContext retrieves the session resolved by the middleware.
func sessionFromContext(c *gin.Context) *session.Session {
	val, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	s, _ := val.(*session.Session)
	return s
}

func (h *Handler) setSessionCookie(c *gin.Context, id string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		MaxAge:   int(h.cookieTTL.Seconds()),
		Path:     "/",
		Secure:   h.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   h.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// limitBody caps request bodies for upload routes.
func (h *Handler) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		// multipart framing on top of the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)
		c.Next()
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
