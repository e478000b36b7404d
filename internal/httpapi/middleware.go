package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/reboot-tools/gradboard/internal/models"
	"github.com/reboot-tools/gradboard/internal/session"
)

// ctxSessionKey is the gin context key the loaded session is stored under.
const ctxSessionKey = "gradboard-session"

// RequireSession loads the session named by the cookie and aborts with 401
// when it is absent or expired. A missing session fails fast here; the
// upstream platform is never contacted without a live token.
func (h *Handler) RequireSession(c *gin.Context) {
	id, errCookie := c.Cookie(sessionCookie)
	if errCookie != nil || id == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	sess, errGet := h.sessions.Get(c.Request.Context(), id)
	if errors.Is(errGet, session.ErrNotFound) {
		h.clearSessionCookie(c)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if errGet != nil {
		log.WithError(errGet).Error("load session failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "load session failed"})
		return
	}

	if errTouch := h.sessions.Touch(c.Request.Context(), sess.ID); errTouch != nil {
		log.WithError(errTouch).Warn("touch session failed")
	}

	c.Set(ctxSessionKey, sess)
	c.Next()
}

// currentSession returns the session loaded by RequireSession.
func currentSession(c *gin.Context) models.Session {
	value, ok := c.Get(ctxSessionKey)
	if !ok {
		return models.Session{}
	}
	sess, _ := value.(models.Session)
	return sess
}

// requestLogger logs one line per request.
func requestLogger(c *gin.Context) {
	c.Next()
	entry := log.WithFields(log.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
		"status": c.Writer.Status(),
	})
	if c.Writer.Status() >= http.StatusInternalServerError {
		entry.Warn("request")
		return
	}
	entry.Debug("request")
}
