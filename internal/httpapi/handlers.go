// Package httpapi exposes the dashboard's JSON API and serves the embedded
// frontend.
package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/reboot-tools/gradboard/internal/derive"
	"github.com/reboot-tools/gradboard/internal/models"
	"github.com/reboot-tools/gradboard/internal/platform"
	"github.com/reboot-tools/gradboard/internal/ratelimit"
	"github.com/reboot-tools/gradboard/internal/session"
)

// sessionCookie is the browser cookie carrying the session ID.
const sessionCookie = "gradboard_session"

// Handler serves the dashboard API. All collaborators are injected; nothing
// reads ambient global state.
type Handler struct {
	db       *gorm.DB
	platform *platform.Client
	sessions *session.Store
	limiter  *ratelimit.Manager
	ttl      time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(db *gorm.DB, client *platform.Client, sessions *session.Store, limiter *ratelimit.Manager, ttl time.Duration) *Handler {
	return &Handler{db: db, platform: client, sessions: sessions, limiter: limiter, ttl: ttl}
}

// loginRequest defines the login request body.
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a platform token and opens a session.
func (h *Handler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErrorMessage(errBind)})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	ctx := c.Request.Context()

	result, errAllow := h.limiter.Allow(ctx, "login:"+c.ClientIP())
	if errAllow != nil {
		log.WithError(errAllow).Warn("login: rate limit check failed")
	} else if !result.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts, try again shortly"})
		return
	}

	token, errSignIn := h.platform.SignIn(ctx, username, body.Password)
	if errSignIn != nil {
		h.writePlatformError(c, errSignIn)
		return
	}

	userID, errID := platform.UserIDFromToken(token)
	if errID != nil {
		// The skills query needs the ID; the rest of the dashboard works
		// without it, so a claimless token only degrades that section.
		log.WithError(errID).WithField("login", username).Warn("login: token has no readable user id")
	}

	sess, errCreate := h.sessions.Create(ctx, token, username, userID)
	if errCreate != nil {
		log.WithError(errCreate).Error("login: create session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create session failed"})
		return
	}

	h.setSessionCookie(c, sess.ID)
	log.WithField("login", username).Info("login succeeded")
	c.JSON(http.StatusOK, gin.H{"login": username})
}

// Logout deletes the session and clears the cookie.
func (h *Handler) Logout(c *gin.Context) {
	sess := currentSession(c)
	if errDelete := h.sessions.Delete(c.Request.Context(), sess.ID); errDelete != nil {
		log.WithError(errDelete).Warn("logout: delete session failed")
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Profile returns the user record with the derived audit ratio block.
func (h *Handler) Profile(c *gin.Context) {
	sess := currentSession(c)
	user, err := h.platform.CurrentUser(c.Request.Context(), sess.Token)
	if err != nil {
		h.handleQueryError(c, sess, err)
		return
	}

	level := 0
	if len(user.Events) > 0 {
		level = user.Events[0].Level
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":        user.ID,
			"login":     user.Login,
			"email":     user.Email,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
			"createdAt": user.CreatedAt,
			"level":     level,
		},
		"audit": derive.AuditSummary(user),
	})
}

// Audits returns the most recent closed audits, newest first.
func (h *Handler) Audits(c *gin.Context) {
	sess := currentSession(c)
	audits, err := h.platform.RecentAudits(c.Request.Context(), sess.Token)
	if err != nil {
		h.handleQueryError(c, sess, err)
		return
	}
	if len(audits) > platform.RecentAuditLimit {
		audits = audits[:platform.RecentAuditLimit]
	}

	rows := make([]gin.H, 0, len(audits))
	for _, audit := range audits {
		rows = append(rows, gin.H{
			"project":  audit.Group.Object.Name,
			"captain":  audit.Group.CaptainLogin,
			"closedAt": audit.ClosedAt,
			"verdict":  audit.ClosureType,
		})
	}
	c.JSON(http.StatusOK, gin.H{"audits": rows})
}

// XP returns the module XP total with monthly buckets and the raw series.
func (h *Handler) XP(c *gin.Context) {
	sess := currentSession(c)
	history, err := h.platform.XPOverTime(c.Request.Context(), sess.Token)
	if err != nil {
		h.handleQueryError(c, sess, err)
		return
	}

	total, source := derive.TotalXP(history)
	c.JSON(http.StatusOK, gin.H{
		"total":       total,
		"totalSource": source,
		"monthly":     derive.MonthlyXP(history.Transactions),
		"series":      derive.XPSeries(history.Transactions),
	})
}

// Skills returns per-skill XP aggregates in fixed priority order. Dropped
// transaction types are part of the response, never a silent no-op.
func (h *Handler) Skills(c *gin.Context) {
	sess := currentSession(c)
	txs, err := h.platform.Skills(c.Request.Context(), sess.Token, sess.UserID)
	if err != nil {
		h.handleQueryError(c, sess, err)
		return
	}

	aggregates, dropped := derive.AggregateSkills(txs)
	if len(dropped) > 0 {
		log.WithField("types", dropped).Debug("skills: unrecognized transaction types dropped")
	}
	c.JSON(http.StatusOK, gin.H{"skills": aggregates, "dropped": dropped})
}

// Healthz reports liveness and database reachability.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleQueryError maps a platform failure on a protected endpoint to one
// JSON error line. An upstream token rejection also tears the session down;
// the stored token is dead weight once the platform stops honoring it.
func (h *Handler) handleQueryError(c *gin.Context, sess models.Session, err error) {
	if platform.IsUnauthorized(err) {
		if errDelete := h.sessions.Delete(c.Request.Context(), sess.ID); errDelete != nil {
			log.WithError(errDelete).Warn("delete rejected session failed")
		}
		h.clearSessionCookie(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired, sign in again"})
		return
	}
	h.writePlatformError(c, err)
}

// writePlatformError maps the platform error taxonomy to HTTP responses.
func (h *Handler) writePlatformError(c *gin.Context, err error) {
	var pe *platform.Error
	message := "request failed"
	status := http.StatusBadGateway

	switch platform.KindOf(err) {
	case platform.KindUnauthorized:
		status = http.StatusUnauthorized
		message = "invalid credentials"
		if errors.As(err, &pe) && pe.Message != "" {
			message = pe.Message
		}
	case platform.KindTransport:
		message = "learning platform unreachable"
	case platform.KindBadResponse:
		message = "unexpected response from the learning platform"
	case platform.KindUpstream:
		message = "learning platform rejected the request"
		if errors.As(err, &pe) && pe.Message != "" {
			message = pe.Message
		}
	}

	log.WithError(err).WithField("kind", platform.KindOf(err).String()).Warn("platform request failed")
	c.JSON(status, gin.H{"error": message})
}

func (h *Handler) setSessionCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int(h.ttl.Seconds()), "/", "", false, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
}
