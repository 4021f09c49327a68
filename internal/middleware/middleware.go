package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/minisocial/internal/helpers"
	"github.com/joshua-takyi/minisocial/internal/models"
	"github.com/joshua-takyi/minisocial/internal/services"
)

// UserKey is the gin context key holding the resolved *models.User.
const UserKey = "user"

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		requestID, _ := c.Get("request_id")

		logger.Info("HTTP Request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// ErrorHandler logs errors attached to the context and writes a generic
// 500 if the handler did not already respond.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		requestID, _ := c.Get("request_id")

		logger.Error("Request error",
			"request_id", requestID,
			"error", err.Error(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{
				"ok":         false,
				"error":      "Internal server error",
				"request_id": requestID,
			})
		}
	}
}

// SessionCookie describes the signed session cookie.
type SessionCookie struct {
	Name   string
	Secret string
	TTL    time.Duration
	Secure bool
}

func (sc SessionCookie) Set(c *gin.Context, sessionID string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, helpers.SignValue(sessionID, sc.Secret), int(sc.TTL.Seconds()), "/", "", sc.Secure, true)
}

func (sc SessionCookie) Clear(c *gin.Context) {
	c.SetCookie(sc.Name, "", -1, "/", "", sc.Secure, true)
}

// Read returns the session id from a correctly signed cookie.
func (sc SessionCookie) Read(c *gin.Context) (string, bool) {
	raw, err := c.Cookie(sc.Name)
	if err != nil || raw == "" {
		return "", false
	}
	return helpers.UnsignValue(raw, sc.Secret)
}

// Credentials collects what the request presented: the Authorization
// bearer token and the session cookie.
func Credentials(c *gin.Context, cookie SessionCookie) []services.Credential {
	var creds []services.Credential

	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		if token := strings.TrimSpace(parts[1]); token != "" {
			creds = append(creds, services.BearerCredential{Token: token})
		}
	}

	if sessionID, ok := cookie.Read(c); ok {
		creds = append(creds, services.SessionCredential{ID: sessionID})
	}
	return creds
}

// AuthMiddleware requires a resolvable bearer token or session.
func AuthMiddleware(guard *services.Guard, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := guard.Resolve(c.Request.Context(), Credentials(c, cookie)...)
		if err != nil {
			status := models.HTTPStatusFromError(err)
			if status == http.StatusInternalServerError {
				_ = c.Error(err)
			}
			c.AbortWithStatusJSON(status, models.ErrorResponse(models.PublicMessage(err)))
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

// OptionalAuth attaches the caller when one resolves and never rejects.
func OptionalAuth(guard *services.Guard, cookie SessionCookie, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		creds := Credentials(c, cookie)
		if len(creds) > 0 {
			user, err := guard.Resolve(c.Request.Context(), creds...)
			if err == nil {
				c.Set(UserKey, user)
			} else if models.HTTPStatusFromError(err) == http.StatusInternalServerError {
				logger.Warn("Optional auth failed", "error", err)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the user set by AuthMiddleware or OptionalAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
