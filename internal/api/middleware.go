package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/olegkanal/taskapp/internal/models"
)

const (
	ctxUserKey  = "authUser"
	ctxTokenKey = "authToken"
)

const bearerPrefix = "Bearer "

// requireAuth gates protected routes. Every failure mode is a 401: a
// missing header, a token that fails verification, and a well-formed
// token that has been revoked from the user's session list.
func (h *Handler) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		abortUnauthorized(c, "Unauthorized")
		return
	}
	token := strings.TrimPrefix(header, bearerPrefix)

	subject, err := h.auth.Verify(token)
	if err != nil {
		abortUnauthorized(c, "Unauthorized")
		return
	}

	id, err := primitive.ObjectIDFromHex(subject)
	if err != nil {
		abortUnauthorized(c, "Unauthorized")
		return
	}

	user, err := h.store.UserByIDAndToken(c.Request.Context(), id, token)
	if err != nil {
		abortUnauthorized(c, "Unauthorized. Please sign in.")
		return
	}

	c.Set(ctxUserKey, user)
	c.Set(ctxTokenKey, token)
	c.Next()
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

// currentUser and currentToken panic when called outside requireAuth,
// which would be a route wiring mistake.
func currentUser(c *gin.Context) *models.User {
	return c.MustGet(ctxUserKey).(*models.User)
}

func currentToken(c *gin.Context) string {
	return c.MustGet(ctxTokenKey).(string)
}

// RequestLogger emits one structured line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Recovery converts any panic escaping a handler into the JSON 500
// envelope instead of a bare connection reset.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("handler panic", zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}
