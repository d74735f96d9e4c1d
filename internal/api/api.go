package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/olegkanal/taskapp/internal/auth"
	"github.com/olegkanal/taskapp/internal/models"
)

// Store is the persistence surface the handlers depend on. db.Mongo
// implements it; tests substitute an in-memory version.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UserByIDAndToken(ctx context.Context, id primitive.ObjectID, token string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUserAndTasks(ctx context.Context, id primitive.ObjectID) error

	CreateTask(ctx context.Context, task *models.Task) error
	TaskByIDAndOwner(ctx context.Context, id, owner primitive.ObjectID) (*models.Task, error)
	TasksByOwner(ctx context.Context, owner primitive.ObjectID, filter models.TaskFilter) ([]models.Task, error)
	SaveTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id, owner primitive.ObjectID) (*models.Task, error)
}

// Mailer delivers transactional mail. Calls must not block request
// handling; handlers invoke it from a goroutine.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string)
}

type Handler struct {
	auth   *auth.Service
	store  Store
	mailer Mailer
	logger *zap.Logger
}

func NewHandler(authService *auth.Service, store Store, mailer Mailer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{auth: authService, store: store, mailer: mailer, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/users/signup", h.handleSignup)
	router.POST("/users/login", h.handleLogin)
	router.POST("/users/logout", h.requireAuth, h.handleLogout)
	router.GET("/users/me", h.requireAuth, h.handleGetMe)
	router.PATCH("/users/me", h.requireAuth, h.handleUpdateMe)
	router.DELETE("/users/me", h.requireAuth, h.handleDeleteMe)
	router.POST("/users/me/avatar", h.requireAuth, h.handleUploadAvatar)
	router.DELETE("/users/me/avatar", h.requireAuth, h.handleDeleteAvatar)
	router.GET("/users/:id/avatar", h.requireAuth, h.handleGetAvatar)

	tasks := router.Group("/tasks", h.requireAuth)
	tasks.POST("", h.handleCreateTask)
	tasks.GET("", h.handleListTasks)
	tasks.GET("/:id", h.handleGetTask)
	tasks.PATCH("/:id", h.handleUpdateTask)
	tasks.DELETE("/:id", h.handleDeleteTask)
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

var errInvalidPayload = errors.New("invalid payload")

// bindAllowed decodes a JSON body into dst after checking every key in
// the body against the allow-list. A single unknown field rejects the
// whole request.
func bindAllowed(c *gin.Context, dst any, op string, allowed []string) error {
	// an absent body is an empty field set, not a malformed one
	if c.Request.Body == nil {
		return nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return errInvalidPayload
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return errInvalidPayload
	}

	for key := range fields {
		if !slices.Contains(allowed, key) {
			return fmt.Errorf("Invalid %s operation, available fields: %s", op, strings.Join(allowed, ", "))
		}
	}

	if dst != nil {
		if err := json.Unmarshal(body, dst); err != nil {
			return errInvalidPayload
		}
	}
	return nil
}
