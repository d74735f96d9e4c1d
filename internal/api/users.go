package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/olegkanal/taskapp/internal/avatar"
	"github.com/olegkanal/taskapp/internal/db"
	"github.com/olegkanal/taskapp/internal/models"
)

var userAllowedFields = []string{"name", "password", "email", "age"}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Age      int    `json:"age"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	LogoutAll bool `json:"logoutAll"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
	Email    *string `json:"email"`
	Age      *int    `json:"age"`
}

func (h *Handler) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := bindAllowed(c, &req, "create", userAllowedFields); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.auth.ValidateEmail(req.Email); err != nil {
		writeError(c, http.StatusBadRequest, "Email is invalid")
		return
	}
	if err := h.auth.ValidatePassword(req.Password); err != nil {
		writeError(c, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "auth: "))
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.UserByEmail(ctx, req.Email); err == nil {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("User with email: %s already exists", req.Email))
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Age:      req.Age,
		Password: hash,
	}

	if err := h.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			writeError(c, http.StatusBadRequest, fmt.Sprintf("User with email: %s already exists", req.Email))
			return
		}
		h.logger.Error("signup: create user", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if h.mailer != nil {
		// detached from the request context so a finished request does
		// not cancel the send
		go h.mailer.SendWelcome(context.Background(), user.Email, user.Name)
	}

	token, err := h.auth.Issue(user.ID.Hex())
	if err != nil {
		h.logger.Error("signup: issue token", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	user.Tokens = append(user.Tokens, token)
	if err := h.store.SaveUser(ctx, user); err != nil {
		h.logger.Error("signup: persist session", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user.Sanitize(), "token": token})
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload")
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.UserByEmail(ctx, req.Email)
	if err != nil || h.auth.CheckPassword(user.Password, req.Password) != nil {
		writeError(c, http.StatusBadRequest, "Invalid user credentials")
		return
	}

	token, err := h.auth.Issue(user.ID.Hex())
	if err != nil {
		h.logger.Error("login: issue token", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	// sessions are additive: logging in elsewhere never revokes an
	// existing device
	user.Tokens = append(user.Tokens, token)
	if err := h.store.SaveUser(ctx, user); err != nil {
		h.logger.Error("login: persist session", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.Sanitize(), "token": token})
}

func (h *Handler) handleLogout(c *gin.Context) {
	user := currentUser(c)
	token := currentToken(c)

	var req logoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid payload")
			return
		}
	}

	if req.LogoutAll {
		user.Tokens = []string{}
	} else {
		user.RemoveToken(token)
	}

	if err := h.store.SaveUser(c.Request.Context(), user); err != nil {
		h.logger.Error("logout: persist", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.String(http.StatusOK, "Logged out")
}

func (h *Handler) handleGetMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c).Sanitize())
}

func (h *Handler) handleUpdateMe(c *gin.Context) {
	var req updateUserRequest
	if err := bindAllowed(c, &req, "update", userAllowedFields); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	user := currentUser(c)

	if req.Email != nil {
		if err := h.auth.ValidateEmail(*req.Email); err != nil {
			writeError(c, http.StatusBadRequest, "Email is invalid")
			return
		}
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.Password != nil {
		if err := h.auth.ValidatePassword(*req.Password); err != nil {
			writeError(c, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "auth: "))
			return
		}
		hash, err := h.auth.HashPassword(*req.Password)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		user.Password = hash
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Age != nil {
		user.Age = *req.Age
	}

	if err := h.store.SaveUser(c.Request.Context(), user); err != nil {
		switch {
		case errors.Is(err, db.ErrEmailTaken):
			writeError(c, http.StatusBadRequest, fmt.Sprintf("User with email: %s already exists", user.Email))
		case errors.Is(err, db.ErrNotFound):
			writeError(c, http.StatusNotFound, fmt.Sprintf("User with id: %s does not exist", user.ID.Hex()))
		default:
			h.logger.Error("update profile", zap.Error(err))
			writeError(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, user.Sanitize())
}

func (h *Handler) handleDeleteMe(c *gin.Context) {
	user := currentUser(c)

	if err := h.store.DeleteUserAndTasks(c.Request.Context(), user.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, fmt.Sprintf("User with id: %s does not exist", user.ID.Hex()))
			return
		}
		h.logger.Error("delete account", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, user.Sanitize())
}

func (h *Handler) handleUploadAvatar(c *gin.Context) {
	user := currentUser(c)

	file, err := c.FormFile("avatar")
	if err != nil {
		writeError(c, http.StatusBadRequest, "Please attach an avatar file")
		return
	}
	if !avatar.AllowedExtension(file.Filename) {
		writeError(c, http.StatusBadRequest, "Please, upload .jpg, .png or .jpeg file")
		return
	}
	if file.Size > avatar.MaxUploadBytes {
		writeError(c, http.StatusBadRequest, "Avatar file must not exceed 1MB")
		return
	}

	src, err := file.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "Please attach an avatar file")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		writeError(c, http.StatusBadRequest, "Please attach an avatar file")
		return
	}

	blob, err := avatar.Process(data)
	if err != nil {
		writeError(c, http.StatusBadRequest, "Please, upload a valid image file")
		return
	}

	user.Avatar = blob
	if err := h.store.SaveUser(c.Request.Context(), user); err != nil {
		h.logger.Error("upload avatar", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.String(http.StatusOK, "Avatar uploaded")
}

func (h *Handler) handleGetAvatar(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "User not found")
		return
	}

	target, err := h.store.UserByID(c.Request.Context(), id)
	if err != nil || len(target.Avatar) == 0 {
		writeError(c, http.StatusBadRequest, "User has no avatar")
		return
	}

	c.Data(http.StatusOK, "image/png", target.Avatar)
}

func (h *Handler) handleDeleteAvatar(c *gin.Context) {
	user := currentUser(c)

	user.Avatar = nil
	if err := h.store.SaveUser(c.Request.Context(), user); err != nil {
		h.logger.Error("delete avatar", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.String(http.StatusOK, "Avatar deleted")
}
