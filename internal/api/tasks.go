package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/olegkanal/taskapp/internal/db"
	"github.com/olegkanal/taskapp/internal/models"
)

var taskAllowedFields = []string{"description", "completed", "owner"}

// Owner is accepted by the allow-list but never applied: ownership comes
// from the session, so a caller cannot spoof or transfer it.
type createTaskRequest struct {
	Description string          `json:"description"`
	Completed   bool            `json:"completed"`
	Owner       json.RawMessage `json:"owner"`
}

type updateTaskRequest struct {
	Description *string         `json:"description"`
	Completed   *bool           `json:"completed"`
	Owner       json.RawMessage `json:"owner"`
}

func (h *Handler) handleCreateTask(c *gin.Context) {
	user := currentUser(c)

	var req createTaskRequest
	if err := bindAllowed(c, &req, "create", taskAllowedFields); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		writeError(c, http.StatusBadRequest, "description is required")
		return
	}

	task := &models.Task{
		Description: description,
		Completed:   req.Completed,
		Owner:       user.ID,
	}

	if err := h.store.CreateTask(c.Request.Context(), task); err != nil {
		h.logger.Error("create task", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (h *Handler) handleGetTask(c *gin.Context) {
	user := currentUser(c)

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusNotFound, "No tasks found for the logged in User")
		return
	}

	task, err := h.store.TaskByIDAndOwner(c.Request.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, "No tasks found for the logged in User")
			return
		}
		h.logger.Error("get task", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *Handler) handleListTasks(c *gin.Context) {
	user := currentUser(c)

	var filter models.TaskFilter

	if raw, ok := c.GetQuery("completed"); ok {
		// coerced, so both ?completed=true and ?completed=1 filter;
		// unparsable values disable the filter, like non-numeric
		// limit/skip below
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.Completed = &v
		}
	}
	if v, err := strconv.ParseInt(c.Query("limit"), 10, 64); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.ParseInt(c.Query("skip"), 10, 64); err == nil {
		filter.Skip = v
	}
	if sortBy := c.Query("sortBy"); sortBy != "" {
		field, direction, _ := strings.Cut(sortBy, ":")
		filter.SortField = field
		// anything other than literal ASC sorts descending
		filter.SortAsc = direction == "ASC"
	}

	tasks, err := h.store.TasksByOwner(c.Request.Context(), user.ID, filter)
	if err != nil {
		h.logger.Error("list tasks", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, tasks)
}

func (h *Handler) handleUpdateTask(c *gin.Context) {
	user := currentUser(c)

	var req updateTaskRequest
	if err := bindAllowed(c, &req, "update", taskAllowedFields); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusNotFound, fmt.Sprintf("Task with id: %s does not exist", c.Param("id")))
		return
	}

	task, err := h.store.TaskByIDAndOwner(c.Request.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, fmt.Sprintf("Task with id: %s does not exist", c.Param("id")))
			return
		}
		h.logger.Error("update task", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			writeError(c, http.StatusBadRequest, "description is required")
			return
		}
		task.Description = description
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}

	if err := h.store.SaveTask(c.Request.Context(), task); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, fmt.Sprintf("Task with id: %s does not exist", c.Param("id")))
			return
		}
		h.logger.Error("save task", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *Handler) handleDeleteTask(c *gin.Context) {
	user := currentUser(c)

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusNotFound, fmt.Sprintf("Task with id: %s does not exist", c.Param("id")))
		return
	}

	task, err := h.store.DeleteTask(c.Request.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(c, http.StatusNotFound, fmt.Sprintf("Task with id: %s does not exist", c.Param("id")))
			return
		}
		h.logger.Error("delete task", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, task)
}
