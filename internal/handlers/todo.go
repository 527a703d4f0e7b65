package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/todo_api/internal/logging"
	"github.com/Skotchmaster/todo_api/internal/middleware/auth"
	"github.com/Skotchmaster/todo_api/internal/models"
	"github.com/Skotchmaster/todo_api/internal/mykafka"
	"github.com/Skotchmaster/todo_api/internal/token"
	"github.com/Skotchmaster/todo_api/internal/util"
)

type TodoHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer

	// AdminWriteBypass lets admins update and delete todos they do not own.
	// Off by default: admins get unrestricted reads but writes stay
	// ownership-scoped, matching the historical behavior of this API.
	AdminWriteBypass bool
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *TodoHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "todo_events", key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

// writeScope returns the query used for update/delete lookups. Existence
// and ownership are checked together, so a non-owner sees the same 404 as
// a truly missing id.
func (h *TodoHandler) writeScope(c echo.Context, id int) *gorm.DB {
	q := h.DB.Where("id = ?", id)
	if h.AdminWriteBypass && auth.RoleOf(c) == token.RoleAdmin {
		return q
	}
	return q.Where("user_id = ?", auth.Subject(c))
}

func validateTitle(title string) error {
	if title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if utf8.RuneCountInString(title) > 100 {
		return echo.NewHTTPError(http.StatusBadRequest, "title must be at most 100 characters")
	}
	return nil
}

func (h *TodoHandler) ListTodos(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "todo_list")

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("page_size"), util.DefaultPageSize)

	q := h.DB.Model(&models.Todo{})
	if auth.RoleOf(c) != token.RoleAdmin {
		q = q.Where("user_id = ?", auth.Subject(c))
	}

	if completed := c.QueryParam("completed"); completed != "" {
		v, err := strconv.ParseBool(completed)
		if err != nil {
			l.Warn("todo_list_failed", "status", 400, "reason", "bad_completed")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid completed value, expected true or false")
		}
		q = q.Where("completed = ?", v)
	}

	if createdAt := c.QueryParam("created_at"); createdAt != "" {
		day, err := time.Parse("2006-01-02", createdAt)
		if err != nil {
			l.Warn("todo_list_failed", "status", 400, "reason", "bad_date")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date format, please use YYYY-MM-DD")
		}
		q = q.Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		l.Error("todo_list_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	meta, offset, limit := util.Paginate(total, page, size)

	var todos []models.Todo
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&todos).Error; err != nil {
		l.Error("todo_list_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if todos == nil {
		todos = []models.Todo{}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"todos":      todos,
		"pagination": meta,
	})
}

func (h *TodoHandler) CreateTodo(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "todo_create")

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Completed   bool   `json:"completed"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("todo_create_failed", "status", 400, "reason", "bad_body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := validateTitle(req.Title); err != nil {
		l.Warn("todo_create_failed", "status", 400, "reason", "bad_title")
		return err
	}

	// Owner comes from the token, never from the payload.
	todo := models.Todo{
		UserID:      auth.Subject(c),
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}
	if err := h.DB.Create(&todo).Error; err != nil {
		l.Error("todo_create_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, fmt.Sprint(todo.ID), map[string]interface{}{
		"type":    "todo_created",
		"todo_id": todo.ID,
		"user_id": todo.UserID,
		"title":   todo.Title,
	})

	l.Info("todo_create_success", "todo_id", todo.ID)
	return c.JSON(http.StatusCreated, todo)
}

func (h *TodoHandler) UpdateTodo(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "todo_update")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("todo_update_failed", "status", 400, "reason", "bad_id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid todo id")
	}

	var todo models.Todo
	if err := h.writeScope(c, id).First(&todo).Error; err != nil {
		l.Warn("todo_update_failed", "status", 404, "reason", "not_found")
		return echo.NewHTTPError(http.StatusNotFound, "todo not found")
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Completed   bool   `json:"completed"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("todo_update_failed", "status", 400, "reason", "bad_body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := validateTitle(req.Title); err != nil {
		l.Warn("todo_update_failed", "status", 400, "reason", "bad_title")
		return err
	}

	todo.Title = req.Title
	todo.Description = req.Description
	todo.Completed = req.Completed

	if err := h.DB.Save(&todo).Error; err != nil {
		l.Error("todo_update_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, fmt.Sprint(todo.ID), map[string]interface{}{
		"type":    "todo_updated",
		"todo_id": todo.ID,
		"user_id": todo.UserID,
	})

	l.Info("todo_update_success", "todo_id", todo.ID)
	return c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) DeleteTodo(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "todo_delete")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("todo_delete_failed", "status", 400, "reason", "bad_id")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid todo id")
	}

	res := h.writeScope(c, id).Delete(&models.Todo{})
	if res.Error != nil {
		l.Error("todo_delete_failed", "status", 500, "reason", "db_error", "error", res.Error)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		l.Warn("todo_delete_failed", "status", 404, "reason", "not_found")
		return echo.NewHTTPError(http.StatusNotFound, "todo not found")
	}

	h.publish(c, fmt.Sprint(id), map[string]interface{}{
		"type":    "todo_deleted",
		"todo_id": id,
	})

	l.Info("todo_delete_success", "todo_id", id)
	return c.NoContent(http.StatusNoContent)
}
