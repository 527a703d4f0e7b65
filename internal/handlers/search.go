package handlers

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/todo_api/internal/middleware/auth"
	"github.com/Skotchmaster/todo_api/internal/service/search"
	"github.com/Skotchmaster/todo_api/internal/token"
	"github.com/Skotchmaster/todo_api/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) SearchTodos(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("page_size"), util.DefaultPageSize)
	from, size := util.Calculate(page, size)

	// Admins search every owner's todos, everyone else only their own.
	owner := auth.Subject(c)
	if auth.RoleOf(c) == token.RoleAdmin {
		owner = 0
	}

	total, todos, err := search.Search(c.Request().Context(), h.ES, h.Index, q, owner, from, size)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "todos": todos})
}
