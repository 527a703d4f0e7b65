package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/todo_api/internal/handlers"
	"github.com/Skotchmaster/todo_api/internal/middleware/auth"
	"github.com/Skotchmaster/todo_api/internal/token"
)

type Deps struct {
	DB            *gorm.DB
	Tokens        *token.Service
	AuthHandler   *handlers.AuthHandler
	TodoHandler   *handlers.TodoHandler
	SearchHandler *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/token/refresh", d.AuthHandler.Refresh)
	v1.POST("/password-reset", d.AuthHandler.PasswordResetRequest)
	v1.POST("/reset-password/:uid/:token", d.AuthHandler.PasswordResetConfirm)

	authed := v1.Group("", auth.RequireAuth(d.Tokens))

	authed.POST("/logout", d.AuthHandler.LogOut)

	authed.GET("/todos", d.TodoHandler.ListTodos)
	authed.POST("/todos", d.TodoHandler.CreateTodo)
	authed.PUT("/todos/:id", d.TodoHandler.UpdateTodo)
	authed.DELETE("/todos/:id", d.TodoHandler.DeleteTodo)

	if d.SearchHandler != nil {
		authed.GET("/todos/search", d.SearchHandler.SearchTodos)
	}
}
