package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/todo_api/internal/hash"
	"github.com/Skotchmaster/todo_api/internal/logging"
	"github.com/Skotchmaster/todo_api/internal/mail"
	"github.com/Skotchmaster/todo_api/internal/models"
	"github.com/Skotchmaster/todo_api/internal/mykafka"
	"github.com/Skotchmaster/todo_api/internal/token"
)

type AuthHandler struct {
	DB        *gorm.DB
	Tokens    *token.Service
	Reset     *token.ResetGenerator
	Producer  *mykafka.Producer
	Mailer    mail.Mailer
	EmailFrom string
	BaseURL   string
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

// settingsRole reads the user's role from the settings row, falling back to
// RoleUnknown when the row is missing. Absence is tolerated, not an error.
func (h *AuthHandler) settingsRole(userID uint) (token.Role, error) {
	var settings models.UserSettings
	if err := h.DB.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return token.RoleUnknown, nil
		}
		return token.RoleUnknown, err
	}
	return token.ParseRole(settings.Role), nil
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_failed", "status", 400, "reason", "bad_body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.Role == "" {
		req.Role = token.RoleUser.String()
	}
	if !token.AssignableRole(req.Role) {
		l.Warn("register_failed", "status", 400, "reason", "invalid_role")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role, valid roles are user and admin")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		l.Warn("register_failed", "status", 400, "reason", "missing_fields")
		return echo.NewHTTPError(http.StatusBadRequest, "username, email and password are required")
	}

	var existing models.User
	if err := h.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		l.Warn("register_failed", "status", 400, "reason", "username_exists")
		return echo.NewHTTPError(http.StatusBadRequest, "username already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		l.Warn("register_failed", "status", 400, "reason", "email_exists")
		return echo.NewHTTPError(http.StatusBadRequest, "email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: pwHash,
		IsActive:     true,
	}

	// User and settings are created all-or-nothing: a settings failure must
	// not leave an orphan user row behind.
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		settings := models.UserSettings{UserID: user.ID, Role: req.Role}
		return tx.Create(&settings).Error
	})
	if err != nil {
		// A concurrent registration can slip past the pre-checks; the
		// unique index catches it and it surfaces as the same conflict.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			l.Warn("register_failed", "status", 400, "reason", "duplicate")
			return echo.NewHTTPError(http.StatusBadRequest, "username or email already exists")
		}
		l.Error("register_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	access, refresh, err := h.Tokens.IssuePair(user.ID, token.ParseRole(req.Role))
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":     "user_registered",
		"user_id":  user.ID,
		"username": user.Username,
	})

	l.Info("register_success", "status", 201, "user_id", user.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"message":       "user registered successfully",
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 400, "reason", "bad_body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		l.Warn("login_failed", "status", 400, "reason", "missing_fields")
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	// Unknown user and wrong password produce the same answer so the
	// endpoint cannot be used to enumerate usernames.
	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		l.Warn("login_failed", "status", 401, "reason", "invalid credentials")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid credentials")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	role, err := h.settingsRole(user.ID)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	now := time.Now()
	if err := h.DB.Model(&user).Update("last_login", now).Error; err != nil {
		l.Warn("login_warning", "reason", "cannot update last_login", "error", err)
	}

	access, refresh, err := h.Tokens.IssuePair(user.ID, role)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":     "user_logged_in",
		"user_id":  user.ID,
		"username": user.Username,
	})

	l.Info("login_success", "user_id", user.ID, "role", role.String())
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "login successful",
		"access_token":  access,
		"refresh_token": refresh,
	})
}

// LogOut is a client-side convention: bearer tokens are stateless, so there
// is nothing to revoke server-side. The client discards its pair.
func (h *AuthHandler) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	l.Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out successfully",
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_failed", "status", 400, "reason", "bad_body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.RefreshToken == "" {
		l.Warn("refresh_failed", "status", 400, "reason", "missing_token")
		return echo.NewHTTPError(http.StatusBadRequest, "refresh_token is required")
	}

	claims, err := h.Tokens.Decode(req.RefreshToken)
	if err != nil {
		reason := "invalid token"
		if errors.Is(err, token.ErrExpiredToken) {
			reason = "expired token"
		}
		l.Warn("refresh_failed", "status", 401, "reason", reason)
		return echo.NewHTTPError(http.StatusUnauthorized, reason)
	}
	if claims.Kind != token.KindRefresh {
		l.Warn("refresh_failed", "status", 401, "reason", "not a refresh token")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	var user models.User
	if err := h.DB.First(&user, claims.Subject).Error; err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "unknown subject")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	// Minting is the moment the role claim refreshes: a role change made
	// since login takes effect here, not on every request.
	role, err := h.settingsRole(user.ID)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	access, refresh, err := h.Tokens.IssuePair(user.ID, role)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("refresh_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (h *AuthHandler) PasswordResetRequest(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "password_reset_request")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("reset_request_failed", "status", 400, "reason", "bad_body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" {
		l.Warn("reset_request_failed", "status", 400, "reason", "missing_email")
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("reset_request_failed", "status", 404, "reason", "unknown_email")
			return echo.NewHTTPError(http.StatusNotFound, "user with this email does not exist")
		}
		l.Error("reset_request_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	resetToken := h.Reset.Make(&user)
	uid := token.EncodeUID(user.ID)
	resetLink := fmt.Sprintf("%s/api/v1/reset-password/%s/%s/", h.BaseURL, uid, resetToken)

	if h.Mailer != nil {
		subject := "Password Reset Request"
		body := fmt.Sprintf("Click the link below to reset your password:\n\n%s", resetLink)
		if err := h.Mailer.Send(subject, body, h.EmailFrom, user.Email); err != nil {
			l.Warn("reset_request_warning", "reason", "cannot send email", "error", err)
		}
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":    "password_reset_requested",
		"user_id": user.ID,
	})

	l.Info("reset_request_success", "user_id", user.ID)
	// The link is echoed for non-production use; production deployments
	// should rely on the email alone.
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "password reset link has been sent to your email",
		"reset_link": resetLink,
	})
}

func (h *AuthHandler) PasswordResetConfirm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "password_reset_confirm")

	userID, err := token.DecodeUID(c.Param("uid"))
	if err != nil {
		l.Warn("reset_confirm_failed", "status", 400, "reason", "bad_uid")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reset link")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		l.Warn("reset_confirm_failed", "status", 400, "reason", "unknown_user")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reset link")
	}

	if !h.Reset.Check(&user, c.Param("token")) {
		l.Warn("reset_confirm_failed", "status", 400, "reason", "bad_token")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired reset link")
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("reset_confirm_failed", "status", 400, "reason", "bad_body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Password == "" {
		l.Warn("reset_confirm_failed", "status", 400, "reason", "missing_password")
		return echo.NewHTTPError(http.StatusBadRequest, "password is required")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("reset_confirm_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// Persisting the new hash rewrites the fingerprint every outstanding
	// reset token was derived from, so they all stop verifying.
	if err := h.DB.Model(&user).Update("password_hash", pwHash).Error; err != nil {
		l.Error("reset_confirm_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":    "password_reset_completed",
		"user_id": user.ID,
	})

	l.Info("reset_confirm_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "password has been successfully reset",
	})
}
