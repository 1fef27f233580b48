package handler

import (
	"errors"
	"net/http"

	"standup-tracker/internal/middleware"
	"standup-tracker/internal/model"
	"standup-tracker/internal/session"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	store *session.Store
	dash  *DashboardHandler
}

func NewAuthHandler(store *session.Store, dash *DashboardHandler) *AuthHandler {
	return &AuthHandler{store: store, dash: dash}
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ident, token, err := h.store.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": authReason(err)})
		return
	}
	c.JSON(http.StatusOK, model.LoginResponse{Token: token, User: ident})
}

// Signup handles POST /api/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ident, token, err := h.store.Signup(c.Request.Context(), req.Name, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		status := http.StatusBadRequest
		if authReason(err) == session.ReasonSessionFailure {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": authReason(err)})
		return
	}
	c.JSON(http.StatusOK, model.LoginResponse{Token: token, User: ident})
}

// Logout handles POST /api/logout. The dashboard mounted for this user,
// if any, is unmounted so its filter state does not leak into the next
// session.
func (h *AuthHandler) Logout(c *gin.Context) {
	ident, _ := middleware.IdentityFrom(c)
	if err := h.store.Logout(c.Request.Context(), middleware.TokenIDFrom(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": authReason(err)})
		return
	}
	if h.dash != nil {
		h.dash.unmount(ident.ID)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func authReason(err error) string {
	var ae *session.AuthError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return "auth_failed"
}
