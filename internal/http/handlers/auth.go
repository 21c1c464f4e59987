package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/salesdesk/internal/auth"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Login(ctx context.Context, username, password string) (auth.Session, error)
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(a Authenticator) *AuthHandler {
	return &AuthHandler{auth: a}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// bcrypt dominates; the lookup itself is short
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	session, err := h.auth.Login(cctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			RespondBadRequest(ctx, "Username and password are required", nil)
		case errors.Is(err, auth.ErrInvalidCredentials):
			RespondUnAuthorized(ctx, "invalid_credentials", "Invalid username or password")
		default:
			slog.Default().ErrorContext(ctx.Request.Context(), "login_failed",
				"request_id", requestIDFrom(ctx),
				"err", err,
			)
			RespondInternal(ctx, "Internal server error")
		}
		return
	}

	ctx.JSON(http.StatusOK, session)
}
