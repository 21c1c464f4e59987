package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/salesdesk/internal/actorctx"
	"github.com/geocoder89/salesdesk/internal/domain/user"
	"github.com/geocoder89/salesdesk/internal/salesperson"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type SalespersonService interface {
	Create(ctx context.Context, in salesperson.CreateInput) (user.Profile, error)
	List(ctx context.Context) ([]salesperson.View, error)
	Get(ctx context.Context, id int64) (salesperson.View, error)
	Update(ctx context.Context, id int64, in salesperson.UpdateInput) (user.Profile, error)
	Delete(ctx context.Context, id int64) error
}

type SalespersonHandler struct {
	svc SalespersonService
}

func NewSalespersonHandler(svc SalespersonService) *SalespersonHandler {
	return &SalespersonHandler{svc: svc}
}

type CreateSalespersonRequest struct {
	FirstName       string `json:"firstName" binding:"required"`
	LastName        string `json:"lastName" binding:"required"`
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// emailField applies the create-time email rule to an update. An empty value
// means "not supplied" and passes.
type emailField struct {
	Email string `json:"email" binding:"omitempty,email"`
}

// UpdateSalespersonRequest fields left out or sent empty are not changed.
type UpdateSalespersonRequest struct {
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	ConfirmPassword *string `json:"confirmPassword"`
}

const storeTimeout = 3 * time.Second

func (h *SalespersonHandler) Create(ctx *gin.Context) {
	var req CreateSalespersonRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	created, err := h.svc.Create(cctx, salesperson.CreateInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.respondError(ctx, "salesperson.create", err)
		return
	}

	audit(ctx, "salesperson_created", created.ID)

	ctx.JSON(http.StatusCreated, gin.H{
		"message":       "Salesperson registered successfully!",
		"user":          created,
		"plainPassword": req.Password,
	})
}

func (h *SalespersonHandler) List(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	views, err := h.svc.List(cctx)
	if err != nil {
		h.respondError(ctx, "salesperson.list", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"users": views})
}

func (h *SalespersonHandler) Get(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	view, err := h.svc.Get(cctx, id)
	if err != nil {
		h.respondError(ctx, "salesperson.get", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"user": view})
}

func (h *SalespersonHandler) Update(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req UpdateSalespersonRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if req.Email != nil {
		check := emailField{Email: strings.TrimSpace(*req.Email)}
		if err := binding.Validator.ValidateStruct(&check); err != nil {
			RespondBadRequest(ctx, "Invalid request body", parseBindError(err, &check))
			return
		}
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	updated, err := h.svc.Update(cctx, id, salesperson.UpdateInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.respondError(ctx, "salesperson.update", err)
		return
	}

	audit(ctx, "salesperson_updated", id)

	body := gin.H{
		"message": "Updated successfully",
		"user":    updated,
	}
	if req.Password != nil && *req.Password != "" {
		body["plainPassword"] = *req.Password
	}
	ctx.JSON(http.StatusOK, body)
}

func (h *SalespersonHandler) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.svc.Delete(cctx, id); err != nil {
		h.respondError(ctx, "salesperson.delete", err)
		return
	}

	audit(ctx, "salesperson_deleted", id)

	ctx.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}

func (h *SalespersonHandler) respondError(ctx *gin.Context, op string, err error) {
	switch {
	case salesperson.IsValidation(err):
		RespondBadRequest(ctx, serviceErrorMessage(err), nil)
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrUsernameOrEmailTaken):
		RespondConflict(ctx, "conflict", "Username or Email already exists.")
	default:
		// cipher integrity failures land here too
		attrs := []any{"op", op, "request_id", requestIDFrom(ctx), "err", err}
		attrs = append(attrs, actorctx.LogAttrs(ctx.Request.Context())...)
		slog.Default().ErrorContext(ctx.Request.Context(), "salesperson_request_failed", attrs...)
		RespondInternal(ctx, "Internal server error.")
	}
}

func serviceErrorMessage(err error) string {
	switch {
	case errors.Is(err, salesperson.ErrMissingFields):
		return "All fields are required."
	case errors.Is(err, salesperson.ErrPasswordMismatch):
		return "Passwords do not match."
	case errors.Is(err, salesperson.ErrPasswordTooLong):
		return "Password must be at most 72 bytes."
	default:
		return "Not a salesperson"
	}
}

func parseID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "Invalid id", gin.H{"id": "must be a positive integer"})
		return 0, false
	}
	return id, true
}

func audit(ctx *gin.Context, event string, targetID int64) {
	attrs := []any{"target_id", targetID, "request_id", requestIDFrom(ctx)}
	attrs = append(attrs, actorctx.LogAttrs(ctx.Request.Context())...)
	slog.Default().InfoContext(ctx.Request.Context(), event, attrs...)
}
