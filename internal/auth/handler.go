package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/pkg/database"
	"github.com/deskly/backend/pkg/queue"
	"github.com/deskly/backend/pkg/response"
	"github.com/deskly/backend/pkg/utils"
)

// HeaderSessionToken is the request header carrying the opaque session token.
const HeaderSessionToken = "x-session-token"

// Notifier delivers password-reset jobs to the background worker.
type Notifier interface {
	EnqueuePasswordReset(ctx context.Context, payload queue.PasswordResetPayload) error
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ResetRequest is the body for POST /auth/password-reset/request.
type ResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body for POST /auth/password-reset/confirm.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// SessionResponse is the auth response carrying the opaque session token.
type SessionResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo       *Repository
	reset      *ResetService
	notifier   Notifier
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, reset *ResetService, notifier Notifier, sessionExpireHours int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:       repo,
		reset:      reset,
		notifier:   notifier,
		sessionTTL: time.Duration(sessionExpireHours) * time.Hour,
		logger:     logger,
	}
}

func (h *Handler) issueSession(c *gin.Context, user *models.User) (*SessionResponse, bool) {
	token, err := GenerateSessionToken()
	if err != nil {
		response.Internal(c, "failed to generate session token")
		return nil, false
	}
	sess, err := h.repo.CreateSession(c.Request.Context(), token, user.ID, time.Now().Add(h.sessionTTL))
	if err != nil {
		response.Internal(c, err.Error())
		return nil, false
	}
	return &SessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: user.ToPublic()}, true
}

// Register handles POST /auth/register. New accounts are always plain
// members; elevated roles are granted through user management.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if _, err := h.repo.GetUserByEmail(c.Request.Context(), req.Email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.CreateUser(c.Request.Context(), req.Email, hash, req.FullName, models.RoleMember)
	if err != nil {
		response.Internal(c, err.Error())
		return
	}

	if resp, ok := h.issueSession(c, user); ok {
		response.Created(c, resp)
	}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !user.IsActive {
		response.Forbidden(c, "account is deactivated")
		return
	}

	if resp, ok := h.issueSession(c, user); ok {
		response.OK(c, resp)
	}
}

// Logout handles POST /auth/logout. Deletes the presented session row.
func (h *Handler) Logout(c *gin.Context) {
	token := c.GetHeader(HeaderSessionToken)
	if token == "" {
		response.BadRequest(c, "missing session token")
		return
	}
	if err := h.repo.DeleteSession(c.Request.Context(), token); err != nil {
		response.Internal(c, err.Error())
		return
	}
	response.OK(c, gin.H{"message": "logged out"})
}

// RequestPasswordReset handles POST /auth/password-reset/request. Responds
// identically whether or not the account exists.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	const okMsg = "if the account exists, a reset link has been sent"

	user, err := h.repo.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil || !user.IsActive {
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("reset lookup failed", zap.Error(err))
		}
		response.OK(c, gin.H{"message": okMsg})
		return
	}

	token, err := h.reset.Generate(user.ID, user.Password)
	if err != nil {
		h.logger.Error("generate reset token failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		response.OK(c, gin.H{"message": okMsg})
		return
	}
	if h.notifier != nil {
		payload := queue.PasswordResetPayload{UserID: user.ID, RecipientEmail: user.Email, ResetToken: token}
		if err := h.notifier.EnqueuePasswordReset(c.Request.Context(), payload); err != nil {
			h.logger.Error("enqueue password reset failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		}
	}
	response.OK(c, gin.H{"message": okMsg})
}

// ResetPassword handles POST /auth/password-reset/confirm.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	claims, err := h.reset.Validate(req.Token)
	if err != nil {
		response.BadRequest(c, "invalid or expired reset token")
		return
	}
	user, err := h.repo.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.BadRequest(c, "invalid or expired reset token")
		return
	}
	// A token minted before the last password change no longer matches.
	if PasswordFingerprint(user.Password) != claims.PasswordFP {
		response.BadRequest(c, "invalid or expired reset token")
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.UpdatePassword(c.Request.Context(), user.ID, hash); err != nil {
		response.Internal(c, err.Error())
		return
	}
	if err := h.repo.DeleteUserSessions(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("revoke sessions failed", zap.Error(err), zap.String("user_id", user.ID.String()))
	}
	response.OK(c, gin.H{"message": "password updated"})
}
