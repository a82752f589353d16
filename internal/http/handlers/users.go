package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/medicareprima/clinic-api/internal/config"
	"github.com/medicareprima/clinic-api/internal/domain/user"
)

type UserAdminStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// SessionRevoker kills every refresh token a user holds, in one tx.
type SessionRevoker interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	RevokeAllForUser(ctx context.Context, tx pgx.Tx, userID string) error
}

type UsersHandler struct {
	users    UserAdminStore
	sessions SessionRevoker
	log      *slog.Logger
}

func NewUsersHandler(users UserAdminStore, sessions SessionRevoker, log *slog.Logger) *UsersHandler {
	return &UsersHandler{users: users, sessions: sessions, log: log}
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// SetActive flips the account flag. Deactivation also revokes every refresh
// session so the lockout is immediate, not delayed until token expiry.
func (h *UsersHandler) SetActive(ctx *gin.Context) {
	id := ctx.Param("id")

	var req setActiveRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if _, err := h.users.GetByID(cctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not update user")
		return
	}

	if err := h.users.SetActive(cctx, id, *req.IsActive); err != nil {
		h.log.Error("set active failed", "user_id", id, "err", err)
		RespondInternal(ctx, "Could not update user")
		return
	}

	if !*req.IsActive {
		if err := h.revokeSessions(cctx, id); err != nil {
			// account already flagged; login and status both enforce it
			h.log.Error("session revocation failed after deactivation", "user_id", id, "err", err)
		}
	}

	updated, err := h.users.GetByID(cctx, id)

	if err != nil {
		RespondInternal(ctx, "Could not update user")
		return
	}

	Respond(ctx, http.StatusOK, updated)
}

func (h *UsersHandler) revokeSessions(ctx context.Context, userID string) error {
	tx, err := h.sessions.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.sessions.RevokeAllForUser(ctx, tx, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
