package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/medicareprima/clinic-api/internal/auth"
	"github.com/medicareprima/clinic-api/internal/config"
	"github.com/medicareprima/clinic-api/internal/domain/job"
	"github.com/medicareprima/clinic-api/internal/domain/user"
	"github.com/medicareprima/clinic-api/internal/jobs"
	"github.com/medicareprima/clinic-api/internal/repo/postgres"
	"github.com/medicareprima/clinic-api/internal/security"
)

// Client-facing messages. Login failures use one message for unknown email
// and wrong password so responses cannot be used to enumerate accounts.
const (
	MsgInvalidCredentials = "Email atau password salah"
	MsgEmailTaken         = "Email sudah terdaftar"
	MsgAccountInactive    = "Akun tidak aktif"
)

type UserStore interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type RefreshTokenStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, tx pgx.Tx, row postgres.RefreshTokenRow) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (postgres.RefreshTokenRow, error)
	Revoke(ctx context.Context, tx pgx.Tx, id string, replacedBy *string) error
}

type JobEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type AuthHandler struct {
	users        UserStore
	refreshStore RefreshTokenStore
	jwt          *auth.Manager
	enqueuer     JobEnqueuer
	cfg          config.Config
	log          *slog.Logger
}

func NewAuthHandler(users UserStore, refreshStore RefreshTokenStore, jwtManager *auth.Manager, enqueuer JobEnqueuer, cfg config.Config, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:        users,
		refreshStore: refreshStore,
		jwt:          jwtManager,
		enqueuer:     enqueuer,
		cfg:          cfg,
		log:          log,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	// Pre-check so the common duplicate case gets a clean error. A read
	// failure here must not block registration; the unique index on
	// users.email catches whatever slips through.
	exists, err := h.users.EmailExists(cctx, req.Email)

	if err != nil {
		h.log.Warn("email existence check failed, proceeding to insert", "err", err)
		exists = false
	}

	if exists {
		RespondBadRequest(ctx, MsgEmailTaken, nil)
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	created, err := h.users.Create(cctx, user.NewFromRegisterRequest(req, hash))

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondBadRequest(ctx, MsgEmailTaken, nil)
			return
		}

		h.log.Error("user insert failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	h.enqueueWelcomeEmail(cctx, created, requestIDFrom(ctx))

	Respond(ctx, http.StatusCreated, created)
}

func (h *AuthHandler) enqueueWelcomeEmail(ctx context.Context, u user.User, requestID string) {
	if h.enqueuer == nil {
		return
	}

	payload, err := jobs.EncodePayload(jobs.JobSendWelcomeEmail, jobs.SendWelcomeEmailPayload{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		RequestID: requestID,
	})

	if err != nil {
		h.log.Error("welcome email payload encode failed", "user_id", u.ID, "err", err)
		return
	}

	key := "welcome:" + u.ID

	// best effort: registration already succeeded
	_, err = h.enqueuer.Create(ctx, job.CreateRequest{
		Type:           string(jobs.JobSendWelcomeEmail),
		Payload:        payload,
		IdempotencyKey: &key,
		UserID:         &u.ID,
	})

	if err != nil && !postgres.IsUniqueViolation(err) {
		h.log.Error("welcome email enqueue failed", "user_id", u.ID, "err", err)
	}
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.log.Error("user lookup failed", "err", err)
			RespondInternal(ctx, "Could not log in")
			return
		}

		RespondUnAuthorized(ctx, "invalid_credentials", MsgInvalidCredentials)
		return
	}

	if foundUser.PasswordHash == "" {
		// distinct in logs for operability, generic to the client
		h.log.Warn("login attempt against account with no password set", "user_id", foundUser.ID)
		RespondUnAuthorized(ctx, "invalid_credentials", MsgInvalidCredentials)
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", MsgInvalidCredentials)
		return
	}

	// checked after the password so this message cannot be used to probe
	// whether credentials were correct
	if !foundUser.IsActive {
		h.log.Warn("login rejected for inactive account", "user_id", foundUser.ID)
		RespondForbidden(ctx, "account_inactive", MsgAccountInactive)
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(foundUser.ID, foundUser.Email, string(foundUser.Role))

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	rawRefreshToken, jti, expiresAt, err := h.jwt.GenerateRefreshToken(foundUser.ID, foundUser.Email, string(foundUser.Role))

	if err != nil {
		RespondInternal(ctx, "Could not generate refresh token")
		return
	}

	if err := h.storeRefreshToken(cctx, foundUser.ID, jti, rawRefreshToken, expiresAt); err != nil {
		h.log.Error("refresh token store failed", "err", err)
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setRefreshCookie(ctx, rawRefreshToken, expiresAt)

	Respond(ctx, http.StatusOK, gin.H{
		"user":        foundUser,
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	// rotation with a tx with row lock

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	tx, err := h.refreshStore.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	row, err := h.refreshStore.GetForUpdate(cctx, tx, claims.JTI)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	if row.RevokedAt != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	if time.Now().UTC().After(row.ExpiresAt) {
		RespondUnAuthorized(ctx, "expired_refresh", "Refresh token expired")
		return
	}

	// verify hash matches the presented token (prevents token substitution)

	if row.TokenHash != h.jwt.HashRefreshToken(raw) {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	// rotate: revoke old, insert new

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(row.UserID, claims.Email, claims.Role)
	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	err = h.refreshStore.Revoke(cctx, tx, row.ID, &newJTI)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	newRow := postgres.RefreshTokenRow{
		ID:        newJTI,
		UserID:    row.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now().UTC(),
	}

	err = h.refreshStore.Create(cctx, tx, newRow)

	if err != nil {
		h.log.Error("refresh token rotation insert failed", "err", err)
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	err = tx.Commit(cctx)

	if err != nil {
		h.log.Error("refresh token rotation commit failed", "err", err)
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(row.UserID, claims.Email, claims.Role)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.setRefreshCookie(ctx, newRaw, newExpiresAt)

	Respond(ctx, http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

// Logout revokes the presented refresh token and clears the cookie. Always
// acknowledges, even without a valid session.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err == nil && raw != "" {
		if claims, verifyErr := h.jwt.VerifyRefreshToken(raw); verifyErr == nil {
			cctx, cancel := config.WithTimeout(3 * time.Second)
			defer cancel()

			tx, txErr := h.refreshStore.BeginTx(cctx)

			if txErr == nil {
				defer func() { _ = tx.Rollback(cctx) }()

				// idempotent revoke
				_ = h.refreshStore.Revoke(cctx, tx, claims.JTI, nil)
				_ = tx.Commit(cctx)
			}
		}
	}

	h.clearRefreshCookie(ctx)
	Respond(ctx, http.StatusOK, gin.H{"loggedOut": true})
}

// Status reports whether the presented access token is valid. Anonymous
// callers get authenticated:false rather than a 401 so the landing page can
// poll it freely.
func (h *AuthHandler) Status(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")

	if !strings.HasPrefix(authHeader, "Bearer ") {
		Respond(ctx, http.StatusOK, gin.H{"authenticated": false})
		return
	}

	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))

	claims, err := h.jwt.VerifyAccessToken(raw)

	if err != nil {
		Respond(ctx, http.StatusOK, gin.H{"authenticated": false})
		return
	}

	Respond(ctx, http.StatusOK, gin.H{
		"authenticated": true,
		"user": gin.H{
			"id":    claims.UserID,
			"email": claims.Email,
			"role":  claims.Role,
		},
	})
}

// Helper functions

func (h *AuthHandler) storeRefreshToken(ctx context.Context, userID, jti, raw string, expiresAt time.Time) error {
	tx, err := h.refreshStore.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := postgres.RefreshTokenRow{
		ID:        jti,
		UserID:    userID,
		TokenHash: h.jwt.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	err = h.refreshStore.Create(ctx, tx, row)

	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (h *AuthHandler) refreshCookieName() string {
	return "refresh_token"
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.refreshCookieName(),
		raw,
		maxAge,
		"/auth",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		h.refreshCookieName(),
		"",
		-1,
		"/auth",
		"",
		secure,
		true,
	)
}
