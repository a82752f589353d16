package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicareprima/clinic-api/internal/config"
	"github.com/medicareprima/clinic-api/internal/domain/user"
	"github.com/medicareprima/clinic-api/internal/security"
)

// EnsureAdminUser creates the configured admin account at startup if it does
// not exist yet. No-op when ADMIN_EMAIL/ADMIN_PASSWORD are unset.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := user.NormalizeEmail(cfg.AdminEmail)

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	u := user.NewFromRegisterRequest(user.RegisterRequest{
		Email:     email,
		Password:  cfg.AdminPassword,
		FirstName: cfg.AdminName,
		LastName:  "Medicare",
		Phone:     "-",
	}, hash)
	u.Role = user.RoleAdmin

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, phone, date_of_birth, gender, address, role, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.DateOfBirth, u.Gender, u.Address, string(u.Role), u.IsActive, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
