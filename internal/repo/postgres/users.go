package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicareprima/clinic-api/internal/domain/user"
	"github.com/medicareprima/clinic-api/internal/observability"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone,
	date_of_birth, gender, address, role, is_active, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var role string
	var gender *string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Phone,
		&u.DateOfBirth,
		&gender,
		&u.Address,
		&role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		return user.User{}, err
	}

	u.Role = user.Role(role)

	if gender != nil {
		g := user.Gender(*gender)
		u.Gender = &g
	}

	return u, nil
}

// EmailExists reports whether any user row holds the normalized form of the
// given email. Callers treat a storage error as "unknown"; the unique index
// on users.email remains the hard guarantee against duplicates.
func (r *UsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := r.observe("users.email_exists", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
			user.NormalizeEmail(email),
		).Scan(&exists)
	})

	if err != nil {
		return false, err
	}

	return exists, nil
}

// Create inserts the user row. A unique violation on users.email is mapped to
// user.ErrEmailTaken, closing the window between an existence check and the
// insert.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	var gender *string

	if u.Gender != nil {
		g := string(*u.Gender)
		gender = &g
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone,
			u.DateOfBirth, gender, u.Address, string(u.Role), u.IsActive, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	// re-read by id so the caller gets exactly what was persisted
	return r.GetByID(ctx, u.ID)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_id", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_email", func() error {
		var scanErr error
		u, scanErr = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			user.NormalizeEmail(email)))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// SetActive flips the active flag. Deactivated accounts are rejected at login.
func (r *UsersRepo) SetActive(ctx context.Context, id string, active bool) error {
	var tag pgconn.CommandTag

	err := r.observe("users.set_active", func() error {
		var execErr error
		tag, execErr = r.pool.Exec(ctx, `
			UPDATE users
			SET is_active = $2,
			    updated_at = NOW()
			WHERE id = $1
		`, id, active)
		return execErr
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}
