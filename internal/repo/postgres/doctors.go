package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicareprima/clinic-api/internal/domain/doctor"
	"github.com/medicareprima/clinic-api/internal/observability"
)

type DoctorsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewDoctorsRepo(pool *pgxpool.Pool, prom *observability.Prom) *DoctorsRepo {
	return &DoctorsRepo{pool: pool, prom: prom}
}

func (r *DoctorsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// List-valued columns are stored as JSON-encoded text.

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}

	b, err := json.Marshal(items)

	if err != nil {
		return "", err
	}

	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}

	var items []string

	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}

	return items, nil
}

func scanDoctor(row pgx.Row) (doctor.Doctor, error) {
	var d doctor.Doctor
	var education, certifications, languages, specialties string

	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Specialization,
		&d.LicenseNumber,
		&d.ConsultationFee,
		&d.ExperienceYears,
		&d.Bio,
		&education,
		&certifications,
		&languages,
		&specialties,
		&d.CreatedAt,
		&d.UpdatedAt,
	)

	if err != nil {
		return doctor.Doctor{}, err
	}

	if d.Education, err = decodeList(education); err != nil {
		return doctor.Doctor{}, err
	}
	if d.Certifications, err = decodeList(certifications); err != nil {
		return doctor.Doctor{}, err
	}
	if d.Languages, err = decodeList(languages); err != nil {
		return doctor.Doctor{}, err
	}
	if d.Specialties, err = decodeList(specialties); err != nil {
		return doctor.Doctor{}, err
	}

	return d, nil
}

const doctorColumns = `id, user_id, specialization, license_number, consultation_fee,
	experience_years, bio, education, certifications, languages, specialties,
	created_at, updated_at`

func (r *DoctorsRepo) Create(ctx context.Context, req doctor.CreateRequest) (doctor.Doctor, error) {
	d := doctor.NewFromCreateRequest(req)

	education, err := encodeList(d.Education)
	if err != nil {
		return doctor.Doctor{}, err
	}
	certifications, err := encodeList(d.Certifications)
	if err != nil {
		return doctor.Doctor{}, err
	}
	languages, err := encodeList(d.Languages)
	if err != nil {
		return doctor.Doctor{}, err
	}
	specialties, err := encodeList(d.Specialties)
	if err != nil {
		return doctor.Doctor{}, err
	}

	err = r.observe("doctors.create", func() error {
		_, execErr := r.pool.Exec(ctx,
			`INSERT INTO doctors (`+doctorColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			d.ID, d.UserID, d.Specialization, d.LicenseNumber, d.ConsultationFee,
			d.ExperienceYears, d.Bio, education, certifications, languages, specialties,
			d.CreatedAt, d.UpdatedAt,
		)
		return execErr
	})

	if err != nil {
		return doctor.Doctor{}, err
	}

	return d, nil
}

func (r *DoctorsRepo) GetByID(ctx context.Context, id string) (doctor.Doctor, error) {
	var d doctor.Doctor
	var err error

	err = r.observe("doctors.get_by_id", func() error {
		var scanErr error
		d, scanErr = scanDoctor(r.pool.QueryRow(ctx,
			`SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return doctor.Doctor{}, doctor.ErrNotFound
		}

		return doctor.Doctor{}, err
	}

	return d, nil
}

func (r *DoctorsRepo) List(ctx context.Context, filter doctor.ListFilter) ([]doctor.Doctor, int, error) {
	baseQuery := `SELECT ` + doctorColumns + `, COUNT(*) OVER() AS total FROM doctors`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.Specialization != nil {
		conds = append(conds, fmt.Sprintf("specialization = $%d", argsPosition))
		args = append(args, *filter.Specialization)
		argsPosition++
	}

	if filter.Query != nil {
		conds = append(conds, fmt.Sprintf("(specialization ILIKE '%%' || $%d || '%%' OR bio ILIKE '%%' || $%d || '%%')", argsPosition, argsPosition))
		args = append(args, *filter.Query)
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY specialization ASC, id ASC LIMIT $%d OFFSET $%d", argsPosition, argsPosition+1)

	args = append(args, filter.Limit, filter.Offset)

	var rows pgx.Rows
	var err error

	err = r.observe("doctors.list", func() error {
		rows, err = r.pool.Query(ctx, query, args...)
		return err
	})

	if err != nil {
		return nil, 0, err
	}

	defer rows.Close()

	output := make([]doctor.Doctor, 0, filter.Limit)
	total := 0

	for rows.Next() {
		var d doctor.Doctor
		var education, certifications, languages, specialties string
		var t int

		err = rows.Scan(
			&d.ID, &d.UserID, &d.Specialization, &d.LicenseNumber, &d.ConsultationFee,
			&d.ExperienceYears, &d.Bio, &education, &certifications, &languages, &specialties,
			&d.CreatedAt, &d.UpdatedAt, &t,
		)

		if err != nil {
			return nil, 0, err
		}

		if d.Education, err = decodeList(education); err != nil {
			return nil, 0, err
		}
		if d.Certifications, err = decodeList(certifications); err != nil {
			return nil, 0, err
		}
		if d.Languages, err = decodeList(languages); err != nil {
			return nil, 0, err
		}
		if d.Specialties, err = decodeList(specialties); err != nil {
			return nil, 0, err
		}

		total = t
		output = append(output, d)
	}

	err = rows.Err()

	if err != nil {
		return nil, 0, err
	}

	return output, total, nil
}

func (r *DoctorsRepo) Update(ctx context.Context, id string, req doctor.UpdateRequest) (doctor.Doctor, error) {
	education, err := encodeList(req.Education)
	if err != nil {
		return doctor.Doctor{}, err
	}
	certifications, err := encodeList(req.Certifications)
	if err != nil {
		return doctor.Doctor{}, err
	}
	languages, err := encodeList(req.Languages)
	if err != nil {
		return doctor.Doctor{}, err
	}
	specialties, err := encodeList(req.Specialties)
	if err != nil {
		return doctor.Doctor{}, err
	}

	var d doctor.Doctor

	err = r.observe("doctors.update", func() error {
		var scanErr error
		d, scanErr = scanDoctor(r.pool.QueryRow(ctx,
			`UPDATE doctors
			 SET specialization = $2,
			     license_number = $3,
			     consultation_fee = $4,
			     experience_years = $5,
			     bio = $6,
			     education = $7,
			     certifications = $8,
			     languages = $9,
			     specialties = $10,
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+doctorColumns,
			id, req.Specialization, req.LicenseNumber, req.ConsultationFee,
			req.ExperienceYears, req.Bio, education, certifications, languages, specialties,
		))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return doctor.Doctor{}, doctor.ErrNotFound
		}

		return doctor.Doctor{}, err
	}

	return d, nil
}
