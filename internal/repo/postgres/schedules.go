package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicareprima/clinic-api/internal/domain/schedule"
	"github.com/medicareprima/clinic-api/internal/observability"
)

type SchedulesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewSchedulesRepo(pool *pgxpool.Pool, prom *observability.Prom) *SchedulesRepo {
	return &SchedulesRepo{pool: pool, prom: prom}
}

func (r *SchedulesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Upsert writes the weekly availability entry for (doctor_id, day_of_week),
// relying on the unique index over that pair.
func (r *SchedulesRepo) Upsert(ctx context.Context, req schedule.UpsertRequest) (schedule.Schedule, error) {
	s := schedule.NewFromUpsertRequest(req)

	err := r.observe("schedules.upsert", func() error {
		return r.pool.QueryRow(ctx, `
			INSERT INTO schedules (id, doctor_id, day_of_week, start_time, end_time, is_available, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (doctor_id, day_of_week) DO UPDATE
			SET start_time = EXCLUDED.start_time,
			    end_time = EXCLUDED.end_time,
			    is_available = EXCLUDED.is_available,
			    updated_at = NOW()
			RETURNING id, created_at, updated_at
		`, s.ID, s.DoctorID, s.DayOfWeek, s.StartTime, s.EndTime, s.IsAvailable, s.CreatedAt, s.UpdatedAt).
			Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	})

	if err != nil {
		return schedule.Schedule{}, err
	}

	return s, nil
}

func (r *SchedulesRepo) ListByDoctor(ctx context.Context, doctorID string) ([]schedule.Schedule, error) {
	var rows pgx.Rows
	var err error

	err = r.observe("schedules.list_by_doctor", func() error {
		rows, err = r.pool.Query(ctx, `
			SELECT id, doctor_id, day_of_week, start_time, end_time, is_available, created_at, updated_at
			FROM schedules
			WHERE doctor_id = $1
			ORDER BY day_of_week ASC
		`, doctorID)
		return err
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]schedule.Schedule, 0, 7)

	for rows.Next() {
		var s schedule.Schedule

		if scanErr := rows.Scan(&s.ID, &s.DoctorID, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt); scanErr != nil {
			return nil, scanErr
		}

		out = append(out, s)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return out, nil
}

func (r *SchedulesRepo) GetForDoctorDay(ctx context.Context, doctorID string, dayOfWeek int) (schedule.Schedule, error) {
	var s schedule.Schedule

	err := r.observe("schedules.get_for_doctor_day", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT id, doctor_id, day_of_week, start_time, end_time, is_available, created_at, updated_at
			FROM schedules
			WHERE doctor_id = $1 AND day_of_week = $2
		`, doctorID, dayOfWeek).
			Scan(&s.ID, &s.DoctorID, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Schedule{}, schedule.ErrNotFound
		}

		return schedule.Schedule{}, err
	}

	return s, nil
}
