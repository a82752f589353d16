package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicareprima/clinic-api/internal/domain/appointment"
	"github.com/medicareprima/clinic-api/internal/domain/doctor"
	"github.com/medicareprima/clinic-api/internal/observability"
	"github.com/medicareprima/clinic-api/internal/utils"
)

type AppointmentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAppointmentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AppointmentsRepo {
	return &AppointmentsRepo{pool: pool, prom: prom}
}

func (repo *AppointmentsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *AppointmentsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return repo.pool.BeginTx(ctx, pgx.TxOptions{})
}

// CreateTx books a slot inside the caller's transaction: it locks the
// doctor's availability row for the requested weekday, rejects slots outside
// availability, then inserts with a duplicate check. The unique index on
// (doctor_id, starts_at) is the backstop against concurrent bookings.
func (repo *AppointmentsRepo) CreateTx(ctx context.Context, tx pgx.Tx, req appointment.CreateRequest) (appt appointment.Appointment, err error) {
	day := int(req.StartsAt.UTC().Weekday())

	var available bool

	err = repo.observe("appointments.create_tx.availability_lock", func() error {
		return tx.QueryRow(ctx, `
			SELECT s.is_available
			FROM schedules s
			WHERE s.doctor_id = $1 AND s.day_of_week = $2
			FOR UPDATE
		`, req.DoctorID, day).Scan(&available)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = appointment.ErrDoctorOffDuty
		}

		return
	}

	if !available {
		err = appointment.ErrDoctorOffDuty
		return
	}

	var exists bool

	err = repo.observe("appointments.create_tx.duplicate_check", func() error {
		return tx.QueryRow(ctx, `SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND starts_at = $2 AND status <> 'CANCELLED'
		)`, req.DoctorID, req.StartsAt.UTC()).Scan(&exists)
	})

	if err != nil {
		return
	}

	if exists {
		err = appointment.ErrSlotTaken
		return
	}

	appt = appointment.NewFromCreateRequest(req)

	err = repo.observe("appointments.create_tx.insert", func() error {
		_, e := tx.Exec(ctx, `
			INSERT INTO appointments (id, doctor_id, patient_id, starts_at, status, complaint, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, appt.ID, appt.DoctorID, appt.PatientID, appt.StartsAt, string(appt.Status), appt.Complaint, appt.CreatedAt, appt.UpdatedAt)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "appointments_doctor_slot_uniq" {
			err = appointment.ErrSlotTaken
			return
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			err = doctor.ErrNotFound
			return
		}
		return
	}

	return
}

func (repo *AppointmentsRepo) Create(ctx context.Context, req appointment.CreateRequest) (appt appointment.Appointment, err error) {
	// availability check, duplicate check and insert share one transaction

	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	appt, err = repo.CreateTx(ctx, tx, req)

	if err != nil {
		return
	}

	err = tx.Commit(ctx)

	return
}

func (repo *AppointmentsRepo) GetByID(ctx context.Context, id string) (appointment.Appointment, error) {
	var a appointment.Appointment
	var status string

	err := repo.observe("appointments.get_by_id", func() error {
		return repo.pool.QueryRow(ctx, `
			SELECT id, doctor_id, patient_id, starts_at, status, complaint, created_at, updated_at
			FROM appointments
			WHERE id = $1
		`, id).Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.StartsAt, &status, &a.Complaint, &a.CreatedAt, &a.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return appointment.Appointment{}, appointment.ErrNotFound
		}

		return appointment.Appointment{}, err
	}

	a.Status = appointment.Status(status)
	return a, nil
}

func (repo *AppointmentsRepo) ListByPatientCursor(
	ctx context.Context,
	patientID string,
	limit int,
	afterCreatedAt time.Time,
	afterID string,
) (items []appointment.Appointment, nextCursor *string, hasMore bool, err error) {
	op := "appointments.list_by_patient_cursor"

	q := `
		SELECT id, doctor_id, patient_id, starts_at, status, complaint, created_at, updated_at
		FROM appointments
		WHERE patient_id = $1
		  AND (created_at, id) > ($2, $3)
		ORDER BY created_at ASC, id ASC
		LIMIT $4
	`
	limitPlusOne := limit + 1

	var rows pgx.Rows
	err = repo.observe(op, func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, q, patientID, afterCreatedAt, afterID, limitPlusOne)
		return qerr
	})
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	out := make([]appointment.Appointment, 0, limit)

	for rows.Next() {
		var a appointment.Appointment
		var status string
		if scanErr := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.StartsAt, &status, &a.Complaint, &a.CreatedAt, &a.UpdatedAt); scanErr != nil {
			return nil, nil, false, scanErr
		}
		a.Status = appointment.Status(status)
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, nil, false, rows.Err()
	}

	if len(out) > limit {
		hasMore = true
		out = out[:limit]
		last := out[len(out)-1]
		cur, encErr := utils.EncodeAppointmentCursor(last.CreatedAt, last.ID)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return out, nextCursor, hasMore, nil
}

// ListAdminCursor pages through all appointments for the back office,
// optionally filtered by doctor and status. Same keyset ordering as the
// patient listing so the cursors are interchangeable.
func (repo *AppointmentsRepo) ListAdminCursor(
	ctx context.Context,
	doctorID string,
	status appointment.Status,
	limit int,
	afterCreatedAt time.Time,
	afterID string,
) (items []appointment.Appointment, nextCursor *string, hasMore bool, err error) {
	op := "appointments.list_admin_cursor"

	q := `
		SELECT id, doctor_id, patient_id, starts_at, status, complaint, created_at, updated_at
		FROM appointments
		WHERE (created_at, id) > ($1, $2)
		  AND ($3 = '' OR doctor_id = $3)
		  AND ($4 = '' OR status = $4)
		ORDER BY created_at ASC, id ASC
		LIMIT $5
	`
	limitPlusOne := limit + 1

	var rows pgx.Rows
	err = repo.observe(op, func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, q, afterCreatedAt, afterID, doctorID, string(status), limitPlusOne)
		return qerr
	})
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	out := make([]appointment.Appointment, 0, limit)

	for rows.Next() {
		var a appointment.Appointment
		var got string
		if scanErr := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.StartsAt, &got, &a.Complaint, &a.CreatedAt, &a.UpdatedAt); scanErr != nil {
			return nil, nil, false, scanErr
		}
		a.Status = appointment.Status(got)
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, nil, false, rows.Err()
	}

	if len(out) > limit {
		hasMore = true
		out = out[:limit]
		last := out[len(out)-1]
		cur, encErr := utils.EncodeAppointmentCursor(last.CreatedAt, last.ID)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return out, nextCursor, hasMore, nil
}

func (repo *AppointmentsRepo) UpdateStatus(ctx context.Context, id string, status appointment.Status) (appointment.Appointment, error) {
	if !status.IsValid() {
		return appointment.Appointment{}, appointment.ErrInvalidStatus
	}

	var a appointment.Appointment
	var got string

	err := repo.observe("appointments.update_status", func() error {
		return repo.pool.QueryRow(ctx, `
			UPDATE appointments
			SET status = $2,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING id, doctor_id, patient_id, starts_at, status, complaint, created_at, updated_at
		`, id, string(status)).Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.StartsAt, &got, &a.Complaint, &a.CreatedAt, &a.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return appointment.Appointment{}, appointment.ErrNotFound
		}

		return appointment.Appointment{}, err
	}

	a.Status = appointment.Status(got)
	return a, nil
}
