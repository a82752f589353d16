package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medicareprima/clinic-api/internal/domain/job"
	"github.com/medicareprima/clinic-api/internal/jobs"
	"github.com/medicareprima/clinic-api/internal/notifications"
)

// ProcessOne claims and runs at most one job. The boolean reports whether a
// job was processed at all (false means the queue was empty).
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	w.metrics.IncClaimed()

	start := time.Now()
	err = w.execute(ctx, j)
	w.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		w.handleFailure(ctx, j, err)
		return true, nil
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		w.metrics.IncFailed()
		return true, err
	}

	w.metrics.IncDone()
	return true, nil
}

func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) {
	// ClaimNext already bumped attempts; out of attempts means dead-letter.
	if j.Attempts >= j.MaxAttempts {
		w.metrics.IncDeadLettered()

		if err := w.repo.MarkFailed(ctx, j.ID, cause.Error()); err != nil {
			w.log.Error("mark failed error", "job_id", j.ID, "err", err)
		}

		w.log.Error("job dead-lettered", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "err", cause)
		return
	}

	delay := ExponentialBackoff(j.Attempts)
	w.metrics.IncRetried()

	if err := w.repo.Reschedule(ctx, j.ID, time.Now().UTC().Add(delay), cause.Error()); err != nil {
		w.log.Error("reschedule error", "job_id", j.ID, "err", err)
		return
	}

	w.log.Warn("job retry scheduled", "job_id", j.ID, "type", j.Type, "attempt", j.Attempts, "delay", delay.String())
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.DecodePayload(jobs.JobType(j.Type), j.Payload)

	if err != nil {
		return err
	}

	if w.dedup != nil {
		fresh, dedupErr := w.dedup.MarkNotificationSent(ctx, j.Type, j.ID)

		if dedupErr != nil {
			// redis being down must not stop notifications; log and send anyway
			w.log.Warn("notification dedup unavailable", "job_id", j.ID, "err", dedupErr)
		} else if !fresh {
			w.log.Info("notification already sent, skipping", "job_id", j.ID, "type", j.Type)
			return nil
		}
	}

	switch p := payload.(type) {
	case jobs.SendWelcomeEmailPayload:
		return w.sendWelcomeEmail(ctx, p)

	case jobs.SendAppointmentReminderPayload:
		return w.sendAppointmentReminder(ctx, p)

	default:
		return fmt.Errorf("%w: %s", jobs.ErrInvalidJobType, j.Type)
	}
}

func (w *Worker) sendWelcomeEmail(ctx context.Context, p jobs.SendWelcomeEmailPayload) error {
	email := p.Email
	firstName := p.FirstName

	// payload may predate a profile edit; prefer the current record
	if u, err := w.users.GetByID(ctx, p.UserID); err == nil {
		email = u.Email
		firstName = u.FirstName
	}

	return w.notifier.SendWelcomeEmail(ctx, notifications.SendWelcomeEmailInput{
		Email:     email,
		FirstName: firstName,
		UserID:    p.UserID,
	})
}

func (w *Worker) sendAppointmentReminder(ctx context.Context, p jobs.SendAppointmentReminderPayload) error {
	patient, err := w.users.GetByID(ctx, p.PatientID)

	if err != nil {
		return fmt.Errorf("load patient %s: %w", p.PatientID, err)
	}

	doctorName := ""

	if d, docErr := w.doctors.GetByID(ctx, p.DoctorID); docErr == nil {
		if du, userErr := w.users.GetByID(ctx, d.UserID); userErr == nil {
			doctorName = du.FirstName + " " + du.LastName
		}
	}

	return w.notifier.SendAppointmentReminder(ctx, notifications.SendAppointmentReminderInput{
		Email:         patient.Email,
		FirstName:     patient.FirstName,
		AppointmentID: p.AppointmentID,
		DoctorName:    doctorName,
		StartsAt:      p.StartsAt,
	})
}
