package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medicareprima/clinic-api/internal/domain/doctor"
	"github.com/medicareprima/clinic-api/internal/domain/job"
	"github.com/medicareprima/clinic-api/internal/domain/user"
	"github.com/medicareprima/clinic-api/internal/jobs"
	"github.com/medicareprima/clinic-api/internal/notifications"
)

type fakeJobsRepo struct {
	claimFn      func(ctx context.Context, workerID string) (job.Job, error)
	markDoneIDs  []string
	markFailed   []string
	rescheduled  []time.Time
	markDoneErr  error
	rescheduleFn func(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

func (f *fakeJobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	if f.claimFn != nil {
		return f.claimFn(ctx, workerID)
	}
	return job.Job{}, job.ErrJobNotFound
}

func (f *fakeJobsRepo) MarkDone(ctx context.Context, id string) error {
	f.markDoneIDs = append(f.markDoneIDs, id)
	return f.markDoneErr
}

func (f *fakeJobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	f.markFailed = append(f.markFailed, id)
	return nil
}

func (f *fakeJobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	f.rescheduled = append(f.rescheduled, runAt)
	if f.rescheduleFn != nil {
		return f.rescheduleFn(ctx, id, runAt, errMsg)
	}
	return nil
}

type fakeUsers struct {
	getFn func(ctx context.Context, id string) (user.User, error)
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return user.User{ID: id, Email: "budi@example.com", FirstName: "Budi"}, nil
}

type fakeDoctors struct {
	getFn func(ctx context.Context, id string) (doctor.Doctor, error)
}

func (f *fakeDoctors) GetByID(ctx context.Context, id string) (doctor.Doctor, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return doctor.Doctor{}, doctor.ErrNotFound
}

type fakeNotifier struct {
	welcome   []notifications.SendWelcomeEmailInput
	reminders []notifications.SendAppointmentReminderInput
	err       error
}

func (f *fakeNotifier) SendWelcomeEmail(ctx context.Context, in notifications.SendWelcomeEmailInput) error {
	if f.err != nil {
		return f.err
	}
	f.welcome = append(f.welcome, in)
	return nil
}

func (f *fakeNotifier) SendAppointmentReminder(ctx context.Context, in notifications.SendAppointmentReminderInput) error {
	if f.err != nil {
		return f.err
	}
	f.reminders = append(f.reminders, in)
	return nil
}

type fakeDedup struct {
	fresh bool
	err   error
}

func (f *fakeDedup) MarkNotificationSent(ctx context.Context, jobType, jobID string) (bool, error) {
	return f.fresh, f.err
}

func (f *fakeDedup) Heartbeat(ctx context.Context, workerID string) error { return nil }

func welcomeJob(t *testing.T, attempts, maxAttempts int) job.Job {
	t.Helper()

	payload, err := jobs.EncodePayload(jobs.JobSendWelcomeEmail, jobs.SendWelcomeEmailPayload{
		UserID:    uuid.NewString(),
		Email:     "budi@example.com",
		FirstName: "Budi",
	})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}

	return job.Job{
		ID:          uuid.NewString(),
		Type:        string(jobs.JobSendWelcomeEmail),
		Payload:     payload,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
	}
}

func newTestWorker(repo *fakeJobsRepo, notifier *fakeNotifier, dedup Dedup) *Worker {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(Config{WorkerID: "test-worker"}, repo, &fakeUsers{}, &fakeDoctors{}, notifier, dedup, log)
}

func TestProcessOne_EmptyQueue(t *testing.T) {
	w := newTestWorker(&fakeJobsRepo{}, &fakeNotifier{}, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if processed {
		t.Fatalf("processed = true on empty queue")
	}
}

func TestProcessOne_WelcomeEmailSuccess(t *testing.T) {
	j := welcomeJob(t, 1, 5)

	repo := &fakeJobsRepo{
		claimFn: func(ctx context.Context, workerID string) (job.Job, error) {
			return j, nil
		},
	}
	notifier := &fakeNotifier{}

	w := newTestWorker(repo, notifier, &fakeDedup{fresh: true})

	processed, err := w.ProcessOne(context.Background())

	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	if len(notifier.welcome) != 1 {
		t.Fatalf("welcome emails sent = %d, want 1", len(notifier.welcome))
	}

	if len(repo.markDoneIDs) != 1 || repo.markDoneIDs[0] != j.ID {
		t.Fatalf("MarkDone calls = %v", repo.markDoneIDs)
	}
}

func TestProcessOne_DedupSkipsSend(t *testing.T) {
	j := welcomeJob(t, 1, 5)

	repo := &fakeJobsRepo{
		claimFn: func(ctx context.Context, workerID string) (job.Job, error) {
			return j, nil
		},
	}
	notifier := &fakeNotifier{}

	w := newTestWorker(repo, notifier, &fakeDedup{fresh: false})

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if len(notifier.welcome) != 0 {
		t.Fatalf("notification sent despite dedup hit")
	}

	// the job still completes
	if len(repo.markDoneIDs) != 1 {
		t.Fatalf("MarkDone calls = %v", repo.markDoneIDs)
	}
}

func TestProcessOne_DedupFailureStillSends(t *testing.T) {
	j := welcomeJob(t, 1, 5)

	repo := &fakeJobsRepo{
		claimFn: func(ctx context.Context, workerID string) (job.Job, error) {
			return j, nil
		},
	}
	notifier := &fakeNotifier{}

	w := newTestWorker(repo, notifier, &fakeDedup{err: errors.New("redis down")})

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if len(notifier.welcome) != 1 {
		t.Fatalf("welcome emails sent = %d, want 1", len(notifier.welcome))
	}
}

func TestProcessOne_FailureReschedulesWithBackoff(t *testing.T) {
	j := welcomeJob(t, 1, 5)

	repo := &fakeJobsRepo{
		claimFn: func(ctx context.Context, workerID string) (job.Job, error) {
			return j, nil
		},
	}
	notifier := &fakeNotifier{err: errors.New("provider down")}

	w := newTestWorker(repo, notifier, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	if len(repo.rescheduled) != 1 {
		t.Fatalf("reschedules = %d, want 1", len(repo.rescheduled))
	}

	if !repo.rescheduled[0].After(time.Now()) {
		t.Fatalf("retry scheduled in the past: %v", repo.rescheduled[0])
	}

	if len(repo.markFailed) != 0 {
		t.Fatalf("job dead-lettered with attempts remaining")
	}
}

func TestProcessOne_ExhaustedAttemptsDeadLetter(t *testing.T) {
	j := welcomeJob(t, 5, 5)

	repo := &fakeJobsRepo{
		claimFn: func(ctx context.Context, workerID string) (job.Job, error) {
			return j, nil
		},
	}
	notifier := &fakeNotifier{err: errors.New("provider down")}

	w := newTestWorker(repo, notifier, nil)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if len(repo.markFailed) != 1 {
		t.Fatalf("MarkFailed calls = %d, want 1", len(repo.markFailed))
	}

	if len(repo.rescheduled) != 0 {
		t.Fatalf("dead-lettered job was rescheduled")
	}
}

func TestProcessOne_ReminderLoadsNames(t *testing.T) {
	doctorUserID := uuid.NewString()

	payload, err := jobs.EncodePayload(jobs.JobSendAppointmentReminder, jobs.SendAppointmentReminderPayload{
		AppointmentID: uuid.NewString(),
		PatientID:     uuid.NewString(),
		DoctorID:      uuid.NewString(),
		StartsAt:      time.Now().Add(24 * time.Hour).UTC(),
	})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}

	j := job.Job{
		ID:          uuid.NewString(),
		Type:        string(jobs.JobSendAppointmentReminder),
		Payload:     payload,
		Attempts:    1,
		MaxAttempts: 5,
	}

	repo := &fakeJobsRepo{
		claimFn: func(ctx context.Context, workerID string) (job.Job, error) {
			return j, nil
		},
	}

	notifier := &fakeNotifier{}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := &fakeUsers{
		getFn: func(ctx context.Context, id string) (user.User, error) {
			if id == doctorUserID {
				return user.User{ID: id, FirstName: "Siti", LastName: "Rahma"}, nil
			}
			return user.User{ID: id, Email: "budi@example.com", FirstName: "Budi"}, nil
		},
	}

	doctors := &fakeDoctors{
		getFn: func(ctx context.Context, id string) (doctor.Doctor, error) {
			return doctor.Doctor{ID: id, UserID: doctorUserID}, nil
		},
	}

	w := New(Config{WorkerID: "test-worker"}, repo, users, doctors, notifier, nil, log)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if len(notifier.reminders) != 1 {
		t.Fatalf("reminders sent = %d, want 1", len(notifier.reminders))
	}

	got := notifier.reminders[0]

	if got.Email != "budi@example.com" {
		t.Fatalf("reminder email = %q", got.Email)
	}

	if got.DoctorName != "Siti Rahma" {
		t.Fatalf("doctor name = %q", got.DoctorName)
	}
}

func TestExponentialBackoff(t *testing.T) {
	if d := ExponentialBackoff(0); d < 2*time.Second || d > 3*time.Second {
		t.Fatalf("attempt 0 delay = %v", d)
	}

	if d := ExponentialBackoff(3); d < 16*time.Second {
		t.Fatalf("attempt 3 delay = %v", d)
	}

	// capped
	if d := ExponentialBackoff(20); d > 5*time.Minute+time.Second {
		t.Fatalf("delay above cap: %v", d)
	}
}
