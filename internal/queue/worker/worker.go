package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/medicareprima/clinic-api/internal/domain/doctor"
	"github.com/medicareprima/clinic-api/internal/domain/job"
	"github.com/medicareprima/clinic-api/internal/domain/user"
	"github.com/medicareprima/clinic-api/internal/notifications"
	"github.com/medicareprima/clinic-api/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

type UserReader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type DoctorReader interface {
	GetByID(ctx context.Context, id string) (doctor.Doctor, error)
}

// Dedup guards against double-sends across worker restarts and retries.
type Dedup interface {
	MarkNotificationSent(ctx context.Context, jobType, jobID string) (bool, error)
	Heartbeat(ctx context.Context, workerID string) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	users    UserReader
	doctors  DoctorReader
	notifier notifications.Notifier
	dedup    Dedup
	metrics  *observability.JobMetrics
	log      *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, users UserReader, doctors DoctorReader, notifier notifications.Notifier, dedup Dedup, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		users:    users,
		doctors:  doctors,
		notifier: notifier,
		dedup:    dedup,
		metrics:  observability.NewJobMetrics(),
		log:      log,
	}
}

func (w *Worker) Metrics() *observability.JobMetrics {
	return w.metrics
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

// Run polls for claimable jobs until the context is cancelled. Each of the
// Concurrency loops claims and processes independently; claims never collide
// thanks to SKIP LOCKED on the jobs table.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}

	if w.dedup != nil {
		wg.Add(1)

		go func() {
			defer wg.Done()
			w.heartbeatLoop(ctx)
		}()
	}

	<-ctx.Done()
	w.log.Info("worker received shutdown signal")

	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Error("worker shutdown grace period exceeded")
	}

	return nil
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			// drain ready jobs before sleeping again
			for {
				processed, err := w.ProcessOne(ctx)

				if err != nil {
					w.log.Error("job processing error", "err", err)
					break
				}

				if !processed {
					break
				}
			}
		}
	}
}

func (w *Worker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

			if err := w.dedup.Heartbeat(hbCtx, w.cfg.WorkerID); err != nil {
				w.log.Warn("worker heartbeat failed", "err", err)
			}

			cancel()
		}
	}
}
