package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/medicareprima/clinic-api/internal/config"
	"github.com/medicareprima/clinic-api/internal/db"
	"github.com/medicareprima/clinic-api/internal/notifications"
	"github.com/medicareprima/clinic-api/internal/observability"
	"github.com/medicareprima/clinic-api/internal/queue/redisclient"
	"github.com/medicareprima/clinic-api/internal/queue/worker"
	"github.com/medicareprima/clinic-api/internal/repo/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	prom := observability.NewProm(prometheus.NewRegistry())

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	usersRepo := postgres.NewUsersRepo(pool, prom)
	doctorsRepo := postgres.NewDoctorsRepo(pool, prom)

	redisClient := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer func() { _ = redisClient.Close() }()

	if err := redisClient.Ping(ctx); err != nil {
		// dedup degrades gracefully, so start anyway
		log.Warn("redis unreachable at startup", "err", err)
	}

	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(),
		notifications.ProtectedNotifierConfig{
			Timeout:          5 * time.Second,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
			HalfOpenMaxCalls: 2,
		},
	)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  100 * time.Millisecond,
		WorkerID:      workerID,
		Concurrency:   4,
		ShutdownGrace: 10 * time.Second,
	}, jobsRepo, usersRepo, doctorsRepo, notifier, redisClient, log)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port+1),
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := healthSrv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	_ = healthSrv.Shutdown(shutdownCtx)

	snap := w.Metrics().Snapshot()

	log.Info("worker shutdown complete",
		"jobs_claimed", snap.Claimed,
		"jobs_done", snap.Done,
		"jobs_failed", snap.Failed,
		"jobs_retried", snap.Retried,
	)
}
