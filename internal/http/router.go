package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/medicareprima/clinic-api/internal/auth"
	"github.com/medicareprima/clinic-api/internal/cache"
	"github.com/medicareprima/clinic-api/internal/config"
	"github.com/medicareprima/clinic-api/internal/domain/user"
	"github.com/medicareprima/clinic-api/internal/http/handlers"
	"github.com/medicareprima/clinic-api/internal/http/middlewares"
	"github.com/medicareprima/clinic-api/internal/observability"
	"github.com/medicareprima/clinic-api/internal/repo/postgres"
)

const doctorListCacheTTL = 30 * time.Second

// NewRouter wires middlewares, repositories and handlers into the API
// surface. The pool may be nil in tests; health checks then report ready.
func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	promReg := prometheus.NewRegistry()
	prom := observability.NewProm(promReg)

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(prom.GinHandleMiddleware())

	if cfg.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("clinic-api"))
	}

	// health + metrics

	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	// repositories

	usersRepo := postgres.NewUsersRepo(pool, prom)
	refreshRepo := postgres.NewRefreshTokensRepo(pool, prom)
	doctorsRepo := postgres.NewDoctorsRepo(pool, prom)
	schedulesRepo := postgres.NewSchedulesRepo(pool, prom)
	appointmentsRepo := postgres.NewAppointmentsRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	jwtManager := auth.NewManager(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLDays)*24*time.Hour,
	)

	// handlers

	authHandler := handlers.NewAuthHandler(usersRepo, refreshRepo, jwtManager, jobsRepo, cfg, log)
	usersHandler := handlers.NewUsersHandler(usersRepo, refreshRepo, log)
	doctorsHandler := handlers.NewDoctorsHandler(doctorsRepo, schedulesRepo, cache.New(doctorListCacheTTL), log)
	appointmentsHandler := handlers.NewAppointmentsHandler(appointmentsRepo, jobsRepo, log)

	authMW := middlewares.NewAuthMiddleware(jwtManager)
	loginLimiter := middlewares.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)

	// auth

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", loginLimiter.Middleware(middlewares.KeyByIP), authHandler.Register)
		authGroup.POST("/login", loginLimiter.Middleware(middlewares.KeyByIP), authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/status", authHandler.Status)
	}

	// public directory

	r.GET("/doctors", doctorsHandler.List)
	r.GET("/doctors/:id", doctorsHandler.Get)
	r.GET("/doctors/:id/schedules", doctorsHandler.ListSchedules)

	// patient endpoints

	patient := r.Group("/appointments", authMW.RequireAuth())
	{
		patient.POST("", appointmentsHandler.Create)
		patient.GET("", appointmentsHandler.ListMine)
		patient.GET("/:id", appointmentsHandler.Get)
		patient.POST("/:id/cancel", appointmentsHandler.Cancel)
	}

	// admin endpoints

	admin := r.Group("/admin", authMW.RequireAuth(), authMW.RequireRole(string(user.RoleAdmin)))
	{
		admin.POST("/doctors", doctorsHandler.Create)
		admin.PUT("/doctors/:id", doctorsHandler.Update)
		admin.POST("/doctors/:id/schedules", doctorsHandler.UpsertSchedule)
		admin.GET("/appointments", appointmentsHandler.ListAll)
		admin.PUT("/appointments/:id/status", appointmentsHandler.UpdateStatus)
		admin.PUT("/users/:id/active", usersHandler.SetActive)
	}

	return r
}
