package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medicareprima/clinic-api/internal/cache"
	"github.com/medicareprima/clinic-api/internal/config"
	"github.com/medicareprima/clinic-api/internal/domain/doctor"
	"github.com/medicareprima/clinic-api/internal/domain/schedule"
	"github.com/medicareprima/clinic-api/internal/repo/postgres"
)

const (
	defaultDoctorPageSize = 10
	maxDoctorPageSize     = 50
)

type DoctorStore interface {
	Create(ctx context.Context, req doctor.CreateRequest) (doctor.Doctor, error)
	GetByID(ctx context.Context, id string) (doctor.Doctor, error)
	List(ctx context.Context, filter doctor.ListFilter) ([]doctor.Doctor, int, error)
	Update(ctx context.Context, id string, req doctor.UpdateRequest) (doctor.Doctor, error)
}

type ScheduleStore interface {
	Upsert(ctx context.Context, req schedule.UpsertRequest) (schedule.Schedule, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]schedule.Schedule, error)
	GetForDoctorDay(ctx context.Context, doctorID string, dayOfWeek int) (schedule.Schedule, error)
}

type DoctorsHandler struct {
	doctors   DoctorStore
	schedules ScheduleStore
	cache     *cache.Cache
	log       *slog.Logger
}

func NewDoctorsHandler(doctors DoctorStore, schedules ScheduleStore, listCache *cache.Cache, log *slog.Logger) *DoctorsHandler {
	return &DoctorsHandler{
		doctors:   doctors,
		schedules: schedules,
		cache:     listCache,
		log:       log,
	}
}

// List is the public directory endpoint. Results are cached briefly and
// served with an ETag so the landing page can poll it cheaply.
func (h *DoctorsHandler) List(ctx *gin.Context) {
	filter, page, limit, ok := parseDoctorListQuery(ctx)
	if !ok {
		return
	}

	cacheKey := fmt.Sprintf("doctors:%s:%s:%d:%d",
		strFromPtr(filter.Specialization), strFromPtr(filter.Query), page, limit)

	if h.cache != nil {
		if v, hit := h.cache.Get(cacheKey); hit {
			RespondWithETag(ctx, http.StatusOK, v)
			return
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	doctors, total, err := h.doctors.List(cctx, filter)

	if err != nil {
		h.log.Error("doctor list failed", "err", err)
		RespondInternal(ctx, "Could not list doctors")
		return
	}

	totalPages := (total + limit - 1) / limit

	payload := gin.H{
		"doctors": doctors,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	}

	if h.cache != nil {
		h.cache.Set(cacheKey, payload)
	}

	RespondWithETag(ctx, http.StatusOK, payload)
}

func (h *DoctorsHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	found, err := h.doctors.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, doctor.ErrNotFound) {
			RespondNotFound(ctx, "Doctor not found")
			return
		}

		h.log.Error("doctor fetch failed", "doctor_id", id, "err", err)
		RespondInternal(ctx, "Could not fetch doctor")
		return
	}

	Respond(ctx, http.StatusOK, found)
}

func (h *DoctorsHandler) ListSchedules(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// 404 for unknown doctors rather than an empty list
	_, err := h.doctors.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, doctor.ErrNotFound) {
			RespondNotFound(ctx, "Doctor not found")
			return
		}

		RespondInternal(ctx, "Could not fetch schedules")
		return
	}

	// ?day=N narrows the answer to one weekday
	if raw := ctx.Query("day"); raw != "" {
		day, err := strconv.Atoi(raw)

		if err != nil || day < 0 || day > 6 {
			RespondBadRequest(ctx, "Invalid day parameter", nil)
			return
		}

		entry, err := h.schedules.GetForDoctorDay(cctx, id, day)

		if err != nil {
			if errors.Is(err, schedule.ErrNotFound) {
				RespondNotFound(ctx, "No schedule for that day")
				return
			}

			h.log.Error("schedule day fetch failed", "doctor_id", id, "day", day, "err", err)
			RespondInternal(ctx, "Could not fetch schedules")
			return
		}

		Respond(ctx, http.StatusOK, entry)
		return
	}

	schedules, err := h.schedules.ListByDoctor(cctx, id)

	if err != nil {
		h.log.Error("schedule list failed", "doctor_id", id, "err", err)
		RespondInternal(ctx, "Could not fetch schedules")
		return
	}

	Respond(ctx, http.StatusOK, gin.H{"schedules": schedules})
}

// Create registers a doctor profile for an existing user. Admin only.
func (h *DoctorsHandler) Create(ctx *gin.Context) {
	var req doctor.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.doctors.Create(cctx, req)

	if err != nil {
		if postgres.IsUniqueViolation(err) {
			RespondConflict(ctx, "duplicate_doctor", "License number or user already registered as a doctor")
			return
		}

		h.log.Error("doctor create failed", "err", err)
		RespondInternal(ctx, "Could not create doctor")
		return
	}

	h.invalidateListCache()

	Respond(ctx, http.StatusCreated, created)
}

func (h *DoctorsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	var req doctor.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.doctors.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, doctor.ErrNotFound) {
			RespondNotFound(ctx, "Doctor not found")
			return
		}

		if postgres.IsUniqueViolation(err) {
			RespondConflict(ctx, "duplicate_doctor", "License number already registered")
			return
		}

		h.log.Error("doctor update failed", "doctor_id", id, "err", err)
		RespondInternal(ctx, "Could not update doctor")
		return
	}

	h.invalidateListCache()

	Respond(ctx, http.StatusOK, updated)
}

// UpsertSchedule sets one weekly availability row for the doctor. Repeated
// calls for the same day overwrite rather than duplicate.
func (h *DoctorsHandler) UpsertSchedule(ctx *gin.Context) {
	id := ctx.Param("id")

	var req schedule.UpsertRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.DoctorID = id

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if _, err := h.doctors.GetByID(cctx, id); err != nil {
		if errors.Is(err, doctor.ErrNotFound) {
			RespondNotFound(ctx, "Doctor not found")
			return
		}

		RespondInternal(ctx, "Could not save schedule")
		return
	}

	saved, err := h.schedules.Upsert(cctx, req)

	if err != nil {
		h.log.Error("schedule upsert failed", "doctor_id", id, "err", err)
		RespondInternal(ctx, "Could not save schedule")
		return
	}

	Respond(ctx, http.StatusOK, saved)
}

func (h *DoctorsHandler) invalidateListCache() {
	if h.cache != nil {
		h.cache.Clear()
	}
}

func parseDoctorListQuery(ctx *gin.Context) (doctor.ListFilter, int, int, bool) {
	var filter doctor.ListFilter

	if v := ctx.Query("specialization"); v != "" {
		filter.Specialization = &v
	}

	if v := ctx.Query("q"); v != "" {
		filter.Query = &v
	}

	page := 1

	if raw := ctx.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 1 {
			RespondBadRequest(ctx, "Invalid page parameter", nil)
			return filter, 0, 0, false
		}

		page = n
	}

	limit := defaultDoctorPageSize

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 1 {
			RespondBadRequest(ctx, "Invalid limit parameter", nil)
			return filter, 0, 0, false
		}

		if n > maxDoctorPageSize {
			n = maxDoctorPageSize
		}

		limit = n
	}

	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	return filter, page, limit, true
}

func strFromPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
