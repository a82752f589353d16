package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medicareprima/clinic-api/internal/config"
	"github.com/medicareprima/clinic-api/internal/domain/appointment"
	"github.com/medicareprima/clinic-api/internal/domain/doctor"
	"github.com/medicareprima/clinic-api/internal/domain/job"
	"github.com/medicareprima/clinic-api/internal/http/middlewares"
	"github.com/medicareprima/clinic-api/internal/jobs"
	"github.com/medicareprima/clinic-api/internal/repo/postgres"
	"github.com/medicareprima/clinic-api/internal/utils"
)

const (
	defaultAppointmentPageSize = 20
	maxAppointmentPageSize     = 100

	// reminders go out this long before the appointment
	reminderLead = 24 * time.Hour
)

type AppointmentStore interface {
	Create(ctx context.Context, req appointment.CreateRequest) (appointment.Appointment, error)
	GetByID(ctx context.Context, id string) (appointment.Appointment, error)
	ListByPatientCursor(ctx context.Context, patientID string, limit int, afterCreatedAt time.Time, afterID string) ([]appointment.Appointment, *string, bool, error)
	ListAdminCursor(ctx context.Context, doctorID string, status appointment.Status, limit int, afterCreatedAt time.Time, afterID string) ([]appointment.Appointment, *string, bool, error)
	UpdateStatus(ctx context.Context, id string, status appointment.Status) (appointment.Appointment, error)
}

type AppointmentsHandler struct {
	appointments AppointmentStore
	enqueuer     JobEnqueuer
	log          *slog.Logger
}

func NewAppointmentsHandler(appointments AppointmentStore, enqueuer JobEnqueuer, log *slog.Logger) *AppointmentsHandler {
	return &AppointmentsHandler{
		appointments: appointments,
		enqueuer:     enqueuer,
		log:          log,
	}
}

// Create books a slot for the authenticated patient. The repo serializes
// bookings per doctor schedule row, so two patients racing for one slot get
// one success and one slot_taken.
func (h *AppointmentsHandler) Create(ctx *gin.Context) {
	var req appointment.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	patientID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || patientID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	req.PatientID = patientID

	if !req.StartsAt.After(time.Now()) {
		RespondBadRequest(ctx, "Appointment time must be in the future", nil)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	created, err := h.appointments.Create(cctx, req)

	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrSlotTaken):
			RespondConflict(ctx, "slot_taken", "That slot is already booked")
		case errors.Is(err, appointment.ErrDoctorOffDuty):
			RespondBadRequest(ctx, "Doctor is not available at that time", nil)
		case errors.Is(err, doctor.ErrNotFound):
			RespondNotFound(ctx, "Doctor not found")
		default:
			h.log.Error("appointment create failed", "err", err)
			RespondInternal(ctx, "Could not book appointment")
		}
		return
	}

	h.enqueueReminder(cctx, created)

	Respond(ctx, http.StatusCreated, created)
}

// enqueueReminder schedules the reminder job. Booking already succeeded, so a
// failure here is logged and absorbed.
func (h *AppointmentsHandler) enqueueReminder(ctx context.Context, appt appointment.Appointment) {
	if h.enqueuer == nil {
		return
	}

	payload, err := jobs.EncodePayload(jobs.JobSendAppointmentReminder, jobs.SendAppointmentReminderPayload{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		StartsAt:      appt.StartsAt,
	})

	if err != nil {
		h.log.Error("reminder payload encode failed", "appointment_id", appt.ID, "err", err)
		return
	}

	runAt := appt.StartsAt.Add(-reminderLead)

	if runAt.Before(time.Now()) {
		// short-notice booking: remind right away
		runAt = time.Now().UTC()
	}

	key := "reminder:" + appt.ID

	_, err = h.enqueuer.Create(ctx, job.CreateRequest{
		Type:           string(jobs.JobSendAppointmentReminder),
		Payload:        payload,
		RunAt:          runAt,
		IdempotencyKey: &key,
		UserID:         &appt.PatientID,
	})

	if err != nil && !postgres.IsUniqueViolation(err) {
		h.log.Error("reminder enqueue failed", "appointment_id", appt.ID, "err", err)
	}
}

// ListMine returns the authenticated patient's history, oldest first, with an
// opaque cursor for the next page.
func (h *AppointmentsHandler) ListMine(ctx *gin.Context) {
	patientID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || patientID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	limit, afterCreatedAt, afterID, ok := parseAppointmentListQuery(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, nextCursor, hasMore, err := h.appointments.ListByPatientCursor(cctx, patientID, limit, afterCreatedAt, afterID)

	if err != nil {
		h.log.Error("appointment list failed", "patient_id", patientID, "err", err)
		RespondInternal(ctx, "Could not list appointments")
		return
	}

	Respond(ctx, http.StatusOK, gin.H{
		"appointments": items,
		"nextCursor":   nextCursor,
		"hasMore":      hasMore,
	})
}

// parseAppointmentListQuery reads limit and cursor query params, responding
// 400 itself on bad input.
func parseAppointmentListQuery(ctx *gin.Context) (limit int, afterCreatedAt time.Time, afterID string, ok bool) {
	limit = defaultAppointmentPageSize

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 1 {
			RespondBadRequest(ctx, "Invalid limit parameter", nil)
			return 0, time.Time{}, "", false
		}

		if n > maxAppointmentPageSize {
			n = maxAppointmentPageSize
		}

		limit = n
	}

	if raw := ctx.Query("cursor"); raw != "" {
		cur, err := utils.DecodeAppointmentCursor(raw)

		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return 0, time.Time{}, "", false
		}

		afterCreatedAt = cur.CreatedAt
		afterID = cur.ID
	}

	return limit, afterCreatedAt, afterID, true
}

// ListAll pages through every appointment, optionally filtered by doctorId
// and status. Admin only.
func (h *AppointmentsHandler) ListAll(ctx *gin.Context) {
	limit, afterCreatedAt, afterID, ok := parseAppointmentListQuery(ctx)

	if !ok {
		return
	}

	var status appointment.Status

	if raw := ctx.Query("status"); raw != "" {
		status = appointment.Status(raw)

		if !status.IsValid() {
			RespondBadRequest(ctx, "Invalid status filter", nil)
			return
		}
	}

	doctorID := ctx.Query("doctorId")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, nextCursor, hasMore, err := h.appointments.ListAdminCursor(cctx, doctorID, status, limit, afterCreatedAt, afterID)

	if err != nil {
		h.log.Error("admin appointment list failed", "err", err)
		RespondInternal(ctx, "Could not list appointments")
		return
	}

	Respond(ctx, http.StatusOK, gin.H{
		"appointments": items,
		"nextCursor":   nextCursor,
		"hasMore":      hasMore,
	})
}

// Get returns one appointment. Patients can only see their own; admins can
// see any.
func (h *AppointmentsHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	found, err := h.appointments.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, appointment.ErrNotFound) {
			RespondNotFound(ctx, "Appointment not found")
			return
		}

		h.log.Error("appointment fetch failed", "appointment_id", id, "err", err)
		RespondInternal(ctx, "Could not fetch appointment")
		return
	}

	callerID, _ := middlewares.UserIDFromContext(ctx)
	role, _ := middlewares.RoleFromContext(ctx)

	if role != "ADMIN" && found.PatientID != callerID {
		// indistinguishable from a missing record on purpose
		RespondNotFound(ctx, "Appointment not found")
		return
	}

	Respond(ctx, http.StatusOK, found)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING CONFIRMED CANCELLED COMPLETED"`
}

// UpdateStatus moves an appointment through its lifecycle. Admin only.
func (h *AppointmentsHandler) UpdateStatus(ctx *gin.Context) {
	id := ctx.Param("id")

	var req updateStatusRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.appointments.UpdateStatus(cctx, id, appointment.Status(req.Status))

	if err != nil {
		switch {
		case errors.Is(err, appointment.ErrNotFound):
			RespondNotFound(ctx, "Appointment not found")
		case errors.Is(err, appointment.ErrInvalidStatus):
			RespondBadRequest(ctx, "Invalid status transition", nil)
		default:
			h.log.Error("appointment status update failed", "appointment_id", id, "err", err)
			RespondInternal(ctx, "Could not update appointment")
		}
		return
	}

	Respond(ctx, http.StatusOK, updated)
}

// Cancel lets a patient cancel their own upcoming appointment.
func (h *AppointmentsHandler) Cancel(ctx *gin.Context) {
	id := ctx.Param("id")

	callerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || callerID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	found, err := h.appointments.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, appointment.ErrNotFound) {
			RespondNotFound(ctx, "Appointment not found")
			return
		}

		RespondInternal(ctx, "Could not cancel appointment")
		return
	}

	if found.PatientID != callerID {
		RespondNotFound(ctx, "Appointment not found")
		return
	}

	if found.Status == appointment.StatusCompleted || found.Status == appointment.StatusCancelled {
		RespondBadRequest(ctx, "Appointment can no longer be cancelled", nil)
		return
	}

	updated, err := h.appointments.UpdateStatus(cctx, id, appointment.StatusCancelled)

	if err != nil {
		h.log.Error("appointment cancel failed", "appointment_id", id, "err", err)
		RespondInternal(ctx, "Could not cancel appointment")
		return
	}

	Respond(ctx, http.StatusOK, updated)
}
