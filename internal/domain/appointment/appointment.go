package appointment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

type Appointment struct {
	ID        string    `json:"id"`
	DoctorID  string    `json:"doctorId"`
	PatientID string    `json:"patientId"`
	StartsAt  time.Time `json:"startsAt"`
	Status    Status    `json:"status"`
	Complaint string    `json:"complaint,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var (
	ErrNotFound      = errors.New("appointment not found")
	ErrSlotTaken     = errors.New("appointment slot already taken")
	ErrDoctorOffDuty = errors.New("doctor not available at that time")
	ErrInvalidStatus = errors.New("invalid appointment status transition")
)

type CreateRequest struct {
	DoctorID  string    `json:"doctorId" binding:"required,uuid"`
	PatientID string    `json:"-"` // taken from the authenticated identity
	StartsAt  time.Time `json:"startsAt" binding:"required"`
	Complaint string    `json:"complaint" binding:"omitempty,max=1000"`
}

func NewFromCreateRequest(req CreateRequest) Appointment {
	now := time.Now().UTC()

	return Appointment{
		ID:        uuid.NewString(),
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		StartsAt:  req.StartsAt.UTC(),
		Status:    StatusPending,
		Complaint: req.Complaint,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
