package schedule

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Weekly availability entry, keyed by doctor id and day-of-week (0=Sunday).
type Schedule struct {
	ID          string    `json:"id"`
	DoctorID    string    `json:"doctorId"`
	DayOfWeek   int       `json:"dayOfWeek"`
	StartTime   string    `json:"startTime"` // "HH:MM"
	EndTime     string    `json:"endTime"`   // "HH:MM"
	IsAvailable bool      `json:"isAvailable"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("schedule not found")

type UpsertRequest struct {
	DoctorID    string `json:"-"`
	DayOfWeek   int    `json:"dayOfWeek" binding:"min=0,max=6"`
	StartTime   string `json:"startTime" binding:"required,len=5"`
	EndTime     string `json:"endTime" binding:"required,len=5"`
	IsAvailable *bool  `json:"isAvailable" binding:"required"`
}

func NewFromUpsertRequest(req UpsertRequest) Schedule {
	now := time.Now().UTC()

	return Schedule{
		ID:          uuid.NewString(),
		DoctorID:    req.DoctorID,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: *req.IsAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
