package notifications

import (
	"context"
	"time"
)

type SendWelcomeEmailInput struct {
	Email     string
	FirstName string
	UserID    string
}

type SendAppointmentReminderInput struct {
	Email         string
	FirstName     string
	AppointmentID string
	DoctorName    string
	StartsAt      time.Time
}

type Notifier interface {
	SendWelcomeEmail(ctx context.Context, input SendWelcomeEmailInput) error
	SendAppointmentReminder(ctx context.Context, input SendAppointmentReminderInput) error
}
