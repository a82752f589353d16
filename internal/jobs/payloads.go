package jobs

import "time"

// Payloads stay minimal and ID-based; the worker loads details from the DB.

type SendWelcomeEmailPayload struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	RequestID string `json:"requestId,omitempty"` // correlation
}

type SendAppointmentReminderPayload struct {
	AppointmentID string    `json:"appointmentId"`
	PatientID     string    `json:"patientId"`
	DoctorID      string    `json:"doctorId"`
	StartsAt      time.Time `json:"startsAt"`
}
