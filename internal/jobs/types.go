package jobs

type JobType string

const (
	JobSendWelcomeEmail        JobType = "send_welcome_email"
	JobSendAppointmentReminder JobType = "send_appointment_reminder"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobSendWelcomeEmail, JobSendAppointmentReminder:
		return true
	default:
		return false
	}
}
