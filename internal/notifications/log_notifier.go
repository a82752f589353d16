package notifications

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogNotifier stands in for a real email provider: it writes the notification
// to the log. Env knobs simulate a slow or failing provider for worker tests.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func simulateProvider(ctx context.Context) error {
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	return nil
}

func (n *LogNotifier) SendWelcomeEmail(ctx context.Context, in SendWelcomeEmailInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("notification.welcome_email email=%s name=%s user=%s",
		in.Email, in.FirstName, in.UserID,
	)
	return nil
}

func (n *LogNotifier) SendAppointmentReminder(ctx context.Context, in SendAppointmentReminderInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("notification.appointment_reminder email=%s appointment=%s doctor=%s starts_at=%s",
		in.Email, in.AppointmentID, in.DoctorName, in.StartsAt.Format(time.RFC3339),
	)
	return nil
}
