package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeDecodeWelcomeEmail(t *testing.T) {
	in := SendWelcomeEmailPayload{
		UserID:    "u-1",
		Email:     "test@example.com",
		FirstName: "A",
		RequestID: "req-1",
	}

	b, err := EncodePayload(JobSendWelcomeEmail, in)

	if err != nil {
		t.Fatalf("EncodePayload failed: %v", err)
	}

	out, err := DecodePayload(JobSendWelcomeEmail, b)

	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}

	got, ok := out.(SendWelcomeEmailPayload)

	if !ok {
		t.Fatalf("expected SendWelcomeEmailPayload, got %T", out)
	}

	if got != in {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, in)
	}
}

func TestEncodePayloadTypeMismatch(t *testing.T) {
	_, err := EncodePayload(JobSendWelcomeEmail, SendAppointmentReminderPayload{
		AppointmentID: "a-1",
		StartsAt:      time.Now(),
	})

	if !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestEncodePayloadInvalidType(t *testing.T) {
	_, err := EncodePayload(JobType("export_everything"), SendWelcomeEmailPayload{})

	if !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestDecodePayloadEmpty(t *testing.T) {
	_, err := DecodePayload(JobSendAppointmentReminder, nil)

	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}

func TestDecodePayloadBadJSON(t *testing.T) {
	_, err := DecodePayload(JobSendAppointmentReminder, []byte("{nope"))

	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}
