package jobs

import (
	"encoding/json"
	"fmt"
)

func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobSendWelcomeEmail:
		_, ok := payload.(SendWelcomeEmailPayload)

		if !ok {
			_, ok2 := payload.(*SendWelcomeEmailPayload)

			if !ok2 {
				return nil, ErrPayloadTypeMismatch
			}
		}

	case JobSendAppointmentReminder:
		_, ok := payload.(SendAppointmentReminderPayload)

		if !ok {
			_, ok2 := payload.(*SendAppointmentReminderPayload)

			if !ok2 {
				return nil, ErrPayloadTypeMismatch
			}
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals raw payload bytes into the typed payload struct
// for the given job type.
func DecodePayload(t JobType, raw []byte) (any, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(raw) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch t {
	case JobSendWelcomeEmail:
		var p SendWelcomeEmailPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	case JobSendAppointmentReminder:
		var p SendAppointmentReminderPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}
