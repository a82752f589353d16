package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// AppointmentCursor is the decoded form of the opaque paging token used by
// the appointment history endpoint. Ordering is (created_at, id) ascending,
// so both fields are needed to resume after a row.
type AppointmentCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodeAppointmentCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(AppointmentCursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeAppointmentCursor(cursor string) (AppointmentCursor, error) {
	if cursor == "" {
		return AppointmentCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return AppointmentCursor{}, err
	}

	var c AppointmentCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return AppointmentCursor{}, err
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return AppointmentCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}
