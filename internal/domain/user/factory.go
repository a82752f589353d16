package user

import (
	"time"

	"github.com/google/uuid"
)

// NewFromRegisterRequest builds a User from the registration DTO. The email
// is stored normalized, role defaults to PATIENT and the account starts
// active. The password hash is filled in by the caller.
func NewFromRegisterRequest(req RegisterRequest, passwordHash string) User {
	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(req.Email),
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		DateOfBirth:  req.DateOfBirth,
		Gender:       req.Gender,
		Address:      req.Address,
		Role:         RolePatient,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
