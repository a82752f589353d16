package user

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	default:
		return false
	}
}

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Phone        string    `json:"phone"`
	DateOfBirth  *string   `json:"dateOfBirth,omitempty"`
	Gender       *Gender   `json:"gender,omitempty"`
	Address      *string   `json:"address,omitempty"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")
	ErrNoPassword         = errors.New("no password set for account")
)

// NormalizeEmail produces the canonical lookup/uniqueness key: trimmed and
// lowercased. Run before every read and write keyed by email so case or
// incidental whitespace never creates a duplicate account or a failed lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=6,max=72"`
	FirstName   string  `json:"firstName" binding:"required,min=1,max=100"`
	LastName    string  `json:"lastName" binding:"required,min=1,max=100"`
	Phone       string  `json:"phone" binding:"required,min=6,max=20"`
	DateOfBirth *string `json:"dateOfBirth" binding:"omitempty"`
	Gender      *Gender `json:"gender" binding:"omitempty,oneof=MALE FEMALE OTHER"`
	Address     *string `json:"address" binding:"omitempty,max=500"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
