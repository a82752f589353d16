package doctor

import (
	"errors"
	"time"
)

type Doctor struct {
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	Specialization  string `json:"specialization"`
	LicenseNumber   string `json:"licenseNumber"`
	ConsultationFee int    `json:"consultationFee"`
	ExperienceYears int    `json:"experienceYears"`
	Bio             string `json:"bio,omitempty"`
	// List-valued attributes are persisted as JSON-encoded text and decoded
	// back into slices on read.
	Education      []string  `json:"education"`
	Certifications []string  `json:"certifications"`
	Languages      []string  `json:"languages"`
	Specialties    []string  `json:"specialties"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("doctor not found")

// with pointers if optional, it will be nil
type ListFilter struct {
	Specialization *string
	Query          *string
	Limit          int
	Offset         int
}

type CreateRequest struct {
	UserID          string   `json:"userId" binding:"required,uuid"`
	Specialization  string   `json:"specialization" binding:"required,min=2,max=120"`
	LicenseNumber   string   `json:"licenseNumber" binding:"required,min=3,max=60"`
	ConsultationFee int      `json:"consultationFee" binding:"required,min=0"`
	ExperienceYears int      `json:"experienceYears" binding:"omitempty,min=0,max=80"`
	Bio             string   `json:"bio" binding:"omitempty,max=2000"`
	Education       []string `json:"education" binding:"omitempty,dive,min=1"`
	Certifications  []string `json:"certifications" binding:"omitempty,dive,min=1"`
	Languages       []string `json:"languages" binding:"omitempty,dive,min=1"`
	Specialties     []string `json:"specialties" binding:"omitempty,dive,min=1"`
}

type UpdateRequest struct {
	Specialization  string   `json:"specialization" binding:"required,min=2,max=120"`
	LicenseNumber   string   `json:"licenseNumber" binding:"required,min=3,max=60"`
	ConsultationFee int      `json:"consultationFee" binding:"required,min=0"`
	ExperienceYears int      `json:"experienceYears" binding:"omitempty,min=0,max=80"`
	Bio             string   `json:"bio" binding:"omitempty,max=2000"`
	Education       []string `json:"education" binding:"omitempty,dive,min=1"`
	Certifications  []string `json:"certifications" binding:"omitempty,dive,min=1"`
	Languages       []string `json:"languages" binding:"omitempty,dive,min=1"`
	Specialties     []string `json:"specialties" binding:"omitempty,dive,min=1"`
}
