package doctor

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreateRequest) Doctor {
	now := time.Now().UTC()

	return Doctor{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Specialization:  req.Specialization,
		LicenseNumber:   req.LicenseNumber,
		ConsultationFee: req.ConsultationFee,
		ExperienceYears: req.ExperienceYears,
		Bio:             req.Bio,
		Education:       req.Education,
		Certifications:  req.Certifications,
		Languages:       req.Languages,
		Specialties:     req.Specialties,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
