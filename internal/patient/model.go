package patient

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID                    uuid.UUID `json:"id"`
	Name                  string    `json:"name"`
	Species               string    `json:"species"`
	Breed                 *string   `json:"breed,omitempty"`
	Age                   int       `json:"age"`
	Weight                *float64  `json:"weight,omitempty"`
	MedicalHistorySummary *string   `json:"medicalHistorySummary,omitempty"`
	OwnerID               uuid.UUID `json:"ownerId"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}
