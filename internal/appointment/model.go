package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/patient"
	"github.com/hackgods/vetclinic-scheduling/internal/staff"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no-show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether an appointment in this status still occupies the
// staff member's time.
func (s Status) Active() bool {
	return s != StatusCancelled && s != StatusCompleted
}

type Appointment struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patientId"`
	StaffID         uuid.UUID `json:"staffId"`
	AppointmentDate time.Time `json:"appointmentDate"`
	Type            *string   `json:"type,omitempty"`
	Reason          *string   `json:"reason,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Detail is an appointment with its patient and the reduced staff projection.
type Detail struct {
	Appointment
	Patient *patient.Patient `json:"patient,omitempty"`
	Staff   *staff.Summary   `json:"staff,omitempty"`
}
