package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/staff"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type CreateAppointmentRequest struct {
	PatientID       string  `json:"patientId"`
	StaffID         string  `json:"staffId"`
	AppointmentDate string  `json:"appointmentDate"`
	Type            *string `json:"type"`
	Reason          *string `json:"reason"`
	Notes           *string `json:"notes"`
	Status          *string `json:"status"`
}

type UpdateAppointmentRequest struct {
	PatientID       *string `json:"patientId"`
	StaffID         *string `json:"staffId"`
	AppointmentDate *string `json:"appointmentDate"`
	Type            *string `json:"type"`
	Reason          *string `json:"reason"`
	Notes           *string `json:"notes"`
	Status          *string `json:"status"`
}

type DeleteAppointmentResponse struct {
	Message     string                   `json:"message"`
	Appointment *appointment.Appointment `json:"appointment"`
}

type CreatePatientRequest struct {
	Name                  string   `json:"name"`
	Species               string   `json:"species"`
	Breed                 *string  `json:"breed"`
	Age                   *int     `json:"age"`
	Weight                *float64 `json:"weight"`
	MedicalHistorySummary *string  `json:"medicalHistorySummary"`
	OwnerID               string   `json:"ownerId"`
}

type UpdatePatientRequest struct {
	Name                  *string  `json:"name"`
	Species               *string  `json:"species"`
	Breed                 *string  `json:"breed"`
	Age                   *int     `json:"age"`
	Weight                *float64 `json:"weight"`
	MedicalHistorySummary *string  `json:"medicalHistorySummary"`
}

type CreateClientRequest struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      staff.Role `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
}

func newUserResponse(u *staff.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type RegisterResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type LoginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}
