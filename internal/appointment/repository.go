package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/patient"
	"github.com/hackgods/vetclinic-scheduling/internal/staff"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrReferenceNotFound is returned by writes whose patient or staff
	// reference disappeared between validation and commit.
	ErrReferenceNotFound = errors.New("referenced patient or staff user not found")
)

type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	GetStaffByID(ctx context.Context, id uuid.UUID) (*staff.User, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	// FindActiveAppointment returns an appointment for staffID whose date lies in
	// [from, to) and whose status is active, skipping excludeID when set.
	// It returns ErrAppointmentNotFound when there is none.
	FindActiveAppointment(ctx context.Context, staffID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) (*Appointment, error)
	CreateAppointment(ctx context.Context, a *Appointment) error
	UpdateAppointment(ctx context.Context, a *Appointment) error
	DeleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, q ListQuery) ([]Detail, int, error)

	// InBookingTx runs fn in a single unit of work that holds the store's lock
	// for staffID and the minute bucket starting at bucket. fn must use tx.
	InBookingTx(ctx context.Context, staffID uuid.UUID, bucket time.Time, fn func(ctx context.Context, tx Repository) error) error
	// WithAppointmentLocked loads the appointment and keeps it locked against
	// other writers while fn runs. fn must use tx; InBookingTx on tx joins the
	// same unit of work. It returns ErrAppointmentNotFound when id is unknown.
	WithAppointmentLocked(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx Repository, current *Appointment) error) error

	InsertEvent(ctx context.Context, ev EventLog) error
}
