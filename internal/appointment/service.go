package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/patient"
	redisclient "github.com/hackgods/vetclinic-scheduling/internal/redis"
	"github.com/hackgods/vetclinic-scheduling/internal/staff"
)

const (
	EventAppointmentCreated = "APPOINTMENT_CREATED"
	EventAppointmentUpdated = "APPOINTMENT_UPDATED"
	EventAppointmentDeleted = "APPOINTMENT_DELETED"
)

const msgAppointmentNotFound = "Appointment not found"

type CreateInput struct {
	PatientID uuid.UUID
	StaffID   uuid.UUID
	// AppointmentDate is an RFC 3339 timestamp.
	AppointmentDate string
	Type            *string
	Reason          *string
	Notes           *string
	// Status defaults to scheduled when empty.
	Status Status
}

// UpdateInput holds the fields to change; nil leaves a field untouched.
type UpdateInput struct {
	PatientID       *uuid.UUID
	StaffID         *uuid.UUID
	AppointmentDate *string
	Type            *string
	Reason          *string
	Notes           *string
	Status          *Status
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log.With().Str("component", "appointment").Logger(),
	}
}

// CreateAppointment validates references, then books the staff member's
// minute under the booking lock so concurrent requests for the same minute
// cannot both succeed.
func (s *Service) CreateAppointment(ctx context.Context, in CreateInput) (*Appointment, error) {
	if err := s.requirePatient(ctx, in.PatientID); err != nil {
		return nil, err
	}
	if err := s.requireStaff(ctx, in.StaffID); err != nil {
		return nil, err
	}

	date, err := parseAppointmentDate(in.AppointmentDate)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = StatusScheduled
	}
	if !status.Valid() {
		return nil, apperr.Validation("Invalid appointment status.")
	}

	appt := &Appointment{
		PatientID:       in.PatientID,
		StaffID:         in.StaffID,
		AppointmentDate: date,
		Type:            in.Type,
		Reason:          in.Reason,
		Notes:           in.Notes,
		Status:          status,
	}

	err = s.book(ctx, s.repo, appt, nil, func(ctx context.Context, tx Repository) error {
		return tx.CreateAppointment(ctx, appt)
	})
	if err != nil {
		return nil, s.writeError(err, "Could not create appointment.")
	}

	s.logEvent(ctx, appt.ID, EventAppointmentCreated, map[string]any{
		"patient_id":       appt.PatientID.String(),
		"staff_id":         appt.StaffID.String(),
		"appointment_date": appt.AppointmentDate,
		"status":           appt.Status,
	})

	return appt, nil
}

// GetAppointment returns the appointment with its patient and staff member.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Detail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, apperr.NotFound(msgAppointmentNotFound)
		}
		return nil, apperr.Persistence("Could not load appointment.", err)
	}
	return detail, nil
}

// ListAppointments returns one page of appointments matching q and the
// number of matches across all pages.
func (s *Service) ListAppointments(ctx context.Context, q ListQuery) ([]Detail, int, error) {
	items, total, err := s.repo.ListAppointments(ctx, q)
	if err != nil {
		return nil, 0, apperr.Persistence("Could not list appointments.", err)
	}
	return items, total, nil
}

// UpdateAppointment applies a partial update. When the result is active and
// its time, staff member or status changed, the conflict check runs again
// with the appointment itself excluded.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	var date *time.Time
	if in.AppointmentDate != nil {
		d, err := parseAppointmentDate(*in.AppointmentDate)
		if err != nil {
			return nil, err
		}
		date = &d
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.Validation("Invalid appointment status.")
	}

	if in.PatientID != nil {
		if err := s.requirePatient(ctx, *in.PatientID); err != nil {
			return nil, err
		}
	}
	if in.StaffID != nil {
		if err := s.requireStaff(ctx, *in.StaffID); err != nil {
			return nil, err
		}
	}

	var appt *Appointment
	err := s.repo.WithAppointmentLocked(ctx, id, func(txCtx context.Context, tx Repository, current *Appointment) error {
		recheck := applyUpdate(current, in, date)
		appt = current

		write := func(ctx context.Context, tx Repository) error {
			return tx.UpdateAppointment(ctx, current)
		}
		if recheck && current.Status.Active() {
			return s.book(txCtx, tx, current, &current.ID, write)
		}
		return write(txCtx, tx)
	})
	if err != nil {
		return nil, s.writeError(err, "Could not update appointment.")
	}

	s.logEvent(ctx, appt.ID, EventAppointmentUpdated, map[string]any{
		"staff_id":         appt.StaffID.String(),
		"appointment_date": appt.AppointmentDate,
		"status":           appt.Status,
	})

	return appt, nil
}

// DeleteAppointment removes the appointment permanently and returns its
// state just before removal.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.DeleteAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, apperr.NotFound(msgAppointmentNotFound)
		}
		return nil, apperr.Persistence("Could not delete appointment.", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentDeleted, map[string]any{
		"patient_id": appt.PatientID.String(),
		"staff_id":   appt.StaffID.String(),
	})

	return appt, nil
}

// book runs write for appt inside the distributed lock and the booking
// transaction of repo, after checking the staff member's minute is free.
func (s *Service) book(ctx context.Context, repo Repository, appt *Appointment, excludeID *uuid.UUID, write func(ctx context.Context, tx Repository) error) error {
	bucket, _ := MinuteBucket(appt.AppointmentDate)
	key := fmt.Sprintf("booking:%s:%d", appt.StaffID, bucket.Unix())

	return s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		return repo.InBookingTx(lockCtx, appt.StaffID, bucket, func(txCtx context.Context, tx Repository) error {
			busy, err := NewConflictChecker(tx).WouldConflict(txCtx, appt.StaffID, appt.AppointmentDate, excludeID)
			if err != nil {
				return fmt.Errorf("check conflict: %w", err)
			}
			if busy {
				return conflictError(appt.StaffID)
			}
			return write(txCtx, tx)
		})
	})
}

// applyUpdate merges in into appt and reports whether the change can affect
// the staff member's schedule.
func applyUpdate(appt *Appointment, in UpdateInput, date *time.Time) bool {
	recheck := false
	if in.PatientID != nil {
		appt.PatientID = *in.PatientID
	}
	if in.StaffID != nil && *in.StaffID != appt.StaffID {
		appt.StaffID = *in.StaffID
		recheck = true
	}
	if date != nil && !date.Equal(appt.AppointmentDate) {
		appt.AppointmentDate = *date
		recheck = true
	}
	if in.Status != nil && *in.Status != appt.Status {
		appt.Status = *in.Status
		recheck = true
	}
	if in.Type != nil {
		appt.Type = in.Type
	}
	if in.Reason != nil {
		appt.Reason = in.Reason
	}
	if in.Notes != nil {
		appt.Notes = in.Notes
	}
	return recheck
}

func (s *Service) writeError(err error, msg string) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return apperr.Conflict("Another booking for this staff member and time is in progress. Please retry.")
	case errors.Is(err, ErrAppointmentNotFound):
		return apperr.NotFound(msgAppointmentNotFound)
	case errors.Is(err, ErrReferenceNotFound):
		return apperr.NotFound("Referenced patient or staff user no longer exists.")
	}
	s.log.Error().Err(err).Msg(msg)
	return apperr.Persistence(msg, err)
}

func (s *Service) requirePatient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetPatientByID(ctx, id); err != nil {
		if errors.Is(err, patient.ErrPatientNotFound) {
			return apperr.NotFound("Patient with ID %s not found.", id)
		}
		return apperr.Persistence("Could not load patient.", err)
	}
	return nil
}

func (s *Service) requireStaff(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetStaffByID(ctx, id); err != nil {
		if errors.Is(err, staff.ErrStaffNotFound) {
			return apperr.NotFound("User (staff/vet) with ID %s not found.", id)
		}
		return apperr.Persistence("Could not load staff user.", err)
	}
	return nil
}

func conflictError(staffID uuid.UUID) error {
	return apperr.Conflict("User %s already has an appointment scheduled around this time (within the same minute).", staffID)
}

func parseAppointmentDate(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, apperr.Validation("Invalid appointment date format.")
	}
	return t.UTC(), nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("event", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}
