package memstore

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
)

func (s *Store) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (s *Store) GetAppointmentDetail(_ context.Context, id uuid.UUID) (*appointment.Detail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	d := s.detail(a)
	return &d, nil
}

func (s *Store) FindActiveAppointment(_ context.Context, staffID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) (*appointment.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.appointments {
		if a.StaffID != staffID || !a.Status.Active() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if !a.AppointmentDate.Before(from) && a.AppointmentDate.Before(to) {
			found := a
			return &found, nil
		}
	}
	return nil, appointment.ErrAppointmentNotFound
}

func (s *Store) CreateAppointment(_ context.Context, a *appointment.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.referencesExist(a) {
		return appointment.ErrReferenceNotFound
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.appointments[a.ID] = *a
	return nil
}

func (s *Store) UpdateAppointment(_ context.Context, a *appointment.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.appointments[a.ID]
	if !ok {
		return appointment.ErrAppointmentNotFound
	}
	if !s.referencesExist(a) {
		return appointment.ErrReferenceNotFound
	}

	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = s.now()
	s.appointments[a.ID] = *a
	return nil
}

func (s *Store) DeleteAppointment(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	delete(s.appointments, id)
	return &a, nil
}

func (s *Store) ListAppointments(_ context.Context, q appointment.ListQuery) ([]appointment.Detail, int, error) {
	s.mu.RLock()
	var matched []appointment.Detail
	for _, a := range s.appointments {
		if q.Matches(a) {
			matched = append(matched, s.detail(a))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return lessDetail(matched[i], matched[j], q.SortBy, q.Desc)
	})

	return page(matched, q.Limit, q.Offset()), len(matched), nil
}

// InBookingTx serializes booking sections for the whole store. The callback
// receives a view whose InBookingTx does not lock again.
func (s *Store) InBookingTx(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context, tx appointment.Repository) error) error {
	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()
	return fn(ctx, bookingTx{s})
}

// WithAppointmentLocked holds the booking mutex while fn runs, so updates are
// serialized with each other and with bookings.
func (s *Store) WithAppointmentLocked(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx appointment.Repository, current *appointment.Appointment) error) error {
	s.bookingMu.Lock()
	defer s.bookingMu.Unlock()
	return bookingTx{s}.WithAppointmentLocked(ctx, id, fn)
}

func (s *Store) InsertEvent(_ context.Context, ev appointment.EventLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	ev.ID = s.nextEventID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of the appointment event log.
func (s *Store) Events() []appointment.EventLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]appointment.EventLog, len(s.events))
	copy(out, s.events)
	return out
}

type bookingTx struct {
	*Store
}

func (t bookingTx) InBookingTx(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context, tx appointment.Repository) error) error {
	return fn(ctx, t)
}

func (t bookingTx) WithAppointmentLocked(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx appointment.Repository, current *appointment.Appointment) error) error {
	current, err := t.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}
	return fn(ctx, t, current)
}

// detail must be called with s.mu held.
func (s *Store) detail(a appointment.Appointment) appointment.Detail {
	d := appointment.Detail{Appointment: a}
	if p, ok := s.patients[a.PatientID]; ok {
		d.Patient = &p
	}
	if u, ok := s.users[a.StaffID]; ok {
		summary := u.Summary()
		d.Staff = &summary
	}
	return d
}

// referencesExist must be called with s.mu held.
func (s *Store) referencesExist(a *appointment.Appointment) bool {
	_, okPatient := s.patients[a.PatientID]
	_, okStaff := s.users[a.StaffID]
	return okPatient && okStaff
}

func lessDetail(a, b appointment.Detail, by appointment.SortField, desc bool) bool {
	c := 0
	switch by {
	case appointment.SortByPatientName:
		c = strings.Compare(patientName(a), patientName(b))
	case appointment.SortByVetName:
		c = strings.Compare(staffName(a), staffName(b))
	}
	if c == 0 {
		c = a.AppointmentDate.Compare(b.AppointmentDate)
	}
	if desc {
		c = -c
	}
	if c != 0 {
		return c < 0
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

func patientName(d appointment.Detail) string {
	if d.Patient == nil {
		return ""
	}
	return d.Patient.Name
}

func staffName(d appointment.Detail) string {
	if d.Staff == nil {
		return ""
	}
	return d.Staff.Name
}
