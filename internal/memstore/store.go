// Package memstore keeps every repository in process memory. It backs the
// API when no Postgres DSN is configured and is the store used by tests.
package memstore

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/client"
	"github.com/hackgods/vetclinic-scheduling/internal/patient"
	"github.com/hackgods/vetclinic-scheduling/internal/staff"
)

type Store struct {
	mu           sync.RWMutex
	clients      map[uuid.UUID]client.Client
	patients     map[uuid.UUID]patient.Patient
	users        map[uuid.UUID]staff.User
	appointments map[uuid.UUID]appointment.Appointment
	events       []appointment.EventLog
	nextEventID  int64

	bookingMu sync.Mutex
	now       func() time.Time
}

func New() *Store {
	return &Store{
		clients:      make(map[uuid.UUID]client.Client),
		patients:     make(map[uuid.UUID]patient.Patient),
		users:        make(map[uuid.UUID]staff.User),
		appointments: make(map[uuid.UUID]appointment.Appointment),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source used for createdAt/updatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

var (
	_ client.Repository      = (*Store)(nil)
	_ patient.Repository     = (*Store)(nil)
	_ staff.Repository       = (*Store)(nil)
	_ appointment.Repository = (*Store)(nil)
)

// Clients

func (s *Store) CreateClient(_ context.Context, c *client.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.clients {
		if strings.EqualFold(existing.Email, c.Email) {
			return client.ErrEmailTaken
		}
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.clients[c.ID] = *c
	return nil
}

func (s *Store) GetClientByID(_ context.Context, id uuid.UUID) (*client.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		return nil, client.ErrClientNotFound
	}
	return &c, nil
}

func (s *Store) ListClients(_ context.Context, limit, offset int) ([]client.Client, int, error) {
	s.mu.RLock()
	all := make([]client.Client, 0, len(s.clients))
	for _, c := range s.clients {
		all = append(all, c)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return bytes.Compare(all[i].ID[:], all[j].ID[:]) < 0
	})

	return page(all, limit, offset), len(all), nil
}

// Staff users

func (s *Store) CreateUser(_ context.Context, u *staff.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = strings.ToLower(u.Email)
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return staff.ErrEmailTaken
		}
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (*staff.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, staff.ErrStaffNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*staff.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, staff.ErrStaffNotFound
}

func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *Store) GetStaffByID(ctx context.Context, id uuid.UUID) (*staff.User, error) {
	return s.GetUserByID(ctx, id)
}

// Patients

func (s *Store) CreatePatient(_ context.Context, p *patient.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[p.OwnerID]; !ok {
		return client.ErrClientNotFound
	}
	if s.patientNameTaken(p.Name, p.OwnerID, uuid.Nil) {
		return patient.ErrDuplicatePatient
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.patients[p.ID] = *p
	return nil
}

func (s *Store) GetPatientByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	return &p, nil
}

func (s *Store) UpdatePatient(_ context.Context, p *patient.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.patients[p.ID]
	if !ok {
		return patient.ErrPatientNotFound
	}
	if s.patientNameTaken(p.Name, existing.OwnerID, p.ID) {
		return patient.ErrDuplicatePatient
	}

	p.OwnerID = existing.OwnerID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now()
	s.patients[p.ID] = *p
	return nil
}

func (s *Store) DeletePatient(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	for _, a := range s.appointments {
		if a.PatientID == id {
			return nil, patient.ErrPatientInUse
		}
	}

	delete(s.patients, id)
	return &p, nil
}

func (s *Store) CountAppointmentsForPatient(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.appointments {
		if a.PatientID == id {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListPatients(_ context.Context, q patient.ListQuery) ([]patient.Patient, int, error) {
	species := strings.ToLower(q.Species)

	s.mu.RLock()
	var matched []patient.Patient
	for _, p := range s.patients {
		if q.OwnerID != nil && p.OwnerID != *q.OwnerID {
			continue
		}
		if species != "" && !strings.Contains(strings.ToLower(p.Species), species) {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var c int
		switch q.SortBy {
		case patient.SortByName:
			c = strings.Compare(a.Name, b.Name)
		case patient.SortByAge:
			c = a.Age - b.Age
		case patient.SortBySpecies:
			c = strings.Compare(a.Species, b.Species)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if q.Desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})

	return page(matched, q.Limit, q.Offset()), len(matched), nil
}

// patientNameTaken must be called with s.mu held.
func (s *Store) patientNameTaken(name string, owner, except uuid.UUID) bool {
	for _, p := range s.patients {
		if p.ID != except && p.OwnerID == owner && p.Name == name {
			return true
		}
	}
	return false
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end < offset || end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}
