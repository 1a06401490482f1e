package memstore

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/client"
	"github.com/hackgods/vetclinic-scheduling/internal/pagination"
	"github.com/hackgods/vetclinic-scheduling/internal/patient"
	"github.com/hackgods/vetclinic-scheduling/internal/staff"
)

func seedOwner(t *testing.T, s *Store, email string) client.Client {
	t.Helper()
	c := client.Client{Name: "Owner " + email, Email: email}
	if err := s.CreateClient(context.Background(), &c); err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func seedPatient(t *testing.T, s *Store, owner uuid.UUID, name, species string, age int) patient.Patient {
	t.Helper()
	p := patient.Patient{Name: name, Species: species, Age: age, OwnerID: owner}
	if err := s.CreatePatient(context.Background(), &p); err != nil {
		t.Fatalf("create patient %s: %v", name, err)
	}
	return p
}

func seedStaff(t *testing.T, s *Store, name string) staff.User {
	t.Helper()
	u := staff.User{Email: name + "@clinic.test", Name: name, Role: staff.RoleClinician, PasswordHash: "x"}
	if err := s.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("create staff %s: %v", name, err)
	}
	return u
}

func seedAppointment(t *testing.T, s *Store, p patient.Patient, u staff.User, at time.Time, st appointment.Status) appointment.Appointment {
	t.Helper()
	a := appointment.Appointment{PatientID: p.ID, StaffID: u.ID, AppointmentDate: at, Status: st}
	if err := s.CreateAppointment(context.Background(), &a); err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func TestCreateClientDuplicateEmail(t *testing.T) {
	s := New()
	seedOwner(t, s, "jane@example.com")

	c := client.Client{Name: "Other", Email: "JANE@example.com"}
	if err := s.CreateClient(context.Background(), &c); !errors.Is(err, client.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestCreatePatientRules(t *testing.T) {
	s := New()
	owner := seedOwner(t, s, "jane@example.com")
	seedPatient(t, s, owner.ID, "Fluffy", "Cat", 3)

	dup := patient.Patient{Name: "Fluffy", Species: "Dog", Age: 1, OwnerID: owner.ID}
	if err := s.CreatePatient(context.Background(), &dup); !errors.Is(err, patient.ErrDuplicatePatient) {
		t.Fatalf("err = %v, want ErrDuplicatePatient", err)
	}

	orphan := patient.Patient{Name: "Rex", Species: "Dog", Age: 1, OwnerID: uuid.New()}
	if err := s.CreatePatient(context.Background(), &orphan); !errors.Is(err, client.ErrClientNotFound) {
		t.Fatalf("err = %v, want ErrClientNotFound", err)
	}

	other := seedOwner(t, s, "john@example.com")
	seedPatient(t, s, other.ID, "Fluffy", "Rabbit", 2)
}

func TestDeletePatientInUse(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := seedOwner(t, s, "jane@example.com")
	p := seedPatient(t, s, owner.ID, "Fluffy", "Cat", 3)
	vet := seedStaff(t, s, "vet")
	seedAppointment(t, s, p, vet, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), appointment.StatusScheduled)

	if _, err := s.DeletePatient(ctx, p.ID); !errors.Is(err, patient.ErrPatientInUse) {
		t.Fatalf("err = %v, want ErrPatientInUse", err)
	}
	if n, _ := s.CountAppointmentsForPatient(ctx, p.ID); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}

func TestListPatientsFilterAndSort(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s := New().WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	owner := seedOwner(t, s, "jane@example.com")
	other := seedOwner(t, s, "john@example.com")
	seedPatient(t, s, owner.ID, "Milo", "Cat", 5)
	seedPatient(t, s, owner.ID, "Bella", "Dog", 2)
	seedPatient(t, s, owner.ID, "Oscar", "Domestic Cat", 9)
	seedPatient(t, s, other.ID, "Luna", "Cat", 1)

	ctx := context.Background()
	params := pagination.Params{Page: 1, Limit: 10}

	got, total, err := s.ListPatients(ctx, patient.ListQuery{Params: params, SortBy: patient.SortByCreatedAt, Desc: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 || got[0].Name != "Luna" || got[3].Name != "Milo" {
		t.Fatalf("newest first: total=%d first=%s last=%s", total, got[0].Name, got[3].Name)
	}

	got, total, _ = s.ListPatients(ctx, patient.ListQuery{Params: params, OwnerID: &owner.ID, Species: "CAT", SortBy: patient.SortByAge})
	if total != 2 || got[0].Name != "Milo" || got[1].Name != "Oscar" {
		t.Fatalf("owner+species by age: total=%d %+v", total, names(got))
	}

	got, _, _ = s.ListPatients(ctx, patient.ListQuery{Params: params, SortBy: patient.SortByName})
	if want := []string{"Bella", "Luna", "Milo", "Oscar"}; !slices.Equal(names(got), want) {
		t.Fatalf("by name = %v, want %v", names(got), want)
	}
}

func TestListAppointmentsSortingAndPaging(t *testing.T) {
	s := New()
	ctx := context.Background()

	owner := seedOwner(t, s, "jane@example.com")
	zoe := seedPatient(t, s, owner.ID, "Zoe", "Cat", 3)
	abby := seedPatient(t, s, owner.ID, "Abby", "Dog", 4)
	adams := seedStaff(t, s, "Adams")
	young := seedStaff(t, s, "Young")

	day := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	a1 := seedAppointment(t, s, zoe, adams, day, appointment.StatusScheduled)
	a2 := seedAppointment(t, s, abby, young, day.Add(time.Hour), appointment.StatusConfirmed)
	a3 := seedAppointment(t, s, abby, adams, day.Add(2*time.Hour), appointment.StatusScheduled)
	seedAppointment(t, s, zoe, young, day.Add(24*time.Hour), appointment.StatusScheduled)

	q := appointment.ListQuery{Params: pagination.Params{Page: 1, Limit: 10}, SortBy: appointment.SortByPatientName}
	got, total, err := s.ListAppointments(ctx, q)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 4 {
		t.Fatalf("total = %d, want 4", total)
	}
	// Abby's two visits first, ties broken by date
	if got[0].ID != a2.ID || got[1].ID != a3.ID || got[2].ID != a1.ID {
		t.Fatalf("patientName order = %v", ids(got))
	}

	q.SortBy = appointment.SortByVetName
	q.Desc = true
	got, _, _ = s.ListAppointments(ctx, q)
	if got[0].Staff.Name != "Young" || got[3].Staff.Name != "Adams" {
		t.Fatalf("vetName desc first=%s last=%s", got[0].Staff.Name, got[3].Staff.Name)
	}

	from := day
	to := time.Date(2025, 1, 15, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	q = appointment.ListQuery{
		Params:   pagination.Params{Page: 2, Limit: 2},
		StaffID:  &adams.ID,
		DateFrom: &from,
		DateTo:   &to,
		SortBy:   appointment.SortByAppointmentDate,
	}
	got, total, _ = s.ListAppointments(ctx, q)
	if total != 2 || len(got) != 0 {
		t.Fatalf("page past end: total=%d len=%d", total, len(got))
	}
	if got == nil {
		t.Fatalf("empty page must be an empty slice")
	}

	q.Page = 1
	q.Limit = 1
	got, total, _ = s.ListAppointments(ctx, q)
	if total != 2 || len(got) != 1 || got[0].ID != a1.ID {
		t.Fatalf("first page: total=%d ids=%v", total, ids(got))
	}
}

func TestFindActiveAppointmentSkipsInactiveAndExcluded(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := seedOwner(t, s, "jane@example.com")
	p := seedPatient(t, s, owner.ID, "Fluffy", "Cat", 3)
	vet := seedStaff(t, s, "vet")

	at := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	seedAppointment(t, s, p, vet, at, appointment.StatusCancelled)
	active := seedAppointment(t, s, p, vet, at.Add(10*time.Second), appointment.StatusConfirmed)

	from, to := appointment.MinuteBucket(at)

	found, err := s.FindActiveAppointment(ctx, vet.ID, from, to, nil)
	if err != nil || found.ID != active.ID {
		t.Fatalf("found=%v err=%v, want %s", found, err, active.ID)
	}

	if _, err := s.FindActiveAppointment(ctx, vet.ID, from, to, &active.ID); !errors.Is(err, appointment.ErrAppointmentNotFound) {
		t.Fatalf("err = %v, want ErrAppointmentNotFound", err)
	}
}

func TestCreateAppointmentMissingReference(t *testing.T) {
	s := New()
	a := appointment.Appointment{PatientID: uuid.New(), StaffID: uuid.New(), Status: appointment.StatusScheduled}
	if err := s.CreateAppointment(context.Background(), &a); !errors.Is(err, appointment.ErrReferenceNotFound) {
		t.Fatalf("err = %v, want ErrReferenceNotFound", err)
	}
}

func names(ps []patient.Patient) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func ids(ds []appointment.Detail) []uuid.UUID {
	out := make([]uuid.UUID, len(ds))
	for i, d := range ds {
		out[i] = d.ID
	}
	return out
}
