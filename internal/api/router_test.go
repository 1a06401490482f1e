package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/auth"
	"github.com/hackgods/vetclinic-scheduling/internal/client"
	"github.com/hackgods/vetclinic-scheduling/internal/memstore"
	"github.com/hackgods/vetclinic-scheduling/internal/patient"
	redisclient "github.com/hackgods/vetclinic-scheduling/internal/redis"
	"github.com/hackgods/vetclinic-scheduling/internal/staff"
)

const adminPassword = "admin-password"

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *memstore.Store
	tokens  *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memstore.New()
	tokens := auth.NewTokenManager("test-secret", "vetclinic-test", time.Hour)
	authSvc := auth.NewService(store, tokens)

	if _, err := authSvc.Bootstrap(context.Background(), "admin@clinic.test", adminPassword, "Admin"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	handler := NewRouter(RouterConfig{
		Appointments: appointment.NewService(store, redisclient.NewLocalLocker(), zerolog.Nop()),
		Patients:     patient.NewService(store),
		Clients:      client.NewService(store),
		Auth:         authSvc,
		Logger:       zerolog.Nop(),
		Env:          "test",
		Version:      "test",
		Location:     time.UTC,
		ListMaxLimit: 100,
	})

	return &testServer{t: t, handler: handler, store: store, tokens: tokens}
}

// tokenFor creates a staff user with role and returns a token for it.
func (s *testServer) tokenFor(role staff.Role, name string) (string, staff.User) {
	s.t.Helper()
	u := staff.User{
		Email:        strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@clinic.test",
		Name:         name,
		Role:         role,
		PasswordHash: "unused",
	}
	if err := s.store.CreateUser(context.Background(), &u); err != nil {
		s.t.Fatalf("create user: %v", err)
	}
	token, err := s.tokens.Issue(u)
	if err != nil {
		s.t.Fatalf("issue token: %v", err)
	}
	return token, u
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", rec.Code, want, rec.Body.String())
	}
}

func expectMessage(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if got := decode[ErrorResponse](t, rec).Message; got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
}

type appointmentBody struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patientId"`
	StaffID         uuid.UUID `json:"staffId"`
	AppointmentDate time.Time `json:"appointmentDate"`
	Type            *string   `json:"type"`
	Status          string    `json:"status"`
	Patient         *struct {
		Name string `json:"name"`
	} `json:"patient"`
	Staff map[string]any `json:"staff"`
}

type pageBody struct {
	Data       []appointmentBody `json:"data"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Total      int               `json:"total"`
	TotalPages int               `json:"totalPages"`
}

// seedPatient creates a client and a patient through the API and returns the
// patient id.
func (s *testServer) seedPatient(token, clientEmail, name string) string {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/clients", token, CreateClientRequest{Name: "Owner " + name, Email: clientEmail})
	expectStatus(s.t, rec, http.StatusCreated)
	c := decode[client.Client](s.t, rec)

	age := 3
	rec = s.do(http.MethodPost, "/patients", token, CreatePatientRequest{
		Name:    name,
		Species: "Cat",
		Age:     &age,
		OwnerID: c.ID.String(),
	})
	expectStatus(s.t, rec, http.StatusCreated)
	return decode[patient.Patient](s.t, rec).ID.String()
}

func TestLoginAndRegister(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/login", "", LoginRequest{Email: "admin@clinic.test", Password: "wrong-password"})
	expectStatus(t, rec, http.StatusUnauthorized)
	expectMessage(t, rec, "Invalid email or password.")

	rec = s.do(http.MethodPost, "/auth/login", "", LoginRequest{Email: "Admin@Clinic.test", Password: adminPassword})
	expectStatus(t, rec, http.StatusOK)
	login := decode[LoginResponse](t, rec)
	if login.Token == "" || login.User.Role != staff.RoleAdministrator {
		t.Fatalf("login = %+v", login)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("login response leaks credential: %s", rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/auth/register", login.Token, RegisterRequest{
		Email: "tech@clinic.test", Password: "tech-password", Name: "Tech", Role: "technician",
	})
	expectStatus(t, rec, http.StatusCreated)

	rec = s.do(http.MethodPost, "/auth/register", login.Token, RegisterRequest{
		Email: "tech@clinic.test", Password: "tech-password", Name: "Tech", Role: "technician",
	})
	expectStatus(t, rec, http.StatusConflict)

	frontDesk, _ := s.tokenFor(staff.RoleFrontDesk, "Front Desk")
	rec = s.do(http.MethodPost, "/auth/register", frontDesk, RegisterRequest{
		Email: "x@clinic.test", Password: "x-password", Name: "X", Role: "clinician",
	})
	expectStatus(t, rec, http.StatusForbidden)
	expectMessage(t, rec, "Access denied. User role 'front-desk' is not authorized.")
}

func TestAuthenticationRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/appointments", "", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
	expectMessage(t, rec, "Authentication token required.")

	rec = s.do(http.MethodGet, "/appointments", "not-a-token", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
	expectMessage(t, rec, "Invalid or expired token.")

	rec = s.do(http.MethodGet, "/appointments/"+uuid.NewString(), "", nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestUnknownRoleRejected(t *testing.T) {
	s := newTestServer(t)

	u := staff.User{ID: uuid.New(), Email: "owner@example.com", Role: staff.Role("pet-owner")}
	token, err := s.tokens.Issue(u)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := s.do(http.MethodGet, "/appointments", token, nil)
	if rec.Code != http.StatusUnauthorized && rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 401 or 403", rec.Code)
	}
}

func TestAppointmentLifecycle(t *testing.T) {
	s := newTestServer(t)
	token, vet := s.tokenFor(staff.RoleClinician, "Dr Vet")
	patientID := s.seedPatient(token, "jane@example.com", "Fluffy")

	when := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Minute).Add(15 * time.Second)

	rec := s.do(http.MethodPost, "/appointments", token, CreateAppointmentRequest{
		PatientID:       patientID,
		StaffID:         vet.ID.String(),
		AppointmentDate: when.Format(time.RFC3339),
	})
	expectStatus(t, rec, http.StatusCreated)
	first := decode[appointmentBody](t, rec)
	if first.Status != "scheduled" {
		t.Fatalf("status = %s, want scheduled", first.Status)
	}

	rec = s.do(http.MethodPost, "/appointments", token, CreateAppointmentRequest{
		PatientID:       patientID,
		StaffID:         vet.ID.String(),
		AppointmentDate: when.Add(30 * time.Second).Format(time.RFC3339),
	})
	expectStatus(t, rec, http.StatusConflict)
	expectMessage(t, rec, "User "+vet.ID.String()+" already has an appointment scheduled around this time (within the same minute).")

	rec = s.do(http.MethodPut, "/appointments/"+first.ID.String(), token, map[string]string{"status": "confirmed"})
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(http.MethodGet, "/appointments/"+first.ID.String(), token, nil)
	expectStatus(t, rec, http.StatusOK)
	got := decode[appointmentBody](t, rec)
	if got.Status != "confirmed" || !got.AppointmentDate.Equal(first.AppointmentDate) {
		t.Fatalf("after update = %+v", got)
	}
	if got.Patient == nil || got.Patient.Name != "Fluffy" {
		t.Fatalf("patient = %+v", got.Patient)
	}
	if got.Staff["name"] != "Dr Vet" {
		t.Fatalf("staff = %v", got.Staff)
	}
	if _, leaked := got.Staff["passwordHash"]; leaked || strings.Contains(rec.Body.String(), "unused") {
		t.Fatalf("staff projection leaks credential: %s", rec.Body.String())
	}

	rec = s.do(http.MethodDelete, "/appointments/"+first.ID.String(), token, nil)
	expectStatus(t, rec, http.StatusOK)
	deleted := decode[DeleteAppointmentResponse](t, rec)
	if deleted.Message != "Appointment deleted successfully" || deleted.Appointment.ID != first.ID {
		t.Fatalf("delete = %+v", deleted)
	}

	rec = s.do(http.MethodGet, "/appointments/"+first.ID.String(), token, nil)
	expectStatus(t, rec, http.StatusNotFound)
	expectMessage(t, rec, "Appointment not found")
}

func TestCreateAppointmentErrors(t *testing.T) {
	s := newTestServer(t)
	token, vet := s.tokenFor(staff.RoleFrontDesk, "Front Desk")
	patientID := s.seedPatient(token, "jane@example.com", "Fluffy")
	unknown := uuid.NewString()

	cases := []struct {
		name   string
		body   any
		status int
		msg    string
	}{
		{"missing fields", map[string]string{"patientId": patientID}, http.StatusBadRequest, "Missing required fields: staffId, appointmentDate"},
		{"bad status", CreateAppointmentRequest{PatientID: patientID, StaffID: vet.ID.String(), AppointmentDate: "2030-01-01T10:00:00Z", Status: ptr("pending")}, http.StatusBadRequest, "Invalid appointment status."},
		{"bad patient id", CreateAppointmentRequest{PatientID: "abc", StaffID: vet.ID.String(), AppointmentDate: "2030-01-01T10:00:00Z"}, http.StatusBadRequest, "Invalid patientId format."},
		{"unknown patient", CreateAppointmentRequest{PatientID: unknown, StaffID: vet.ID.String(), AppointmentDate: "2030-01-01T10:00:00Z"}, http.StatusNotFound, "Patient with ID " + unknown + " not found."},
		{"unknown staff", CreateAppointmentRequest{PatientID: patientID, StaffID: unknown, AppointmentDate: "2030-01-01T10:00:00Z"}, http.StatusNotFound, "User (staff/vet) with ID " + unknown + " not found."},
		{"bad date", CreateAppointmentRequest{PatientID: patientID, StaffID: vet.ID.String(), AppointmentDate: "tomorrow"}, http.StatusBadRequest, "Invalid appointment date format."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/appointments", token, tc.body)
			expectStatus(t, rec, tc.status)
			expectMessage(t, rec, tc.msg)
		})
	}

	rec := s.do(http.MethodPost, "/appointments", token, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	// none of the rejected requests wrote anything
	rec = s.do(http.MethodGet, "/appointments", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if page := decode[pageBody](t, rec); page.Total != 0 {
		t.Fatalf("total = %d, want 0", page.Total)
	}
}

func TestListAppointments(t *testing.T) {
	s := newTestServer(t)
	token, adams := s.tokenFor(staff.RoleClinician, "Adams")
	_, young := s.tokenFor(staff.RoleClinician, "Young")
	zoe := s.seedPatient(token, "zoe@example.com", "Zoe")
	abby := s.seedPatient(token, "abby@example.com", "Abby")

	day := time.Date(2030, 3, 10, 9, 0, 0, 0, time.UTC)
	book := func(patientID string, staffID uuid.UUID, at time.Time, status string) {
		t.Helper()
		rec := s.do(http.MethodPost, "/appointments", token, CreateAppointmentRequest{
			PatientID:       patientID,
			StaffID:         staffID.String(),
			AppointmentDate: at.Format(time.RFC3339),
			Status:          &status,
		})
		expectStatus(t, rec, http.StatusCreated)
	}

	book(zoe, adams.ID, day, "scheduled")
	book(abby, young.ID, day.Add(time.Hour), "confirmed")
	book(abby, adams.ID, day.Add(2*time.Hour), "cancelled")
	book(zoe, young.ID, day.Add(24*time.Hour), "scheduled")
	book(abby, adams.ID, day.Add(48*time.Hour), "completed")

	rec := s.do(http.MethodGet, "/appointments?limit=2&page=2", token, nil)
	expectStatus(t, rec, http.StatusOK)
	page := decode[pageBody](t, rec)
	if page.Total != 5 || page.TotalPages != 3 || page.Page != 2 || page.Limit != 2 || len(page.Data) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if !page.Data[0].AppointmentDate.Equal(day.Add(2 * time.Hour)) {
		t.Fatalf("default order broken: %s", page.Data[0].AppointmentDate)
	}

	rec = s.do(http.MethodGet, "/appointments?page=100000000000000000&limit=100", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Fatalf("far page body = %s", rec.Body.String())
	}
	if page = decode[pageBody](t, rec); page.Total != 5 || len(page.Data) != 0 {
		t.Fatalf("far page = %+v", page)
	}

	rec = s.do(http.MethodGet, "/appointments?sortBy=patientName&sortOrder=asc&limit=100", token, nil)
	expectStatus(t, rec, http.StatusOK)
	page = decode[pageBody](t, rec)
	for i := 1; i < len(page.Data); i++ {
		if page.Data[i-1].Patient.Name > page.Data[i].Patient.Name {
			t.Fatalf("patient names out of order at %d", i)
		}
	}

	rec = s.do(http.MethodGet, "/appointments?veterinarianId="+adams.ID.String()+"&dateFrom=2030-03-10&dateTo=2030-03-10", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if page = decode[pageBody](t, rec); page.Total != 2 {
		t.Fatalf("adams on day one = %d, want 2", page.Total)
	}

	rec = s.do(http.MethodGet, "/appointments?status=confirmed&patientId="+abby, token, nil)
	expectStatus(t, rec, http.StatusOK)
	if page = decode[pageBody](t, rec); page.Total != 1 || page.Data[0].Status != "confirmed" {
		t.Fatalf("confirmed for abby = %+v", page)
	}

	rec = s.do(http.MethodGet, "/appointments?status=nope", token, nil)
	expectStatus(t, rec, http.StatusBadRequest)
	expectMessage(t, rec, "Invalid appointment status for filtering.")

	rec = s.do(http.MethodGet, "/appointments?sortBy=nope", token, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(http.MethodGet, "/appointments?dateFrom=03/10/2030", token, nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestUpdateAppointmentConflictAndNotFound(t *testing.T) {
	s := newTestServer(t)
	token, vet := s.tokenFor(staff.RoleTechnician, "Tech")
	patientID := s.seedPatient(token, "jane@example.com", "Fluffy")

	create := func(at string) appointmentBody {
		rec := s.do(http.MethodPost, "/appointments", token, CreateAppointmentRequest{
			PatientID: patientID, StaffID: vet.ID.String(), AppointmentDate: at,
		})
		expectStatus(t, rec, http.StatusCreated)
		return decode[appointmentBody](t, rec)
	}
	create("2030-01-01T10:00:00Z")
	second := create("2030-01-01T11:00:00Z")

	rec := s.do(http.MethodPut, "/appointments/"+second.ID.String(), token, map[string]string{"appointmentDate": "2030-01-01T10:00:59Z"})
	expectStatus(t, rec, http.StatusConflict)

	rec = s.do(http.MethodPut, "/appointments/"+second.ID.String(), token, map[string]string{"status": "nope"})
	expectStatus(t, rec, http.StatusBadRequest)

	visit := "Dental"
	rec = s.do(http.MethodPut, "/appointments/"+second.ID.String(), token, UpdateAppointmentRequest{Type: &visit})
	expectStatus(t, rec, http.StatusOK)
	updated := decode[appointmentBody](t, rec)
	if updated.Type == nil || *updated.Type != "Dental" || updated.Status != "scheduled" || updated.AppointmentDate.Hour() != 11 {
		t.Fatalf("updated = %+v", updated)
	}

	rec = s.do(http.MethodPut, "/appointments/"+uuid.NewString(), token, UpdateAppointmentRequest{Type: &visit})
	expectStatus(t, rec, http.StatusNotFound)

	rec = s.do(http.MethodDelete, "/appointments/not-a-uuid", token, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestPatientRoutes(t *testing.T) {
	s := newTestServer(t)
	frontDesk, desk := s.tokenFor(staff.RoleFrontDesk, "Front Desk")
	admin, _ := s.tokenFor(staff.RoleAdministrator, "Boss")
	patientID := s.seedPatient(frontDesk, "jane@example.com", "Fluffy")

	rec := s.do(http.MethodGet, "/patients?species=cat", frontDesk, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(http.MethodPut, "/patients/"+patientID, frontDesk, UpdatePatientRequest{Breed: ptr("Persian")})
	expectStatus(t, rec, http.StatusOK)
	if p := decode[patient.Patient](t, rec); p.Breed == nil || *p.Breed != "Persian" {
		t.Fatalf("breed = %v", p.Breed)
	}

	rec = s.do(http.MethodDelete, "/patients/"+patientID, frontDesk, nil)
	expectStatus(t, rec, http.StatusForbidden)

	rec = s.do(http.MethodPost, "/appointments", frontDesk, CreateAppointmentRequest{
		PatientID: patientID, StaffID: desk.ID.String(), AppointmentDate: "2030-01-01T10:00:00Z",
	})
	expectStatus(t, rec, http.StatusCreated)
	appt := decode[appointmentBody](t, rec)

	rec = s.do(http.MethodDelete, "/patients/"+patientID, admin, nil)
	expectStatus(t, rec, http.StatusConflict)

	rec = s.do(http.MethodDelete, "/appointments/"+appt.ID.String(), frontDesk, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(http.MethodDelete, "/patients/"+patientID, admin, nil)
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(http.MethodGet, "/patients/"+patientID, frontDesk, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health/ready", "", nil)
	expectStatus(t, rec, http.StatusOK)
	ready := decode[ReadinessResponse](t, rec)
	if ready.Status != "ok" || ready.Dependencies["postgres"] != "disabled" || ready.Dependencies["redis"] != "disabled" {
		t.Fatalf("readiness = %+v", ready)
	}

	rec = s.do(http.MethodGet, "/nope", "", nil)
	expectStatus(t, rec, http.StatusNotFound)
	expectMessage(t, rec, "Route not found.")

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func ptr[T any](v T) *T { return &v }
