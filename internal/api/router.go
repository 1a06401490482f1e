package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/auth"
	"github.com/hackgods/vetclinic-scheduling/internal/client"
	"github.com/hackgods/vetclinic-scheduling/internal/patient"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Patients     *patient.Service
	Clients      *client.Service
	Auth         *auth.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       zerolog.Logger
	Env          string
	Version      string
	// Location is the clinic timezone used for calendar date filters.
	Location     *time.Location
	ListMaxLimit int
}

func NewRouter(cfg RouterConfig) http.Handler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/auth/login", loginHandler(cfg.Auth))

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.Auth))

		r.With(RequireRoles(auth.RegisterRoles)).Post("/auth/register", registerHandler(cfg.Auth))

		r.Route("/appointments", func(r chi.Router) {
			r.With(RequireRoles(auth.AppointmentCreateRoles)).Post("/", createAppointmentHandler(cfg.Appointments))
			r.With(RequireRoles(auth.AppointmentListRoles)).Get("/", listAppointmentsHandler(cfg.Appointments, loc, cfg.ListMaxLimit))
			r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
			r.With(RequireRoles(auth.AppointmentUpdateRoles)).Put("/{id}", updateAppointmentHandler(cfg.Appointments))
			r.With(RequireRoles(auth.AppointmentDeleteRoles)).Delete("/{id}", deleteAppointmentHandler(cfg.Appointments))
		})

		r.Route("/patients", func(r chi.Router) {
			r.With(RequireRoles(auth.PatientWriteRoles)).Post("/", createPatientHandler(cfg.Patients))
			r.Get("/", listPatientsHandler(cfg.Patients, cfg.ListMaxLimit))
			r.Get("/{id}", getPatientHandler(cfg.Patients))
			r.With(RequireRoles(auth.PatientWriteRoles)).Put("/{id}", updatePatientHandler(cfg.Patients))
			r.With(RequireRoles(auth.PatientDeleteRoles)).Delete("/{id}", deletePatientHandler(cfg.Patients))
		})

		r.Route("/clients", func(r chi.Router) {
			r.With(RequireRoles(auth.ClientWriteRoles)).Post("/", createClientHandler(cfg.Clients))
			r.Get("/", listClientsHandler(cfg.Clients, cfg.ListMaxLimit))
			r.Get("/{id}", getClientHandler(cfg.Clients))
		})
	})

	return r
}
