package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/appointment"
	"github.com/hackgods/vetclinic-scheduling/internal/pagination"
)

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}

		var missing []string
		if req.PatientID == "" {
			missing = append(missing, "patientId")
		}
		if req.StaffID == "" {
			missing = append(missing, "staffId")
		}
		if req.AppointmentDate == "" {
			missing = append(missing, "appointmentDate")
		}
		if len(missing) > 0 {
			writeAppError(w, r, apperr.Validation("Missing required fields: %s", strings.Join(missing, ", ")))
			return
		}

		in := appointment.CreateInput{
			AppointmentDate: req.AppointmentDate,
			Type:            req.Type,
			Reason:          req.Reason,
			Notes:           req.Notes,
		}

		var err error
		if in.PatientID, err = parseIDParam(req.PatientID, "patientId"); err != nil {
			writeAppError(w, r, err)
			return
		}
		if in.StaffID, err = parseIDParam(req.StaffID, "staffId"); err != nil {
			writeAppError(w, r, err)
			return
		}
		if req.Status != nil {
			st := appointment.Status(*req.Status)
			if !st.Valid() {
				writeAppError(w, r, apperr.Validation("Invalid appointment status."))
				return
			}
			in.Status = st
		}

		appt, err := svc.CreateAppointment(r.Context(), in)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, appt)
	}
}

func listAppointmentsHandler(svc *appointment.Service, loc *time.Location, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := appointment.ParseListQuery(r.URL.Query(), loc, maxLimit)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		items, total, err := svc.ListAppointments(r.Context(), q)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, pagination.NewResponse(items, q.Params, total))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentIDParam(w, r)
		if !ok {
			return
		}

		detail, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, detail)
	}
}

func updateAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentIDParam(w, r)
		if !ok {
			return
		}

		var req UpdateAppointmentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}

		in := appointment.UpdateInput{
			AppointmentDate: req.AppointmentDate,
			Type:            req.Type,
			Reason:          req.Reason,
			Notes:           req.Notes,
		}
		if req.PatientID != nil {
			pid, err := parseIDParam(*req.PatientID, "patientId")
			if err != nil {
				writeAppError(w, r, err)
				return
			}
			in.PatientID = &pid
		}
		if req.StaffID != nil {
			sid, err := parseIDParam(*req.StaffID, "staffId")
			if err != nil {
				writeAppError(w, r, err)
				return
			}
			in.StaffID = &sid
		}
		if req.Status != nil {
			st := appointment.Status(*req.Status)
			if !st.Valid() {
				writeAppError(w, r, apperr.Validation("Invalid appointment status."))
				return
			}
			in.Status = &st
		}

		appt, err := svc.UpdateAppointment(r.Context(), id, in)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, appt)
	}
}

func deleteAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentIDParam(w, r)
		if !ok {
			return
		}

		appt, err := svc.DeleteAppointment(r.Context(), id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, DeleteAppointmentResponse{
			Message:     "Appointment deleted successfully",
			Appointment: appt,
		})
	}
}

// appointmentIDParam treats a malformed id like any other id that does not
// resolve.
func appointmentIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, apperr.NotFound("Appointment not found"))
		return uuid.Nil, false
	}
	return id, true
}
