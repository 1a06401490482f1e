package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/pagination"
	"github.com/hackgods/vetclinic-scheduling/internal/patient"
)

func createPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePatientRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}

		p, err := svc.Create(r.Context(), patient.CreateInput{
			Name:                  req.Name,
			Species:               req.Species,
			Breed:                 req.Breed,
			Age:                   req.Age,
			Weight:                req.Weight,
			MedicalHistorySummary: req.MedicalHistorySummary,
			OwnerID:               req.OwnerID,
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, p)
	}
}

func listPatientsHandler(svc *patient.Service, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := patient.ParseListQuery(r.URL.Query(), maxLimit)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		items, total, err := svc.List(r.Context(), q)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, pagination.NewResponse(items, q.Params, total))
	}
}

func getPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := patientIDParam(w, r)
		if !ok {
			return
		}

		p, err := svc.Get(r.Context(), id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

func updatePatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := patientIDParam(w, r)
		if !ok {
			return
		}

		var req UpdatePatientRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}

		p, err := svc.Update(r.Context(), id, patient.UpdateInput{
			Name:                  req.Name,
			Species:               req.Species,
			Breed:                 req.Breed,
			Age:                   req.Age,
			Weight:                req.Weight,
			MedicalHistorySummary: req.MedicalHistorySummary,
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

func deletePatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := patientIDParam(w, r)
		if !ok {
			return
		}

		p, err := svc.Delete(r.Context(), id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Patient deleted successfully",
			"patient": p,
		})
	}
}

func patientIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, apperr.NotFound("Patient not found"))
		return uuid.Nil, false
	}
	return id, true
}
