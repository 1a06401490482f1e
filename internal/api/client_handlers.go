package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/client"
	"github.com/hackgods/vetclinic-scheduling/internal/pagination"
)

func createClientHandler(svc *client.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateClientRequest
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, r, err)
			return
		}

		c, err := svc.Create(r.Context(), client.CreateInput{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, c)
	}
}

func listClientsHandler(svc *client.Service, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := pagination.FromValues(r.URL.Query(), maxLimit)

		items, total, err := svc.List(r.Context(), p)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, pagination.NewResponse(items, p, total))
	}
}

func getClientHandler(svc *client.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeAppError(w, r, apperr.NotFound("Client not found"))
			return
		}

		c, err := svc.Get(r.Context(), id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, c)
	}
}
