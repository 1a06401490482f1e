package patient

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/pagination"
)

type SortField string

const (
	SortByName      SortField = "name"
	SortByCreatedAt SortField = "createdAt"
	SortByAge       SortField = "age"
	SortBySpecies   SortField = "species"
)

type ListQuery struct {
	pagination.Params
	OwnerID *uuid.UUID
	// Species matches case-insensitively anywhere in the species name.
	Species string
	SortBy  SortField
	Desc    bool
}

// ParseListQuery validates the patient list query string.
func ParseListQuery(q url.Values, maxLimit int) (ListQuery, error) {
	lq := ListQuery{
		Params:  pagination.FromValues(q, maxLimit),
		Species: strings.TrimSpace(q.Get("species")),
		SortBy:  SortByCreatedAt,
		Desc:    true,
	}

	if raw := q.Get("clientId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return ListQuery{}, apperr.Validation("Invalid clientId parameter.")
		}
		lq.OwnerID = &id
	}

	if raw := q.Get("sortBy"); raw != "" {
		switch SortField(raw) {
		case SortByName, SortByCreatedAt, SortByAge, SortBySpecies:
			lq.SortBy = SortField(raw)
			lq.Desc = false
		default:
			return ListQuery{}, apperr.Validation("Invalid sortBy parameter. Allowed values: name, createdAt, age, species.")
		}
	}

	switch q.Get("sortOrder") {
	case "":
	case "asc":
		lq.Desc = false
	case "desc":
		lq.Desc = true
	default:
		return ListQuery{}, apperr.Validation(`Invalid sortOrder parameter. Must be "asc" or "desc".`)
	}

	return lq, nil
}
