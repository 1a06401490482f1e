package appointment

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/pagination"
)

type SortField string

const (
	SortByAppointmentDate SortField = "appointmentDate"
	SortByPatientName     SortField = "patientName"
	SortByVetName         SortField = "vetName"
)

// ListQuery is a validated appointment list request. DateFrom and DateTo are
// already widened to the first and last millisecond of their calendar day and
// are both inclusive.
type ListQuery struct {
	pagination.Params
	PatientID *uuid.UUID
	StaffID   *uuid.UUID
	Status    *Status
	DateFrom  *time.Time
	DateTo    *time.Time
	SortBy    SortField
	Desc      bool
}

// ParseListQuery validates list parameters. Calendar dates are interpreted in
// loc. Any invalid enum or identifier is rejected before the store is touched.
func ParseListQuery(q url.Values, loc *time.Location, maxLimit int) (ListQuery, error) {
	if loc == nil {
		loc = time.UTC
	}

	lq := ListQuery{
		Params: pagination.FromValues(q, maxLimit),
		SortBy: SortByAppointmentDate,
	}

	if raw := q.Get("status"); raw != "" {
		st := Status(raw)
		if !st.Valid() {
			return ListQuery{}, apperr.Validation("Invalid appointment status for filtering.")
		}
		lq.Status = &st
	}

	switch q.Get("sortOrder") {
	case "", "asc":
	case "desc":
		lq.Desc = true
	default:
		return ListQuery{}, apperr.Validation(`Invalid sortOrder parameter. Must be "asc" or "desc".`)
	}

	if raw := q.Get("sortBy"); raw != "" {
		switch SortField(raw) {
		case SortByAppointmentDate, SortByPatientName, SortByVetName:
			lq.SortBy = SortField(raw)
		default:
			return ListQuery{}, apperr.Validation("Invalid sortBy parameter. Allowed values: appointmentDate, patientName, vetName.")
		}
	}

	var err error
	if lq.PatientID, err = optionalUUID(q, "patientId"); err != nil {
		return ListQuery{}, err
	}
	if lq.StaffID, err = optionalUUID(q, "staffId", "veterinarianId"); err != nil {
		return ListQuery{}, err
	}

	if raw := q.Get("dateFrom"); raw != "" {
		day, err := parseDay(raw, loc)
		if err != nil {
			return ListQuery{}, apperr.Validation("Invalid dateFrom parameter. Expected YYYY-MM-DD.")
		}
		lq.DateFrom = &day
	}
	if raw := q.Get("dateTo"); raw != "" {
		day, err := parseDay(raw, loc)
		if err != nil {
			return ListQuery{}, apperr.Validation("Invalid dateTo parameter. Expected YYYY-MM-DD.")
		}
		y, m, d := day.Date()
		end := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
		lq.DateTo = &end
	}

	return lq, nil
}

// Matches reports whether a satisfies every filter of q.
func (q ListQuery) Matches(a Appointment) bool {
	if q.PatientID != nil && a.PatientID != *q.PatientID {
		return false
	}
	if q.StaffID != nil && a.StaffID != *q.StaffID {
		return false
	}
	if q.Status != nil && a.Status != *q.Status {
		return false
	}
	if q.DateFrom != nil && a.AppointmentDate.Before(*q.DateFrom) {
		return false
	}
	if q.DateTo != nil && a.AppointmentDate.After(*q.DateTo) {
		return false
	}
	return true
}

// optionalUUID reads the first non-empty parameter among names.
func optionalUUID(q url.Values, names ...string) (*uuid.UUID, error) {
	for _, name := range names {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperr.Validation("Invalid %s parameter.", name)
		}
		return &id, nil
	}
	return nil, nil
}

// parseDay returns local midnight of the calendar day named by raw, which is
// either YYYY-MM-DD or a full RFC 3339 timestamp.
func parseDay(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", raw, err)
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}
