package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// MinuteBucket returns the half-open minute [start, end) containing t.
func MinuteBucket(t time.Time) (start, end time.Time) {
	start = t.Truncate(time.Minute)
	return start, start.Add(time.Minute)
}

type activeFinder interface {
	FindActiveAppointment(ctx context.Context, staffID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) (*Appointment, error)
}

// ConflictChecker decides whether a staff member is already booked in the
// minute of a candidate time. Two appointments for the same staff member
// conflict only when both fall in the same calendar minute and the existing
// one is active.
type ConflictChecker struct {
	store activeFinder
}

func NewConflictChecker(store activeFinder) ConflictChecker {
	return ConflictChecker{store: store}
}

func (c ConflictChecker) WouldConflict(ctx context.Context, staffID uuid.UUID, candidate time.Time, excludeID *uuid.UUID) (bool, error) {
	from, to := MinuteBucket(candidate)

	_, err := c.store.FindActiveAppointment(ctx, staffID, from, to, excludeID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
