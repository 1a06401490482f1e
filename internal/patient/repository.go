package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/client"
)

var (
	ErrPatientNotFound  = errors.New("patient not found")
	ErrDuplicatePatient = errors.New("patient name already used for this owner")
	ErrPatientInUse     = errors.New("patient still has appointments")
)

type Repository interface {
	GetClientByID(ctx context.Context, id uuid.UUID) (*client.Client, error)

	CreatePatient(ctx context.Context, p *Patient) error
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	UpdatePatient(ctx context.Context, p *Patient) error
	DeletePatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	ListPatients(ctx context.Context, q ListQuery) ([]Patient, int, error)
	CountAppointmentsForPatient(ctx context.Context, id uuid.UUID) (int, error)
}
