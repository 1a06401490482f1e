package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/client"
)

type CreateInput struct {
	Name                  string
	Species               string
	Breed                 *string
	Age                   *int
	Weight                *float64
	MedicalHistorySummary *string
	OwnerID               string
}

// UpdateInput holds the fields to change; nil leaves a field untouched.
// The owner is fixed once a patient exists.
type UpdateInput struct {
	Name                  *string
	Species               *string
	Breed                 *string
	Age                   *int
	Weight                *float64
	MedicalHistorySummary *string
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Patient, error) {
	name := strings.TrimSpace(in.Name)
	species := strings.TrimSpace(in.Species)

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if species == "" {
		missing = append(missing, "species")
	}
	if in.Age == nil {
		missing = append(missing, "age")
	}
	if in.OwnerID == "" {
		missing = append(missing, "ownerId")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("Missing required fields: %s", strings.Join(missing, ", "))
	}
	if err := validateMeasures(in.Age, in.Weight); err != nil {
		return nil, err
	}

	ownerID, err := uuid.Parse(in.OwnerID)
	if err != nil {
		return nil, apperr.Validation("Invalid ownerId.")
	}

	if _, err := s.repo.GetClientByID(ctx, ownerID); err != nil {
		if errors.Is(err, client.ErrClientNotFound) {
			return nil, apperr.NotFound("Client with ID %s not found.", ownerID)
		}
		return nil, apperr.Persistence("Could not create patient.", err)
	}

	p := &Patient{
		Name:                  name,
		Species:               species,
		Breed:                 in.Breed,
		Age:                   *in.Age,
		Weight:                in.Weight,
		MedicalHistorySummary: in.MedicalHistorySummary,
		OwnerID:               ownerID,
	}

	if err := s.repo.CreatePatient(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicatePatient) {
			return nil, apperr.Conflict("Patient with name %q already exists for this owner.", name)
		}
		return nil, apperr.Persistence("Could not create patient.", err)
	}

	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetPatientByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, apperr.NotFound("Patient not found")
		}
		return nil, apperr.Persistence("Could not load patient.", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]Patient, int, error) {
	items, total, err := s.repo.ListPatients(ctx, q)
	if err != nil {
		return nil, 0, apperr.Persistence("Could not list patients.", err)
	}
	return items, total, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Patient, error) {
	if err := validateMeasures(in.Age, in.Weight); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("Patient name cannot be empty.")
		}
		p.Name = name
	}
	if in.Species != nil {
		species := strings.TrimSpace(*in.Species)
		if species == "" {
			return nil, apperr.Validation("Patient species cannot be empty.")
		}
		p.Species = species
	}
	if in.Breed != nil {
		p.Breed = in.Breed
	}
	if in.Age != nil {
		p.Age = *in.Age
	}
	if in.Weight != nil {
		p.Weight = in.Weight
	}
	if in.MedicalHistorySummary != nil {
		p.MedicalHistorySummary = in.MedicalHistorySummary
	}

	if err := s.repo.UpdatePatient(ctx, p); err != nil {
		switch {
		case errors.Is(err, ErrPatientNotFound):
			return nil, apperr.NotFound("Patient not found")
		case errors.Is(err, ErrDuplicatePatient):
			return nil, apperr.Conflict("Patient with name %q already exists for this owner.", p.Name)
		}
		return nil, apperr.Persistence("Could not update patient.", err)
	}

	return p, nil
}

// Delete removes a patient that has no appointments and returns its last state.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*Patient, error) {
	n, err := s.repo.CountAppointmentsForPatient(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("Could not delete patient.", err)
	}
	if n > 0 {
		return nil, apperr.Conflict("Cannot delete patient with %d existing appointment(s). Remove the appointments first.", n)
	}

	p, err := s.repo.DeletePatient(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrPatientNotFound):
			return nil, apperr.NotFound("Patient not found")
		case errors.Is(err, ErrPatientInUse):
			return nil, apperr.Conflict("Cannot delete patient with existing appointments. Remove the appointments first.")
		}
		return nil, apperr.Persistence("Could not delete patient.", err)
	}
	return p, nil
}

func validateMeasures(age *int, weight *float64) error {
	if age != nil && *age < 0 {
		return apperr.Validation("Patient age must be zero or greater.")
	}
	if weight != nil && *weight <= 0 {
		return apperr.Validation("Patient weight must be greater than zero.")
	}
	return nil
}
