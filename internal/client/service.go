package client

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/pagination"
)

type CreateInput struct {
	Name  string
	Email string
	Phone *string
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Client, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("Missing required fields: %s", strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("Invalid email address.")
	}

	c := &Client{Name: name, Email: email, Phone: in.Phone}
	if err := s.repo.CreateClient(ctx, c); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.Conflict("A client with email %s already exists.", email)
		}
		return nil, apperr.Persistence("Could not create client.", err)
	}

	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	c, err := s.repo.GetClientByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, apperr.NotFound("Client with ID %s not found.", id)
		}
		return nil, apperr.Persistence("Could not load client.", err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, p pagination.Params) ([]Client, int, error) {
	items, total, err := s.repo.ListClients(ctx, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, apperr.Persistence("Could not list clients.", err)
	}
	return items, total, nil
}
