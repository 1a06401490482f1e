package client

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrEmailTaken     = errors.New("client email already registered")
)

type Repository interface {
	CreateClient(ctx context.Context, c *Client) error
	GetClientByID(ctx context.Context, id uuid.UUID) (*Client, error)
	// ListClients returns one page ordered by name and the total client count.
	ListClients(ctx context.Context, limit, offset int) ([]Client, int, error)
}
