package staff

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrStaffNotFound = errors.New("staff user not found")
	ErrEmailTaken    = errors.New("email already registered")
)

type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CountUsers(ctx context.Context) (int, error)
}
