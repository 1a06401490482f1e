package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/hackgods/vetclinic-scheduling/internal/apperr"
	"github.com/hackgods/vetclinic-scheduling/internal/staff"
)

const maxPasswordLength = 72 // bcrypt input limit

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// Service registers staff users and exchanges credentials for tokens.
type Service struct {
	users  staff.Repository
	tokens *TokenManager
}

func NewService(users staff.Repository, tokens *TokenManager) *Service {
	return &Service{users: users, tokens: tokens}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*staff.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"email", email}, {"password", in.Password}, {"name", name}, {"role", in.Role},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("Missing required fields: %s", strings.Join(missing, ", "))
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("Invalid email address.")
	}
	role := staff.Role(in.Role)
	if !role.Valid() {
		return nil, apperr.Validation("Invalid role. Allowed values: front-desk, technician, clinician, administrator.")
	}
	if len(in.Password) < minPasswordLength || len(in.Password) > maxPasswordLength {
		return nil, apperr.Validation("Password must be between %d and %d characters.", minPasswordLength, maxPasswordLength)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Persistence("Could not register user.", err)
	}

	u := &staff.User{Email: email, Name: name, Role: role, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, staff.ErrEmailTaken) {
			return nil, apperr.Conflict("User with this email already exists.")
		}
		return nil, apperr.Persistence("Could not register user.", err)
	}

	return u, nil
}

// Login returns a signed token for valid credentials.
func (s *Service) Login(ctx context.Context, email, password string) (string, *staff.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", nil, apperr.Validation("Missing required fields: email, password")
	}

	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, staff.ErrStaffNotFound) {
			return "", nil, apperr.Authentication("Invalid email or password.")
		}
		return "", nil, apperr.Persistence("Could not log in.", err)
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return "", nil, apperr.Authentication("Invalid email or password.")
	}

	token, err := s.tokens.Issue(*u)
	if err != nil {
		return "", nil, apperr.Persistence("Could not log in.", err)
	}
	return token, u, nil
}

// Authenticate verifies a bearer token.
func (s *Service) Authenticate(raw string) (*Claims, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, apperr.Authentication("Invalid or expired token.")
	}
	return claims, nil
}

// Bootstrap creates an administrator when the store has no users yet.
// It reports whether a user was created.
func (s *Service) Bootstrap(ctx context.Context, email, password, name string) (bool, error) {
	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return false, apperr.Persistence("Could not count users.", err)
	}
	if n > 0 {
		return false, nil
	}

	if name == "" {
		name = "Administrator"
	}
	_, err = s.Register(ctx, RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
		Role:     string(staff.RoleAdministrator),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
