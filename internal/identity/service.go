package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventure/ticketing/internal/auth"
)

const bcryptCost = 12

// UserStore is the persistence surface the service needs.
type UserStore interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, u User) (User, error)
	SetActive(ctx context.Context, id string, active bool) error
	ListByRole(ctx context.Context, role Role) ([]User, error)
	ListAll(ctx context.Context) ([]User, error)
}

type Service struct {
	Store    UserStore
	Secret   []byte
	TokenTTL time.Duration
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

func (in RegisterInput) validate() error {
	if in.Name == "" || in.Email == "" {
		return ErrInvalidCredentials
	}
	if len(in.Password) < 6 {
		return ErrInvalidCredentials
	}
	if !ValidRole(in.Role) {
		return ErrInvalidRole
	}
	return nil
}

// Register creates an account with a bcrypt-hashed password and returns the
// new user with a signed token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, string, error) {
	if err := in.validate(); err != nil {
		return User{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Store.Create(ctx, User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
	})
	if err != nil {
		return User{}, "", err
	}

	token, err := auth.Issue(s.Secret, user.ID, string(user.Role), s.TokenTTL)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user with a signed token.
// Deactivated accounts are refused.
func (s *Service) Login(ctx context.Context, email, password string) (User, string, error) {
	user, err := s.Store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return User{}, "", ErrInactive
	}

	token, err := auth.Issue(s.Secret, user.ID, string(user.Role), s.TokenTTL)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (User, error) {
	return s.Store.GetByID(ctx, userID)
}

type ProfileUpdate struct {
	Name  string
	Email string
	Role  Role
}

// UpdateProfile overwrites only the fields that were provided; empty fields
// keep their current value.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (User, error) {
	user, err := s.Store.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if in.Name != "" {
		user.Name = in.Name
	}
	if in.Email != "" {
		user.Email = in.Email
	}
	if in.Role != "" {
		if !ValidRole(in.Role) {
			return User{}, ErrInvalidRole
		}
		user.Role = in.Role
	}
	return s.Store.Update(ctx, user)
}

// SetActivation toggles the account active flag.
func (s *Service) SetActivation(ctx context.Context, userID string, active bool) error {
	return s.Store.SetActive(ctx, userID, active)
}

// ListAttendees returns accounts with the attendee role, for moderation.
func (s *Service) ListAttendees(ctx context.Context) ([]User, error) {
	return s.Store.ListByRole(ctx, RoleAttendee)
}

func (s *Service) ListAll(ctx context.Context) ([]User, error) {
	return s.Store.ListAll(ctx)
}
