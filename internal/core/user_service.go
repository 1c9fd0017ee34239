package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"glow-backend-go/internal/db"
	"glow-backend-go/internal/models"
)

// ErrUserNotFound is returned when a user is not found.
var ErrUserNotFound = errors.New("user not found")

// userService implements the UserService interface.
type userService struct {
	userRepo db.UserRepository
	now      func() time.Time
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo db.UserRepository) UserService {
	return &userService{
		userRepo: userRepo,
		now:      time.Now,
	}
}

// GetOrCreate retrieves the identity's user document, creating it on first sign-in.
// The boolean reports whether the user was created.
func (s *userService) GetOrCreate(ctx context.Context, identity models.Identity) (*models.User, bool, error) {
	if identity.UID == "" {
		return nil, false, errors.New("identity has no UID")
	}

	// Existing profile: nothing to create.
	user, err := s.userRepo.GetByID(ctx, identity.UID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to get user by ID '%s' from repository: %w", identity.UID, err)
	}

	// First sign-in: build the profile from the verified token claims.
	now := s.now().UTC()
	newUser := &models.User{
		ID:          identity.UID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.PhotoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, false, fmt.Errorf("failed to create user (id: %s) after not found: %w", identity.UID, err)
	}
	return newUser, true, nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}
	return user, nil
}
