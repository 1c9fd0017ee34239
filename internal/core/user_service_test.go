package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	repo := newMemUserRepo()
	svc := NewUserService(repo).(*userService)
	svc.now = func() time.Time { return eventCreated }

	user, created, err := svc.GetOrCreate(ctx, ownerIdentity)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ownerIdentity.UID, user.ID)
	assert.Equal(t, ownerIdentity.Email, user.Email)
	assert.Equal(t, "Salon Owner", user.DisplayName)
	assert.Equal(t, eventCreated, user.CreatedAt)

	again, created, err := svc.GetOrCreate(ctx, ownerIdentity)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
}

func TestUserService_GetOrCreateRepositoryError(t *testing.T) {
	repo := newMemUserRepo()
	repo.getErr = errors.New("unavailable")

	_, _, err := NewUserService(repo).GetOrCreate(context.Background(), ownerIdentity)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_GetByID(t *testing.T) {
	svc := NewUserService(newMemUserRepo(salonOwner))

	user, err := svc.GetByID(context.Background(), salonOwner.ID)
	require.NoError(t, err)
	assert.Equal(t, salonOwner.Email, user.Email)

	_, err = svc.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
