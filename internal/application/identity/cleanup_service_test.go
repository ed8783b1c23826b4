package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func staleUsers(t *testing.T) []identity.User {
	t.Helper()
	first := newTestUser(t, "first@example.com")
	second := newTestUser(t, "second@example.com")
	expireUser(first)
	expireUser(second)
	return []identity.User{*first, *second}
}

func TestCleanupService_Preview_DoesNotTouchAccounts(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewCleanupService(mockRepo, DefaultCleanupConfig(), nil)

	ctx := context.Background()
	mockRepo.On("FindInactiveSince", ctx, mock.AnythingOfType("time.Time")).Return(staleUsers(t), nil)

	preview, err := service.Preview(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 2, preview.Count)
	assert.Len(t, preview.Candidates, 2)
	mockRepo.AssertNotCalled(t, "Save")
	mockRepo.AssertNotCalled(t, "DeleteInactiveSince")
}

func TestCleanupService_Run_DeactivatesStaleAccounts(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewCleanupService(mockRepo, DefaultCleanupConfig(), nil)

	ctx := context.Background()
	mockRepo.On("FindInactiveSince", ctx, mock.AnythingOfType("time.Time")).Return(staleUsers(t), nil)
	mockRepo.On("Save", ctx, mock.MatchedBy(func(u *identity.User) bool {
		return !u.IsActive
	})).Return(nil)

	result, err := service.Run(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Deactivated)
	assert.Equal(t, int64(0), result.Deleted)
	mockRepo.AssertNotCalled(t, "DeleteInactiveSince")
	mockRepo.AssertExpectations(t)
}

func TestCleanupService_Run_HardDelete(t *testing.T) {
	mockRepo := new(MockUserRepository)
	config := DefaultCleanupConfig()
	config.HardDelete = true
	service := NewCleanupService(mockRepo, config, nil)

	ctx := context.Background()
	mockRepo.On("FindInactiveSince", ctx, mock.AnythingOfType("time.Time")).Return(staleUsers(t), nil)
	mockRepo.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)
	mockRepo.On("DeleteInactiveSince", ctx, mock.AnythingOfType("time.Time")).Return(int64(2), nil)

	result, err := service.Run(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Deactivated)
	assert.Equal(t, int64(2), result.Deleted)
	mockRepo.AssertExpectations(t)
}

func TestCleanupService_Run_ContinuesAfterSaveFailure(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewCleanupService(mockRepo, DefaultCleanupConfig(), nil)

	ctx := context.Background()
	users := staleUsers(t)
	mockRepo.On("FindInactiveSince", ctx, mock.AnythingOfType("time.Time")).Return(users, nil)
	mockRepo.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(errors.New("db down")).Once()
	mockRepo.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil).Once()

	result, err := service.Run(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Deactivated)
	mockRepo.AssertExpectations(t)
}

func TestCleanupService_CutoffRespectsConfiguredThreshold(t *testing.T) {
	mockRepo := new(MockUserRepository)
	config := CleanupConfig{InactivityThreshold: 7 * 24 * time.Hour}
	service := NewCleanupService(mockRepo, config, nil)

	ctx := context.Background()
	var captured time.Time
	mockRepo.On("FindInactiveSince", ctx, mock.MatchedBy(func(cutoff time.Time) bool {
		captured = cutoff
		return true
	})).Return([]identity.User{}, nil)

	_, err := service.Preview(ctx)

	assert.NoError(t, err)
	expected := time.Now().Add(-7 * 24 * time.Hour)
	assert.WithinDuration(t, expected, captured, time.Minute)
}
