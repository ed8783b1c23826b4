package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.User, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) FindInactiveSince(ctx context.Context, cutoff time.Time) ([]identity.User, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:           "test-secret-key-at-least-32-bytes!!",
		Expiration:       168 * time.Hour,
		Issuer:           "storefront-api",
		Audience:         "storefront-users",
		NearExpiryWindow: time.Hour,
	})
}

func newTestUser(t *testing.T, email string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(email, "Test User", "password123", identity.RoleUser)
	assert.NoError(t, err)
	return user
}

// expireUser pushes the user's last login past the inactivity threshold
func expireUser(user *identity.User) {
	stale := time.Now().Add(-identity.InactivityThreshold - 24*time.Hour)
	user.LastLoginAt = &stale
}

// Tests for AuthService.Register
func TestAuthService_Register_NewAccount(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()

	mockRepo.On("FindByEmail", ctx, "new@example.com").Return(nil, shared.ErrNotFound)
	mockRepo.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

	result, err := service.Register(ctx, RegisterRequest{
		Email:    "New@Example.com",
		Name:     "New User",
		Password: "password123",
	})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, "new@example.com", result.User.Email)
	assert.Equal(t, "user", result.User.Role)
	assert.True(t, result.User.IsActive)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Register_ConflictForActiveAccount(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	existing := newTestUser(t, "taken@example.com")

	mockRepo.On("FindByEmail", ctx, "taken@example.com").Return(existing, nil)

	result, err := service.Register(ctx, RegisterRequest{
		Email:    "taken@example.com",
		Name:     "Somebody Else",
		Password: "password456",
	})

	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	mockRepo.AssertNotCalled(t, "Save")
}

func TestAuthService_Register_ReactivatesExpiredAccount(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	existing := newTestUser(t, "dormant@example.com")
	expireUser(existing)

	mockRepo.On("FindByEmail", ctx, "dormant@example.com").Return(existing, nil)
	mockRepo.On("Save", ctx, existing).Return(nil)

	result, err := service.Register(ctx, RegisterRequest{
		Email:    "dormant@example.com",
		Name:     "Returned User",
		Password: "newpassword",
	})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, existing.ID, result.User.ID)
	assert.Equal(t, "Returned User", result.User.Name)
	assert.True(t, existing.IsActive)
	assert.True(t, existing.CheckPassword("newpassword"))
	assert.False(t, existing.IsInactive(time.Now()))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Register_ReactivatesDeactivatedAccount(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	existing := newTestUser(t, "reaped@example.com")
	existing.Deactivate()

	mockRepo.On("FindByEmail", ctx, "reaped@example.com").Return(existing, nil)
	mockRepo.On("Save", ctx, existing).Return(nil)

	result, err := service.Register(ctx, RegisterRequest{
		Email:    "reaped@example.com",
		Name:     "Back Again",
		Password: "password123",
	})

	assert.NoError(t, err)
	assert.True(t, result.User.IsActive)
	mockRepo.AssertExpectations(t)
}

// Tests for AuthService.Login
func TestAuthService_Login_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	user := newTestUser(t, "user@example.com")
	before := *user.LastLoginAt

	mockRepo.On("FindByEmail", ctx, "user@example.com").Return(user, nil)
	mockRepo.On("Save", ctx, user).Return(nil)

	result, err := service.Login(ctx, LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.ExpiresAt.After(time.Now().Add(167*time.Hour)))
	assert.False(t, user.LastLoginAt.Before(before))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	mockRepo.On("FindByEmail", ctx, "ghost@example.com").Return(nil, shared.ErrNotFound)

	result, err := service.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "whatever"})

	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	user := newTestUser(t, "user@example.com")

	mockRepo.On("FindByEmail", ctx, "user@example.com").Return(user, nil)

	result, err := service.Login(ctx, LoginRequest{Email: "user@example.com", Password: "wrong"})

	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
	mockRepo.AssertNotCalled(t, "Save")
}

func TestAuthService_Login_ExpiredAccountGetsDeactivated(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	user := newTestUser(t, "dormant@example.com")
	expireUser(user)

	mockRepo.On("FindByEmail", ctx, "dormant@example.com").Return(user, nil)
	mockRepo.On("Save", ctx, user).Return(nil)

	// Correct password, but the account sat unused too long
	result, err := service.Login(ctx, LoginRequest{Email: "dormant@example.com", Password: "password123"})

	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
	assert.False(t, user.IsActive)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Login_DeactivatedAccount(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	user := newTestUser(t, "gone@example.com")
	user.Deactivate()

	mockRepo.On("FindByEmail", ctx, "gone@example.com").Return(user, nil)

	result, err := service.Login(ctx, LoginRequest{Email: "gone@example.com", Password: "password123"})

	assert.Nil(t, result)
	var domainErr *shared.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
}

// Tests for AuthService.Verify and Refresh
func TestAuthService_Verify_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	user := newTestUser(t, "user@example.com")

	mockRepo.On("FindByEmail", ctx, "user@example.com").Return(user, nil)
	mockRepo.On("Save", ctx, user).Return(nil)
	mockRepo.On("FindByID", ctx, user.ID).Return(user, nil)

	login, err := service.Login(ctx, LoginRequest{Email: "user@example.com", Password: "password123"})
	assert.NoError(t, err)

	info, err := service.Verify(ctx, login.Token)

	assert.NoError(t, err)
	assert.Equal(t, user.ID, info.ID)
	assert.Equal(t, "user@example.com", info.Email)
}

func TestAuthService_Verify_GarbageToken(t *testing.T) {
	service := NewAuthService(new(MockUserRepository), newTestJWTService(), nil)

	info, err := service.Verify(context.Background(), "not-a-token")

	assert.Nil(t, info)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestAuthService_Verify_DeletedAccount(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	user := newTestUser(t, "user@example.com")

	mockRepo.On("FindByEmail", ctx, "user@example.com").Return(user, nil)
	mockRepo.On("Save", ctx, user).Return(nil)
	mockRepo.On("FindByID", ctx, user.ID).Return(nil, shared.ErrNotFound)

	login, err := service.Login(ctx, LoginRequest{Email: "user@example.com", Password: "password123"})
	assert.NoError(t, err)

	// The account vanished after the token was issued
	info, err := service.Verify(ctx, login.Token)

	assert.Nil(t, info)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestAuthService_Refresh_IssuesNewToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	user := newTestUser(t, "user@example.com")

	mockRepo.On("FindByEmail", ctx, "user@example.com").Return(user, nil)
	mockRepo.On("Save", ctx, user).Return(nil)
	mockRepo.On("FindByID", ctx, user.ID).Return(user, nil)

	login, err := service.Login(ctx, LoginRequest{Email: "user@example.com", Password: "password123"})
	assert.NoError(t, err)

	refreshed, err := service.Refresh(ctx, login.Token)

	assert.NoError(t, err)
	assert.NotEmpty(t, refreshed.Token)
	assert.Equal(t, user.ID, refreshed.User.ID)
}

func TestAuthService_Refresh_DeactivatedAccount(t *testing.T) {
	mockRepo := new(MockUserRepository)
	service := NewAuthService(mockRepo, newTestJWTService(), nil)

	ctx := context.Background()
	user := newTestUser(t, "user@example.com")

	mockRepo.On("FindByEmail", ctx, "user@example.com").Return(user, nil)
	mockRepo.On("Save", ctx, user).Return(nil)
	mockRepo.On("FindByID", ctx, user.ID).Return(user, nil)

	login, err := service.Login(ctx, LoginRequest{Email: "user@example.com", Password: "password123"})
	assert.NoError(t, err)

	user.Deactivate()

	refreshed, err := service.Refresh(ctx, login.Token)

	assert.Nil(t, refreshed)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}
