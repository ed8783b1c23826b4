package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// errInvalidCredentials is the single error returned for every login
// failure. Wrong password, unknown email and expired account are not
// distinguishable from the outside
var errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService handles registration, login and token lifecycle
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo identity.UserRepository, jwtService *auth.JWTService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Register creates a new account, or restores an expired or deactivated
// one registered under the same email. An active, non-expired account
// blocks re-registration
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("Failed to look up account during registration", zap.Error(err))
		return nil, err
	}

	if existing != nil {
		if existing.IsActive && !existing.IsInactive(time.Now()) {
			s.logger.Warn("Registration attempt for existing account", zap.String("email", email))
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Email is already registered")
		}

		// Expired or deactivated account: re-registering reclaims it
		if err := existing.Reactivate(req.Name, req.Password); err != nil {
			return nil, err
		}
		if err := s.userRepo.Save(ctx, existing); err != nil {
			s.logger.Error("Failed to save reactivated account", zap.Error(err))
			return nil, err
		}

		s.logger.Info("Account reactivated through registration",
			zap.String("email", email),
			zap.String("user_id", existing.ID.String()))

		return s.issueFor(existing)
	}

	user, err := identity.NewUser(email, req.Name, req.Password, identity.RoleUser)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to save new account", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Account registered",
		zap.String("email", email),
		zap.String("user_id", user.ID.String()))

	return s.issueFor(user)
}

// Login authenticates an account and returns a fresh session token.
// Successful logins update the account's last login time
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Warn("Login attempt for unknown email", zap.String("email", email))
		return nil, errInvalidCredentials
	}

	if !user.CheckPassword(req.Password) {
		s.logger.Warn("Login attempt with wrong password", zap.String("email", email))
		return nil, errInvalidCredentials
	}

	if !user.IsActive {
		s.logger.Warn("Login attempt for deactivated account", zap.String("email", email))
		return nil, errInvalidCredentials
	}

	now := time.Now()
	if user.IsInactive(now) {
		// The account sat unused past the inactivity threshold; mark it
		// deactivated so cleanup can reap it. The caller sees the same
		// generic error as a wrong password
		user.Deactivate()
		if err := s.userRepo.Save(ctx, user); err != nil {
			s.logger.Error("Failed to deactivate expired account", zap.Error(err))
		}
		s.logger.Warn("Login attempt for expired account", zap.String("email", email))
		return nil, errInvalidCredentials
	}

	user.RecordLogin(now)
	if err := s.userRepo.Save(ctx, user); err != nil {
		// Not fatal: the login itself succeeded
		s.logger.Error("Failed to record login time", zap.Error(err))
	}

	s.logger.Info("User logged in",
		zap.String("email", email),
		zap.String("user_id", user.ID.String()))

	return s.issueFor(user)
}

// Verify validates a session token and confirms the account behind it
// is still active and within the inactivity window
func (s *AuthService) Verify(ctx context.Context, token string) (*UserInfo, error) {
	claims, err := s.jwtService.Verify(token)
	if err != nil {
		return nil, shared.ErrUnauthorized
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.ErrUnauthorized
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.ErrUnauthorized
	}
	if !user.IsActive || user.IsInactive(time.Now()) {
		return nil, shared.ErrUnauthorized
	}

	info := ToUserInfo(user)
	return &info, nil
}

// Refresh exchanges a valid token for a fresh one with a new expiry.
// The account must still be active; a token that outlived its account
// cannot be renewed
func (s *AuthService) Refresh(ctx context.Context, token string) (*AuthResponse, error) {
	claims, err := s.jwtService.Verify(token)
	if err != nil {
		return nil, shared.ErrUnauthorized
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.ErrUnauthorized
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.ErrUnauthorized
	}
	if !user.IsActive || user.IsInactive(time.Now()) {
		return nil, shared.ErrUnauthorized
	}

	s.logger.Debug("Session token refreshed", zap.String("user_id", user.ID.String()))

	return s.issueFor(user)
}

// issueFor signs a token for the user and assembles the auth response
func (s *AuthService) issueFor(user *identity.User) (*AuthResponse, error) {
	issued, err := s.jwtService.Issue(auth.IssueTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(user.Role),
	})
	if err != nil {
		s.logger.Error("Failed to sign session token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to issue session token")
	}

	return &AuthResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		TokenType: issued.TokenType,
		User:      ToUserInfo(user),
	}, nil
}
