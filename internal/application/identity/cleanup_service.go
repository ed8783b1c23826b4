package identity

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// CleanupConfig controls the account cleanup policy
type CleanupConfig struct {
	// InactivityThreshold is how long since the last login before an
	// account is eligible for cleanup
	InactivityThreshold time.Duration
	// HardDelete removes deactivated accounts permanently instead of
	// leaving them deactivated
	HardDelete bool
}

// DefaultCleanupConfig returns the standard 30-day soft-delete policy
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		InactivityThreshold: identity.InactivityThreshold,
		HardDelete:          false,
	}
}

// CleanupService deactivates and optionally deletes stale accounts
type CleanupService struct {
	userRepo identity.UserRepository
	config   CleanupConfig
	logger   *zap.Logger
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(userRepo identity.UserRepository, config CleanupConfig, logger *zap.Logger) *CleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.InactivityThreshold <= 0 {
		config.InactivityThreshold = identity.InactivityThreshold
	}
	return &CleanupService{
		userRepo: userRepo,
		config:   config,
		logger:   logger,
	}
}

// Preview lists the accounts a Run would deactivate, without touching them
func (s *CleanupService) Preview(ctx context.Context) (*CleanupPreview, error) {
	cutoff := time.Now().Add(-s.config.InactivityThreshold)

	users, err := s.userRepo.FindInactiveSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	return &CleanupPreview{
		Cutoff:     cutoff,
		Count:      len(users),
		Candidates: ToUserInfos(users),
	}, nil
}

// Run deactivates every account whose last login predates the cutoff,
// then permanently deletes already-deactivated stale accounts when hard
// deletion is enabled. A failure on one account does not stop the rest
func (s *CleanupService) Run(ctx context.Context) (*CleanupResult, error) {
	cutoff := time.Now().Add(-s.config.InactivityThreshold)
	result := &CleanupResult{Cutoff: cutoff}

	users, err := s.userRepo.FindInactiveSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	for i := range users {
		user := &users[i]
		user.Deactivate()
		if err := s.userRepo.Save(ctx, user); err != nil {
			s.logger.Error("Failed to deactivate stale account",
				zap.String("user_id", user.ID.String()),
				zap.Error(err))
			continue
		}
		result.Deactivated++
	}

	if s.config.HardDelete {
		deleted, err := s.userRepo.DeleteInactiveSince(ctx, cutoff)
		if err != nil {
			s.logger.Error("Failed to delete deactivated accounts", zap.Error(err))
			return result, err
		}
		result.Deleted = deleted
	}

	s.logger.Info("Account cleanup finished",
		zap.Time("cutoff", cutoff),
		zap.Int("deactivated", result.Deactivated),
		zap.Int64("deleted", result.Deleted))

	return result, nil
}
