package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:           "test-secret-key-for-jwt-token-signing",
		Expiration:       168 * time.Hour,
		Issuer:           "storefront-api",
		Audience:         "storefront-users",
		NearExpiryWindow: time.Hour,
	})
}

func testInput() IssueTokenInput {
	return IssueTokenInput{
		UserID: uuid.New(),
		Email:  "alice@example.com",
		Name:   "Alice",
		Role:   "user",
	}
}

func TestIssueAndVerify(t *testing.T) {
	svc := testService()
	input := testInput()

	issued, err := svc.Issue(input)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.WithinDuration(t, time.Now().Add(168*time.Hour), issued.ExpiresAt, 5*time.Second)

	claims, err := svc.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "storefront-api", claims.Issuer)
	assert.Contains(t, claims.Audience, "storefront-users")

	parsed, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, input.UserID, parsed)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	svc := testService()

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("token signed with different secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:     "a-completely-different-secret-key",
			Expiration: time.Hour,
			Issuer:     "storefront-api",
			Audience:   "storefront-users",
		})
		issued, err := other.Issue(testInput())
		require.NoError(t, err)

		_, err = svc.Verify(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{
			Secret:     "test-secret-key-for-jwt-token-signing",
			Expiration: -time.Hour,
			Issuer:     "storefront-api",
			Audience:   "storefront-users",
		})
		issued, err := expired.Issue(testInput())
		require.NoError(t, err)

		_, err = svc.Verify(issued.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:     "test-secret-key-for-jwt-token-signing",
			Expiration: time.Hour,
			Issuer:     "someone-else",
			Audience:   "storefront-users",
		})
		issued, err := other.Issue(testInput())
		require.NoError(t, err)

		_, err = svc.Verify(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:     "test-secret-key-for-jwt-token-signing",
			Expiration: time.Hour,
			Issuer:     "storefront-api",
			Audience:   "other-audience",
		})
		issued, err := other.Issue(testInput())
		require.NoError(t, err)

		_, err = svc.Verify(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestDecodeUnsafe(t *testing.T) {
	svc := testService()

	t.Run("decodes expired token", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{
			Secret:     "test-secret-key-for-jwt-token-signing",
			Expiration: -time.Hour,
			Issuer:     "storefront-api",
			Audience:   "storefront-users",
		})
		issued, err := expired.Issue(testInput())
		require.NoError(t, err)

		claims, err := svc.DecodeUnsafe(issued.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", claims.Email)
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		_, err := svc.DecodeUnsafe("garbage")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestIsNearExpiry(t *testing.T) {
	svc := testService()

	t.Run("fresh long-lived token is not near expiry", func(t *testing.T) {
		issued, err := svc.Issue(testInput())
		require.NoError(t, err)
		assert.False(t, svc.IsNearExpiry(issued.Token))
	})

	t.Run("token expiring within window is near expiry", func(t *testing.T) {
		short := NewJWTService(config.JWTConfig{
			Secret:           "test-secret-key-for-jwt-token-signing",
			Expiration:       30 * time.Minute,
			Issuer:           "storefront-api",
			Audience:         "storefront-users",
			NearExpiryWindow: time.Hour,
		})
		issued, err := short.Issue(testInput())
		require.NoError(t, err)
		assert.True(t, short.IsNearExpiry(issued.Token))
	})

	t.Run("token expiring exactly at the window boundary is near expiry", func(t *testing.T) {
		// The issue timestamp is the reference point, so an expiration
		// equal to the window puts the token right on the boundary. Any
		// wall-clock time that passes before the check only moves it
		// further inside the window
		boundary := NewJWTService(config.JWTConfig{
			Secret:           "test-secret-key-for-jwt-token-signing",
			Expiration:       time.Hour,
			Issuer:           "storefront-api",
			Audience:         "storefront-users",
			NearExpiryWindow: time.Hour,
		})
		issued, err := boundary.Issue(testInput())
		require.NoError(t, err)
		assert.True(t, boundary.IsNearExpiry(issued.Token))
	})

	t.Run("undecodable token counts as near expiry", func(t *testing.T) {
		assert.True(t, svc.IsNearExpiry("garbage"))
	})
}

func TestRefresh(t *testing.T) {
	svc := testService()
	input := testInput()

	issued, err := svc.Issue(input)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(issued.Token)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Token)

	claims, err := svc.Verify(refreshed.Token)
	require.NoError(t, err)
	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, input.Email, claims.Email)

	t.Run("refusing expired token", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{
			Secret:     "test-secret-key-for-jwt-token-signing",
			Expiration: -time.Hour,
			Issuer:     "storefront-api",
			Audience:   "storefront-users",
		})
		old, err := expired.Issue(input)
		require.NoError(t, err)

		_, err = svc.Refresh(old.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}
