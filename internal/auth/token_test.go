package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popreg/internal/user"
)

func testUser() *user.User {
	return &user.User{
		ID:       7,
		Username: "alice",
		RealName: "Alice Chen",
		Role:     "admin",
	}
}

func TestIssuerRoundTrip(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	token, err := issuer.Mint(testUser())
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "Alice Chen", claims.RealName)
	assert.Equal(t, "admin", claims.Role)
	assert.NotEmpty(t, claims.ID, "every token carries a unique id")
}

func TestIssuerRejects(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	t.Run("garbage input", func(t *testing.T) {
		_, err := issuer.Parse("not-a-token")
		assert.Error(t, err)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := NewIssuer("different-secret", time.Hour)
		token, err := other.Mint(testUser())
		require.NoError(t, err)

		_, err = issuer.Parse(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		shortLived := NewIssuer("test-secret", -time.Minute)
		token, err := shortLived.Mint(testUser())
		require.NoError(t, err)

		_, err = issuer.Parse(token)
		assert.Error(t, err)
	})
}

func TestMintedTokensAreUnique(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour)

	t1, err := issuer.Mint(testUser())
	require.NoError(t, err)
	t2, err := issuer.Mint(testUser())
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2, "jti must differ between logins in the same second")
}
