package jwt

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func newSymmetric(t *testing.T, clock *fixedClock) *Symmetric {
	t.Helper()

	j, err := NewHS512(Config{
		Secret:    bytes.Repeat([]byte("k"), 64),
		Issuer:    "taskdeck",
		Audiences: []string{"taskdeck-web"},
		TTL:       time.Hour,
		Clock:     clock,
		UUID:      fixedID("jti-1"),
	})
	require.NoError(t, err)

	return j
}

func TestSymmetric(t *testing.T) {
	clock := &fixedClock{now: time.Now().Truncate(time.Second)}
	j := newSymmetric(t, clock)

	token, err := j.Generate(42, "admin")
	require.NoError(t, err)

	t.Run("verify", func(t *testing.T) {
		clm, err := j.Verify(token)

		require.NoError(t, err)
		assert.Equal(t, int64(42), clm.UserID)
		assert.Equal(t, "admin", clm.Username)
		assert.Equal(t, "jti-1", clm.ID)
		assert.Equal(t, time.Hour, j.TTL())
	})

	t.Run("expired", func(t *testing.T) {
		later := newSymmetric(t, &fixedClock{now: clock.now.Add(2 * time.Hour)})

		_, err := later.Verify(token)

		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := j.Verify(token + "x")
		assert.Error(t, err)
	})
}

func TestNewHS512_ShortKey(t *testing.T) {
	_, err := NewHS512(Config{Secret: []byte("short")})
	assert.ErrorIs(t, err, ErrSigningKeyTooShort)
}

func TestAuthContext(t *testing.T) {
	assert.Nil(t, GetAuth(context.Background()))

	ctx := SetAuth(context.Background(), Claims{UserID: 7})
	require.NotNil(t, GetAuth(ctx))
	assert.Equal(t, int64(7), GetAuth(ctx).UserID)
}
