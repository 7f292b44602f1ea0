package auth

import (
	"context"
	"testing"
	"time"

	"travelbooking/internal/domain"
	"travelbooking/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIssueAndAuthorize(t *testing.T) {
	gate := NewGate("secret", time.Hour)
	user := &models.User{ID: "u1", Username: "alice", Email: "a@example.com", Role: models.RoleAgent}

	token, err := gate.Issue(user)
	require.NoError(t, err)

	for _, cred := range []string{token, "Bearer " + token, "  Bearer " + token + " "} {
		caller, err := gate.Authorize(cred)
		require.NoError(t, err)
		assert.Equal(t, "u1", caller.UserID)
		assert.Equal(t, models.RoleAgent, caller.Role)
		assert.Equal(t, "alice", caller.Username)
	}
}

func TestAuthorizeRejects(t *testing.T) {
	gate := NewGate("secret", time.Hour)
	user := &models.User{ID: "u1", Role: models.RoleUser}

	t.Run("Missing", func(t *testing.T) {
		_, err := gate.Authorize("")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := gate.Authorize("Bearer not-a-token")
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := NewGate("other", time.Hour).Issue(user)
		require.NoError(t, err)
		_, err = gate.Authorize(token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("Expired", func(t *testing.T) {
		old := NewGate("secret", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := old.Issue(user)
		require.NoError(t, err)

		_, err = gate.Authorize(token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("NoneAlgorithm", func(t *testing.T) {
		claims := Claims{ID: "u1", Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = gate.Authorize(token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("UnknownRole", func(t *testing.T) {
		token, err := gate.Issue(&models.User{ID: "u1", Role: "root"})
		require.NoError(t, err)
		_, err = gate.Authorize(token)
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})
}

func TestCan(t *testing.T) {
	user := &Caller{UserID: "u1", Role: models.RoleUser}
	other := &Caller{UserID: "u2", Role: models.RoleUser}
	agent := &Caller{UserID: "g1", Role: models.RoleAgent}
	admin := &Caller{UserID: "a1", Role: models.RoleAdmin}

	cases := []struct {
		name   string
		caller *Caller
		cap    Capability
		owner  string
		want   error
	}{
		{"anonymous", nil, CapBook, "u1", domain.ErrUnauthenticated},
		{"owner books", user, CapBook, "u1", nil},
		{"books for other", other, CapBook, "u1", domain.ErrForbidden},
		{"admin books for other", admin, CapBook, "u1", nil},
		{"owner cancels", user, CapCancel, "u1", nil},
		{"agent cannot cancel", agent, CapCancel, "u1", domain.ErrForbidden},
		{"owner rates", user, CapRate, "u1", nil},
		{"admin cannot rate", admin, CapRate, "u1", domain.ErrForbidden},
		{"agent views booking", agent, CapViewBooking, "u1", nil},
		{"other views booking", other, CapViewBooking, "u1", domain.ErrForbidden},
		{"self history", user, CapViewHistory, "u1", nil},
		{"agent history", agent, CapViewHistory, "u1", domain.ErrForbidden},
		{"user refund", user, CapRefund, "u1", domain.ErrForbidden},
		{"admin refund", admin, CapRefund, "", nil},
		{"agent override", agent, CapOverrideStatus, "", nil},
		{"user override", user, CapOverrideStatus, "u1", domain.ErrForbidden},
		{"agent list all", agent, CapListAll, "", domain.ErrForbidden},
		{"agent by status", agent, CapListByStatus, "", nil},
		{"admin analytics", admin, CapViewAnalytics, "", nil},
		{"unknown capability", admin, Capability("launch"), "", domain.ErrForbidden},
		{"empty owner never matches", &Caller{UserID: "x", Role: models.RoleUser}, CapRate, "", domain.ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Can(tc.caller, tc.cap, tc.owner)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCallerContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, CallerFrom(ctx))

	c := &Caller{UserID: "u1", Role: models.RoleAdmin}
	got := CallerFrom(WithCaller(ctx, c))
	assert.Same(t, c, got)
	assert.True(t, got.IsAdmin())
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := CheckPassword(hash, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "x")
	assert.Error(t, err)
}
