package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/dealerops/rentd/internal/domain/auth"
	mockauth "github.com/dealerops/rentd/internal/mocks/auth"
	"github.com/dealerops/rentd/internal/ports"
)

func newAuthService(provider *mockauth.MockAuthProvider, ttl time.Duration) (*AuthService, *mockauth.MemorySessionStore) {
	store := mockauth.NewMemorySessionStore()
	svc := NewAuthService(AuthServiceOptions{
		Provider:   provider,
		Sessions:   store,
		Roles:      mockauth.StaticRoleMapper{AdminGroup: "admins", AgentGroup: "rental-agents"},
		SessionTTL: ttl,
	})
	return svc, store
}

func TestLoginFlowCreatesAgentSession(t *testing.T) {
	svc, store := newAuthService(mockauth.NewMockAuthProvider(), 0)
	ctx := context.Background()

	begin, err := svc.BeginLogin(ctx, "/")
	require.NoError(t, err)
	assert.NotEmpty(t, begin.AuthURL)
	assert.NotEmpty(t, begin.State)
	assert.NotEmpty(t, begin.Nonce)

	result, err := svc.CompleteLogin(ctx, CompleteLoginInput{
		Code:  "dev",
		State: begin.State,
		Nonce: begin.Nonce,
	})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAgent, result.Session.Role)
	assert.Equal(t, "agent-1", result.Session.UserID)

	got, err := svc.GetSession(ctx, result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Session.UserID, got.UserID)

	require.NoError(t, svc.Logout(ctx, result.Session.ID))
	_, err = store.Get(ctx, result.Session.ID)
	assert.ErrorIs(t, err, mockauth.ErrNotFound)
}

func TestSessionTTLCapsProviderExpiry(t *testing.T) {
	provider := mockauth.NewMockAuthProvider()
	provider.ExchangeFunc = func(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
		return domainauth.Identity{
			UserID:    "boss",
			Groups:    []string{"admins"},
			ExpiresAt: time.Now().Add(72 * time.Hour),
		}, nil
	}
	svc, _ := newAuthService(provider, time.Hour)

	result, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, result.Session.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.Session.ExpiresAt, time.Minute)
}

func TestGetSessionRemovesExpired(t *testing.T) {
	svc, store := newAuthService(mockauth.NewMockAuthProvider(), 0)
	ctx := context.Background()

	stale := domainauth.Session{
		ID:        "stale",
		UserID:    "agent-1",
		Role:      domainauth.RoleAgent,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, store.Save(ctx, stale))

	_, err := svc.GetSession(ctx, "stale")
	require.Error(t, err)
	_, err = store.Get(ctx, "stale")
	assert.ErrorIs(t, err, mockauth.ErrNotFound)
}

func TestCompleteLoginValidatesInput(t *testing.T) {
	svc, _ := newAuthService(mockauth.NewMockAuthProvider(), 0)

	_, err := svc.CompleteLogin(context.Background(), CompleteLoginInput{State: "s", Nonce: "n"})
	assert.Error(t, err)
	_, err = svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", Nonce: "n"})
	assert.Error(t, err)
	_, err = svc.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s"})
	assert.Error(t, err)
}
