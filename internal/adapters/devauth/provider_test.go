package devauth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/rentd/internal/ports"
)

func TestProviderRequiresIdentity(t *testing.T) {
	_, err := NewProvider(Config{Email: "dev@example.com"})
	assert.Error(t, err)

	_, err = NewProvider(Config{UserID: "dev"})
	assert.Error(t, err)
}

func TestProviderBeginAndExchange(t *testing.T) {
	p, err := NewProvider(Config{UserID: "dev", Email: "dev@example.com", Groups: []string{"admins"}})
	require.NoError(t, err)

	authURL, state, nonce, err := p.Begin(context.Background(), ports.BeginInput{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(authURL, "/auth/callback?code=dev&state="))
	assert.Len(t, state, 24)
	assert.Len(t, nonce, 24)
	assert.NotEqual(t, state, nonce)

	identity, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "dev", State: state, Nonce: nonce})
	require.NoError(t, err)
	assert.Equal(t, "dev", identity.UserID)
	assert.Equal(t, []string{"admins"}, identity.Groups)
	assert.False(t, identity.ExpiresAt.IsZero())
}
