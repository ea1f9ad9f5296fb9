package auth_test

import (
	"context"
	"testing"

	auth "github.com/goliatone/go-authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestSessionBrokerNilUser(t *testing.T) {
	repo := setupRepoManager(t)
	broker := auth.NewSessionBroker(repo, testConfig{})

	_, err := broker.Exchange(context.Background(), nil, auth.ProviderCredentials)
	assert.Equal(t, auth.ErrInvalidCredentials, err)
}

func TestSessionBrokerRequiresVerifiedEmail(t *testing.T) {
	repo := setupRepoManager(t)
	broker := auth.NewSessionBroker(repo, testConfig{})

	user := createUser(t, repo, "ann@example.com", "password123")

	for _, provider := range []string{auth.ProviderCredentials, "google"} {
		_, err := broker.Exchange(context.Background(), user, provider)
		assert.Equal(t, auth.ErrEmailNotVerified, err, provider)
	}
}

func TestSessionBrokerTwoFactorRequiresConfirmation(t *testing.T) {
	repo := setupRepoManager(t)
	broker := auth.NewSessionBroker(repo, testConfig{})

	user := createUser(t, repo, "ann@example.com", "password123", withVerifiedEmail(), withTwoFactor())

	_, err := broker.Exchange(context.Background(), user, auth.ProviderCredentials)
	assert.Equal(t, auth.ErrTwoFactorRequired, err)
}

func TestSessionBrokerConsumesConfirmation(t *testing.T) {
	repo := setupRepoManager(t)
	broker := auth.NewSessionBroker(repo, testConfig{})
	ctx := context.Background()

	user := createUser(t, repo, "ann@example.com", "password123", withVerifiedEmail(), withTwoFactor())

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.TwoFactorConfirmations().CreateTx(ctx, tx, &auth.TwoFactorConfirmation{
			UserID: user.ID,
		})
		return err
	})
	require.NoError(t, err)

	result, err := broker.Exchange(ctx, user, auth.ProviderCredentials)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, auth.DefaultRedirectAfterSignIn, result.Redirect)

	_, err = repo.TwoFactorConfirmations().GetByUserID(ctx, user.ID)
	assert.Error(t, err, "confirmation is single use")

	// a second exchange must hit the gate again
	_, err = broker.Exchange(ctx, user, auth.ProviderCredentials)
	assert.Equal(t, auth.ErrTwoFactorRequired, err)
}

func TestSessionBrokerSkipsTwoFactorForExternalProviders(t *testing.T) {
	repo := setupRepoManager(t)
	broker := auth.NewSessionBroker(repo, testConfig{})

	user := createUser(t, repo, "ann@example.com", "password123", withVerifiedEmail(), withTwoFactor())

	result, err := broker.Exchange(context.Background(), user, "google")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestSessionBrokerTokenRoundTrip(t *testing.T) {
	repo := setupRepoManager(t)
	cfg := testConfig{}
	broker := auth.NewSessionBroker(repo, cfg)

	user := createUser(t, repo, "ann@example.com", "password123", withVerifiedEmail())

	result, err := broker.Exchange(context.Background(), user, auth.ProviderCredentials)
	require.NoError(t, err)

	tokens := auth.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		nil,
	)

	session, err := auth.SessionFromToken(tokens, result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), session.GetUserID())
	assert.Equal(t, user.Email, session.GetEmail())
	assert.Equal(t, auth.RoleUser, session.GetRole())
}
