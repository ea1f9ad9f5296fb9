package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-authflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPasswordReset(t *testing.T) {
	repo := setupRepoManager(t)
	notifier := &recordingNotifier{}
	handler := auth.NewRequestPasswordResetHandler(repo, auth.NewIssuer(repo), notifier, testConfig{})
	ctx := context.Background()

	createUser(t, repo, "ann@example.com", "password123", withVerifiedEmail())

	var resp *auth.RequestPasswordResetResponse
	err := handler.Execute(ctx, auth.RequestPasswordResetMessage{
		Email: "ann@example.com",
		OnResponse: func(r *auth.RequestPasswordResetResponse) {
			resp = r
		},
	})
	require.NoError(t, err)

	require.NotNil(t, resp)
	assert.True(t, resp.Success)

	token, err := repo.ResetTokens().GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Contains(t, notifier.last(t).Link, "/new-password?token="+token.Token)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	repo := setupRepoManager(t)
	handler := auth.NewRequestPasswordResetHandler(repo, auth.NewIssuer(repo), &recordingNotifier{}, testConfig{})

	err := handler.Execute(context.Background(), auth.RequestPasswordResetMessage{
		Email: "nobody@example.com",
	})
	assert.Equal(t, auth.ErrAccountNotFound, err)
}

func TestPasswordResetRotationScenario(t *testing.T) {
	repo := setupRepoManager(t)
	notifier := &recordingNotifier{}
	request := auth.NewRequestPasswordResetHandler(repo, auth.NewIssuer(repo), notifier, testConfig{})
	finalize := auth.NewFinalizePasswordResetHandler(repo)
	ctx := context.Background()

	createUser(t, repo, "ann@example.com", "password123", withVerifiedEmail())

	require.NoError(t, request.Execute(ctx, auth.RequestPasswordResetMessage{Email: "ann@example.com"}))
	tokenA, err := repo.ResetTokens().GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)

	require.NoError(t, request.Execute(ctx, auth.RequestPasswordResetMessage{Email: "ann@example.com"}))
	tokenB, err := repo.ResetTokens().GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotEqual(t, tokenA.Token, tokenB.Token)

	count, err := repo.ResetTokens().CountByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// the superseded token is dead
	err = finalize.Execute(ctx, auth.FinalizePasswordResetMessage{
		Token:           tokenA.Token,
		Password:        "newpassword1",
		PasswordConfirm: "newpassword1",
	})
	assert.Equal(t, auth.ErrTokenNotFound, err)

	var resp *auth.FinalizePasswordResetResponse
	err = finalize.Execute(ctx, auth.FinalizePasswordResetMessage{
		Token:           tokenB.Token,
		Password:        "newpassword1",
		PasswordConfirm: "newpassword1",
		OnResponse: func(r *auth.FinalizePasswordResetResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)

	user, err := repo.Users().GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePasswordAndHash("newpassword1", user.PasswordHash))
	assert.Error(t, auth.ComparePasswordAndHash("password123", user.PasswordHash))

	count, err = repo.ResetTokens().CountByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Zero(t, count, "consumed token must be deleted")
}

func TestFinalizePasswordResetMismatch(t *testing.T) {
	repo := setupRepoManager(t)
	handler := auth.NewFinalizePasswordResetHandler(repo)

	// the mismatch short-circuits before any token lookup: an unknown
	// token still reports the mismatch, not NotFound
	err := handler.Execute(context.Background(), auth.FinalizePasswordResetMessage{
		Token:           uuid.NewString(),
		Password:        "newpassword1",
		PasswordConfirm: "different1",
	})
	assert.Equal(t, auth.ErrPasswordMismatch, err)
}

func TestFinalizePasswordResetExpiredToken(t *testing.T) {
	repo := setupRepoManager(t)
	handler := auth.NewFinalizePasswordResetHandler(repo)
	ctx := context.Background()

	createUser(t, repo, "ann@example.com", "password123", withVerifiedEmail())

	past := time.Now().Add(-2 * time.Hour)
	issuer := auth.NewIssuer(repo).WithClock(func() time.Time { return past })
	token, err := issuer.IssueResetToken(ctx, "ann@example.com")
	require.NoError(t, err)

	err = handler.Execute(ctx, auth.FinalizePasswordResetMessage{
		Token:           token.Token,
		Password:        "newpassword1",
		PasswordConfirm: "newpassword1",
	})
	assert.Equal(t, auth.ErrTokenExpired, err)

	user, err := repo.Users().GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePasswordAndHash("password123", user.PasswordHash),
		"expired reset must not change the password")
}

func TestFinalizePasswordResetUnknownToken(t *testing.T) {
	repo := setupRepoManager(t)
	handler := auth.NewFinalizePasswordResetHandler(repo)

	err := handler.Execute(context.Background(), auth.FinalizePasswordResetMessage{
		Token:           uuid.NewString(),
		Password:        "newpassword1",
		PasswordConfirm: "newpassword1",
	})
	assert.Equal(t, auth.ErrTokenNotFound, err)
}
