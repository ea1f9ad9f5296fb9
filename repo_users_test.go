package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-authflow"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestUsersGetByEmail(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	created := createUser(t, repo, "ann@example.com", "password123")

	found, err := repo.Users().GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.Users().GetByEmail(ctx, "nobody@example.com")
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestUsersCreateAppliesDefaults(t *testing.T) {
	repo := setupRepoManager(t)

	user := createUser(t, repo, "ann@example.com", "password123")
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, auth.RoleUser, user.Role)
}

func TestUsersMarkEmailVerifiedIsMonotonic(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	user := createUser(t, repo, "ann@example.com", "password123")

	first := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Users().MarkEmailVerifiedTx(ctx, tx, user.ID, first)
	})
	require.NoError(t, err)

	// the second stamp finds no unverified row to update
	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Users().MarkEmailVerifiedTx(ctx, tx, user.ID, time.Now())
	})
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))

	reloaded, err := repo.Users().GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, reloaded.EmailVerifiedAt)
	assert.WithinDuration(t, first, *reloaded.EmailVerifiedAt, time.Second)
}

func TestUsersUpdatePassword(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	user := createUser(t, repo, "ann@example.com", "password123")

	hash, err := auth.HashPassword("newpassword1")
	require.NoError(t, err)

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Users().UpdatePasswordTx(ctx, tx, user.ID, hash)
	})
	require.NoError(t, err)

	reloaded, err := repo.Users().GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePasswordAndHash("newpassword1", reloaded.PasswordHash))
}

func TestUsersUpdatePasswordUnknownID(t *testing.T) {
	repo := setupRepoManager(t)

	err := repo.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Users().UpdatePasswordTx(ctx, tx, uuid.New(), "hash")
	})
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestTokenDeleteByIDReportsMissingRow(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	token, err := auth.NewIssuer(repo).IssueVerificationToken(ctx, "ann@example.com")
	require.NoError(t, err)

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.VerificationTokens().DeleteByIDTx(ctx, tx, token.ID)
	})
	require.NoError(t, err)

	// second delete observes the row gone
	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.VerificationTokens().DeleteByIDTx(ctx, tx, token.ID)
	})
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}
