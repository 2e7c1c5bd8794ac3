package activation_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andinasec/login-global/activation"
	activationrepofake "github.com/andinasec/login-global/activation/repofake"
)

const testEmail = "new.hire@example.com"

type testFixture struct {
	repo    *activationrepofake.FakeTokenRepo
	manager *activation.Manager
	now     time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo: activationrepofake.NewFakeTokenRepo(),
		now:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.manager = activation.NewManager(f.repo, activation.WithNowFunc(func() time.Time { return f.now }))
	return f
}

func TestGenerateProducesHexToken(t *testing.T) {
	f := setupTestFixture(t)

	token, err := f.manager.Generate(context.Background(), testEmail)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), token)
}

func TestRoundTrip(t *testing.T) {
	f := setupTestFixture(t)

	token, err := f.manager.Generate(context.Background(), testEmail)
	require.NoError(t, err)

	email, err := f.manager.Validate(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, testEmail, email)

	require.NoError(t, f.manager.MarkUsed(context.Background(), token))

	_, err = f.manager.Validate(context.Background(), token)
	require.ErrorIs(t, err, activation.ErrTokenAlreadyUsed)
}

func TestGenerateInvalidatesPriorToken(t *testing.T) {
	f := setupTestFixture(t)

	first, err := f.manager.Generate(context.Background(), testEmail)
	require.NoError(t, err)
	second, err := f.manager.Generate(context.Background(), testEmail)
	require.NoError(t, err)

	_, err = f.manager.Validate(context.Background(), first)
	require.ErrorIs(t, err, activation.ErrTokenNotFound)

	email, err := f.manager.Validate(context.Background(), second)
	require.NoError(t, err)
	require.Equal(t, testEmail, email)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	f := setupTestFixture(t)

	token, err := f.manager.Generate(context.Background(), testEmail)
	require.NoError(t, err)

	f.now = f.now.Add(24*time.Hour + time.Minute)
	_, err = f.manager.Validate(context.Background(), token)
	require.ErrorIs(t, err, activation.ErrTokenExpired)
}

func TestMarkUsedConsumesTokenOnce(t *testing.T) {
	f := setupTestFixture(t)

	token, err := f.manager.Generate(context.Background(), testEmail)
	require.NoError(t, err)

	require.NoError(t, f.manager.MarkUsed(context.Background(), token))

	// a second consumption matches zero rows
	err = f.manager.MarkUsed(context.Background(), token)
	require.ErrorIs(t, err, activation.ErrTokenNotFound)
}

func TestMarkUsedUnknownToken(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.MarkUsed(context.Background(), "deadbeef")
	require.ErrorIs(t, err, activation.ErrTokenNotFound)
}

func TestCleanupExpiredReportsCount(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.Generate(context.Background(), "a@example.com")
	require.NoError(t, err)
	_, err = f.manager.Generate(context.Background(), "b@example.com")
	require.NoError(t, err)

	f.now = f.now.Add(25 * time.Hour)
	deleted, err := f.manager.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)
}
