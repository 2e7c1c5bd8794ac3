package users_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/andinasec/login-global/activation"
	activationrepofake "github.com/andinasec/login-global/activation/repofake"
	"github.com/andinasec/login-global/audit"
	"github.com/andinasec/login-global/users"
	userrepofake "github.com/andinasec/login-global/users/repofake"
)

type capturingNotifier struct {
	welcomeTokens []string
	confirmations []string
}

func (n *capturingNotifier) SendWelcome(_ context.Context, to, _, token string) bool {
	n.welcomeTokens = append(n.welcomeTokens, token)
	return true
}

func (n *capturingNotifier) SendActivationConfirmation(_ context.Context, to, _ string) bool {
	n.confirmations = append(n.confirmations, to)
	return true
}

type recordingRevoker struct {
	revoked []string
}

func (r *recordingRevoker) RevokeUser(_ context.Context, userID string) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

type testFixture struct {
	service  *users.Service
	repo     *userrepofake.FakeUserRepo
	notifier *capturingNotifier
	revoker  *recordingRevoker
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo:     userrepofake.NewFakeUserRepo(),
		notifier: &capturingNotifier{},
		revoker:  &recordingRevoker{},
	}
	f.service = users.NewService(
		f.repo,
		activation.NewManager(activationrepofake.NewFakeTokenRepo()),
		f.notifier,
		f.revoker,
		audit.NopRecorder{},
	)
	return f
}

func TestCreateStartsPendingWithActivationMail(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	user, err := f.service.Create(ctx, users.NewUser{
		Email:     "new.hire@example.com",
		FirstName: "New",
		LastName:  "Hire",
	})
	require.NoError(t, err)
	require.Equal(t, users.StatusPendingActivation, user.Status)
	require.NotEmpty(t, user.PasswordHash)
	require.Len(t, f.notifier.welcomeTokens, 1)

	stored, err := f.repo.GetByEmail(ctx, "new.hire@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, stored.ID)
}

func TestCreateDuplicateEmail(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, users.NewUser{Email: "dup@example.com"})
	require.NoError(t, err)

	_, err = f.service.Create(ctx, users.NewUser{Email: "dup@example.com"})
	require.ErrorIs(t, err, users.ErrEmailTaken)
}

func TestActivateSetsPasswordAndStatus(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	user, err := f.service.Create(ctx, users.NewUser{Email: "new.hire@example.com", FirstName: "New"})
	require.NoError(t, err)

	token := f.notifier.welcomeTokens[0]
	activated, err := f.service.Activate(ctx, token, "Str0ngPass")
	require.NoError(t, err)
	require.Equal(t, users.StatusActive, activated.Status)

	stored, err := f.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, users.StatusActive, stored.Status)
	require.True(t, users.CheckPasswordHash("Str0ngPass", stored.PasswordHash))
	require.Len(t, f.notifier.confirmations, 1)

	// the token is single-use
	_, err = f.service.Activate(ctx, token, "An0therPass")
	require.ErrorIs(t, err, activation.ErrTokenAlreadyUsed)
}

func TestActivateRejectsWeakPassword(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, users.NewUser{Email: "new.hire@example.com"})
	require.NoError(t, err)

	_, err = f.service.Activate(ctx, f.notifier.welcomeTokens[0], "weak")
	require.Error(t, err)

	// a rejected password must not consume the token
	_, err = f.service.Activate(ctx, f.notifier.welcomeTokens[0], "Str0ngPass")
	require.NoError(t, err)
}

func TestActivateUnknownToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Activate(context.Background(), "deadbeef", "Str0ngPass")
	require.ErrorIs(t, err, activation.ErrTokenNotFound)
}

func TestDisableRevokesCredentials(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	user, err := f.service.Create(ctx, users.NewUser{Email: "victim@example.com"})
	require.NoError(t, err)

	require.NoError(t, f.service.Disable(ctx, user.ID))
	require.Equal(t, []string{user.ID}, f.revoker.revoked)

	stored, err := f.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, users.StatusDisabled, stored.Status)

	// terminal: a second disable is rejected
	require.ErrorIs(t, f.service.Disable(ctx, user.ID), users.ErrWrongStatus)
}

func TestDisableUnknownUser(t *testing.T) {
	f := setupTestFixture(t)

	err := f.service.Disable(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, users.ErrNotFound)
}
