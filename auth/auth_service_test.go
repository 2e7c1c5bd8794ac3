package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/andinasec/login-global/audit"
	"github.com/andinasec/login-global/auth"
	"github.com/andinasec/login-global/auth/sessions"
	sessionrepofakes "github.com/andinasec/login-global/auth/sessions/repofakes"
	"github.com/andinasec/login-global/mfa"
	mfarepofake "github.com/andinasec/login-global/mfa/repofake"
	"github.com/andinasec/login-global/token"
	"github.com/andinasec/login-global/token/keys"
	refreshrepofake "github.com/andinasec/login-global/token/refresh/repofake"
	"github.com/andinasec/login-global/users"
	userrepofake "github.com/andinasec/login-global/users/repofake"
)

const (
	testEmail    = "jane.doe@example.com"
	testPassword = "Str0ngPass"
)

var testMeta = auth.RequestMeta{IP: "203.0.113.10", UserAgent: "go-test"}

type capturingDelivery struct {
	codes []string
}

func (d *capturingDelivery) SendMFACode(_ context.Context, _, code string) bool {
	d.codes = append(d.codes, code)
	return true
}

func (d *capturingDelivery) lastCode() string {
	return d.codes[len(d.codes)-1]
}

type staticRoleSource map[string][]string

func (s staticRoleSource) CodesForUser(_ context.Context, userID string) ([]string, error) {
	return s[userID], nil
}

type testFixture struct {
	service     *auth.Service
	issuer      *token.Issuer
	userRepo    *userrepofake.FakeUserRepo
	sessionRepo *sessionrepofakes.FakeSessionRepo
	codeRepo    *mfarepofake.FakeCodeRepo
	delivery    *capturingDelivery
	roleSource  staticRoleSource
	user        *users.User
	now         time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	keyPair, err := keys.GenerateRSAKeyPair("test-key", 2048)
	require.NoError(t, err)

	f := &testFixture{
		userRepo:    userrepofake.NewFakeUserRepo(),
		sessionRepo: sessionrepofakes.NewFakeSessionRepo(),
		codeRepo:    mfarepofake.NewFakeCodeRepo(),
		delivery:    &capturingDelivery{},
		roleSource:  staticRoleSource{},
		now:         time.Now(),
	}
	nowFunc := func() time.Time { return f.now }

	hash, err := users.HashPassword(testPassword)
	require.NoError(t, err)
	f.user = &users.User{
		ID:           uuid.NewString(),
		Email:        testEmail,
		PasswordHash: hash,
		Status:       users.StatusActive,
	}
	require.NoError(t, f.userRepo.Create(context.Background(), f.user))
	f.roleSource[f.user.ID] = []string{"REQUESTOR"}

	refreshRepo := refreshrepofake.NewFakeRefreshRepo()
	f.issuer = token.NewIssuer(
		keys.NewKeyPairSigner(keyPair),
		refreshRepo,
		f.userRepo,
		f.roleSource,
		token.WithNowFunc(nowFunc),
	)

	f.service = auth.NewService(
		f.userRepo,
		f.sessionRepo,
		mfa.NewManager(f.codeRepo, f.sessionRepo, f.delivery, mfa.WithNowFunc(nowFunc)),
		f.issuer,
		&auth.MemoryRevoker{Sessions: f.sessionRepo, Refresh: refreshRepo},
		audit.NopRecorder{},
		auth.WithNowFunc(nowFunc),
	)
	return f
}

// login runs the first factor and returns the pending session ID.
func (f *testFixture) login(t *testing.T) string {
	t.Helper()

	result, err := f.service.Login(context.Background(), testEmail, testPassword, testMeta)
	require.NoError(t, err)
	require.NotEmpty(t, result.SessionID)
	return result.SessionID
}

func TestFullLoginFlow(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	sessionID := f.login(t)

	// first factor opens a pending, inactive session
	session, err := f.sessionRepo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.False(t, session.Active)
	require.Equal(t, testMeta.IP, session.IPAddress)
	require.WithinDuration(t, f.now.Add(sessions.PendingTTL), session.ExpiresAt, time.Second)

	// second factor activates it and mints tokens
	result, err := f.service.VerifyMFA(ctx, sessionID, f.delivery.lastCode(), testMeta)
	require.NoError(t, err)
	require.Equal(t, sessionID, result.SessionID)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, f.user.ID, result.User.ID)
	require.Equal(t, testEmail, result.User.Email)

	session, err = f.sessionRepo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, session.Active)
	require.WithinDuration(t, f.now.Add(sessions.ActiveTTL), session.ExpiresAt, time.Second)

	claims, err := f.issuer.Verify(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, f.user.ID, claims.UserID)
	require.Equal(t, testEmail, claims.Email)
	require.Equal(t, []string{"REQUESTOR"}, claims.Roles)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), "nobody@example.com", testPassword, testMeta)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginWrongPassword(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), testEmail, "wrong-password", testMeta)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	require.Empty(t, f.delivery.codes)
}

func TestLoginRejectsNonActiveAccountsIdentically(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	for _, status := range []users.Status{users.StatusDisabled, users.StatusPendingActivation} {
		require.NoError(t, f.userRepo.SetStatus(ctx, f.user.ID, status))

		_, err := f.service.Login(ctx, testEmail, testPassword, testMeta)
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}
}

func TestVerifyMFAWrongCode(t *testing.T) {
	f := setupTestFixture(t)

	sessionID := f.login(t)
	_, err := f.service.VerifyMFA(context.Background(), sessionID, "000000", testMeta)
	require.ErrorIs(t, err, mfa.ErrInvalidCode)
}

func TestVerifyMFAUnknownSession(t *testing.T) {
	f := setupTestFixture(t)

	f.login(t)
	_, err := f.service.VerifyMFA(context.Background(), uuid.NewString(), f.delivery.lastCode(), testMeta)
	require.ErrorIs(t, err, mfa.ErrInvalidSession)
}

func TestVerifyMFACodeIsSingleUse(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	sessionID := f.login(t)
	code := f.delivery.lastCode()

	_, err := f.service.VerifyMFA(ctx, sessionID, code, testMeta)
	require.NoError(t, err)

	_, err = f.service.VerifyMFA(ctx, sessionID, code, testMeta)
	require.ErrorIs(t, err, mfa.ErrInvalidCode)
}

func TestVerifyMFAExpiredCode(t *testing.T) {
	f := setupTestFixture(t)

	sessionID := f.login(t)
	f.now = f.now.Add(5*time.Minute + time.Second)

	_, err := f.service.VerifyMFA(context.Background(), sessionID, f.delivery.lastCode(), testMeta)
	require.ErrorIs(t, err, mfa.ErrInvalidCode)
}

func TestRefreshAfterLogin(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	sessionID := f.login(t)
	result, err := f.service.VerifyMFA(ctx, sessionID, f.delivery.lastCode(), testMeta)
	require.NoError(t, err)

	accessToken, err := f.service.Refresh(ctx, result.RefreshToken, testMeta)
	require.NoError(t, err)

	claims, err := f.issuer.Verify(accessToken)
	require.NoError(t, err)
	require.Equal(t, f.user.ID, claims.UserID)
}

func TestLogoutDeactivatesOwnSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	sessionID := f.login(t)
	_, err := f.service.VerifyMFA(ctx, sessionID, f.delivery.lastCode(), testMeta)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, sessionID, f.user.ID, testMeta))

	session, err := f.sessionRepo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.False(t, session.Active)
}

func TestLogoutForeignSessionIsNoOp(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	sessionID := f.login(t)
	_, err := f.service.VerifyMFA(ctx, sessionID, f.delivery.lastCode(), testMeta)
	require.NoError(t, err)

	// another user naming this session ID must not terminate it
	require.NoError(t, f.service.Logout(ctx, sessionID, uuid.NewString(), testMeta))

	session, err := f.sessionRepo.Get(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, session.Active)
}

func TestLogoutAllCascades(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	first := f.login(t)
	_, err := f.service.VerifyMFA(ctx, first, f.delivery.lastCode(), testMeta)
	require.NoError(t, err)

	second := f.login(t)
	result, err := f.service.VerifyMFA(ctx, second, f.delivery.lastCode(), testMeta)
	require.NoError(t, err)

	require.NoError(t, f.service.LogoutAll(ctx, f.user.ID, testMeta))

	active, err := f.service.ActiveSessions(ctx, f.user.ID)
	require.NoError(t, err)
	require.Empty(t, active)

	_, err = f.service.Refresh(ctx, result.RefreshToken, testMeta)
	require.ErrorIs(t, err, token.ErrInvalidRefreshToken)
}

func TestActiveSessionsExcludesPending(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	first := f.login(t)
	_, err := f.service.VerifyMFA(ctx, first, f.delivery.lastCode(), testMeta)
	require.NoError(t, err)

	f.login(t) // second session stays pending

	active, err := f.service.ActiveSessions(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, first, active[0].ID)
}

func TestCleanExpiredSessions(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.login(t)
	f.login(t)

	f.now = f.now.Add(sessions.PendingTTL + time.Minute)
	deleted, err := f.service.CleanExpiredSessions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)
}

func TestHasRequiredRoles(t *testing.T) {
	require.True(t, auth.HasRequiredRoles([]string{"REQUESTOR"}, nil))
	require.True(t, auth.HasRequiredRoles([]string{"REQUESTOR", "AUTHORIZER"}, []string{"AUTHORIZER"}))
	require.False(t, auth.HasRequiredRoles([]string{"REQUESTOR"}, []string{"SYSTEM_ADMIN"}))
	require.False(t, auth.HasRequiredRoles(nil, []string{"SYSTEM_ADMIN"}))
}
