package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/andinasec/login-global/activation"
	activationrepofake "github.com/andinasec/login-global/activation/repofake"
	"github.com/andinasec/login-global/audit"
	"github.com/andinasec/login-global/auth"
	sessionrepofakes "github.com/andinasec/login-global/auth/sessions/repofakes"
	"github.com/andinasec/login-global/internal/config"
	"github.com/andinasec/login-global/internal/obs"
	"github.com/andinasec/login-global/mfa"
	mfarepofake "github.com/andinasec/login-global/mfa/repofake"
	"github.com/andinasec/login-global/roles"
	rolerepofake "github.com/andinasec/login-global/roles/repofake"
	"github.com/andinasec/login-global/server"
	"github.com/andinasec/login-global/token"
	"github.com/andinasec/login-global/token/keys"
	refreshrepofake "github.com/andinasec/login-global/token/refresh/repofake"
	"github.com/andinasec/login-global/users"
	userrepofake "github.com/andinasec/login-global/users/repofake"

	"github.com/rs/zerolog"
)

const (
	userEmail    = "jane.doe@example.com"
	adminEmail   = "admin@example.com"
	testPassword = "Str0ngPass"
)

type testConfig struct {
	config.EnvVars
	config.Security
	rateLimit bool
}

func (c testConfig) GetEnableRateLimiting() bool { return c.rateLimit }

type capturingDelivery struct {
	codes []string
}

func (d *capturingDelivery) SendMFACode(_ context.Context, _, code string) bool {
	d.codes = append(d.codes, code)
	return true
}

type capturingNotifier struct {
	activationTokens []string
}

func (n *capturingNotifier) SendWelcome(_ context.Context, _, _, token string) bool {
	n.activationTokens = append(n.activationTokens, token)
	return true
}

func (n *capturingNotifier) SendActivationConfirmation(context.Context, string, string) bool {
	return true
}

type testFixture struct {
	server   *server.Server
	issuer   *token.Issuer
	delivery *capturingDelivery
	notifier *capturingNotifier
	userRepo *userrepofake.FakeUserRepo
	user     *users.User
	admin    *users.User
}

func setupTestFixture(t *testing.T, rateLimited bool) *testFixture {
	t.Helper()
	ctx := context.Background()

	keyPair, err := keys.GenerateRSAKeyPair("test-key", 2048)
	require.NoError(t, err)

	f := &testFixture{
		delivery: &capturingDelivery{},
		notifier: &capturingNotifier{},
		userRepo: userrepofake.NewFakeUserRepo(),
	}

	sessionRepo := sessionrepofakes.NewFakeSessionRepo()
	codeRepo := mfarepofake.NewFakeCodeRepo()
	activationRepo := activationrepofake.NewFakeTokenRepo()
	refreshRepo := refreshrepofake.NewFakeRefreshRepo()
	roleRepo := rolerepofake.NewFakeRoleRepo()

	auditor := audit.NopRecorder{}
	revoker := &auth.MemoryRevoker{Sessions: sessionRepo, Refresh: refreshRepo}
	activationManager := activation.NewManager(activationRepo)
	mfaManager := mfa.NewManager(codeRepo, sessionRepo, f.delivery)
	f.issuer = token.NewIssuer(keys.NewKeyPairSigner(keyPair), refreshRepo, f.userRepo, roleRepo)

	roleService := roles.NewService(roleRepo, f.userRepo, auditor)
	userService := users.NewService(f.userRepo, activationManager, f.notifier, revoker, auditor)
	authService := auth.NewService(f.userRepo, sessionRepo, mfaManager, f.issuer, revoker, auditor)

	require.NoError(t, roleService.Seed(ctx))

	hash, err := users.HashPassword(testPassword)
	require.NoError(t, err)
	f.user = &users.User{ID: uuid.NewString(), Email: userEmail, PasswordHash: hash, Status: users.StatusActive}
	f.admin = &users.User{ID: uuid.NewString(), Email: adminEmail, PasswordHash: hash, Status: users.StatusActive}
	require.NoError(t, f.userRepo.Create(ctx, f.user))
	require.NoError(t, f.userRepo.Create(ctx, f.admin))
	require.NoError(t, roleService.Assign(ctx, f.admin.ID, roles.SystemAdmin))

	f.server = server.New(
		testConfig{rateLimit: rateLimited},
		zerolog.Nop(),
		server.Services{
			Auth:       authService,
			Users:      userService,
			Roles:      roleService,
			Issuer:     f.issuer,
			SigningKey: keyPair,
			Cleanup: server.Cleanup{
				Sessions:    authService.CleanExpiredSessions,
				MFACodes:    mfaManager.CleanupExpired,
				Activations: activationManager.CleanupExpired,
				Refresh:     f.issuer.CleanupExpired,
			},
		},
		obs.NewMetrics(),
		nil,
	)
	return f
}

func (f *testFixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	recorder := httptest.NewRecorder()
	f.server.ServeHTTP(recorder, req)
	return recorder
}

func (f *testFixture) bearerFor(t *testing.T, user *users.User) string {
	t.Helper()

	pair, err := f.issuer.Issue(context.Background(), user)
	require.NoError(t, err)
	return pair.AccessToken
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestLoginFlowOverHTTP(t *testing.T) {
	f := setupTestFixture(t, false)

	resp := f.do(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": userEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, resp.Code)
	sessionID := decodeBody(t, resp)["session_id"].(string)
	require.NotEmpty(t, sessionID)
	require.Len(t, f.delivery.codes, 1)

	resp = f.do(t, http.MethodPost, "/auth/mfa/verify", "",
		map[string]string{"session_id": sessionID, "code": f.delivery.codes[0]})
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	require.NotEmpty(t, body["access_token"])
	require.NotEmpty(t, body["refresh_token"])
	require.Equal(t, userEmail, body["user"].(map[string]any)["email"])

	resp = f.do(t, http.MethodGet, "/sessions", body["access_token"].(string), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, decodeBody(t, resp)["sessions"], 1)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := setupTestFixture(t, false)

	resp := f.do(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": userEmail, "password": "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, "invalid credentials", decodeBody(t, resp)["error"])
}

func TestLoginThrottledPerIP(t *testing.T) {
	f := setupTestFixture(t, true)

	for i := 0; i < 5; i++ {
		resp := f.do(t, http.MethodPost, "/auth/login", "",
			map[string]string{"email": userEmail, "password": "wrong-password"})
		require.Equal(t, http.StatusUnauthorized, resp.Code, "attempt %d", i+1)
	}

	resp := f.do(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": userEmail, "password": testPassword})
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	f := setupTestFixture(t, false)
	ctx := context.Background()

	pair, err := f.issuer.Issue(ctx, f.user)
	require.NoError(t, err)

	resp := f.do(t, http.MethodPost, "/auth/refresh", "",
		map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotEmpty(t, decodeBody(t, resp)["access_token"])

	resp = f.do(t, http.MethodPost, "/auth/refresh", "",
		map[string]string{"refresh_token": uuid.NewString()})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestListUsersClampsNegativePaging(t *testing.T) {
	f := setupTestFixture(t, false)

	adminToken := f.bearerFor(t, f.admin)
	resp := f.do(t, http.MethodGet, "/users?offset=-3&limit=-1", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, decodeBody(t, resp)["users"], 2)
}

func TestPublicKeyEndpoint(t *testing.T) {
	f := setupTestFixture(t, false)

	resp := f.do(t, http.MethodGet, "/auth/public-key", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	body := decodeBody(t, resp)
	require.Equal(t, "test-key", body["key_id"])
	require.Equal(t, "RS256", body["algorithm"])
	require.Contains(t, body["public_key"], "BEGIN PUBLIC KEY")
}

func TestBearerRequired(t *testing.T) {
	f := setupTestFixture(t, false)

	resp := f.do(t, http.MethodGet, "/sessions", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.do(t, http.MethodGet, "/sessions", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAdminEndpointsRequireSystemAdmin(t *testing.T) {
	f := setupTestFixture(t, false)

	userToken := f.bearerFor(t, f.user)
	adminToken := f.bearerFor(t, f.admin)

	resp := f.do(t, http.MethodPost, "/users", userToken,
		users.NewUser{Email: "new.hire@example.com"})
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, http.MethodPost, "/users", adminToken,
		users.NewUser{Email: "new.hire@example.com"})
	require.Equal(t, http.StatusCreated, resp.Code)
}

func TestOnboardingOverHTTP(t *testing.T) {
	f := setupTestFixture(t, false)

	adminToken := f.bearerFor(t, f.admin)
	resp := f.do(t, http.MethodPost, "/users", adminToken,
		users.NewUser{Email: "new.hire@example.com", FirstName: "New"})
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Len(t, f.notifier.activationTokens, 1)

	resp = f.do(t, http.MethodPost, "/users/activate", "",
		map[string]string{"token": f.notifier.activationTokens[0], "password": testPassword})
	require.Equal(t, http.StatusOK, resp.Code)

	// the activated account can start a login
	resp = f.do(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": "new.hire@example.com", "password": testPassword})
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestDisableCascadesOverHTTP(t *testing.T) {
	f := setupTestFixture(t, false)
	ctx := context.Background()

	pair, err := f.issuer.Issue(ctx, f.user)
	require.NoError(t, err)

	adminToken := f.bearerFor(t, f.admin)
	resp := f.do(t, http.MethodPost, fmt.Sprintf("/users/%s/disable", f.user.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodPost, "/auth/refresh", "",
		map[string]string{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.do(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": userEmail, "password": testPassword})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRoleAssignmentOverHTTP(t *testing.T) {
	f := setupTestFixture(t, false)

	adminToken := f.bearerFor(t, f.admin)
	resp := f.do(t, http.MethodPost, "/roles/assign", adminToken,
		map[string]string{"user_id": f.user.ID, "role_code": "AUTHORIZER"})
	require.Equal(t, http.StatusOK, resp.Code)

	// second SYSTEM_ADMIN is a policy violation
	resp = f.do(t, http.MethodPost, "/roles/assign", adminToken,
		map[string]string{"user_id": f.user.ID, "role_code": roles.SystemAdmin})
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCleanupEndpoint(t *testing.T) {
	f := setupTestFixture(t, false)

	adminToken := f.bearerFor(t, f.admin)
	resp := f.do(t, http.MethodPost, "/maintenance/cleanup", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, decodeBody(t, resp)["deleted"], "sessions")

	userToken := f.bearerFor(t, f.user)
	resp = f.do(t, http.MethodPost, "/maintenance/cleanup", userToken, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestHealthz(t *testing.T) {
	f := setupTestFixture(t, false)

	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestMetricsExposed(t *testing.T) {
	f := setupTestFixture(t, false)

	f.do(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": userEmail, "password": testPassword})

	resp := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "login_attempts_total")
}
