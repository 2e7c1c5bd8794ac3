// Package auth orchestrates the two-step login flow: credentials open a
// pending session and trigger an MFA code; verifying the code activates the
// session and mints tokens. Everything else in the flow (logout, global
// logout, refresh) hangs off the collaborators wired in here.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/audit"
	"github.com/andinasec/login-global/auth/sessions"
	"github.com/andinasec/login-global/mfa"
	"github.com/andinasec/login-global/token"
	"github.com/andinasec/login-global/users"
)

// RequestMeta carries per-request client attributes into the audit trail and
// session records.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// LoginResult is the response to a successful first factor: a pending
// session awaiting MFA verification.
type LoginResult struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// VerifiedUser is the account summary returned alongside a fresh token pair.
type VerifiedUser struct {
	ID      string   `json:"id"`
	Email   string   `json:"email"`
	Roles   []string `json:"roles"`
	Systems []string `json:"systems"`
}

// VerifyResult is the response to a completed login.
type VerifyResult struct {
	SessionID    string       `json:"session_id"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         VerifiedUser `json:"user"`
}

// Service drives the session lifecycle.
type Service struct {
	userRepo    users.Repo
	sessionRepo sessions.Repo
	mfaManager  *mfa.Manager
	issuer      *token.Issuer
	revoker     Revoker
	auditor     audit.Recorder
	nowFunc     func() time.Time
}

type ServiceOption func(*Service)

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func NewService(
	userRepo users.Repo,
	sessionRepo sessions.Repo,
	mfaManager *mfa.Manager,
	issuer *token.Issuer,
	revoker Revoker,
	auditor audit.Recorder,
	options ...ServiceOption,
) *Service {
	s := &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		mfaManager:  mfaManager,
		issuer:      issuer,
		revoker:     revoker,
		auditor:     auditor,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Login checks credentials and, on success, opens a pending session and
// issues an MFA code. Every failure mode returns ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.auditor.Record(ctx, audit.Event{
				Action:      audit.ActionLoginFailed,
				Description: "login failed: unknown email",
				IP:          meta.IP,
			})
			return nil, ErrInvalidCredentials
		}
		return nil, pkgerrors.Wrap(err, "[Service.Login] userRepo.GetByEmail")
	}

	// Password is always checked, even for accounts that cannot log in, so
	// the response time does not reveal account status.
	passwordOK := users.CheckPasswordHash(password, user.PasswordHash)
	if !passwordOK || !user.IsActive() {
		s.auditor.Record(ctx, audit.Event{
			UserID:      user.ID,
			Action:      audit.ActionLoginFailed,
			Description: "login failed",
			IP:          meta.IP,
		})
		return nil, ErrInvalidCredentials
	}

	now := s.nowFunc()
	session := &sessions.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Active:    false,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(sessions.PendingTTL),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Login] sessionRepo.Create")
	}

	if err := s.mfaManager.Issue(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Login] mfaManager.Issue")
	}

	s.auditor.Record(ctx, audit.Event{
		UserID:      user.ID,
		Action:      audit.ActionLoginPendingMFA,
		Description: "credentials accepted, mfa code sent",
		IP:          meta.IP,
	})

	return &LoginResult{
		SessionID: session.ID,
		Message:   "verification code sent",
	}, nil
}

// VerifyMFA consumes a code, activates the pending session and mints the
// token pair.
func (s *Service) VerifyMFA(ctx context.Context, sessionID, code string, meta RequestMeta) (*VerifyResult, error) {
	userID, err := s.mfaManager.Verify(ctx, sessionID, code)
	if err != nil {
		if errors.Is(err, mfa.ErrInvalidCode) {
			s.auditor.Record(ctx, audit.Event{
				Action:      audit.ActionMFAFailed,
				Description: "mfa verification failed",
				IP:          meta.IP,
			})
		}
		return nil, err
	}

	if err := s.sessionRepo.Activate(ctx, sessionID, s.nowFunc().Add(sessions.ActiveTTL)); err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.VerifyMFA] sessionRepo.Activate")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.VerifyMFA] userRepo.GetByID")
	}

	pair, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.VerifyMFA] issuer.Issue")
	}

	s.auditor.Record(ctx, audit.Event{
		UserID:      userID,
		Action:      audit.ActionMFAVerified,
		Description: "mfa verified, session active",
		IP:          meta.IP,
	})
	s.auditor.Record(ctx, audit.Event{
		UserID:      userID,
		Action:      audit.ActionLoginSuccess,
		Description: "login complete",
		IP:          meta.IP,
	})

	return &VerifyResult{
		SessionID:    sessionID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User: VerifiedUser{
			ID:      user.ID,
			Email:   user.Email,
			Roles:   pair.Roles,
			Systems: pair.Systems,
		},
	}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (string, error) {
	accessToken, err := s.issuer.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	s.auditor.Record(ctx, audit.Event{
		Action:      audit.ActionTokenRefreshed,
		Description: "access token refreshed",
		IP:          meta.IP,
	})
	return accessToken, nil
}

// Logout deactivates one session. The update is scoped to the calling user,
// so a session ID belonging to someone else matches nothing and the call
// still succeeds.
func (s *Service) Logout(ctx context.Context, sessionID, userID string, meta RequestMeta) error {
	if err := s.sessionRepo.Deactivate(ctx, sessionID, userID); err != nil {
		return pkgerrors.Wrap(err, "[Service.Logout] sessionRepo.Deactivate")
	}
	s.auditor.Record(ctx, audit.Event{
		UserID:      userID,
		Action:      audit.ActionLogout,
		Description: "session terminated",
		IP:          meta.IP,
	})
	return nil
}

// LogoutAll terminates every session and refresh token the user holds.
func (s *Service) LogoutAll(ctx context.Context, userID string, meta RequestMeta) error {
	if err := s.revoker.RevokeUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(err, "[Service.LogoutAll] revoker.RevokeUser")
	}
	s.auditor.Record(ctx, audit.Event{
		UserID:      userID,
		Action:      audit.ActionLogoutGlobal,
		Description: "all sessions terminated",
		IP:          meta.IP,
	})
	return nil
}

// ActiveSessions lists the user's live sessions, most recent first.
func (s *Service) ActiveSessions(ctx context.Context, userID string) ([]*sessions.Session, error) {
	return s.sessionRepo.ActiveByUser(ctx, userID)
}

// CleanExpiredSessions sweeps expired session rows.
func (s *Service) CleanExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, s.nowFunc())
}
