// Package token issues the credentials handed out after a completed login:
// a short-lived RS256 access token carrying the caller's identity and
// entitlements, and a long-lived opaque refresh token backed by server-side
// state. Refreshing mints a new access token only; the refresh token itself
// is never rotated, so revocation is the sole way to end its life early.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/token/keys"
	"github.com/andinasec/login-global/token/refresh"
	"github.com/andinasec/login-global/users"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	// ErrInvalidRefreshToken covers unknown, revoked and expired refresh
	// tokens alike; callers get no hint which.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrAccountDisabled is returned when the token's owner is no longer
	// an active account.
	ErrAccountDisabled = errors.New("account disabled")

	ErrInvalidAccessToken = errors.New("invalid access token")
)

// RoleSource resolves the role codes held by a user at issue time.
type RoleSource interface {
	CodesForUser(ctx context.Context, userID string) ([]string, error)
}

// Pair is the credential set returned after a fully verified login.
type Pair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Roles        []string `json:"roles"`
	Systems      []string `json:"systems"`
}

// Claims is the decoded payload of a verified access token.
type Claims struct {
	UserID  string
	Email   string
	Roles   []string
	Systems []string
}

// Issuer mints and verifies access tokens and manages refresh tokens.
type Issuer struct {
	signer      keys.Signer
	refreshRepo refresh.Repo
	userRepo    users.Repo
	roles       RoleSource
	nowFunc     func() time.Time
}

type IssuerOption func(*Issuer)

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func NewIssuer(signer keys.Signer, refreshRepo refresh.Repo, userRepo users.Repo, roles RoleSource, options ...IssuerOption) *Issuer {
	i := &Issuer{
		signer:      signer,
		refreshRepo: refreshRepo,
		userRepo:    userRepo,
		roles:       roles,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Issue mints a fresh access/refresh pair for a user who just completed the
// second login factor. Roles and systems are resolved here, once, and baked
// into the access token; later grants take effect on the next refresh.
func (i *Issuer) Issue(ctx context.Context, user *users.User) (*Pair, error) {
	roles, systems, err := i.entitlements(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Issuer.Issue] entitlements")
	}

	accessToken, err := i.signAccessToken(user, roles, systems)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Issuer.Issue] signAccessToken")
	}

	now := i.nowFunc()
	refreshToken := uuid.NewString()
	if err := i.refreshRepo.Create(ctx, &refresh.StoredRefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     refreshToken,
		CreatedAt: now,
		ExpiresAt: now.Add(RefreshTokenTTL),
	}); err != nil {
		return nil, pkgerrors.Wrap(err, "[Issuer.Issue] refreshRepo.Create")
	}

	return &Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Roles:        roles,
		Systems:      systems,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token is returned untouched: no rotation, same expiry. Entitlements are
// re-resolved so role changes since login are picked up.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	record, err := i.refreshRepo.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", pkgerrors.Wrap(err, "[Issuer.Refresh] refreshRepo.Get")
	}
	if record.Revoked || !record.ExpiresAt.After(i.nowFunc()) {
		return "", ErrInvalidRefreshToken
	}

	user, err := i.userRepo.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", pkgerrors.Wrap(err, "[Issuer.Refresh] userRepo.GetByID")
	}
	if !user.IsActive() {
		return "", ErrAccountDisabled
	}

	roles, systems, err := i.entitlements(ctx, user.ID)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[Issuer.Refresh] entitlements")
	}

	accessToken, err := i.signAccessToken(user, roles, systems)
	if err != nil {
		return "", pkgerrors.Wrap(err, "[Issuer.Refresh] signAccessToken")
	}
	return accessToken, nil
}

// Revoke invalidates every refresh token the user holds.
func (i *Issuer) Revoke(ctx context.Context, userID string) (int64, error) {
	return i.refreshRepo.RevokeByUser(ctx, userID)
}

// Verify parses and validates a raw access token and returns its claims.
func (i *Issuer) Verify(rawToken string) (*Claims, error) {
	parsed, err := jwt.Parse(rawToken, i.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(i.nowFunc),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidAccessToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidAccessToken
	}

	sub, _ := mapClaims["sub"].(string)
	email, _ := mapClaims["email"].(string)
	if sub == "" {
		return nil, ErrInvalidAccessToken
	}

	return &Claims{
		UserID:  sub,
		Email:   email,
		Roles:   stringSlice(mapClaims["roles"]),
		Systems: stringSlice(mapClaims["systems"]),
	}, nil
}

// CleanupExpired sweeps expired refresh tokens. Revoked-but-unexpired rows
// are kept so a replayed token still reads as revoked, not unknown.
func (i *Issuer) CleanupExpired(ctx context.Context) (int64, error) {
	return i.refreshRepo.DeleteExpired(ctx, i.nowFunc())
}

func (i *Issuer) entitlements(ctx context.Context, userID string) ([]string, []string, error) {
	roles, err := i.roles.CodesForUser(ctx, userID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "roles.CodesForUser")
	}
	systems, err := i.userRepo.SystemCodes(ctx, userID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "userRepo.SystemCodes")
	}
	if roles == nil {
		roles = []string{}
	}
	if systems == nil {
		systems = []string{}
	}
	return roles, systems, nil
}

func (i *Issuer) signAccessToken(user *users.User, roles, systems []string) (string, error) {
	now := i.nowFunc()
	return i.signer.Sign(jwt.MapClaims{
		"sub":     user.ID,
		"email":   user.Email,
		"roles":   roles,
		"systems": systems,
		"iat":     now.Unix(),
		"exp":     now.Add(AccessTokenTTL).Unix(),
	})
}

// stringSlice coerces a decoded JSON claim ([]any of strings) back into a
// string slice.
func stringSlice(claim any) []string {
	raw, ok := claim.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
