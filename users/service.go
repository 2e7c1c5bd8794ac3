package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/andinasec/login-global/activation"
	"github.com/andinasec/login-global/audit"
)

// ErrWrongStatus is returned when a lifecycle operation does not apply to
// the account's current state (activating an active account, disabling a
// disabled one).
var ErrWrongStatus = errors.New("operation not allowed in current account status")

// Notifier delivers onboarding mail. Satisfied by email.Service.
type Notifier interface {
	SendWelcome(ctx context.Context, to, firstName, activationToken string) bool
	SendActivationConfirmation(ctx context.Context, to, firstName string) bool
}

// Revoker terminates every session and refresh token a user holds. Wired to
// the same implementation the auth service uses.
type Revoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// NewUser is the input to account creation. The caller never supplies a
// password; the account starts with an unusable throwaway hash and the real
// password arrives through activation.
type NewUser struct {
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Service owns the account lifecycle outside of login: creation,
// activation, disablement.
type Service struct {
	repo        Repo
	activations *activation.Manager
	notifier    Notifier
	revoker     Revoker
	auditor     audit.Recorder
}

func NewService(repo Repo, activations *activation.Manager, notifier Notifier, revoker Revoker, auditor audit.Recorder) *Service {
	return &Service{
		repo:        repo,
		activations: activations,
		notifier:    notifier,
		revoker:     revoker,
		auditor:     auditor,
	}
}

// Create registers a PENDING_ACTIVATION account and mails the activation
// link. The welcome mail is best-effort; a lost mail is recovered by
// re-creating the activation token, not the account.
func (s *Service) Create(ctx context.Context, input NewUser) (*User, error) {
	if input.Email == "" {
		return nil, fmt.Errorf("email is required")
	}

	// Throwaway hash: random 32 bytes nobody knows, so the account cannot
	// authenticate before activation even if status checks were bypassed.
	throwaway := make([]byte, 32)
	if _, err := rand.Read(throwaway); err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Create] rand.Read")
	}
	hash, err := HashPassword(hex.EncodeToString(throwaway))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Create] HashPassword")
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: hash,
		Status:       StatusPendingActivation,
		Phone:        input.Phone,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.activations.Generate(ctx, user.Email)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Create] activations.Generate")
	}

	s.notifier.SendWelcome(ctx, user.Email, user.FirstName, token)
	s.auditor.Record(ctx, audit.Event{
		UserID:      user.ID,
		Action:      audit.ActionUserCreated,
		Description: "account created, activation mail sent",
	})
	return user, nil
}

// Activate consumes an activation token and sets the account's first
// password, moving it to ACTIVE.
func (s *Service) Activate(ctx context.Context, token, password string) (*User, error) {
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	email, err := s.activations.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Activate] repo.GetByEmail")
	}
	if user.Status != StatusPendingActivation {
		return nil, ErrWrongStatus
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Activate] HashPassword")
	}
	if err := s.repo.SetPassword(ctx, user.ID, hash); err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Activate] repo.SetPassword")
	}
	if err := s.repo.SetStatus(ctx, user.ID, StatusActive); err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Activate] repo.SetStatus")
	}
	if err := s.activations.MarkUsed(ctx, token); err != nil {
		return nil, pkgerrors.Wrap(err, "[Service.Activate] activations.MarkUsed")
	}
	user.Status = StatusActive

	s.notifier.SendActivationConfirmation(ctx, user.Email, user.FirstName)
	s.auditor.Record(ctx, audit.Event{
		UserID:      user.ID,
		Action:      audit.ActionUserActivated,
		Description: "account activated",
	})
	return user, nil
}

// Disable moves an account to DISABLED and revokes every credential it
// holds. Disablement is terminal.
func (s *Service) Disable(ctx context.Context, userID string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Status == StatusDisabled {
		return ErrWrongStatus
	}

	if err := s.repo.SetStatus(ctx, userID, StatusDisabled); err != nil {
		return pkgerrors.Wrap(err, "[Service.Disable] repo.SetStatus")
	}
	if err := s.revoker.RevokeUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(err, "[Service.Disable] revoker.RevokeUser")
	}

	s.auditor.Record(ctx, audit.Event{
		UserID:      userID,
		Action:      audit.ActionUserDisabled,
		Description: "account disabled, credentials revoked",
	})
	return nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// List returns a page of users ordered by email.
func (s *Service) List(ctx context.Context, offset, limit int) ([]*User, error) {
	return s.repo.List(ctx, offset, limit)
}
