// Package audit defines the audit-event collaborator. The engine only emits
// events; durable storage belongs to an external consumer of the log stream.
package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// Action identifies an auditable event.
type Action string

const (
	ActionLoginSuccess    Action = "LOGIN_SUCCESS"
	ActionLoginFailed     Action = "LOGIN_FAILED"
	ActionLoginPendingMFA Action = "LOGIN_PENDING_MFA"
	ActionMFAVerified     Action = "MFA_VERIFIED"
	ActionMFAFailed       Action = "MFA_FAILED"
	ActionLogout          Action = "LOGOUT"
	ActionLogoutGlobal    Action = "LOGOUT_GLOBAL"
	ActionTokenRefreshed  Action = "TOKEN_REFRESHED"
	ActionRoleAssigned    Action = "ROLE_ASSIGNED"
	ActionRoleRemoved     Action = "ROLE_REMOVED"
	ActionUserCreated     Action = "USER_CREATED"
	ActionUserActivated   Action = "USER_ACTIVATED"
	ActionUserDisabled    Action = "USER_DISABLED"
)

// Event is a single audit record. UserID is empty when the actor is unknown
// (e.g. a failed login for an unregistered email).
type Event struct {
	UserID      string
	Action      Action
	Description string
	IP          string
}

// Recorder receives audit events. Implementations must be safe for concurrent
// use. Recording is best-effort: the operations being audited never fail
// because the recorder did.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// ZerologRecorder emits audit events as structured log lines.
type ZerologRecorder struct {
	log zerolog.Logger
}

var _ Recorder = (*ZerologRecorder)(nil)

func NewZerologRecorder(log zerolog.Logger) *ZerologRecorder {
	return &ZerologRecorder{log: log.With().Str("component", "audit").Logger()}
}

func (r *ZerologRecorder) Record(_ context.Context, event Event) {
	entry := r.log.Info().Str("action", string(event.Action))
	if event.UserID != "" {
		entry = entry.Str("user_id", event.UserID)
	}
	if event.IP != "" {
		entry = entry.Str("ip", event.IP)
	}
	entry.Msg(event.Description)
}

// NopRecorder discards events. Used in tests.
type NopRecorder struct{}

var _ Recorder = NopRecorder{}

func (NopRecorder) Record(context.Context, Event) {}
