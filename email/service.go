// Package email is the outbound notification collaborator. Message transport
// is pluggable; the service owns only the retry contract around it.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxRetries   = 3
	retryDelay   = time.Second // fixed backoff between attempts
	subjectMFA   = "Login Global - Your verification code"
	subjectHello = "Welcome to Login Global"
)

// Transport delivers a single message. Implementations wrap a real provider
// (SMTP, SES, ...); Service never retries inside the transport.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service sends notifications with automatic retries. Delivery is
// best-effort: the account records and tokens behind a message stay valid
// whether or not the message arrives.
type Service struct {
	transport Transport
	baseURL   string
	log       zerolog.Logger
	sleep     func(time.Duration) // injectable for tests
}

func NewService(transport Transport, baseURL string, log zerolog.Logger) *Service {
	return &Service{
		transport: transport,
		baseURL:   baseURL,
		log:       log.With().Str("component", "email").Logger(),
		sleep:     time.Sleep,
	}
}

// SetSleepFunc overrides the backoff sleep (primarily for testing).
func (s *Service) SetSleepFunc(sleep func(time.Duration)) {
	s.sleep = sleep
}

// SendMFACode delivers a one-time login code. Returns whether delivery
// succeeded within the retry budget.
func (s *Service) SendMFACode(ctx context.Context, to, code string) bool {
	body := fmt.Sprintf("Your Login Global verification code is %s. It expires in 5 minutes.", code)
	return s.sendWithRetries(ctx, to, subjectMFA, body)
}

// SendWelcome delivers the onboarding mail carrying the one-time activation
// link.
func (s *Service) SendWelcome(ctx context.Context, to, firstName, activationToken string) bool {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour Login Global account has been created.\nActivate it within 24 hours: %s/activate?token=%s\n\nThe link is valid once.",
		firstName, s.baseURL, activationToken)
	return s.sendWithRetries(ctx, to, subjectHello, body)
}

// SendActivationConfirmation notifies the user that onboarding completed.
func (s *Service) SendActivationConfirmation(ctx context.Context, to, firstName string) bool {
	body := fmt.Sprintf("Welcome %s, your Login Global account is now active.", firstName)
	return s.sendWithRetries(ctx, to, subjectHello, body)
}

func (s *Service) sendWithRetries(ctx context.Context, to, subject, body string) bool {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := s.transport.Send(ctx, to, subject, body); err == nil {
			s.log.Debug().Str("to", to).Str("subject", subject).Int("attempt", attempt).Msg("mail delivered")
			return true
		} else {
			lastErr = err
			s.log.Warn().Err(err).Str("to", to).Int("attempt", attempt).Msg("mail delivery failed")
		}
		if attempt < maxRetries {
			s.sleep(retryDelay)
		}
	}

	// Non-fatal: account state is never coupled to delivery.
	s.log.Error().Err(lastErr).Str("to", to).Int("attempts", maxRetries).Msg("mail delivery exhausted retries")
	return false
}

// LogTransport writes messages to the log instead of a wire. Default in
// development, where the MFA code must be readable somewhere.
type LogTransport struct {
	Log zerolog.Logger
}

var _ Transport = LogTransport{}

func (t LogTransport) Send(_ context.Context, to, subject, body string) error {
	t.Log.Info().Str("to", to).Str("subject", subject).Msg(body)
	return nil
}
