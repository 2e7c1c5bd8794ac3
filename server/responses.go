package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andinasec/login-global/activation"
	"github.com/andinasec/login-global/auth"
	"github.com/andinasec/login-global/mfa"
	"github.com/andinasec/login-global/roles"
	"github.com/andinasec/login-global/token"
	"github.com/andinasec/login-global/users"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeDomainError maps domain sentinels onto HTTP statuses. Anything
// unmapped is a 500 with a generic body; the wrapped cause stays in the
// logs only.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, mfa.ErrInvalidSession), errors.Is(err, mfa.ErrInvalidCode):
		writeError(w, http.StatusUnauthorized, "invalid session or verification code")
	case errors.Is(err, token.ErrInvalidRefreshToken):
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
	case errors.Is(err, token.ErrAccountDisabled):
		writeError(w, http.StatusUnauthorized, "account disabled")
	case errors.Is(err, activation.ErrTokenNotFound),
		errors.Is(err, activation.ErrTokenAlreadyUsed),
		errors.Is(err, activation.ErrTokenExpired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrNotFound), errors.Is(err, roles.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, users.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, users.ErrWrongStatus),
		errors.Is(err, roles.ErrAlreadyAssigned),
		errors.Is(err, roles.ErrPolicyViolation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("unhandled domain error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON parses a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
