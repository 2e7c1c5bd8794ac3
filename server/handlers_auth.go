package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/andinasec/login-global/auth"
)

func requestMeta(r *http.Request) auth.RequestMeta {
	return auth.RequestMeta{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		result, err := s.services.Auth.Login(r.Context(), req.Email, req.Password, requestMeta(r))
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				s.metrics.LoginAttempts.WithLabelValues("failure").Inc()
			}
			s.writeDomainError(w, err)
			return
		}

		s.metrics.LoginAttempts.WithLabelValues("success").Inc()
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) VerifyMFAHandler() http.HandlerFunc {
	type request struct {
		SessionID string `json:"session_id"`
		Code      string `json:"code"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if req.SessionID == "" || req.Code == "" {
			writeError(w, http.StatusBadRequest, "session_id and code are required")
			return
		}

		result, err := s.services.Auth.VerifyMFA(r.Context(), req.SessionID, req.Code, requestMeta(r))
		if err != nil {
			s.metrics.MFAVerifications.WithLabelValues("failure").Inc()
			s.writeDomainError(w, err)
			return
		}

		s.metrics.MFAVerifications.WithLabelValues("success").Inc()
		s.metrics.TokensIssued.Inc()
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	type request struct {
		RefreshToken string `json:"refresh_token"`
	}
	type response struct {
		AccessToken string `json:"access_token"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if req.RefreshToken == "" {
			writeError(w, http.StatusBadRequest, "refresh_token is required")
			return
		}

		accessToken, err := s.services.Auth.Refresh(r.Context(), req.RefreshToken, requestMeta(r))
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		s.metrics.TokensRefreshed.Inc()
		writeJSON(w, http.StatusOK, response{AccessToken: accessToken})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	type request struct {
		SessionID string `json:"session_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		// session_id is optional; logging out an unknown session is a no-op
		var req request
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		if err := s.services.Auth.Logout(r.Context(), req.SessionID, claims.UserID, requestMeta(r)); err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "session terminated"})
	}
}

func (s *Server) LogoutAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if err := s.services.Auth.LogoutAll(r.Context(), claims.UserID, requestMeta(r)); err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "all sessions terminated"})
	}
}

// PublicKeyHandler serves the verification key so resource servers can
// validate access tokens locally.
func (s *Server) PublicKeyHandler() http.HandlerFunc {
	type response struct {
		KeyID     string `json:"key_id"`
		Algorithm string `json:"algorithm"`
		PublicKey string `json:"public_key"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		pem, err := s.services.SigningKey.ExportPublicKeyPEM()
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{
			KeyID:     s.services.SigningKey.KeyID,
			Algorithm: s.services.SigningKey.Algorithm,
			PublicKey: pem,
		})
	}
}

func (s *Server) ActiveSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		active, err := s.services.Auth.ActiveSessions(r.Context(), claims.UserID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": active})
	}
}
