package server

import (
	"context"
	"net/http"
)

// CleanupHandler runs the expiry sweeps. Meant to be hit by an external
// scheduler; each sweep's count is reported so operators can see what went
// away.
func (s *Server) CleanupHandler() http.HandlerFunc {
	type sweep struct {
		name string
		run  func(ctx context.Context) (int64, error)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sweeps := []sweep{
			{"sessions", s.services.Cleanup.Sessions},
			{"mfa_codes", s.services.Cleanup.MFACodes},
			{"activation_tokens", s.services.Cleanup.Activations},
			{"refresh_tokens", s.services.Cleanup.Refresh},
		}

		deleted := make(map[string]int64, len(sweeps))
		for _, sw := range sweeps {
			count, err := sw.run(r.Context())
			if err != nil {
				s.log.Error().Err(err).Str("sweep", sw.name).Msg("cleanup sweep failed")
				s.writeDomainError(w, err)
				return
			}
			deleted[sw.name] = count
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.health != nil {
			if err := s.health.Ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "database unreachable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
