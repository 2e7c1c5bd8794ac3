package server

import "net/http"

type roleAssignmentRequest struct {
	UserID   string `json:"user_id"`
	RoleCode string `json:"role_code"`
}

func (r roleAssignmentRequest) valid() bool {
	return r.UserID != "" && r.RoleCode != ""
}

func (s *Server) ListRolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catalog, err := s.services.Roles.List(r.Context())
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": catalog})
	}
}

func (s *Server) AssignRoleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roleAssignmentRequest
		if err := decodeJSON(r, &req); err != nil || !req.valid() {
			writeError(w, http.StatusBadRequest, "user_id and role_code are required")
			return
		}

		if err := s.services.Roles.Assign(r.Context(), req.UserID, req.RoleCode); err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "role assigned"})
	}
}

func (s *Server) RemoveRoleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roleAssignmentRequest
		if err := decodeJSON(r, &req); err != nil || !req.valid() {
			writeError(w, http.StatusBadRequest, "user_id and role_code are required")
			return
		}

		if err := s.services.Roles.Remove(r.Context(), req.UserID, req.RoleCode); err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "role removed"})
	}
}
