package auth

// HasRequiredRoles reports whether the actor holds at least one of the
// required roles. An empty requirement list means any authenticated caller
// passes.
func HasRequiredRoles(actorRoles, required []string) bool {
	if len(required) == 0 {
		return true
	}
	held := make(map[string]bool, len(actorRoles))
	for _, role := range actorRoles {
		held[role] = true
	}
	for _, role := range required {
		if held[role] {
			return true
		}
	}
	return false
}
