package authz

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Allowed reports whether role is one of allowed. An empty role never matches.
func Allowed(role string, allowed ...string) bool {
	if role == "" {
		return false
	}
	for _, a := range allowed {
		if a == role {
			return true
		}
	}
	return false
}
