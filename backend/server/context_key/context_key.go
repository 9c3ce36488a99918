package contextKey

// key is a private type so context values set here cannot collide with
// values set by other packages.
type key int

const (
	// UserIDKey holds the authenticated user's id extracted from the JWT.
	UserIDKey key = iota
	// JwtErrorKey holds a token parsing/validation error for handlers to
	// interpret.
	JwtErrorKey
)
