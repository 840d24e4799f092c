package session

import "github.com/nhle/mailclient/internal/model"

// Status is the derived authentication status.
type Status int

const (
	// StatusUnknown holds until the startup check completes.
	StatusUnknown Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session. User is set only while
// Status is StatusAuthenticated.
type State struct {
	Status Status
	User   *model.User
}

// Authenticated reports whether the session holds a validated credential.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated
}
