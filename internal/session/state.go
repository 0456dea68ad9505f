package session

import (
	"fmt"

	"github.com/joeycumines/storefront/internal/catalog"
)

// State is the lifecycle state of the session.
type State int

const (
	// Anonymous holds no token.
	Anonymous State = iota
	// Pending holds a token whose profile has not been confirmed.
	Pending
	// Authenticated holds a token and the confirmed profile.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Pending:
		return "pending"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsAuthenticated reports whether s carries a token. Pending counts: the
// caller may act as logged in while the profile is being confirmed.
func (s State) IsAuthenticated() bool {
	return s != Anonymous
}

// Snapshot is a copy of the session at one instant.
type Snapshot struct {
	State State
	Token string
	// User is nil until the profile is confirmed.
	User *catalog.User
}

// IsAuthenticated reports whether the session carries a token.
func (s Snapshot) IsAuthenticated() bool {
	return s.State.IsAuthenticated()
}

func (s Snapshot) equal(o Snapshot) bool {
	if s.State != o.State || s.Token != o.Token {
		return false
	}
	if s.User == nil || o.User == nil {
		return s.User == o.User
	}
	return *s.User == *o.User
}

// Event describes one change of the session.
type Event struct {
	From, To State
	Session  Snapshot
	// AuthChanged is set when IsAuthenticated differs between From and To.
	AuthChanged bool
}

// Op identifies a network-bound controller operation.
type Op int

const (
	OpLogin Op = iota + 1
	OpRequestCode
	OpRefresh
)

func (o Op) String() string {
	switch o {
	case OpLogin:
		return "login"
	case OpRequestCode:
		return "request-code"
	case OpRefresh:
		return "refresh"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}
