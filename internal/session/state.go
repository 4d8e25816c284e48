// Package session tracks whether the caller is authenticated. The Manager
// resolves the stored credential on start, applies login, registration and
// logout, and publishes every state change to its subscribers.
package session

import "github.com/naveenspark/portcullis/pkg/domain"

// Status is the position of the session state machine.
type Status int

const (
	StatusUnresolved Status = iota
	StatusResolving
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusResolving:
		return "resolving"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// State is a snapshot of the session.
// IsResolving means the identity is not known yet; a nil Identity with
// IsResolving false means the caller is confirmed unauthenticated.
type State struct {
	Identity    *domain.User
	IsResolving bool
	Status      Status
	Generation  uint64
}

// Authenticated reports whether an identity is present.
func (s State) Authenticated() bool {
	return s.Identity != nil
}

func (s State) clone() State {
	s.Identity = s.Identity.Clone()
	return s
}
