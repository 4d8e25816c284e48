// Package guard decides what a protected route shows for a session state.
package guard

import "github.com/naveenspark/portcullis/internal/session"

// Routes the guard can send navigation to.
const (
	LoginRoute     = "/login"
	DashboardRoute = "/dashboard"
)

// Decision is the outcome for a protected route.
type Decision int

const (
	// DecisionPlaceholder: identity unknown, make no navigation decision yet.
	DecisionPlaceholder Decision = iota
	// DecisionRedirect: confirmed unauthenticated, go to the login entry point.
	DecisionRedirect
	// DecisionRender: authenticated, show the protected content.
	DecisionRender
)

func (d Decision) String() string {
	switch d {
	case DecisionPlaceholder:
		return "resolving"
	case DecisionRedirect:
		return "unauthenticated"
	case DecisionRender:
		return "authenticated"
	}
	return "unknown"
}

// Decide maps a session state onto a decision. It must be called again on
// every state change. A manager that has not started resolving yet is
// treated like one that is resolving, so startup never flashes a redirect.
func Decide(s session.State) Decision {
	if s.IsResolving || s.Status == session.StatusUnresolved {
		return DecisionPlaceholder
	}
	if s.Identity == nil {
		return DecisionRedirect
	}
	return DecisionRender
}

// Target returns the route a decision navigates to, or "" when the current
// route stays put.
func Target(d Decision) string {
	switch d {
	case DecisionRedirect:
		return LoginRoute
	case DecisionRender:
		return DashboardRoute
	}
	return ""
}
