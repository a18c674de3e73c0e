// Package gate decides where a page navigation must be redirected
// according to the authentication state of the visitor.
package gate

import (
	"net/url"
	"strings"
)

type (
	// A Decision is the outcome of a navigation check.
	// An empty Redirect lets the navigation through.
	Decision struct {
		Redirect string
	}

	// Rules defines the page sets the gate protects.
	Rules struct {
		// Protected pages require authentication.
		Protected []string
		// Auth pages are only meant for anonymous visitors.
		Auth []string
		// Home is the landing page of authenticated visitors.
		Home string
		// SignIn is the landing page of anonymous visitors.
		SignIn string
	}
)

// DefaultRules returns the rules of the application pages.
func DefaultRules() Rules {
	return Rules{
		Protected: []string{"/dashboard", "/items"},
		Auth:      []string{"/sign-in", "/sign-up"},
		Home:      "/dashboard",
		SignIn:    "/sign-in",
	}
}

// Allowed reports whether the navigation is let through.
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Decide returns the decision for the given path.
func (r Rules) Decide(path string, authenticated bool) Decision {
	if path == "" || path == "/" {
		if authenticated {
			return Decision{Redirect: r.Home}
		}
		return Decision{Redirect: r.SignIn}
	}

	if !authenticated && r.matches(r.Protected, path) {
		return Decision{Redirect: r.SignIn + "?" + url.Values{"redirect": {path}}.Encode()}
	}

	if authenticated && r.matches(r.Auth, path) {
		return Decision{Redirect: r.Home}
	}

	return Decision{}
}

// Guarded returns all the prefixes handled by the gate.
func (r Rules) Guarded() []string {
	prefixes := make([]string, 0, len(r.Protected)+len(r.Auth))
	prefixes = append(prefixes, r.Protected...)
	return append(prefixes, r.Auth...)
}

func (r Rules) matches(prefixes []string, path string) bool {
	for _, prefix := range prefixes {
		if HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// HasPrefix reports whether path is prefix or one of its sub-paths.
// "/items/42" matches "/items" but "/itemsfoo" does not.
func HasPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/' || strings.HasSuffix(prefix, "/")
}
