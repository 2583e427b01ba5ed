package auth

import (
	"net/url"
	"strings"
	"sync"
)

// Method is the authentication method the backend requires.
type Method string

const (
	MethodBasic   Method = "Basic"
	MethodBearer  Method = "Bearer"
	MethodNone    Method = "None"
	MethodUnknown Method = "Unknown"
)

// ParseMethod maps a header value to a Method. Anything unrecognized is
// MethodUnknown.
func ParseMethod(s string) Method {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return MethodBasic
	case "bearer":
		return MethodBearer
	case "none":
		return MethodNone
	default:
		return MethodUnknown
	}
}

// Known reports whether m is a method a connection can be made with.
func (m Method) Known() bool {
	return m == MethodBasic || m == MethodBearer || m == MethodNone
}

// Header names.
const (
	HeaderAuthorization    = "Authorization"
	HeaderAuthenticate     = "X-WWW-Authenticate"
	HeaderLocation         = "X-Location"
	HeaderJMXAuthorization = "X-JMX-Authorization"
	HeaderJMXAuthenticate  = "X-JMX-Authenticate"
)

// Backend paths.
const (
	AuthPath   = "/api/v2.1/auth"
	LogoutPath = "/api/v2.1/logout"
)

// Navigator abstracts the console's current location. Location may carry a
// fragment from an OAuth implicit-flow redirect.
type Navigator interface {
	Location() *url.URL
	Navigate(target string)
}

// LocationNavigator is a Navigator backed by a fixed starting location that
// records every navigation.
type LocationNavigator struct {
	mu       sync.Mutex
	location *url.URL
	visited  []string
	onVisit  func(string)
}

// NewLocationNavigator creates a navigator at location. onVisit, if not nil,
// is called for every navigation.
func NewLocationNavigator(location *url.URL, onVisit func(string)) *LocationNavigator {
	if location == nil {
		location = &url.URL{}
	}
	return &LocationNavigator{location: location, onVisit: onVisit}
}

// Location returns a copy of the current location.
func (n *LocationNavigator) Location() *url.URL {
	n.mu.Lock()
	defer n.mu.Unlock()
	u := *n.location
	return &u
}

// Navigate moves to target. Relative targets resolve against the current
// location.
func (n *LocationNavigator) Navigate(target string) {
	n.mu.Lock()
	if ref, err := url.Parse(target); err == nil {
		n.location = n.location.ResolveReference(ref)
	}
	n.visited = append(n.visited, target)
	onVisit := n.onVisit
	n.mu.Unlock()

	if onVisit != nil {
		onVisit(target)
	}
}

// Visited returns every navigation target in order.
func (n *LocationNavigator) Visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visited...)
}

// bareLocation strips the fragment from u.
func bareLocation(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}
