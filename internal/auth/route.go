package auth

import (
	"net/url"
	"strings"

	"ticketDesk/models"
)

const (
	// FallbackPath is the public screen unauthenticated or unauthorised
	// navigations are sent to.
	FallbackPath = "/"
	// LoginPath is the login screen.
	LoginPath = "/login"
	// FromParam carries the originally requested destination across a redirect.
	FromParam = "from"
)

// Grants maps each protected route group to the roles allowed to enter it.
var Grants = map[string]models.RoleSet{
	"/admin":     models.NewRoleSet(models.RoleAdmin),
	"/organizer": models.NewRoleSet(models.RoleOrganizer),
	"/user":      models.NewRoleSet(models.RoleUser),
}

// Outcome is the result of a route gate check.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
)

// Decision says whether to render the target or where to send the caller instead.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Authorize decides whether a navigation to requested may render.
//
//   - no credential: redirect to the fallback, carrying requested in ?from=
//   - role not allowed: redirect to the fallback, nothing carried
//   - otherwise: allow
func Authorize(cred models.Credential, present bool, allowed models.RoleSet, requested string) Decision {
	if !present {
		return Decision{Outcome: Redirect, Location: WithFrom(FallbackPath, requested)}
	}
	if !allowed.Contains(cred.User.Role) {
		return Decision{Outcome: Redirect, Location: FallbackPath}
	}
	return Decision{Outcome: Allow}
}

// Landing is the redirect-if-authenticated gate in front of login and signup.
// With a credential it returns where to send the user: the captured from
// destination when it is safe, else the role's home. Without one it returns
// ("", false) and the screen renders.
func Landing(cred models.Credential, present bool, from string) (string, bool) {
	if !present {
		return "", false
	}
	if dest, ok := SafeFrom(from); ok {
		return dest, true
	}
	return cred.User.Role.HomePath(), true
}

// WithFrom appends ?from=dest to path when dest is a safe local destination.
func WithFrom(path, dest string) string {
	dest, ok := SafeFrom(dest)
	if !ok {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + FromParam + "=" + url.QueryEscape(dest)
}

// SafeFrom accepts only same-origin absolute paths, so a crafted from
// parameter cannot bounce the user to another site.
func SafeFrom(dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || !strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "//") || strings.HasPrefix(dest, "/\\") {
		return "", false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	if dest == LoginPath || strings.HasPrefix(dest, LoginPath+"?") || dest == "/signup" {
		return "", false
	}
	return dest, true
}
