package auth

import (
	"context"
	"net/http"

	"ticketDesk/models"
)

// CredentialSource is the read side of the session gate.
type CredentialSource interface {
	Current() (models.Credential, bool)
}

type credentialKey struct{}

// WithCredential stores the credential that authorised this request.
func WithCredential(ctx context.Context, c models.Credential) context.Context {
	return context.WithValue(ctx, credentialKey{}, c)
}

// CredentialFrom returns the credential stored by RequireRoles, if any.
func CredentialFrom(ctx context.Context) (models.Credential, bool) {
	c, ok := ctx.Value(credentialKey{}).(models.Credential)
	return c, ok
}

// RequireRoles gates a route group to the given roles. Denied navigations are
// redirected with 303 and never reach next.
func RequireRoles(src CredentialSource, roles ...models.Role) func(http.Handler) http.Handler {
	allowed := models.NewRoleSet(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, ok := src.Current()
			d := Authorize(cred, ok, allowed, requestedPath(r))
			if d.Outcome != Allow {
				http.Redirect(w, r, d.Location, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCredential(r.Context(), cred)))
		})
	}
}

// RequireGrant gates a route group using the static Grants table.
func RequireGrant(src CredentialSource, group string) func(http.Handler) http.Handler {
	return RequireRoles(src, Grants[group].Roles()...)
}

// RedirectIfAuthenticated bypasses login and signup for a logged-in user.
func RedirectIfAuthenticated(src CredentialSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cred, ok := src.Current()
			if dest, redirect := Landing(cred, ok, r.URL.Query().Get(FromParam)); redirect {
				http.Redirect(w, r, dest, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestedPath is the path plus query of a navigation. Form submissions
// cannot be replayed by a redirect after login, so they carry nothing.
func requestedPath(r *http.Request) string {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return ""
	}
	return r.URL.RequestURI()
}
