package auth

import (
	"net/url"
	"strings"
	"testing"

	"ticketDesk/models"
)

func credFor(role models.Role) models.Credential {
	return models.Credential{AccessToken: "t", User: models.Identity{ID: "1", Role: role}}
}

func TestAuthorize_RolesOutsideGrantAlwaysRedirect(t *testing.T) {
	for group, allowed := range Grants {
		for _, role := range models.Roles {
			d := Authorize(credFor(role), true, allowed, group)
			if allowed.Contains(role) {
				if d.Outcome != Allow {
					t.Fatalf("%s: role %s should be allowed", group, role)
				}
				continue
			}
			if d.Outcome != Redirect || d.Location != FallbackPath {
				t.Fatalf("%s: role %s got %+v, want redirect to %s without from", group, role, d, FallbackPath)
			}
		}
	}
}

func TestAuthorize_AbsentCredentialCarriesFrom(t *testing.T) {
	for _, requested := range []string{"/admin", "/organizer/scan", "/user?tab=past", "/organizer/events/7/attendees"} {
		d := Authorize(models.Credential{}, false, models.NewRoleSet(models.RoleAdmin), requested)
		if d.Outcome != Redirect {
			t.Fatalf("%s: expected redirect", requested)
		}
		u, err := url.Parse(d.Location)
		if err != nil {
			t.Fatalf("parse %q: %v", d.Location, err)
		}
		if u.Path != FallbackPath {
			t.Fatalf("%s: fallback = %q", requested, u.Path)
		}
		if got := u.Query().Get(FromParam); got != requested {
			t.Fatalf("%s: from = %q", requested, got)
		}
	}
}

func TestLanding(t *testing.T) {
	if _, redirect := Landing(models.Credential{}, false, "/organizer"); redirect {
		t.Fatalf("anonymous user must see the login screen")
	}
	cases := []struct {
		role models.Role
		from string
		want string
	}{
		{models.RoleAdmin, "", "/admin"},
		{models.RoleOrganizer, "", "/organizer"},
		{models.RoleUser, "", "/user"},
		{models.RoleUser, "/events/4", "/events/4"},
		{models.RoleUser, "https://evil.example/steal", "/user"},
		{models.RoleAdmin, "//evil.example", "/admin"},
		{models.RoleAdmin, "/login", "/admin"},
	}
	for _, tc := range cases {
		got, redirect := Landing(credFor(tc.role), true, tc.from)
		if !redirect || got != tc.want {
			t.Fatalf("Landing(%s, %q) = %q, %v; want %q", tc.role, tc.from, got, redirect, tc.want)
		}
	}
}

func TestWithFrom(t *testing.T) {
	if got := WithFrom("/login", "/events/3"); got != "/login?from=%2Fevents%2F3" {
		t.Fatalf("WithFrom = %q", got)
	}
	if got := WithFrom("/login?x=1", "/user"); !strings.HasPrefix(got, "/login?x=1&from=") {
		t.Fatalf("WithFrom with query = %q", got)
	}
	if got := WithFrom("/login", "javascript:alert(1)"); got != "/login" {
		t.Fatalf("unsafe destination kept: %q", got)
	}
}
