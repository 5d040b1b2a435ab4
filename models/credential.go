package models

import "strings"

// Credential is the authenticated session held by the front-end. It is either
// complete or absent; partial credentials are never adopted.
type Credential struct {
	AccessToken string   `json:"accessToken"`
	User        Identity `json:"user"`
}

// Complete reports whether the credential carries a token, a user id and a known role.
func (c Credential) Complete() bool {
	return strings.TrimSpace(c.AccessToken) != "" &&
		strings.TrimSpace(c.User.ID) != "" &&
		c.User.Role.Valid()
}
