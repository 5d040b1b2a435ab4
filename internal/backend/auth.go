package backend

import (
	"context"

	"ticketDesk/models"
)

// Login exchanges email and password for a credential.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (models.Credential, error) {
	var cred models.Credential
	err := c.do(ctx, call{method: "POST", path: "/auth/login", in: req, out: &cred})
	return cred, err
}

// Signup registers a new account and returns its credential.
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (models.Credential, error) {
	var cred models.Credential
	err := c.do(ctx, call{method: "POST", path: "/auth/signup", in: req, out: &cred})
	return cred, err
}
