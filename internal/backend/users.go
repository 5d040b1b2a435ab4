package backend

import (
	"context"
	"net/url"

	"ticketDesk/models"
)

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := c.do(ctx, call{method: "GET", path: "/users", auth: true, out: &out})
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) (models.User, error) {
	var out models.User
	err := c.do(ctx, call{method: "POST", path: "/users", auth: true, in: req, out: &out})
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, req models.UpdateUserRequest) (models.User, error) {
	var out models.User
	err := c.do(ctx, call{method: "PATCH", path: "/users/" + url.PathEscape(id), auth: true, in: req, out: &out})
	return out, err
}
