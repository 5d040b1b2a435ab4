package backend

import (
	"context"
	"fmt"

	"ticketDesk/models"
)

func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	var out []models.Event
	err := c.do(ctx, call{method: "GET", path: "/events", out: &out})
	return out, err
}

func (c *Client) GetEvent(ctx context.Context, id int64) (models.Event, error) {
	var out models.Event
	err := c.do(ctx, call{method: "GET", path: fmt.Sprintf("/events/%d", id), out: &out})
	return out, err
}

// ListOrganizerEvents returns the events owned by the authenticated organizer.
func (c *Client) ListOrganizerEvents(ctx context.Context) ([]models.Event, error) {
	var out []models.Event
	err := c.do(ctx, call{method: "GET", path: "/events/organizer", auth: true, out: &out})
	return out, err
}

func (c *Client) CreateEvent(ctx context.Context, req models.CreateEventRequest) (models.Event, error) {
	var out models.Event
	err := c.do(ctx, call{method: "POST", path: "/events", auth: true, in: req, out: &out})
	return out, err
}

func (c *Client) UpdateEvent(ctx context.Context, id int64, req models.UpdateEventRequest) (models.Event, error) {
	var out models.Event
	err := c.do(ctx, call{method: "PATCH", path: fmt.Sprintf("/events/%d", id), auth: true, in: req, out: &out})
	return out, err
}

func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: "DELETE", path: fmt.Sprintf("/events/%d", id), auth: true})
}
