package backend

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"ticketDesk/models"
)

// maxCountFetches bounds concurrent per-event ticket fetches.
const maxCountFetches = 4

func (c *Client) CreateTicket(ctx context.Context, eventID int64) (models.Ticket, error) {
	var out models.Ticket
	err := c.do(ctx, call{method: "POST", path: "/tickets", auth: true, in: models.CreateTicketRequest{EventID: eventID}, out: &out})
	return out, err
}

func (c *Client) MyTickets(ctx context.Context) ([]models.Ticket, error) {
	var out []models.Ticket
	err := c.do(ctx, call{method: "GET", path: "/tickets/mine", auth: true, out: &out})
	return out, err
}

// EventTickets lists every ticket issued for an event (organizer/admin).
func (c *Client) EventTickets(ctx context.Context, eventID int64) ([]models.Ticket, error) {
	var out []models.Ticket
	err := c.do(ctx, call{method: "GET", path: fmt.Sprintf("/tickets/%d", eventID), auth: true, out: &out})
	return out, err
}

func (c *Client) DeleteTicket(ctx context.Context, id string) error {
	return c.do(ctx, call{method: "DELETE", path: "/tickets/" + url.PathEscape(id), auth: true})
}

// TicketCounts fetches the ticket count of each event independently. A failed
// fetch yields 0 for that event and never fails the others.
func (c *Client) TicketCounts(ctx context.Context, eventIDs []int64) map[int64]int {
	counts := make([]int, len(eventIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxCountFetches)
	for i, id := range eventIDs {
		i, id := i, id
		g.Go(func() error {
			tickets, err := c.EventTickets(gctx, id)
			if err != nil {
				c.logger.Warn("ticket count unavailable", "event_id", id, "error", err)
				return nil
			}
			counts[i] = len(tickets)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[int64]int, len(eventIDs))
	for i, id := range eventIDs {
		out[id] = counts[i]
	}
	return out
}
