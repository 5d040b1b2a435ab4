package backend

import "context"

type scanRequest struct {
	TicketID string `json:"ticketId"`
}

// Scan asks the backend to validate and consume a ticket. A nil error means
// entry is granted.
func (c *Client) Scan(ctx context.Context, ticketID string) error {
	return c.do(ctx, call{method: "POST", path: "/scan", auth: true, in: scanRequest{TicketID: ticketID}})
}

// Verify adapts Scan to the scanner's verifier contract.
func (c *Client) Verify(ctx context.Context, ticketID string) error {
	return c.Scan(ctx, ticketID)
}
