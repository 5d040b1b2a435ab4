package models

import "time"

// Ticket is an issued ticket. Its ID is what the QR code encodes.
type Ticket struct {
	ID        string     `json:"id"`
	ScanDate  *time.Time `json:"scanDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	User      User       `json:"user"`
	Event     Event      `json:"event"`
}

// Scanned reports whether the ticket has already been used for entry.
func (t Ticket) Scanned() bool {
	return t.ScanDate != nil && !t.ScanDate.IsZero()
}

// CreateTicketRequest is the body of POST /tickets.
type CreateTicketRequest struct {
	EventID int64 `json:"eventId"`
}
