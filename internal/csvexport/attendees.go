// Package csvexport writes attendee lists as CSV.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"

	"ticketDesk/models"
)

// DateLayout formats registration dates.
const DateLayout = "2006-01-02 15:04:05"

// ContentType is sent with attendee downloads.
const ContentType = "text/csv; charset=utf-8"

var header = []string{"Ticket ID", "Attendee Name", "Email", "Registration Date", "Scanned"}

// Filename is the download name for an event's attendee list.
func Filename(eventID int64) string {
	return fmt.Sprintf("attendees-%d.csv", eventID)
}

// WriteAttendees writes one row per ticket after the header row.
func WriteAttendees(w io.Writer, tickets []models.Ticket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tk := range tickets {
		if err := cw.Write(row(tk)); err != nil {
			return fmt.Errorf("write ticket %s: %w", tk.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(tk models.Ticket) []string {
	scanned := "No"
	if tk.Scanned() {
		scanned = "Yes"
	}
	return []string{
		tk.ID,
		tk.User.Name,
		tk.User.Email,
		tk.CreatedAt.Local().Format(DateLayout),
		scanned,
	}
}
