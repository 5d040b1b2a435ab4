package models

import (
	"strings"
	"time"
)

// Event is a ticketed event as returned by the backend.
type Event struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DateStart   time.Time `json:"dateStart"`
	DateEnd     time.Time `json:"dateEnd"`
	Location    string    `json:"location"`
	Description string    `json:"description,omitempty"`
	Capacity    int       `json:"capacity"`
	// TicketsSold is optional on the wire; nil means the backend did not report it.
	TicketsSold *int      `json:"ticketsSold,omitempty"`
	ImageBase64 string    `json:"imageBase64,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Organizer   *User     `json:"organizer,omitempty"`
}

// Sold returns the reported ticket count, or 0 when unknown.
func (e Event) Sold() int {
	if e.TicketsSold == nil {
		return 0
	}
	return *e.TicketsSold
}

// Remaining is capacity minus tickets sold, floored at zero.
func (e Event) Remaining() int {
	return Availability(e.Capacity, e.Sold())
}

// SoldOut reports whether no spots remain.
func (e Event) SoldOut() bool {
	return e.Remaining() == 0
}

// Availability derives remaining spots from capacity and sold count.
func Availability(capacity, sold int) int {
	if r := capacity - sold; r > 0 {
		return r
	}
	return 0
}

// CreateEventRequest is the body of POST /events.
type CreateEventRequest struct {
	Name        string    `json:"name"`
	DateStart   time.Time `json:"dateStart"`
	DateEnd     time.Time `json:"dateEnd"`
	Location    string    `json:"location"`
	Description string    `json:"description,omitempty"`
	Capacity    int       `json:"capacity"`
	ImageBase64 string    `json:"imageBase64,omitempty"`
}

// Validate checks the create-event form. now is the reference for "in the past".
func (r CreateEventRequest) Validate(now time.Time) error {
	v := ValidationErrors{}
	if len(strings.TrimSpace(r.Name)) < 3 {
		v.Add("name", "Event name must be at least 3 characters")
	}
	switch {
	case r.DateStart.IsZero():
		v.Add("dateStart", "Start date is required")
	case r.DateStart.Before(now):
		v.Add("dateStart", "Start date cannot be in the past")
	}
	switch {
	case r.DateEnd.IsZero():
		v.Add("dateEnd", "End date is required")
	case !r.DateStart.IsZero() && r.DateEnd.Before(r.DateStart):
		v.Add("dateEnd", "End date must be after start date")
	}
	if len(strings.TrimSpace(r.Location)) < 2 {
		v.Add("location", "Location is required")
	}
	if r.Capacity < 1 {
		v.Add("capacity", "Capacity must be at least 1")
	}
	return v.Err()
}

// UpdateEventRequest is the body of PATCH /events/:id. Only changed fields are set.
type UpdateEventRequest struct {
	Name        *string    `json:"name,omitempty"`
	DateStart   *time.Time `json:"dateStart,omitempty"`
	DateEnd     *time.Time `json:"dateEnd,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Description *string    `json:"description,omitempty"`
	Capacity    *int       `json:"capacity,omitempty"`
	ImageBase64 *string    `json:"imageBase64,omitempty"`
}

// Diff builds an update holding only the fields of next that differ from cur.
func Diff(cur Event, next CreateEventRequest) UpdateEventRequest {
	var u UpdateEventRequest
	if next.Name != cur.Name {
		u.Name = &next.Name
	}
	if !next.DateStart.Equal(cur.DateStart) {
		u.DateStart = &next.DateStart
	}
	if !next.DateEnd.Equal(cur.DateEnd) {
		u.DateEnd = &next.DateEnd
	}
	if next.Location != cur.Location {
		u.Location = &next.Location
	}
	if next.Description != cur.Description {
		u.Description = &next.Description
	}
	if next.Capacity != cur.Capacity {
		u.Capacity = &next.Capacity
	}
	if next.ImageBase64 != "" && next.ImageBase64 != cur.ImageBase64 {
		u.ImageBase64 = &next.ImageBase64
	}
	return u
}

// Empty reports whether the update carries no changes.
func (u UpdateEventRequest) Empty() bool {
	return u.Name == nil && u.DateStart == nil && u.DateEnd == nil && u.Location == nil &&
		u.Description == nil && u.Capacity == nil && u.ImageBase64 == nil
}

// Validate checks an edit; start dates in the past are allowed when editing.
func (u UpdateEventRequest) Validate(cur Event) error {
	next := CreateEventRequest{
		Name:      cur.Name,
		DateStart: cur.DateStart,
		DateEnd:   cur.DateEnd,
		Location:  cur.Location,
		Capacity:  cur.Capacity,
	}
	if u.Name != nil {
		next.Name = *u.Name
	}
	if u.DateStart != nil {
		next.DateStart = *u.DateStart
	}
	if u.DateEnd != nil {
		next.DateEnd = *u.DateEnd
	}
	if u.Location != nil {
		next.Location = *u.Location
	}
	if u.Capacity != nil {
		next.Capacity = *u.Capacity
	}
	// Editing never rejects a start date for being in the past.
	return next.Validate(time.Time{})
}
