package web

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ticketDesk/internal/backend"
	"ticketDesk/internal/csvexport"
	"ticketDesk/models"
)

// maxImageBytes bounds an uploaded event image.
const maxImageBytes = 2 << 20

// eventRow is an event with its sold count resolved.
type eventRow struct {
	models.Event
	SoldCount int
	Left      int
}

func rowsWithCounts(events []models.Event, counts map[int64]int) []eventRow {
	rows := make([]eventRow, 0, len(events))
	for _, ev := range events {
		sold := ev.Sold()
		if ev.TicketsSold == nil {
			sold = counts[ev.ID]
		}
		rows = append(rows, eventRow{Event: ev, SoldCount: sold, Left: models.Availability(ev.Capacity, sold)})
	}
	return rows
}

func eventIDs(events []models.Event) []int64 {
	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	return ids
}

type organizerData struct {
	Events []eventRow
}

func (s *Server) handleOrganizerDashboard(w http.ResponseWriter, r *http.Request) {
	s.organizerPage(w, r, "")
}

func (s *Server) organizerPage(w http.ResponseWriter, r *http.Request, actionErr string) {
	act, ctx, done := s.activate(r, "organizer")
	defer done()

	data := organizerData{}
	v := view{Title: "My Events", Data: &data, Error: actionErr}

	events, err := s.backend.ListOrganizerEvents(ctx)
	if err != nil {
		s.logger.Warn("list organizer events", "error", err)
		v.Error = "Failed to load events"
	} else {
		data.Events = rowsWithCounts(events, s.countsFor(ctx, events))
	}
	s.show(w, act, "organizer", v)
}

type attendeesData struct {
	Event     *models.Event
	Tickets   []models.Ticket
	ExportURL string
}

func (s *Server) handleAttendees(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	s.attendeesPage(w, r, id, "")
}

func (s *Server) attendeesPage(w http.ResponseWriter, r *http.Request, id int64, actionErr string) {
	act, ctx, done := s.activate(r, "attendees")
	defer done()

	data := attendeesData{ExportURL: "/organizer/events/" + strconv.FormatInt(id, 10) + "/attendees.csv"}
	v := view{Title: "Attendees", Data: &data, Error: actionErr}

	if ev, err := s.backend.GetEvent(ctx, id); err == nil {
		data.Event = &ev
		v.Title = "Attendees: " + ev.Name
	}
	tickets, err := s.backend.EventTickets(ctx, id)
	if err != nil {
		s.logger.Warn("list attendees", "event_id", id, "error", err)
		v.Error = "Failed to load attendees"
	}
	data.Tickets = tickets
	s.show(w, act, "attendees", v)
}

func (s *Server) handleOrganizerAttendeesCSV(w http.ResponseWriter, r *http.Request) {
	s.exportAttendees(w, r, func(id int64, msg string) { s.attendeesPage(w, r, id, msg) })
}

// exportAttendees streams an event's attendee list as a CSV download. On
// failure onErr renders the calling screen with the message inline.
func (s *Server) exportAttendees(w http.ResponseWriter, r *http.Request, onErr func(id int64, msg string)) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	tickets, err := s.backend.EventTickets(r.Context(), id)
	if err != nil {
		s.logger.Warn("export attendees", "event_id", id, "error", err)
		onErr(id, backend.MessageOr(err, "Failed to export attendees"))
		return
	}
	w.Header().Set("Content-Type", csvexport.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+csvexport.Filename(id)+`"`)
	if err := csvexport.WriteAttendees(w, tickets); err != nil {
		s.logger.Error("write attendees csv", "event_id", id, "error", err)
	}
}

type eventFormData struct {
	Heading string
	Action  string
	Submit  string
	Back    string
	Values  models.CreateEventRequest
	Errors  models.ValidationErrors
}

func (s *Server) handleCreateEventForm(w http.ResponseWriter, r *http.Request) {
	s.screens.Activate("create-event")
	s.render(w, http.StatusOK, "eventform", view{Title: "Create Event", Data: newEventForm()})
}

func newEventForm() *eventFormData {
	return &eventFormData{Heading: "Create Event", Action: "/organizer/create", Submit: "Create", Back: "/organizer"}
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	form := newEventForm()
	v := view{Title: "Create Event", Data: form}

	req, errs := parseEventForm(r, nil)
	form.Values = req
	if err := req.Validate(s.now()); err != nil {
		for f, msg := range fieldErrors(err) {
			errs.Add(f, msg)
		}
	}
	if len(errs) > 0 {
		form.Errors = errs
		s.render(w, http.StatusOK, "eventform", v)
		return
	}
	if _, err := s.backend.CreateEvent(r.Context(), req); err != nil {
		s.logger.Warn("create event", "error", err)
		v.Error = backend.MessageOr(err, "Failed to create event")
		s.render(w, http.StatusOK, "eventform", v)
		return
	}
	seeOther(w, r, "/organizer")
}

// editEventForm prefills the form from ev. back is the dashboard the form
// returns to, and its events subtree receives the submission.
func editEventForm(ev models.Event, back string) *eventFormData {
	return &eventFormData{
		Heading: "Edit Event",
		Action:  back + "/events/" + strconv.FormatInt(ev.ID, 10) + "/edit",
		Submit:  "Save",
		Back:    back,
		Values: models.CreateEventRequest{
			Name:        ev.Name,
			DateStart:   ev.DateStart,
			DateEnd:     ev.DateEnd,
			Location:    ev.Location,
			Description: ev.Description,
			Capacity:    ev.Capacity,
			ImageBase64: ev.ImageBase64,
		},
	}
}

func (s *Server) handleEditEventForm(w http.ResponseWriter, r *http.Request) {
	s.editEventPage(w, r, "/organizer")
}

func (s *Server) editEventPage(w http.ResponseWriter, r *http.Request, back string) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	act, ctx, done := s.activate(r, "edit-event")
	defer done()

	ev, err := s.backend.GetEvent(ctx, id)
	if err != nil {
		s.logger.Warn("load event for edit", "event_id", id, "error", err)
		s.show(w, act, "eventform", view{
			Title: "Edit Event",
			Error: "Failed to load event details",
			Data:  &eventFormData{Heading: "Edit Event", Back: back},
		})
		return
	}
	s.show(w, act, "eventform", view{Title: "Edit Event", Data: editEventForm(ev, back)})
}

func (s *Server) handleEditEvent(w http.ResponseWriter, r *http.Request) {
	s.editEvent(w, r, "/organizer")
}

// editEvent sends only the fields that changed, then returns to back.
func (s *Server) editEvent(w http.ResponseWriter, r *http.Request, back string) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	cur, err := s.backend.GetEvent(r.Context(), id)
	if err != nil {
		s.logger.Warn("load event for edit", "event_id", id, "error", err)
		s.render(w, http.StatusOK, "eventform", view{
			Title: "Edit Event",
			Error: backend.MessageOr(err, "Failed to update event"),
			Data:  &eventFormData{Heading: "Edit Event", Back: back},
		})
		return
	}

	form := editEventForm(cur, back)
	v := view{Title: "Edit Event", Data: form}

	next, errs := parseEventForm(r, &cur)
	form.Values = next
	update := models.Diff(cur, next)
	if err := update.Validate(cur); err != nil {
		for f, msg := range fieldErrors(err) {
			errs.Add(f, msg)
		}
	}
	if len(errs) > 0 {
		form.Errors = errs
		s.render(w, http.StatusOK, "eventform", v)
		return
	}
	if update.Empty() {
		seeOther(w, r, back)
		return
	}
	if _, err := s.backend.UpdateEvent(r.Context(), id, update); err != nil {
		s.logger.Warn("update event", "event_id", id, "error", err)
		v.Error = backend.MessageOr(err, "Failed to update event")
		s.render(w, http.StatusOK, "eventform", v)
		return
	}
	seeOther(w, r, back)
}

func (s *Server) handleOrganizerDeleteEvent(w http.ResponseWriter, r *http.Request) {
	s.deleteEvent(w, r, "/organizer", func(msg string) { s.organizerPage(w, r, msg) })
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request, back string, onErr func(msg string)) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if err := s.backend.DeleteEvent(r.Context(), id); err != nil {
		s.logger.Warn("delete event", "event_id", id, "error", err)
		onErr(backend.MessageOr(err, "Failed to delete event"))
		return
	}
	seeOther(w, r, back)
}

// parseEventForm reads the event form, multipart or urlencoded. When cur is
// set, a date input that still shows cur's value keeps cur's exact time so an
// untouched field never registers as a change.
func parseEventForm(r *http.Request, cur *models.Event) (models.CreateEventRequest, models.ValidationErrors) {
	errs := models.ValidationErrors{}
	if err := r.ParseMultipartForm(maxImageBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		errs.Add("image", "Could not read the form")
	}

	req := models.CreateEventRequest{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Location:    strings.TrimSpace(r.FormValue("location")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if c := strings.TrimSpace(r.FormValue("capacity")); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil {
			errs.Add("capacity", "Capacity must be a number")
		}
		req.Capacity = n
	}

	var curStart, curEnd time.Time
	if cur != nil {
		curStart, curEnd = cur.DateStart, cur.DateEnd
		req.ImageBase64 = cur.ImageBase64
	}
	req.DateStart = parseDateInput(r.FormValue("dateStart"), curStart, "dateStart", errs)
	req.DateEnd = parseDateInput(r.FormValue("dateEnd"), curEnd, "dateEnd", errs)

	if img, problem := readImage(r); problem != "" {
		errs.Add("image", problem)
	} else if img != "" {
		req.ImageBase64 = img
	}
	return req, errs
}

func parseDateInput(raw string, cur time.Time, field string, errs models.ValidationErrors) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if !cur.IsZero() && raw == cur.Local().Format(inputLayout) {
		return cur
	}
	t, err := time.ParseInLocation(inputLayout, raw, time.Local)
	if err != nil {
		errs.Add(field, "Invalid date")
		return time.Time{}
	}
	return t
}

// readImage returns the uploaded image as a data URI, or "" when none was
// sent. A non-empty problem is the message to show on the form.
func readImage(r *http.Request) (uri, problem string) {
	if r.MultipartForm == nil {
		return "", ""
	}
	f, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", ""
	}
	if err != nil {
		return "", "Could not read the image"
	}
	defer f.Close()

	mime := hdr.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		return "", "Image must be a picture file"
	}
	raw, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return "", "Could not read the image"
	}
	if len(raw) > maxImageBytes {
		return "", "Image must be smaller than 2 MB"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), ""
}

// countsFor resolves sold counts for events, skipping the call when there
// is nothing to count.
func (s *Server) countsFor(ctx context.Context, events []models.Event) map[int64]int {
	if len(events) == 0 {
		return nil
	}
	return s.backend.TicketCounts(ctx, eventIDs(events))
}
