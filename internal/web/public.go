package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ticketDesk/internal/auth"
	"ticketDesk/internal/backend"
	"ticketDesk/models"
)

type homeData struct {
	Events    []models.Event
	LoginLink string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	act, ctx, done := s.activate(r, "events")
	defer done()

	data := homeData{LoginLink: auth.WithFrom(auth.LoginPath, r.URL.Query().Get(auth.FromParam))}
	v := view{Title: "Events", Data: &data}

	events, err := s.backend.ListEvents(ctx)
	if err != nil {
		s.logger.Warn("list events", "error", err)
		v.Error = "Failed to load events"
	}
	data.Events = events
	s.show(w, act, "home", v)
}

type eventData struct {
	Event       *models.Event
	TicketError string
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	s.eventPage(w, r, id, "")
}

func (s *Server) eventPage(w http.ResponseWriter, r *http.Request, id int64, ticketErr string) {
	act, ctx, done := s.activate(r, "event")
	defer done()

	data := eventData{TicketError: ticketErr}
	v := view{Title: "Event", Data: &data}

	ev, err := s.backend.GetEvent(ctx, id)
	if err != nil {
		s.logger.Warn("get event", "event_id", id, "error", err)
		v.Error = "Failed to load event details"
	} else {
		data.Event = &ev
		v.Title = ev.Name
	}
	s.show(w, act, "event", v)
}

// handleGetTicket buys a ticket. Without a credential the visitor is sent to
// login and brought back to the event afterwards.
func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	if _, present := s.session.Current(); !present {
		seeOther(w, r, auth.WithFrom(auth.LoginPath, "/events/"+strconv.FormatInt(id, 10)))
		return
	}
	if _, err := s.backend.CreateTicket(r.Context(), id); err != nil {
		s.logger.Warn("create ticket", "event_id", id, "error", err)
		s.eventPage(w, r, id, backend.MessageOr(err, "Failed to get ticket"))
		return
	}
	seeOther(w, r, "/user")
}

// pathID parses the {id} URL parameter as an event id.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
