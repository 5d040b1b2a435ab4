package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ticketDesk/internal/backend"
	"ticketDesk/internal/qr"
	"ticketDesk/models"
)

type ticketView struct {
	models.Ticket
	QR string
}

type myTicketsData struct {
	Tickets []ticketView
}

func (s *Server) handleMyTickets(w http.ResponseWriter, r *http.Request) {
	s.myTicketsPage(w, r, "")
}

func (s *Server) myTicketsPage(w http.ResponseWriter, r *http.Request, actionErr string) {
	act, ctx, done := s.activate(r, "my-tickets")
	defer done()

	data := myTicketsData{}
	v := view{Title: "My Tickets", Data: &data, Error: actionErr}

	tickets, err := s.backend.MyTickets(ctx)
	if err != nil {
		s.logger.Warn("list my tickets", "error", err)
		v.Error = "Failed to load tickets"
	}
	for _, tk := range tickets {
		uri, err := qr.DataURI(tk.ID)
		if err != nil {
			s.logger.Warn("render ticket qr", "ticket_id", tk.ID, "error", err)
		}
		data.Tickets = append(data.Tickets, ticketView{Ticket: tk, QR: uri})
	}
	s.show(w, act, "tickets", v)
}

func (s *Server) handleCancelTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.backend.DeleteTicket(r.Context(), id); err != nil {
		s.logger.Warn("cancel ticket", "ticket_id", id, "error", err)
		s.myTicketsPage(w, r, backend.MessageOr(err, "Failed to cancel ticket"))
		return
	}
	seeOther(w, r, "/user")
}
