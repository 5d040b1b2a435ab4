package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ticketDesk/internal/auth"
)

// Handler builds the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(s.handleNotFound)

	// Public screens
	r.Get("/", s.handleHome)
	r.Get("/events/{id}", s.handleEvent)
	r.Post("/events/{id}/tickets", s.handleGetTicket)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(auth.RedirectIfAuthenticated(s.session))
		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Get("/signup", s.handleSignupForm)
		r.Post("/signup", s.handleSignup)
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(auth.RequireGrant(s.session, "/user"))
		r.Get("/", s.handleMyTickets)
		r.Post("/tickets/{id}/cancel", s.handleCancelTicket)
	})

	r.Route("/organizer", func(r chi.Router) {
		r.Use(auth.RequireGrant(s.session, "/organizer"))
		r.Get("/", s.handleOrganizerDashboard)
		r.Get("/create", s.handleCreateEventForm)
		r.Post("/create", s.handleCreateEvent)

		r.Route("/events/{id}", func(r chi.Router) {
			r.Get("/attendees", s.handleAttendees)
			r.Get("/attendees.csv", s.handleOrganizerAttendeesCSV)
			r.Get("/edit", s.handleEditEventForm)
			r.Post("/edit", s.handleEditEvent)
			r.Post("/delete", s.handleOrganizerDeleteEvent)
		})

		r.Route("/scan", func(r chi.Router) {
			r.Get("/", s.handleScanner)
			r.Get("/state", s.handleScanState)
			r.Post("/decode", s.handleScanDecode)
			r.Post("/dismiss", s.handleScanDismiss)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireGrant(s.session, "/admin"))
		r.Get("/", s.handleAdminDashboard)
		r.Post("/users", s.handleAdminCreateUser)
		r.Post("/users/{id}", s.handleAdminUpdateUser)
		r.Get("/events/{id}/edit", s.handleAdminEditEventForm)
		r.Post("/events/{id}/edit", s.handleAdminEditEvent)
		r.Post("/events/{id}/delete", s.handleAdminDeleteEvent)
		r.Get("/events/{id}/attendees.csv", s.handleAdminAttendeesCSV)
	})

	return r
}
