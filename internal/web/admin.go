package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"ticketDesk/internal/backend"
	"ticketDesk/models"
)

// adminData holds the two independent panels of the admin screen. Each
// panel carries its own error so one failing never hides the other.
type adminData struct {
	Users       []models.User
	UsersError  string
	Events      []eventRow
	EventsError string
	Roles       []models.Role

	NewUser     models.CreateUserRequest
	FormErrors  models.ValidationErrors
	ActionError string
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	s.adminPage(w, r, &adminData{})
}

func (s *Server) adminPage(w http.ResponseWriter, r *http.Request, data *adminData) {
	act, ctx, done := s.activate(r, "admin")
	defer done()

	data.Roles = models.Roles

	var g errgroup.Group
	g.Go(func() error {
		users, err := s.backend.ListUsers(ctx)
		if err != nil {
			s.logger.Warn("list users", "error", err)
			data.UsersError = "Failed to load users"
			return nil
		}
		data.Users = users
		return nil
	})
	g.Go(func() error {
		events, err := s.backend.ListEvents(ctx)
		if err != nil {
			s.logger.Warn("list events", "error", err)
			data.EventsError = "Failed to load events"
			return nil
		}
		data.Events = rowsWithCounts(events, s.countsFor(ctx, events))
		return nil
	})
	_ = g.Wait()

	s.show(w, act, "admin", view{Title: "Admin Dashboard", Data: data, Error: data.ActionError})
}

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	req := models.CreateUserRequest{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Company:  strings.TrimSpace(r.PostFormValue("company")),
	}
	req.Role, _ = models.ParseRole(r.PostFormValue("role"))

	if err := req.Validate(); err != nil {
		req.Password = ""
		s.adminPage(w, r, &adminData{NewUser: req, FormErrors: fieldErrors(err)})
		return
	}
	if _, err := s.backend.CreateUser(r.Context(), req); err != nil {
		s.logger.Warn("create user", "error", err)
		req.Password = ""
		s.adminPage(w, r, &adminData{NewUser: req, ActionError: backend.MessageOr(err, "Failed to create user")})
		return
	}
	seeOther(w, r, "/admin")
}

// handleAdminUpdateUser applies the fields present in the form. Blank text
// fields are left untouched.
func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")

	var req models.UpdateUserRequest
	text := func(field string) *string {
		v := strings.TrimSpace(r.PostFormValue(field))
		if v == "" {
			return nil
		}
		return &v
	}
	req.Name = text("name")
	req.Email = text("email")
	req.Company = text("company")
	if pw := r.PostFormValue("password"); pw != "" {
		req.Password = &pw
	}
	if raw := r.PostFormValue("role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			s.adminPage(w, r, &adminData{ActionError: "Unknown role"})
			return
		}
		req.Role = &role
	}
	switch r.PostFormValue("isActive") {
	case "true":
		active := true
		req.IsActive = &active
	case "false":
		active := false
		req.IsActive = &active
	}

	if req.Empty() {
		seeOther(w, r, "/admin")
		return
	}
	if err := req.Validate(); err != nil {
		s.adminPage(w, r, &adminData{ActionError: err.Error()})
		return
	}
	if _, err := s.backend.UpdateUser(r.Context(), id, req); err != nil {
		s.logger.Warn("update user", "user_id", id, "error", err)
		s.adminPage(w, r, &adminData{ActionError: backend.MessageOr(err, "Failed to update user")})
		return
	}
	seeOther(w, r, "/admin")
}

func (s *Server) handleAdminEditEventForm(w http.ResponseWriter, r *http.Request) {
	s.editEventPage(w, r, "/admin")
}

func (s *Server) handleAdminEditEvent(w http.ResponseWriter, r *http.Request) {
	s.editEvent(w, r, "/admin")
}

func (s *Server) handleAdminDeleteEvent(w http.ResponseWriter, r *http.Request) {
	s.deleteEvent(w, r, "/admin", func(msg string) {
		s.adminPage(w, r, &adminData{ActionError: msg})
	})
}

func (s *Server) handleAdminAttendeesCSV(w http.ResponseWriter, r *http.Request) {
	s.exportAttendees(w, r, func(_ int64, msg string) {
		s.adminPage(w, r, &adminData{ActionError: msg})
	})
}
