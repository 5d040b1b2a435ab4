package web

import (
	"errors"
	"net/http"
	"strings"

	"ticketDesk/internal/auth"
	"ticketDesk/internal/backend"
	"ticketDesk/internal/session"
	"ticketDesk/models"
)

type accountForm struct {
	From    string
	Name    string
	Email   string
	Company string
	Errors  models.ValidationErrors
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.screens.Activate("login")
	s.render(w, http.StatusOK, "login", view{
		Title: "Log in",
		Data:  &accountForm{From: r.URL.Query().Get(auth.FromParam)},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	req := models.LoginRequest{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	form := &accountForm{From: r.PostFormValue(auth.FromParam), Email: req.Email}
	v := view{Title: "Log in", Data: form}

	if err := req.Validate(); err != nil {
		form.Errors = fieldErrors(err)
		s.render(w, http.StatusOK, "login", v)
		return
	}
	cred, err := s.backend.Login(r.Context(), req)
	if err != nil {
		s.logger.Info("login rejected", "error", err)
		v.Error = backend.MessageOr(err, "An error occurred")
		s.render(w, http.StatusOK, "login", v)
		return
	}
	s.establish(w, r, cred, form.From, "login", v)
}

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request) {
	s.screens.Activate("signup")
	s.render(w, http.StatusOK, "signup", view{
		Title: "Sign up",
		Data:  &accountForm{From: r.URL.Query().Get(auth.FromParam)},
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	req := models.SignupRequest{
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Company:  strings.TrimSpace(r.PostFormValue("company")),
		Password: r.PostFormValue("password"),
	}
	form := &accountForm{
		From:    r.PostFormValue(auth.FromParam),
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
	}
	v := view{Title: "Sign up", Data: form}

	errs := fieldErrors(req.Validate())
	if r.PostFormValue("confirmPassword") != req.Password {
		errs.Add("confirmPassword", "Passwords do not match")
	}
	if len(errs) > 0 {
		form.Errors = errs
		s.render(w, http.StatusOK, "signup", v)
		return
	}
	cred, err := s.backend.Signup(r.Context(), req)
	if err != nil {
		s.logger.Info("signup rejected", "error", err)
		v.Error = backend.MessageOr(err, "An error occurred")
		s.render(w, http.StatusOK, "signup", v)
		return
	}
	s.establish(w, r, cred, form.From, "signup", v)
}

// establish adopts cred and sends the user on to from or their home screen.
func (s *Server) establish(w http.ResponseWriter, r *http.Request, cred models.Credential, from, page string, v view) {
	if err := s.session.Set(r.Context(), cred); err != nil {
		s.logger.Error("store credential", "error", err)
		v.Error = "Could not start session"
		if errors.Is(err, session.ErrIncompleteCredential) {
			v.Error = "The server returned an incomplete session"
		}
		s.render(w, http.StatusOK, page, v)
		return
	}
	dest, _ := auth.Landing(cred, true, from)
	seeOther(w, r, dest)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Clear(r.Context()); err != nil {
		s.logger.Error("clear credential", "error", err)
	}
	s.closeScanner()
	seeOther(w, r, auth.FallbackPath)
}
