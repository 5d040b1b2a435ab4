package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"ticketDesk/models"
)

// FakeUser is an account known to FakeBackend.
type FakeUser struct {
	models.User
	Password string
}

// FakeBackend is an in-memory stand-in for the ticketing REST backend.
type FakeBackend struct {
	*httptest.Server

	mu      sync.Mutex
	users   []FakeUser
	events  []models.Event
	tickets []models.Ticket
	nextID  int64

	// ScanCalls counts POST /scan requests.
	ScanCalls atomic.Int32
	// ScanGate, when set, blocks POST /scan until it receives or is closed.
	ScanGate chan struct{}
	// FailTickets makes GET /tickets/{eventId} fail for these events.
	FailTickets map[int64]bool
	// FailEvents makes GET /events fail.
	FailEvents atomic.Bool
}

// Seeded accounts, all with password "secret123".
const (
	AdminEmail     = "admin@example.com"
	OrganizerEmail = "org@example.com"
	UserEmail      = "user@example.com"
	Password       = "secret123"
)

// NewFakeBackend starts a fake backend seeded with one account per role.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{nextID: 100, FailTickets: map[int64]bool{}}
	f.users = []FakeUser{
		{User: models.User{ID: "1", Name: "Ada Admin", Email: AdminEmail, Role: models.RoleAdmin, IsActive: true}, Password: Password},
		{User: models.User{ID: "2", Name: "Olly Organizer", Email: OrganizerEmail, Role: models.RoleOrganizer, Company: "Acme", IsActive: true}, Password: Password},
		{User: models.User{ID: "3", Name: "Uma User", Email: UserEmail, Role: models.RoleUser, IsActive: true}, Password: Password},
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// TokenFor returns the bearer token the fake issues to the account with userID.
func TokenFor(userID string) string { return "token-" + userID }

// AddEvent stores e (owned by the seeded organizer unless set) and returns it with an id.
func (f *FakeBackend) AddEvent(e models.Event) models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if e.ID == 0 {
		e.ID = f.nextID
	}
	if e.Organizer == nil {
		org := f.users[1].User
		e.Organizer = &org
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	f.events = append(f.events, e)
	return e
}

// AddTicket issues a ticket for eventID to the account with userID.
func (f *FakeBackend) AddTicket(id string, eventID int64, userID string) models.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	tk := models.Ticket{ID: id, CreatedAt: time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)}
	if u := f.userByID(userID); u != nil {
		tk.User = u.User
	}
	if e := f.eventByID(eventID); e != nil {
		tk.Event = *e
	}
	f.tickets = append(f.tickets, tk)
	return tk
}

// Ticket returns the stored ticket with id.
func (f *FakeBackend) Ticket(id string) (models.Ticket, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tk := range f.tickets {
		if tk.ID == id {
			return tk, true
		}
	}
	return models.Ticket{}, false
}

// Events returns a copy of the stored events.
func (f *FakeBackend) Events() []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Event(nil), f.events...)
}

// User returns the account with id.
func (f *FakeBackend) User(id string) (models.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.userByID(id); u != nil {
		return u.User, true
	}
	return models.User{}, false
}

func (f *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/login", f.login)
	r.Post("/auth/signup", f.signup)
	r.Get("/events", f.listEvents)
	r.Get("/events/{id}", f.getEvent)
	r.Group(func(r chi.Router) {
		r.Use(f.authenticate)
		r.Get("/events/organizer", f.organizerEvents)
		r.Post("/events", f.createEvent)
		r.Patch("/events/{id}", f.updateEvent)
		r.Delete("/events/{id}", f.deleteEvent)
		r.Get("/users", f.listUsers)
		r.Post("/users", f.createUser)
		r.Patch("/users/{id}", f.updateUser)
		r.Post("/tickets", f.createTicket)
		r.Get("/tickets/mine", f.myTickets)
		r.Get("/tickets/{eventId}", f.eventTickets)
		r.Delete("/tickets/{id}", f.deleteTicket)
		r.Post("/scan", f.scan)
	})
	return r
}

type callerKey struct{}

func (f *FakeBackend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		id, found := strings.CutPrefix(tok, "token-")
		if !ok || !found {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		f.mu.Lock()
		u := f.userByID(id)
		f.mu.Unlock()
		if u == nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := r.Context()
		next.ServeHTTP(w, r.WithContext(contextWithCaller(ctx, u.User)))
	})
}

func (f *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&in)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == in.Email && u.Password == in.Password {
			writeJSON(w, http.StatusCreated, credentialFor(u.User))
			return
		}
	}
	writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
}

func (f *FakeBackend) signup(w http.ResponseWriter, r *http.Request) {
	var in models.SignupRequest
	_ = json.NewDecoder(r.Body).Decode(&in)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == in.Email {
			writeMessage(w, http.StatusConflict, "Email already registered")
			return
		}
	}
	f.nextID++
	u := FakeUser{User: models.User{ID: strconv.FormatInt(f.nextID, 10), Name: in.Name, Email: in.Email, Company: in.Company, Role: models.RoleUser, IsActive: true}, Password: in.Password}
	f.users = append(f.users, u)
	writeJSON(w, http.StatusCreated, credentialFor(u.User))
}

func (f *FakeBackend) listEvents(w http.ResponseWriter, r *http.Request) {
	if f.FailEvents.Load() {
		writeMessage(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, f.Events())
}

func (f *FakeBackend) getEvent(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	if e := f.eventByID(id); e != nil {
		writeJSON(w, http.StatusOK, e)
		return
	}
	writeMessage(w, http.StatusNotFound, "Event not found")
}

func (f *FakeBackend) organizerEvents(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Event{}
	for _, e := range f.events {
		if e.Organizer != nil && e.Organizer.ID == caller.ID {
			out = append(out, e)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeBackend) createEvent(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	if caller.Role != models.RoleOrganizer {
		writeMessage(w, http.StatusForbidden, "Forbidden")
		return
	}
	var in models.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	e := f.AddEvent(models.Event{
		Name: in.Name, DateStart: in.DateStart, DateEnd: in.DateEnd, Location: in.Location,
		Description: in.Description, Capacity: in.Capacity, ImageBase64: in.ImageBase64, Organizer: &caller,
	})
	writeJSON(w, http.StatusCreated, e)
}

func (f *FakeBackend) updateEvent(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var in models.UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.eventByID(id)
	if e == nil {
		writeMessage(w, http.StatusNotFound, "Event not found")
		return
	}
	if in.Name != nil {
		e.Name = *in.Name
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Capacity != nil {
		e.Capacity = *in.Capacity
	}
	if in.DateStart != nil {
		e.DateStart = *in.DateStart
	}
	if in.DateEnd != nil {
		e.DateEnd = *in.DateEnd
	}
	writeJSON(w, http.StatusOK, e)
}

func (f *FakeBackend) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.events {
		if e.ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Event not found")
}

func (f *FakeBackend) listUsers(w http.ResponseWriter, r *http.Request) {
	if callerFrom(r).Role != models.RoleAdmin {
		writeMessage(w, http.StatusForbidden, "Forbidden")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u.User)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeBackend) createUser(w http.ResponseWriter, r *http.Request) {
	var in models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := FakeUser{User: models.User{ID: strconv.FormatInt(f.nextID, 10), Name: in.Name, Email: in.Email, Role: in.Role, Company: in.Company, IsActive: true}, Password: in.Password}
	f.users = append(f.users, u)
	writeJSON(w, http.StatusCreated, u.User)
}

func (f *FakeBackend) updateUser(w http.ResponseWriter, r *http.Request) {
	var in models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.userByID(chi.URLParam(r, "id"))
	if u == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	writeJSON(w, http.StatusOK, u.User)
}

func (f *FakeBackend) createTicket(w http.ResponseWriter, r *http.Request) {
	var in models.CreateTicketRequest
	_ = json.NewDecoder(r.Body).Decode(&in)
	caller := callerFrom(r)
	f.mu.Lock()
	e := f.eventByID(in.EventID)
	if e == nil {
		f.mu.Unlock()
		writeMessage(w, http.StatusNotFound, "Event not found")
		return
	}
	if e.Remaining() == 0 {
		f.mu.Unlock()
		writeMessage(w, http.StatusConflict, "Event is sold out")
		return
	}
	sold := e.Sold() + 1
	e.TicketsSold = &sold
	f.nextID++
	id := fmt.Sprintf("ticket-%d", f.nextID)
	f.mu.Unlock()
	tk := f.AddTicket(id, in.EventID, caller.ID)
	writeJSON(w, http.StatusCreated, tk)
}

func (f *FakeBackend) myTickets(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Ticket{}
	for _, tk := range f.tickets {
		if tk.User.ID == caller.ID {
			out = append(out, tk)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeBackend) eventTickets(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailTickets[id] {
		writeMessage(w, http.StatusInternalServerError, "tickets unavailable")
		return
	}
	out := []models.Ticket{}
	for _, tk := range f.tickets {
		if tk.Event.ID == id {
			out = append(out, tk)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeBackend) deleteTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, tk := range f.tickets {
		if tk.ID == id {
			f.tickets = append(f.tickets[:i], f.tickets[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Ticket not found")
}

func (f *FakeBackend) scan(w http.ResponseWriter, r *http.Request) {
	f.ScanCalls.Add(1)
	if f.ScanGate != nil {
		select {
		case <-f.ScanGate:
		case <-r.Context().Done():
			return
		}
	}
	var in struct {
		TicketID string `json:"ticketId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tickets {
		if f.tickets[i].ID != in.TicketID {
			continue
		}
		if f.tickets[i].Scanned() {
			writeMessage(w, http.StatusConflict, "Ticket already used")
			return
		}
		now := time.Now().UTC()
		f.tickets[i].ScanDate = &now
		writeJSON(w, http.StatusCreated, f.tickets[i])
		return
	}
	writeMessage(w, http.StatusNotFound, "Ticket not found")
}

func (f *FakeBackend) userByID(id string) *FakeUser {
	for i := range f.users {
		if f.users[i].ID == id {
			return &f.users[i]
		}
	}
	return nil
}

func (f *FakeBackend) eventByID(id int64) *models.Event {
	for i := range f.events {
		if f.events[i].ID == id {
			return &f.events[i]
		}
	}
	return nil
}

func credentialFor(u models.User) models.Credential {
	return models.Credential{
		AccessToken: TokenFor(u.ID),
		User:        models.Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg, "statusCode": status})
}
