// Package web serves the operator's screens to the local browser.
//
// Every screen is rendered server-side from backend data. Navigation is gated
// by role through internal/auth, and each page load runs under a screen
// activation so backend calls for a screen the operator has left are
// abandoned.
package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"ticketDesk/internal/auth"
	"ticketDesk/internal/logging"
	"ticketDesk/internal/scanner"
	"ticketDesk/internal/screen"
	"ticketDesk/models"
)

// Backend is the part of the REST client the screens use.
type Backend interface {
	Login(ctx context.Context, req models.LoginRequest) (models.Credential, error)
	Signup(ctx context.Context, req models.SignupRequest) (models.Credential, error)

	ListEvents(ctx context.Context) ([]models.Event, error)
	GetEvent(ctx context.Context, id int64) (models.Event, error)
	ListOrganizerEvents(ctx context.Context) ([]models.Event, error)
	CreateEvent(ctx context.Context, req models.CreateEventRequest) (models.Event, error)
	UpdateEvent(ctx context.Context, id int64, req models.UpdateEventRequest) (models.Event, error)
	DeleteEvent(ctx context.Context, id int64) error

	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, req models.CreateUserRequest) (models.User, error)
	UpdateUser(ctx context.Context, id string, req models.UpdateUserRequest) (models.User, error)

	CreateTicket(ctx context.Context, eventID int64) (models.Ticket, error)
	MyTickets(ctx context.Context) ([]models.Ticket, error)
	EventTickets(ctx context.Context, eventID int64) ([]models.Ticket, error)
	DeleteTicket(ctx context.Context, id string) error
	TicketCounts(ctx context.Context, eventIDs []int64) map[int64]int

	scanner.Verifier
}

// Session is the session gate as seen by the screens.
type Session interface {
	auth.CredentialSource
	Set(ctx context.Context, c models.Credential) error
	Clear(ctx context.Context) error
}

// Deps holds what the server needs.
type Deps struct {
	Backend Backend
	Session Session
	Screens *screen.Tracker
	Logger  *logging.Logger
	// ScanResetAfter is how long a scan result stays on screen.
	ScanResetAfter time.Duration
	Version        string
	// Now is the clock for form validation; defaults to time.Now.
	Now func() time.Time
}

// Server renders the screens. Create it with New and mount Handler.
type Server struct {
	backend    Backend
	session    Session
	screens    *screen.Tracker
	logger     *logging.Logger
	resetAfter time.Duration
	version    string
	now        func() time.Time
	pages      *renderer

	scanMu sync.Mutex
	scan   *scanSession
}

// scanSession is the scanner screen's machine, bound to its activation.
type scanSession struct {
	activation *screen.Activation
	machine    *scanner.Machine
}

// New validates deps and parses the templates.
func New(deps Deps) (*Server, error) {
	if deps.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if deps.Session == nil {
		return nil, errors.New("session is required")
	}
	if deps.Screens == nil {
		return nil, errors.New("screen tracker is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Server{
		backend:    deps.Backend,
		session:    deps.Session,
		screens:    deps.Screens,
		logger:     deps.Logger.With("component", "web"),
		resetAfter: deps.ScanResetAfter,
		version:    deps.Version,
		now:        deps.Now,
		pages:      pages,
	}, nil
}

// activate makes name the current screen. The returned context ends when the
// request ends or the operator moves to another screen, whichever is first.
func (s *Server) activate(r *http.Request, name string) (*screen.Activation, context.Context, context.CancelFunc) {
	act := s.screens.Activate(name)
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(act.Context(), cancel)
	return act, ctx, func() {
		stop()
		cancel()
	}
}

// ActiveScanner returns the machine of the scanner screen if it is the
// current screen.
func (s *Server) ActiveScanner() (*scanner.Machine, bool) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	if s.scan == nil || !s.scan.activation.Active() || s.scan.machine.Closed() {
		return nil, false
	}
	return s.scan.machine, true
}
