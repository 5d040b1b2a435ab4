package web

import (
	"net/http"
	"time"

	"ticketDesk/internal/scanner"
)

// scanState is the JSON the scanner page polls.
type scanState struct {
	Active    bool       `json:"active"`
	State     string     `json:"state"`
	AttemptID string     `json:"attemptId,omitempty"`
	Payload   string     `json:"payload,omitempty"`
	Success   *bool      `json:"success,omitempty"`
	Message   string     `json:"message,omitempty"`
	At        *time.Time `json:"at,omitempty"`
	Accepted  *bool      `json:"accepted,omitempty"`
}

func stateOf(snap scanner.Snapshot) scanState {
	st := scanState{Active: true, State: snap.State.String()}
	if a := snap.Attempt; a != nil {
		st.AttemptID = a.ID
		st.Payload = a.Payload
		if a.Outcome != nil {
			ok := a.Outcome.Success
			at := a.ResolvedAt
			st.Success = &ok
			st.Message = a.Outcome.Message
			st.At = &at
		}
	}
	return st
}

var inactiveScan = scanState{State: "inactive", Message: "Scanner is not open"}

// handleScanner opens the scanner screen. The machine lives exactly as long
// as this screen's activation.
func (s *Server) handleScanner(w http.ResponseWriter, r *http.Request) {
	act := s.screens.Activate("scanner")
	m := scanner.New(act.Context(), s.backend,
		scanner.WithResetAfter(s.resetAfter),
		scanner.WithLogger(s.logger),
	)

	s.scanMu.Lock()
	prev := s.scan
	s.scan = &scanSession{activation: act, machine: m}
	s.scanMu.Unlock()
	if prev != nil {
		prev.machine.Close()
	}

	s.render(w, http.StatusOK, "scanner", view{Title: "Scan Tickets"})
}

func (s *Server) handleScanState(w http.ResponseWriter, r *http.Request) {
	m, ok := s.ActiveScanner()
	if !ok {
		writeJSON(w, http.StatusConflict, inactiveScan)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(m.Snapshot()))
}

// handleScanDecode takes a payload decoded in the browser, from the camera
// or typed in by hand.
func (s *Server) handleScanDecode(w http.ResponseWriter, r *http.Request) {
	m, ok := s.ActiveScanner()
	if !ok {
		writeJSON(w, http.StatusConflict, inactiveScan)
		return
	}
	source := r.FormValue("source")
	if source == "" {
		source = "camera"
	}
	accepted := m.Decode(r.FormValue("payload"), source)
	st := stateOf(m.Snapshot())
	st.Accepted = &accepted
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleScanDismiss(w http.ResponseWriter, r *http.Request) {
	m, ok := s.ActiveScanner()
	if !ok {
		writeJSON(w, http.StatusConflict, inactiveScan)
		return
	}
	m.Dismiss()
	writeJSON(w, http.StatusOK, stateOf(m.Snapshot()))
}

// closeScanner tears down the scanner screen, if open.
func (s *Server) closeScanner() {
	s.scanMu.Lock()
	prev := s.scan
	s.scan = nil
	s.scanMu.Unlock()
	if prev != nil {
		prev.machine.Close()
	}
}
