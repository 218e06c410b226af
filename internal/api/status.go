package api

import (
	"net/http"

	"github.com/nerrad567/linkbeat/internal/orchestrator"
	"github.com/nerrad567/linkbeat/internal/session"
)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Device   DeviceInfo            `json:"device"`
	Link     LinkInfo              `json:"link"`
	Session  SessionInfo           `json:"session"`
	Snapshot orchestrator.Snapshot `json:"orchestrator"`
}

// DeviceInfo identifies the device.
type DeviceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// LinkInfo is the connection manager's view of the link.
type LinkInfo struct {
	State      string `json:"state"`
	Attempt    uint16 `json:"attempt"`
	Address    string `json:"address,omitempty"`
	Bursts     uint64 `json:"bursts"`
	DownChecks uint64 `json:"down_checks"`
}

// SessionInfo is the MQTT session's view of the broker.
type SessionInfo struct {
	Started   bool          `json:"started"`
	Connected bool          `json:"connected"`
	InFlight  bool          `json:"in_flight"`
	Publishes session.Stats `json:"publishes"`
}

// handleStatus reports link, session and orchestrator state.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	ls := s.link.Stats()
	li := LinkInfo{
		State:      ls.State.String(),
		Attempt:    ls.Attempt,
		Bursts:     ls.Bursts,
		DownChecks: ls.DownChecks,
	}
	if ls.Address.IsValid() {
		li.Address = ls.Address.String()
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Device: DeviceInfo{ID: s.device.ID, Name: s.device.Name},
		Link:   li,
		Session: SessionInfo{
			Started:   s.session.Started(),
			Connected: s.session.Connected(),
			InFlight:  s.session.InFlight(),
			Publishes: s.session.Stats(),
		},
		Snapshot: s.snapshot.Snapshot(),
	})
}
