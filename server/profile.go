package server

import (
	"encoding/json"
	"net/http"

	"github.com/aeroscan/aeroscan/flow"
	"github.com/aeroscan/aeroscan/profile"
)

// handleGetTrips returns the caller's saved trip list.
func (s *Server) handleGetTrips(w http.ResponseWriter, r *http.Request) {
	owner, ferr := s.identity.Resolve(r.Context(), r)
	if ferr != nil {
		s.writeError(w, ferr)
		return
	}

	trips, err := s.profiles.GetTrips(r.Context(), owner.OwnerID)
	if err != nil {
		s.logger.Error("Failed to load trips", "owner", owner.OwnerID, "error", err)
		s.writeError(w, flow.ErrInternal("Failed to load trips"))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"owner": owner,
		"trips": trips,
	})
}

// putTripsRequest is the PUT /profile/trips body.
type putTripsRequest struct {
	Trips []profile.Trip `json:"trips"`
}

// handlePutTrips replaces the caller's trip list. Trips are normalized,
// invalid entries are dropped, and the surviving list is stored in one
// transaction.
func (s *Server) handlePutTrips(w http.ResponseWriter, r *http.Request) {
	owner, ferr := s.identity.Resolve(r.Context(), r)
	if ferr != nil {
		s.writeError(w, ferr)
		return
	}

	var req putTripsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, flow.ErrBadRequest("invalid JSON body"))
		return
	}

	trips := profile.Sanitize(req.Trips)
	if err := s.profiles.PutTrips(r.Context(), owner.OwnerID, trips); err != nil {
		s.logger.Error("Failed to store trips", "owner", owner.OwnerID, "error", err)
		s.writeError(w, flow.ErrInternal("Failed to store trips"))
		return
	}

	s.logger.Info("Trip list updated",
		"owner", owner.OwnerID,
		"submitted", len(req.Trips),
		"stored", len(trips))

	s.writeJSON(w, http.StatusOK, map[string]any{
		"trips": trips,
	})
}
