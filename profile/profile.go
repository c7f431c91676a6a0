// Package profile holds owner-scoped saved trip lists: the model, the
// validation applied on write, and the store interface the server persists
// through. The owner key is a hashed identity from the auth package, so the
// store never sees a raw credential.
package profile

import (
	"context"
	"strings"
)

const (
	// MaxTrips caps a persisted trip list
	MaxTrips = 50

	// MinSeats and MaxSeats bound the requested seat count
	MinSeats = 1
	MaxSeats = 9

	// airportCodeLen is the length of an IATA airport code
	airportCodeLen = 3
)

// validCabins are the accepted cabin classes, stored lowercase.
var validCabins = map[string]bool{
	"economy":  true,
	"premium":  true,
	"business": true,
	"first":    true,
}

// Trip is one saved trip idea.
type Trip struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Cabin       string `json:"cabin"`
	Seats       int    `json:"seats"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
}

// Normalize validates a trip and returns its canonical form: airport codes
// uppercased, cabin lowercased. Returns false when the trip is invalid;
// invalid entries are filtered out of a PUT rather than failing it.
func Normalize(t Trip) (Trip, bool) {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	t.Origin = strings.ToUpper(strings.TrimSpace(t.Origin))
	t.Destination = strings.ToUpper(strings.TrimSpace(t.Destination))
	t.StartDate = strings.TrimSpace(t.StartDate)
	t.EndDate = strings.TrimSpace(t.EndDate)
	t.Cabin = strings.ToLower(strings.TrimSpace(t.Cabin))

	if t.ID == "" || t.StartDate == "" || t.EndDate == "" {
		return Trip{}, false
	}
	if !isAirportCode(t.Origin) || !isAirportCode(t.Destination) {
		return Trip{}, false
	}
	if !validCabins[t.Cabin] {
		return Trip{}, false
	}
	if t.Seats < MinSeats || t.Seats > MaxSeats {
		return Trip{}, false
	}

	return t, true
}

// Sanitize normalizes a submitted trip list, dropping invalid entries and
// capping the result at MaxTrips.
func Sanitize(trips []Trip) []Trip {
	out := make([]Trip, 0, len(trips))
	for _, t := range trips {
		norm, ok := Normalize(t)
		if !ok {
			continue
		}
		out = append(out, norm)
		if len(out) == MaxTrips {
			break
		}
	}
	return out
}

// isAirportCode reports whether s is a three-letter uppercase IATA code.
func isAirportCode(s string) bool {
	if len(s) != airportCodeLen {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Store persists per-owner trip lists. PutTrips replaces the owner's list
// atomically.
type Store interface {
	GetTrips(ctx context.Context, ownerID string) ([]Trip, error)
	PutTrips(ctx context.Context, ownerID string, trips []Trip) error
	Close() error
}
