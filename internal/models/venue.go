package models

import "time"

// Venue is the location an event takes place at. Freshly discovered venues are
// unverified and carry 0,0 coordinates until geocoded.
type Venue struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	GooglePlaceID  *string   `json:"google_place_id"`
	TicketmasterID *string   `json:"ticketmaster_id,omitempty"`
	Website        *string   `json:"website"`
	Instagram      *string   `json:"instagram"`
	Phone          *string   `json:"phone"`
	Verified       bool      `json:"verified"`
	OwnerID        *string   `json:"owner_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasCoordinates reports whether the venue has been geocoded.
func (v *Venue) HasCoordinates() bool {
	return v != nil && !(v.Lat == 0 && v.Lng == 0)
}
