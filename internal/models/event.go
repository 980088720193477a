package models

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for Event.EventDate.
const DateLayout = "2006-01-02"

// Event is the canonical event record shared by every source: ticketing APIs,
// AI discovery and events authored on the platform.
type Event struct {
	ID                 string      `json:"id"`
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	VenueID            string      `json:"venue_id"`
	Venue              *Venue      `json:"venue,omitempty"`
	SeriesID           *string     `json:"series_id"`
	EventDate          string      `json:"event_date"` // YYYY-MM-DD
	TimeStart          string      `json:"time_start"` // HH:MM
	TimeEnd            *string     `json:"time_end"`
	Category           Category    `json:"category"`
	PriceInfo          string      `json:"price_info"`
	SourceType         SourceType  `json:"source_type"`
	SourceURL          *string     `json:"source_url"`
	CreatedBy          *string     `json:"created_by"`
	Status             EventStatus `json:"status"`
	AIConfidence       *float64    `json:"ai_confidence"`
	ImageURL           *string     `json:"image_url"`
	CreatedAt          time.Time   `json:"created_at"`
	IsPrivate          bool        `json:"is_private"`
	SavesCount         int         `json:"saves_count"`
	GoingCount         int         `json:"going_count"`
	ConfirmationsCount int         `json:"confirmations_count"`
	PhotosCount        int         `json:"photos_count"`
}

// EventStatus represents the moderation state of an event.
type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusPending   EventStatus = "pending"
	EventStatusRejected  EventStatus = "rejected"
)

// Date parses EventDate. The second return value is false when the date is
// missing or malformed.
func (e *Event) Date() (time.Time, bool) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(e.EventDate))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// StartMinutes returns TimeStart as minutes after midnight.
func (e *Event) StartMinutes() (int, bool) {
	return ParseClock(e.TimeStart)
}

// Confidence returns the AI confidence, treating authoritative sources as 1.0.
func (e *Event) Confidence() float64 {
	if e.AIConfidence == nil {
		return 1.0
	}
	return *e.AIConfidence
}

// HasImage reports whether the event carries a non-empty image URL.
func (e *Event) HasImage() bool {
	return e.ImageURL != nil && strings.TrimSpace(*e.ImageURL) != ""
}

// VenueName returns the venue name or an empty string when no venue is attached.
func (e *Event) VenueName() string {
	if e.Venue == nil {
		return ""
	}
	return e.Venue.Name
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into minutes after midnight.
func ParseClock(raw string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
