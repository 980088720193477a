package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/lnup/eventscout/internal/models"
)

// listedStatuses are the event states returned to the feed. Cancelled events
// stay visible so clients can flag them.
var listedStatuses = []string{string(models.EventStatusActive), string(models.EventStatusCancelled)}

// EventRepository reads platform events and stores AI-discovered ones.
type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `
	e.id, e.title, e.description, e.venue_id, e.series_id,
	to_char(e.event_date, 'YYYY-MM-DD'), e.time_start, e.time_end,
	e.category, e.price_info, e.source_type, e.source_url, e.created_by,
	e.status, e.ai_confidence, e.image_url, e.is_private,
	e.saves_count, e.going_count, e.confirmations_count, e.photos_count, e.created_at,
	v.id, v.name, v.address, v.city, v.lat, v.lng, v.google_place_id,
	v.ticketmaster_id, v.website, v.instagram, v.phone, v.verified, v.owner_id, v.created_at`

// ListUpcoming returns public events in city dated within [from, to], ordered
// by date and start time.
func (r *EventRepository) ListUpcoming(ctx context.Context, city string, from, to time.Time) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events e
		JOIN venues v ON v.id = e.venue_id
		WHERE LOWER(v.city) = LOWER($1)
		  AND e.event_date BETWEEN $2::date AND $3::date
		  AND e.status = ANY($4)
		  AND e.is_private = FALSE
		ORDER BY e.event_date, e.time_start`

	rows, err := r.db.QueryContext(ctx, query,
		strings.TrimSpace(city),
		from.Format(models.DateLayout),
		to.Format(models.DateLayout),
		pq.Array(listedStatuses),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (models.Event, error) {
	var e models.Event
	var v models.Venue
	var category, sourceType, status string
	err := rows.Scan(
		&e.ID, &e.Title, &e.Description, &e.VenueID, &e.SeriesID,
		&e.EventDate, &e.TimeStart, &e.TimeEnd,
		&category, &e.PriceInfo, &sourceType, &e.SourceURL, &e.CreatedBy,
		&status, &e.AIConfidence, &e.ImageURL, &e.IsPrivate,
		&e.SavesCount, &e.GoingCount, &e.ConfirmationsCount, &e.PhotosCount, &e.CreatedAt,
		&v.ID, &v.Name, &v.Address, &v.City, &v.Lat, &v.Lng, &v.GooglePlaceID,
		&v.TicketmasterID, &v.Website, &v.Instagram, &v.Phone, &v.Verified, &v.OwnerID, &v.CreatedAt,
	)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to scan event: %w", err)
	}
	e.Category = models.Category(category)
	e.SourceType = models.SourceType(sourceType)
	e.Status = models.EventStatus(status)
	e.Venue = &v
	return e, nil
}

// SaveDiscovered stores events in one transaction. Venues are matched by
// name and city before a new row is created; events that collide on
// (source_url, event_date, title) are skipped.
func (r *EventRepository) SaveDiscovered(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		venueID := event.VenueID
		if event.Venue != nil {
			venueID, err = upsertVenue(ctx, tx, event.Venue)
			if err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (
				id, title, description, venue_id, series_id, event_date, time_start, time_end,
				category, price_info, source_type, source_url, created_by, status,
				ai_confidence, image_url, is_private
			) VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			ON CONFLICT DO NOTHING
		`,
			event.ID, event.Title, event.Description, venueID, event.SeriesID,
			event.EventDate, event.TimeStart, event.TimeEnd,
			string(event.Category), event.PriceInfo, string(event.SourceType), event.SourceURL,
			event.CreatedBy, string(event.Status), event.AIConfidence, event.ImageURL, event.IsPrivate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

func upsertVenue(ctx context.Context, tx *sql.Tx, venue *models.Venue) (string, error) {
	var existing string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM venues WHERE LOWER(name) = LOWER($1) AND LOWER(city) = LOWER($2) LIMIT 1`,
		venue.Name, venue.City,
	).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up venue: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO venues (
			id, name, address, city, lat, lng, google_place_id, ticketmaster_id,
			website, instagram, phone, verified, owner_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`,
		venue.ID, venue.Name, venue.Address, venue.City, venue.Lat, venue.Lng,
		venue.GooglePlaceID, venue.TicketmasterID, venue.Website, venue.Instagram,
		venue.Phone, venue.Verified, venue.OwnerID,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert venue %s: %w", venue.ID, err)
	}
	return venue.ID, nil
}
