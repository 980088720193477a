package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lnup/eventscout/internal/models"
)

// ScanRepository stores the last AI discovery time per locality.
type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// LastScanned returns nil without error when the city was never scanned.
func (r *ScanRepository) LastScanned(ctx context.Context, city string) (*models.ScanRecord, error) {
	var rec models.ScanRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT city, last_scanned FROM locality_scans WHERE city = $1`,
		scanKey(city),
	).Scan(&rec.City, &rec.LastScanned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan record: %w", err)
	}
	return &rec, nil
}

// MarkScanned upserts the scan time for city.
func (r *ScanRepository) MarkScanned(ctx context.Context, city string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO locality_scans (city, last_scanned) VALUES ($1, $2)
		ON CONFLICT (city) DO UPDATE SET last_scanned = EXCLUDED.last_scanned
	`, scanKey(city), at)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

func scanKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
