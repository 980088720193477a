package models

import "time"

// ScanRecord tracks when AI discovery last ran for a locality.
type ScanRecord struct {
	City        string    `json:"city"`
	LastScanned time.Time `json:"last_scanned"`
}
