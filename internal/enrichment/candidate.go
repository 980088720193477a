package enrichment

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/lnup/eventscout/internal/models"
)

// Candidate is the validated shape of a single model-produced event.
type Candidate struct {
	Title        string          `mapstructure:"title" json:"title"`
	Description  string          `mapstructure:"description" json:"description"`
	Date         string          `mapstructure:"date" json:"date"`
	TimeStart    string          `mapstructure:"time_start" json:"time_start"`
	TimeEnd      string          `mapstructure:"time_end" json:"time_end,omitempty"`
	VenueName    string          `mapstructure:"venue_name" json:"venue_name"`
	VenueAddress string          `mapstructure:"venue_address" json:"venue_address"`
	City         string          `mapstructure:"city" json:"city"`
	Category     models.Category `mapstructure:"category" json:"category"`
	PriceInfo    string          `mapstructure:"price_info" json:"price_info"`
	SourceURL    string          `mapstructure:"source_url" json:"source_url,omitempty"`
	Confidence   float64         `mapstructure:"confidence" json:"confidence"`
}

// DecodeCandidate converts a loosely typed record into a Candidate. Numbers
// given as strings are accepted, unknown categories collapse to "other"
// and null fields decode to zero values.
func DecodeCandidate(rec Record) (Candidate, error) {
	var c Candidate
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &c,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			categoryHook,
			confidenceHook,
		),
	})
	if err != nil {
		return Candidate{}, fmt.Errorf("build candidate decoder: %w", err)
	}
	if err := decoder.Decode(rec); err != nil {
		return Candidate{}, fmt.Errorf("decode candidate: %w", err)
	}
	c.trim()
	if c.Category == "" {
		c.Category = models.CategoryOther
	}
	return c, nil
}

// DecodeCandidates decodes every record, skipping the ones that do not fit
// the schema.
func DecodeCandidates(records []Record) []Candidate {
	out := make([]Candidate, 0, len(records))
	for _, rec := range records {
		c, err := DecodeCandidate(rec)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// HasExtractionFields reports whether title, date, start time and venue name
// are all present.
func (c Candidate) HasExtractionFields() bool {
	return c.Title != "" && c.Date != "" && c.TimeStart != "" && c.VenueName != ""
}

// HasDiscoveryFields additionally requires a source URL.
func (c Candidate) HasDiscoveryFields() bool {
	return c.HasExtractionFields() && c.SourceURL != ""
}

func (c *Candidate) trim() {
	for _, s := range []*string{
		&c.Title, &c.Description, &c.Date, &c.TimeStart, &c.TimeEnd,
		&c.VenueName, &c.VenueAddress, &c.City, &c.PriceInfo, &c.SourceURL,
	} {
		*s = strings.TrimSpace(*s)
	}
}

var categoryType = reflect.TypeOf(models.Category(""))

func categoryHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != categoryType {
		return data, nil
	}
	if s, ok := data.(string); ok {
		return models.ParseCategory(s), nil
	}
	return models.CategoryOther, nil
}

func confidenceHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Float64 {
		return data, nil
	}
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
	if err != nil {
		return 0.0, nil
	}
	if percent {
		v /= 100
	}
	return v, nil
}
