package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed cities.yaml
var defaultCities []byte

// City is a locality the scheduler scans periodically.
type City struct {
	Name        string `yaml:"name"`
	CountryCode string `yaml:"country_code"`
}

type cityCatalog struct {
	Cities []City `yaml:"cities"`
}

// LoadCities reads the city catalog from path, or the embedded default
// catalog when path is empty.
func LoadCities(path string) ([]City, error) {
	data := defaultCities
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read cities file: %w", err)
		}
		data = raw
	}
	return parseCities(data)
}

func parseCities(data []byte) ([]City, error) {
	var catalog cityCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse cities: %w", err)
	}

	seen := make(map[string]bool, len(catalog.Cities))
	cities := make([]City, 0, len(catalog.Cities))
	for _, c := range catalog.Cities {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return nil, fmt.Errorf("parse cities: entry without name")
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		if c.CountryCode == "" {
			c.CountryCode = defaultTicketmasterCountry
		}
		cities = append(cities, c)
	}
	return cities, nil
}
