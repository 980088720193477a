package models

import "strings"

// Category is the fixed event taxonomy used throughout the app.
type Category string

const (
	CategoryNightlife Category = "nightlife"
	CategoryFoodDrink Category = "food_drink"
	CategoryConcert   Category = "concert"
	CategoryFestival  Category = "festival"
	CategorySports    Category = "sports"
	CategoryArt       Category = "art"
	CategoryFamily    Category = "family"
	CategoryOther     Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryNightlife,
	CategoryFoodDrink,
	CategoryConcert,
	CategoryFestival,
	CategorySports,
	CategoryArt,
	CategoryFamily,
	CategoryOther,
}

// Valid reports whether c is one of the eight known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory maps an external or model-supplied string onto the taxonomy.
// Anything outside the enum collapses to CategoryOther.
func ParseCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}
