package ingestion

import "github.com/lnup/eventscout/internal/models"

var ticketmasterSegments = map[string]models.Category{
	"Music":          models.CategoryConcert,
	"Sports":         models.CategorySports,
	"Arts & Theatre": models.CategoryArt,
	"Film":           models.CategoryArt,
	"Miscellaneous":  models.CategoryOther,
	"Undefined":      models.CategoryOther,
}

var ticketmasterGenres = map[string]models.Category{
	"Club":                    models.CategoryNightlife,
	"Dance/Electronic":        models.CategoryNightlife,
	"DJ":                      models.CategoryNightlife,
	"Rock":                    models.CategoryConcert,
	"Pop":                     models.CategoryConcert,
	"Hip-Hop/Rap":             models.CategoryConcert,
	"R&B":                     models.CategoryConcert,
	"Jazz":                    models.CategoryConcert,
	"Classical":               models.CategoryConcert,
	"Metal":                   models.CategoryConcert,
	"Alternative":             models.CategoryConcert,
	"Folk":                    models.CategoryConcert,
	"Country":                 models.CategoryConcert,
	"Latin":                   models.CategoryConcert,
	"Reggae":                  models.CategoryConcert,
	"Blues":                   models.CategoryConcert,
	"World":                   models.CategoryConcert,
	"Comedy":                  models.CategoryArt,
	"Theatre":                 models.CategoryArt,
	"Opera":                   models.CategoryArt,
	"Dance":                   models.CategoryArt,
	"Circus & Specialty Acts": models.CategoryFamily,
	"Fairs & Festivals":       models.CategoryFestival,
	"Festival":                models.CategoryFestival,
	"Food & Drink":            models.CategoryFoodDrink,
	"Family":                  models.CategoryFamily,
	"Soccer":                  models.CategorySports,
	"Football":                models.CategorySports,
	"Basketball":              models.CategorySports,
	"Ice Hockey":              models.CategorySports,
	"Tennis":                  models.CategorySports,
	"Boxing":                  models.CategorySports,
	"Motorsports/Racing":      models.CategorySports,
}

// MapTicketmasterCategory maps a Ticketmaster classification onto the event
// taxonomy. The genre wins over the segment; anything unmapped is "other".
func MapTicketmasterCategory(segment, genre string) models.Category {
	if c, ok := ticketmasterGenres[genre]; ok {
		return c
	}
	if c, ok := ticketmasterSegments[segment]; ok {
		return c
	}
	return models.CategoryOther
}
