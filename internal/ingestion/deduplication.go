package ingestion

import (
	"math"
	"slices"
	"strings"

	"github.com/lnup/eventscout/internal/models"
)

const (
	venueSimilarityThreshold = 0.85
	titleSimilarityThreshold = 0.8
	nearbyTitleThreshold     = 0.6
	startOverlapMinutes      = 90
	coordinateTolerance      = 0.005 // degrees, roughly 500 m
)

var sourcePriority = map[models.SourceType]int{
	models.SourceTypeTicketmaster: 2,
	models.SourceTypeAIDiscovered: 1,
}

// SourcePriority ranks sources for merge tie-breaks. Unlisted sources rank 0.
func SourcePriority(s models.SourceType) int {
	return sourcePriority[s]
}

// NormalizeForComparison lowercases s and keeps only letters a-z, German
// umlauts, ß and digits.
func NormalizeForComparison(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'ä', r == 'ö', r == 'ü', r == 'ß':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// LevenshteinDistance counts single-rune edits between a and b.
func LevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// LevenshteinSimilarity returns 1 - distance/len(longer); identical strings score 1.
func LevenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longer := max(len([]rune(a)), len([]rune(b)))
	return 1 - float64(LevenshteinDistance(a, b))/float64(longer)
}

// AreSimilarEvents reports whether a and b describe the same happening.
func AreSimilarEvents(a, b *models.Event) bool {
	if strings.TrimSpace(a.EventDate) != strings.TrimSpace(b.EventDate) {
		return false
	}

	if SameLocation(a.Venue, b.Venue) && startsOverlap(a, b) {
		return true
	}

	titleA := NormalizeForComparison(a.Title)
	titleB := NormalizeForComparison(b.Title)
	if titleA != "" && titleB != "" {
		if titleA == titleB || strings.Contains(titleA, titleB) || strings.Contains(titleB, titleA) {
			return true
		}
	}
	titleSim := LevenshteinSimilarity(titleA, titleB)
	if titleA != "" && titleB != "" && titleSim > titleSimilarityThreshold {
		return true
	}

	return coordinatesClose(a.Venue, b.Venue) && titleSim > nearbyTitleThreshold
}

// SameLocation matches venues by normalized name or by coordinates.
func SameLocation(a, b *models.Venue) bool {
	if a == nil || b == nil {
		return false
	}
	nameA := NormalizeForComparison(a.Name)
	nameB := NormalizeForComparison(b.Name)
	if nameA != "" && nameB != "" {
		if nameA == nameB || strings.Contains(nameA, nameB) || strings.Contains(nameB, nameA) {
			return true
		}
		if LevenshteinSimilarity(nameA, nameB) > venueSimilarityThreshold {
			return true
		}
	}
	return coordinatesClose(a, b)
}

func coordinatesClose(a, b *models.Venue) bool {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return false
	}
	return math.Abs(a.Lat-b.Lat) <= coordinateTolerance && math.Abs(a.Lng-b.Lng) <= coordinateTolerance
}

// startsOverlap is false when either start time is missing or malformed.
func startsOverlap(a, b *models.Event) bool {
	ma, okA := a.StartMinutes()
	mb, okB := b.StartMinutes()
	if !okA || !okB {
		return false
	}
	diff := ma - mb
	if diff < 0 {
		diff = -diff
	}
	return diff <= startOverlapMinutes
}

// shouldReplace decides whether candidate supersedes the accepted representative.
func shouldReplace(existing, candidate *models.Event) bool {
	pe, pc := SourcePriority(existing.SourceType), SourcePriority(candidate.SourceType)
	if pc != pe {
		return pc > pe
	}
	return candidate.HasImage() && !existing.HasImage()
}

// Deduplicate collapses equivalent events into one representative each,
// preferring higher-priority sources, and returns them sorted by date.
func Deduplicate(events []models.Event) []models.Event {
	result := make([]models.Event, 0, len(events))

	for i := range events {
		candidate := &events[i]
		match := -1
		for j := range result {
			if AreSimilarEvents(&result[j], candidate) {
				match = j
				break
			}
		}
		switch {
		case match < 0:
			result = append(result, *candidate)
		case shouldReplace(&result[match], candidate):
			result[match] = *candidate
		}
	}

	SortByDate(result)
	return result
}

// SortByDate orders events by calendar date, keeping input order for ties.
func SortByDate(events []models.Event) {
	slices.SortStableFunc(events, func(a, b models.Event) int {
		return strings.Compare(strings.TrimSpace(a.EventDate), strings.TrimSpace(b.EventDate))
	})
}
