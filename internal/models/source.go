package models

// SourceType identifies where an event record came from.
type SourceType string

const (
	SourceTypeTicketmaster      SourceType = "api_ticketmaster"
	SourceTypeAIDiscovered      SourceType = "ai_discovered"
	SourceTypeAIScraped         SourceType = "ai_scraped"
	SourceTypePlatform          SourceType = "platform"
	SourceTypeVerifiedOrganizer SourceType = "verified_organizer"
	SourceTypeVerifiedUser      SourceType = "verified_user"
	SourceTypeCommunity         SourceType = "community"
)

// IsAIDerived reports whether confidence scores are meaningful for this source.
func (s SourceType) IsAIDerived() bool {
	return s == SourceTypeAIDiscovered || s == SourceTypeAIScraped
}
