package enrichment

import (
	"fmt"
	"strings"
	"time"

	"github.com/lnup/eventscout/internal/models"
)

// SearchQueryTemplates are the web-search hints sent with every discovery
// request. "{city}" is replaced with the locality name.
var SearchQueryTemplates = []string{
	"{city} events diese woche restaurant bar",
	"{city} veranstaltungen lokal gastronomie",
	"{city} pub quiz karaoke comedy abend",
	"{city} food event themenabend restaurant",
	"{city} live musik kneipe bar club",
	"{city} flohmarkt markt straßenfest",
	"{city} workshop kurs kreativ abend",
	"{city} club bar Instagram events Termine",
	"{city} Instagram Location events Party Konzert",
	"site:instagram.com {city} club Party Event",
}

var germanWeekdays = [...]string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"}

// DiscoveryWindow is the inclusive date range a discovery run searches.
type DiscoveryWindow struct {
	Start time.Time
	End   time.Time
}

// NewDiscoveryWindow spans from the calendar day of now through days later.
func NewDiscoveryWindow(now time.Time, days int) DiscoveryWindow {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return DiscoveryWindow{Start: start, End: start.AddDate(0, 0, days)}
}

// Contains reports whether the YYYY-MM-DD date lies inside the window.
func (w DiscoveryWindow) Contains(date string) bool {
	d, err := time.ParseInLocation(models.DateLayout, date, w.Start.Location())
	if err != nil {
		return false
	}
	return !d.Before(w.Start) && !d.After(w.End)
}

// SearchQueries expands SearchQueryTemplates for city.
func SearchQueries(city string) []string {
	out := make([]string, len(SearchQueryTemplates))
	for i, q := range SearchQueryTemplates {
		out[i] = strings.ReplaceAll(q, "{city}", city)
	}
	return out
}

// DiscoverySystemInstruction frames the model as a local event scout.
func DiscoverySystemInstruction(city string, w DiscoveryWindow) string {
	today := w.Start.Format(models.DateLayout)
	return fmt.Sprintf(`Du bist ein erfahrener Event-Scout für die Stadt %[1]s in Deutschland.
Deine Aufgabe: Finde ECHTE, AKTUELLE Events die zwischen %[2]s (%[3]s) und %[4]s stattfinden.

REGELN:
- Erfinde NIEMALS Events. Nur Events die du tatsächlich über die Google-Suche findest.
- Jedes Event MUSS eine echte, funktionierende source_url haben (Webseite ODER Instagram-Beitrag/Seite).
- Suche auch gezielt auf Instagram: Clubs, Bars und Locations posten dort oft ihre Events. Instagram-URLs (instagram.com/...) sind als source_url erlaubt.
- Gib NUR Events zurück bei denen du dir sicher bist (confidence >= 0.7).

NICHT zurückgeben:
- Regelmäßige Öffnungszeiten von Restaurants/Bars (z.B. "Happy Hour jeden Freitag")
- Dauerausstellungen in Museen
- Events die bereits stattgefunden haben (vor %[2]s)
- Erfundene oder vermutete Events

KATEGORIEN: %[5]s`,
		city, today, germanWeekdays[w.Start.Weekday()], w.End.Format(models.DateLayout), categoryList(", "))
}

// DiscoveryUserPrompt lists the search hints and the required JSON schema.
func DiscoveryUserPrompt(city string, w DiscoveryWindow) string {
	today := w.Start.Format(models.DateLayout)
	return fmt.Sprintf(`Suche nach Events in %[1]s mit folgenden Suchbegriffen:
%[2]s

Suche nach:
- Themenabende in Restaurants, Weinproben
- Bar-Events (Pub Quiz, Karaoke, Open Mic, DJ-Abende)
- Lokale Live-Musik in Kneipen/Bars, Club-Events
- Instagram-Posts und -Seiten von Clubs, Bars und Locations in %[1]s (dort werden oft Events angekündigt)
- Flohmärkte, Kunstmärkte, Straßenfeste
- Comedy-Abende, Poetry Slams
- Workshops, Kurse
- Vereinsevents, lokale Feste
- Sport-Events

Antwort als JSON-Array. Jedes Event:
{
  "title": "Name des Events",
  "description": "Kurze Beschreibung, max 200 Zeichen",
  "date": "YYYY-MM-DD",
  "time_start": "HH:MM",
  "time_end": "HH:MM oder null",
  "venue_name": "Name der Location",
  "venue_address": "Vollständige Adresse",
  "city": "%[1]s",
  "category": "%[3]s",
  "price_info": "z.B. 10€, Kostenlos, Ab 5€",
  "source_url": "URL der Webseite oder des Instagram-Posts (PFLICHT). Instagram z.B. https://www.instagram.com/p/... oder https://instagram.com/username/",
  "confidence": 0.0-1.0
}

BEISPIEL für ein korrektes Event (Webseite):
[{"title":"Pub Quiz Night","description":"Wöchentliches Pub Quiz mit Preisen. Teams bis 6 Personen.","date":"%[4]s","time_start":"20:00","time_end":"22:30","venue_name":"Irish Pub Downtown","venue_address":"Hauptstraße 12, %[1]s","city":"%[1]s","category":"nightlife","price_info":"5€ pro Person","source_url":"https://example.com/events/pub-quiz","confidence":0.85}]
BEISPIEL mit Instagram-Quelle: source_url kann auch "https://www.instagram.com/p/ABC123/" oder die Instagram-Seite einer Location sein.

Leeres Array [] wenn nichts gefunden.`,
		city, strings.Join(SearchQueries(city), "\n"), categoryList("|"), today)
}

// ExtractionPrompt instructs the model to transcribe events from a page
// without inventing anything.
func ExtractionPrompt() string {
	return fmt.Sprintf(`Du bist ein Event-Daten-Extraktor. Analysiere den folgenden Webseiten-Inhalt und extrahiere Event-Informationen.
Erfinde NIEMALS Daten. Gib nur zurück, was tatsächlich auf der Seite steht.

Gib ein JSON-Array zurück. Jedes Event hat folgende Felder:
- title (string): Name des Events
- description (string): Kurze Beschreibung, max 300 Zeichen
- date (string): Datum im Format YYYY-MM-DD
- time_start (string): Startzeit im Format HH:MM
- time_end (string | null): Endzeit im Format HH:MM oder null
- venue_name (string): Name der Location
- venue_address (string): Adresse
- city (string): Stadt
- category (string): Eine von: %s
- price_info (string): Preisinformation (z.B. "10€", "Kostenlos", "Ab 15€")
- confidence (number): Wie sicher du dir bist, 0.0 bis 1.0

Wenn keine Events gefunden werden, gib ein leeres Array zurück: []
Antworte NUR mit dem JSON-Array, kein anderer Text.`, categoryList(", "))
}

// ExtractionURLContent is the user block for extraction from a link.
func ExtractionURLContent(pageURL string) string {
	return fmt.Sprintf("Rufe diese Seite auf und extrahiere alle Events.\nURL: %s", pageURL)
}

// ExtractionTextContent is the user block for extraction from pasted text.
func ExtractionTextContent(text, sourceURL string) string {
	var sb strings.Builder
	if sourceURL != "" {
		fmt.Fprintf(&sb, "Quelle: %s\n\n", sourceURL)
	}
	sb.WriteString("Inhalt:\n")
	sb.WriteString(text)
	return sb.String()
}

func categoryList(sep string) string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, sep)
}
