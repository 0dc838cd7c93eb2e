// Package discovery defines the data model returned by the event discovery
// API: events, venues and the paged envelopes that wrap them. The JSON tags
// mirror the upstream wire format (HAL-style `_embedded` containers), so
// these types decode responses directly.
package discovery

// Image is a single artwork rendition attached to an event or venue.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// EventDates carries the start schedule of an event. LocalTime is omitted by
// the upstream API for all-day events.
type EventDates struct {
	Start struct {
		LocalDate string `json:"localDate"`
		LocalTime string `json:"localTime,omitempty"`
	} `json:"start"`
}

// PriceRange is the advertised price band for an event.
type PriceRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// EmbeddedVenue is the venue summary nested inside an event payload.
type EmbeddedVenue struct {
	Name    string `json:"name"`
	City    City   `json:"city"`
	Address struct {
		Line1 string `json:"line1"`
	} `json:"address"`
}

// Event is a single discoverable event.
type Event struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	URL         string       `json:"url"`
	Images      []Image      `json:"images"`
	Dates       EventDates   `json:"dates"`
	Info        string       `json:"info,omitempty"`
	PleaseNote  string       `json:"pleaseNote,omitempty"`
	PriceRanges []PriceRange `json:"priceRanges,omitempty"`
	Embedded    *struct {
		Venues []EmbeddedVenue `json:"venues,omitempty"`
	} `json:"_embedded,omitempty"`
}

// Venue returns the first embedded venue, if the event carries one.
func (e *Event) Venue() (EmbeddedVenue, bool) {
	if e.Embedded == nil || len(e.Embedded.Venues) == 0 {
		return EmbeddedVenue{}, false
	}
	return e.Embedded.Venues[0], true
}

// City names the city a venue belongs to.
type City struct {
	Name string `json:"name"`
}

// Address is a venue street address.
type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2,omitempty"`
	Line3 string `json:"line3,omitempty"`
}

// State is the state or province of a venue.
type State struct {
	Name      string `json:"name"`
	StateCode string `json:"stateCode"`
}

// Country is the country of a venue.
type Country struct {
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
}

// Location is a venue's geographic position. The upstream API encodes
// coordinates as strings.
type Location struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// Venue is a single discoverable venue.
type Venue struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	URL        string    `json:"url,omitempty"`
	Address    Address   `json:"address"`
	City       City      `json:"city"`
	State      *State    `json:"state,omitempty"`
	Country    Country   `json:"country"`
	PostalCode string    `json:"postalCode,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Images     []Image   `json:"images,omitempty"`
}

// Page describes the pagination block attached to list responses.
type Page struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}

// EventsPage is a single page of event search results. Embedded is nil when
// the search matched nothing.
type EventsPage struct {
	Embedded *struct {
		Events []Event `json:"events"`
	} `json:"_embedded,omitempty"`
	Page Page `json:"page"`
}

// Events returns the events on this page, empty when the search had no hits.
func (p *EventsPage) Events() []Event {
	if p == nil || p.Embedded == nil {
		return nil
	}
	return p.Embedded.Events
}

// VenuesPage is a single page of venue search results.
type VenuesPage struct {
	Embedded *struct {
		Venues []Venue `json:"venues"`
	} `json:"_embedded,omitempty"`
	Page Page `json:"page"`
}

// Venues returns the venues on this page, empty when the search had no hits.
func (p *VenuesPage) Venues() []Venue {
	if p == nil || p.Embedded == nil {
		return nil
	}
	return p.Embedded.Venues
}
