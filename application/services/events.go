// Package services binds gateway operations to cache keys. Each query
// declares its key tuple, its freshness and retention windows, and the
// parameter conditions under which it is enabled.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"citypulse/domain/discovery"
	apperrors "citypulse/pkg/errors"
	"citypulse/pkg/querycache"
)

// Freshness and retention windows per event query.
const (
	eventSearchStale = 5 * time.Minute
	eventSearchGC    = 10 * time.Minute

	eventDetailStale = 10 * time.Minute
	eventDetailGC    = 30 * time.Minute

	eventLocationStale = 5 * time.Minute
	eventLocationGC    = 10 * time.Minute

	eventCategoryStale = 10 * time.Minute
	eventCategoryGC    = 20 * time.Minute
)

// Search defaults applied when the caller leaves them unset.
const (
	DefaultPageSize = 20
	DefaultRadius   = "50"
	DefaultUnit     = "miles"
)

// EventGateway is the slice of the discovery client the event service uses.
type EventGateway interface {
	SearchEvents(ctx context.Context, keyword, city string, page, size int) (*discovery.EventsPage, error)
	GetEventByID(ctx context.Context, id string) (*discovery.Event, error)
	SearchEventsByLocation(ctx context.Context, lat, lng float64, radius, unit string) (*discovery.EventsPage, error)
	GetEventsByCategory(ctx context.Context, classification, city string) (*discovery.EventsPage, error)
}

// EventService serves event queries through the cache.
type EventService struct {
	gateway EventGateway
	cache   *querycache.Cache
}

// NewEventService creates an event service over gateway and cache.
func NewEventService(gateway EventGateway, cache *querycache.Cache) *EventService {
	return &EventService{gateway: gateway, cache: cache}
}

// Search looks up events by keyword and city. Disabled until both are
// non-empty.
func (s *EventService) Search(ctx context.Context, keyword, city string, page, size int) (*discovery.EventsPage, error) {
	keyword = strings.TrimSpace(keyword)
	city = strings.TrimSpace(city)
	if size <= 0 {
		size = DefaultPageSize
	}

	out, err := querycache.Fetch(ctx, s.cache,
		querycache.Key{"events", "search", keyword, city, page},
		func(ctx context.Context) (*discovery.EventsPage, error) {
			return s.gateway.SearchEvents(ctx, keyword, city, page, size)
		},
		querycache.Options{
			StaleTime: eventSearchStale,
			GCTime:    eventSearchGC,
			Disabled:  keyword == "" || city == "",
		},
	)
	if errors.Is(err, querycache.ErrDisabled) {
		return nil, apperrors.NewValidationError("keyword and city are required")
	}
	return out, err
}

// Detail fetches a single event by id.
func (s *EventService) Detail(ctx context.Context, id string) (*discovery.Event, error) {
	id = strings.TrimSpace(id)

	out, err := querycache.Fetch(ctx, s.cache,
		querycache.Key{"events", "detail", id},
		func(ctx context.Context) (*discovery.Event, error) {
			return s.gateway.GetEventByID(ctx, id)
		},
		querycache.Options{
			StaleTime: eventDetailStale,
			GCTime:    eventDetailGC,
			Disabled:  id == "",
		},
	)
	if errors.Is(err, querycache.ErrDisabled) {
		return nil, apperrors.NewValidationError("event id is required")
	}
	return out, err
}

// Nearby looks up events around a coordinate. Disabled until both
// coordinates are set.
func (s *EventService) Nearby(ctx context.Context, lat, lng float64, radius, unit string) (*discovery.EventsPage, error) {
	if radius == "" {
		radius = DefaultRadius
	}
	if unit == "" {
		unit = DefaultUnit
	}

	out, err := querycache.Fetch(ctx, s.cache,
		querycache.Key{"events", "location", lat, lng, radius, unit},
		func(ctx context.Context) (*discovery.EventsPage, error) {
			return s.gateway.SearchEventsByLocation(ctx, lat, lng, radius, unit)
		},
		querycache.Options{
			StaleTime: eventLocationStale,
			GCTime:    eventLocationGC,
			Disabled:  lat == 0 && lng == 0,
		},
	)
	if errors.Is(err, querycache.ErrDisabled) {
		return nil, apperrors.NewValidationError("latitude and longitude are required")
	}
	return out, err
}

// ByCategory looks up events by classification, optionally scoped to a
// city.
func (s *EventService) ByCategory(ctx context.Context, classification, city string) (*discovery.EventsPage, error) {
	classification = strings.TrimSpace(classification)
	city = strings.TrimSpace(city)

	out, err := querycache.Fetch(ctx, s.cache,
		querycache.Key{"events", "category", classification, city},
		func(ctx context.Context) (*discovery.EventsPage, error) {
			return s.gateway.GetEventsByCategory(ctx, classification, city)
		},
		querycache.Options{
			StaleTime: eventCategoryStale,
			GCTime:    eventCategoryGC,
			Disabled:  classification == "",
		},
	)
	if errors.Is(err, querycache.ErrDisabled) {
		return nil, apperrors.NewValidationError("classification is required")
	}
	return out, err
}

// Refresh marks every cached event query stale, forcing the next
// observation of each to refetch.
func (s *EventService) Refresh() int {
	return s.cache.Invalidate(querycache.Key{"events"})
}
