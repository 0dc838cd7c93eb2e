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

// Venue data changes rarely, so venue queries carry longer windows than
// event queries.
const (
	venueSearchStale = 15 * time.Minute
	venueSearchGC    = 30 * time.Minute

	venueDetailStale = 15 * time.Minute
	venueDetailGC    = 60 * time.Minute

	venueLocationStale = 15 * time.Minute
	venueLocationGC    = 30 * time.Minute
)

// VenueGateway is the slice of the discovery client the venue service uses.
type VenueGateway interface {
	SearchVenues(ctx context.Context, keyword, city string) (*discovery.VenuesPage, error)
	GetVenueByID(ctx context.Context, id string) (*discovery.Venue, error)
	GetVenuesByLocation(ctx context.Context, lat, lng float64, radius, unit string) (*discovery.VenuesPage, error)
}

// VenueService serves venue queries through the cache.
type VenueService struct {
	gateway VenueGateway
	cache   *querycache.Cache
}

// NewVenueService creates a venue service over gateway and cache.
func NewVenueService(gateway VenueGateway, cache *querycache.Cache) *VenueService {
	return &VenueService{gateway: gateway, cache: cache}
}

// Search looks up venues by keyword, optionally scoped to a city. Disabled
// until the keyword is non-empty.
func (s *VenueService) Search(ctx context.Context, keyword, city string) (*discovery.VenuesPage, error) {
	keyword = strings.TrimSpace(keyword)
	city = strings.TrimSpace(city)

	out, err := querycache.Fetch(ctx, s.cache,
		querycache.Key{"venues", "search", keyword, city},
		func(ctx context.Context) (*discovery.VenuesPage, error) {
			return s.gateway.SearchVenues(ctx, keyword, city)
		},
		querycache.Options{
			StaleTime: venueSearchStale,
			GCTime:    venueSearchGC,
			Disabled:  keyword == "",
		},
	)
	if errors.Is(err, querycache.ErrDisabled) {
		return nil, apperrors.NewValidationError("keyword is required")
	}
	return out, err
}

// Detail fetches a single venue by id.
func (s *VenueService) Detail(ctx context.Context, id string) (*discovery.Venue, error) {
	id = strings.TrimSpace(id)

	out, err := querycache.Fetch(ctx, s.cache,
		querycache.Key{"venues", "detail", id},
		func(ctx context.Context) (*discovery.Venue, error) {
			return s.gateway.GetVenueByID(ctx, id)
		},
		querycache.Options{
			StaleTime: venueDetailStale,
			GCTime:    venueDetailGC,
			Disabled:  id == "",
		},
	)
	if errors.Is(err, querycache.ErrDisabled) {
		return nil, apperrors.NewValidationError("venue id is required")
	}
	return out, err
}

// Nearby looks up venues around a coordinate.
func (s *VenueService) Nearby(ctx context.Context, lat, lng float64, radius, unit string) (*discovery.VenuesPage, error) {
	if radius == "" {
		radius = DefaultRadius
	}
	if unit == "" {
		unit = DefaultUnit
	}

	out, err := querycache.Fetch(ctx, s.cache,
		querycache.Key{"venues", "location", lat, lng, radius, unit},
		func(ctx context.Context) (*discovery.VenuesPage, error) {
			return s.gateway.GetVenuesByLocation(ctx, lat, lng, radius, unit)
		},
		querycache.Options{
			StaleTime: venueLocationStale,
			GCTime:    venueLocationGC,
			Disabled:  lat == 0 && lng == 0,
		},
	)
	if errors.Is(err, querycache.ErrDisabled) {
		return nil, apperrors.NewValidationError("latitude and longitude are required")
	}
	return out, err
}

// Refresh marks every cached venue query stale.
func (s *VenueService) Refresh() int {
	return s.cache.Invalidate(querycache.Key{"venues"})
}
