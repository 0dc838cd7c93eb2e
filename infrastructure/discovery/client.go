// Package discovery is the HTTP gateway to the event discovery API. It
// attaches the API key and request timeout, decodes typed payloads, and
// classifies failures; it never retries on its own.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"citypulse/domain/discovery"
	"citypulse/infrastructure/config"
	apperrors "citypulse/pkg/errors"
)

// maxErrorBody caps how much of an upstream error body is retained.
const maxErrorBody = 4 << 10

// RequestRecorder receives per-request gateway metrics. Implemented by the
// observability collector; nil disables recording.
type RequestRecorder interface {
	RecordGatewayRequest(operation string, status int, duration time.Duration)
}

// Client issues calls against the discovery API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker
	stats   RequestRecorder
}

// NewClient creates a gateway client from configuration. stats may be nil.
func NewClient(cfg *config.Config, logger *zap.Logger, stats RequestRecorder) *Client {
	c := &Client{
		baseURL: cfg.DiscoveryBaseURL,
		apiKey:  cfg.DiscoveryAPIKey,
		http:    &http.Client{Timeout: cfg.DiscoveryTimeout},
		logger:  logger,
		stats:   stats,
	}

	if cfg.EnableBreaker {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "discovery",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < 5 {
					return false
				}
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return failureRatio >= 0.8
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}

	return c
}

// SearchEvents searches events by keyword and city, sorted by date.
func (c *Client) SearchEvents(ctx context.Context, keyword, city string, page, size int) (*discovery.EventsPage, error) {
	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("city", city)
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	params.Set("sort", "date,asc")

	var out discovery.EventsPage
	if err := c.get(ctx, "searchEvents", "/events.json", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEventByID fetches a single event.
func (c *Client) GetEventByID(ctx context.Context, id string) (*discovery.Event, error) {
	var out discovery.Event
	if err := c.get(ctx, "getEventByID", "/events/"+url.PathEscape(id)+".json", url.Values{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchEventsByLocation searches events around a coordinate.
func (c *Client) SearchEventsByLocation(ctx context.Context, lat, lng float64, radius, unit string) (*discovery.EventsPage, error) {
	params := url.Values{}
	params.Set("latlong", fmt.Sprintf("%v,%v", lat, lng))
	if radius != "" {
		params.Set("radius", radius)
	}
	if unit != "" {
		params.Set("unit", unit)
	}
	params.Set("sort", "date,asc")

	var out discovery.EventsPage
	if err := c.get(ctx, "searchEventsByLocation", "/events.json", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEventsByCategory searches events by classification, optionally scoped
// to a city.
func (c *Client) GetEventsByCategory(ctx context.Context, classification, city string) (*discovery.EventsPage, error) {
	params := url.Values{}
	params.Set("classificationName", classification)
	if city != "" {
		params.Set("city", city)
	}
	params.Set("sort", "date,asc")

	var out discovery.EventsPage
	if err := c.get(ctx, "getEventsByCategory", "/events.json", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchVenues searches venues by keyword, optionally scoped to a city,
// sorted by name.
func (c *Client) SearchVenues(ctx context.Context, keyword, city string) (*discovery.VenuesPage, error) {
	params := url.Values{}
	params.Set("keyword", keyword)
	if city != "" {
		params.Set("city", city)
	}
	params.Set("sort", "name,asc")

	var out discovery.VenuesPage
	if err := c.get(ctx, "searchVenues", "/venues.json", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVenueByID fetches a single venue.
func (c *Client) GetVenueByID(ctx context.Context, id string) (*discovery.Venue, error) {
	var out discovery.Venue
	if err := c.get(ctx, "getVenueByID", "/venues/"+url.PathEscape(id)+".json", url.Values{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVenuesByLocation searches venues around a coordinate.
func (c *Client) GetVenuesByLocation(ctx context.Context, lat, lng float64, radius, unit string) (*discovery.VenuesPage, error) {
	params := url.Values{}
	params.Set("latlong", fmt.Sprintf("%v,%v", lat, lng))
	if radius != "" {
		params.Set("radius", radius)
	}
	if unit != "" {
		params.Set("unit", unit)
	}
	params.Set("sort", "name,asc")

	var out discovery.VenuesPage
	if err := c.get(ctx, "getVenuesByLocation", "/venues.json", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get performs one GET against the discovery API and decodes the response
// into out. Every call is independently retryable by the caller.
func (c *Client) get(ctx context.Context, operation, path string, params url.Values, out interface{}) error {
	if c.breaker == nil {
		return c.doGet(ctx, operation, path, params, out)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doGet(ctx, operation, path, params, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.NewUnavailableError("discovery").WithCause(err)
	}
	return err
}

func (c *Client) doGet(ctx context.Context, operation, path string, params url.Values, out interface{}) error {
	// Every request carries the API key.
	params.Set("apikey", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apperrors.NewInternalError("build discovery request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.record(operation, 0, time.Since(start))
		c.logger.Warn("discovery request failed",
			zap.String("operation", operation),
			zap.String("path", path),
			zap.Error(err),
		)
		return apperrors.NewNetworkError("discovery API unreachable", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	c.record(operation, resp.StatusCode, duration)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logUpstreamFailure(operation, path, resp.StatusCode, duration)
		return apperrors.NewHTTPError(resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn("discovery response malformed",
			zap.String("operation", operation),
			zap.String("path", path),
			zap.Error(err),
		)
		return apperrors.NewDecodeError(err)
	}

	c.logger.Debug("discovery request completed",
		zap.String("operation", operation),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	)
	return nil
}

// logUpstreamFailure keeps the 401/429/5xx cases distinguishable in logs;
// the cache treats them all as a failed fetch.
func (c *Client) logUpstreamFailure(operation, path string, status int, duration time.Duration) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	}
	switch {
	case status == http.StatusUnauthorized:
		c.logger.Error("discovery rejected API key", fields...)
	case status == http.StatusTooManyRequests:
		c.logger.Warn("discovery rate limit exceeded", fields...)
	case status >= http.StatusInternalServerError:
		c.logger.Error("discovery upstream fault", fields...)
	default:
		c.logger.Warn("discovery request rejected", fields...)
	}
}

func (c *Client) record(operation string, status int, duration time.Duration) {
	if c.stats != nil {
		c.stats.RecordGatewayRequest(operation, status, duration)
	}
}
