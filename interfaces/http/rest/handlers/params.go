package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"citypulse/pkg/utils"
)

// nearbyQuery carries the parsed coordinate parameters of a nearby lookup.
type nearbyQuery struct {
	Lat    float64 `validate:"latitude"`
	Lng    float64 `validate:"longitude"`
	Radius string
	Unit   string
}

// parseNearbyQuery reads lat/lng/radius/unit from the query string and
// range-checks the coordinates.
func parseNearbyQuery(r *http.Request) (nearbyQuery, error) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		return nearbyQuery{}, errors.New("lat and lng must be valid coordinates")
	}

	nq := nearbyQuery{Lat: lat, Lng: lng, Radius: q.Get("radius"), Unit: q.Get("unit")}
	if err := utils.ValidateStruct(nq); err != nil {
		return nearbyQuery{}, err
	}
	return nq, nil
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
