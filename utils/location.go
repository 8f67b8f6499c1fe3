package utils

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

const earthRadiusMeters = 6371000.0

// Point is a longitude/latitude pair in degrees
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// HaversineDistance calculates the distance between two points on Earth using the Haversine formula
// Returns distance in metres
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// BoundingBox is the lat/lng rectangle enclosing a circle on the sphere.
// When the circle crosses a pole or the antimeridian, LngBounded is false and
// only the latitude range is usable as a prefilter.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	LngBounded     bool
}

// BoundingBoxFor returns the box enclosing all points within radius metres of center.
func BoundingBoxFor(center Point, radiusMeters float64) BoundingBox {
	angular := radiusMeters / earthRadiusMeters * 180 / math.Pi
	box := BoundingBox{
		MinLat: math.Max(center.Lat-angular, -90),
		MaxLat: math.Min(center.Lat+angular, 90),
	}
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		return box
	}
	deltaLng := math.Asin(math.Sin(angular*math.Pi/180)/math.Cos(center.Lat*math.Pi/180)) * 180 / math.Pi
	box.MinLng = center.Lng - deltaLng
	box.MaxLng = center.Lng + deltaLng
	box.LngBounded = box.MinLng >= -180 && box.MaxLng <= 180
	return box
}

// ParsePoint parses a "lng,lat" query value
func ParsePoint(s string) (Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Point{}, errors.NotValidf("location %q", s)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, errors.NotValidf("location %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, errors.NotValidf("location %q", s)
	}
	if !IsLocationValid(lat, lng) {
		return Point{}, errors.NotValidf("location %q", s)
	}
	return Point{Lng: lng, Lat: lat}, nil
}

// IsLocationValid checks if the provided coordinates are valid
func IsLocationValid(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// GetMaxSearchRadius returns the maximum allowed search radius in kilometres
func GetMaxSearchRadius() float64 {
	return 500.0
}

// ParseRadiusKm parses a radius query value in kilometres and returns metres.
func ParseRadiusKm(s string) (float64, error) {
	km, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || km <= 0 || km > GetMaxSearchRadius() {
		return 0, errors.NotValidf("radius %q", s)
	}
	return km * 1000, nil
}

// Ranked pairs an item index with its distance from a query point.
type Ranked struct {
	Index    int
	Distance float64
}

// WithinRadius returns the indexes of points within radius metres of center,
// nearest first. Points that fail the lookup are skipped.
func WithinRadius(center Point, radiusMeters float64, n int, at func(i int) (Point, bool)) []Ranked {
	var ranked []Ranked
	for i := 0; i < n; i++ {
		p, ok := at(i)
		if !ok {
			continue
		}
		d := HaversineDistance(center.Lat, center.Lng, p.Lat, p.Lng)
		if d <= radiusMeters {
			ranked = append(ranked, Ranked{Index: i, Distance: d})
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Distance < ranked[b].Distance })
	return ranked
}
