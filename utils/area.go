package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

var ErrBadArea = errors.New("invalid area")

// Area is a region a position can be tested against.
type Area interface {
	Contains(lat, lon float64) bool
}

// Circle is a spherical cap around a centre point.
type Circle struct {
	cap s2.Cap
}

// NewCircle returns a circle of radiusM metres around lat/lon.
func NewCircle(lat, lon, radiusM float64) Circle {
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	return Circle{cap: s2.CapFromCenterAngle(center, s1.Angle(radiusM/EarthRadiusM))}
}

func (c Circle) Contains(lat, lon float64) bool {
	return c.cap.ContainsPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)))
}

// BoundingBox is a lat/lon rectangle spanned by two corners.
type BoundingBox struct {
	rect s2.Rect
}

// NewBoundingBox returns the smallest rectangle containing both corners.
func NewBoundingBox(lat1, lon1, lat2, lon2 float64) BoundingBox {
	r := s2.RectFromLatLng(s2.LatLngFromDegrees(lat1, lon1))
	r = r.AddPoint(s2.LatLngFromDegrees(lat2, lon2))
	return BoundingBox{rect: r}
}

func (b BoundingBox) Contains(lat, lon float64) bool {
	return b.rect.ContainsLatLng(s2.LatLngFromDegrees(lat, lon))
}

// ParseArea parses "circle,lat,lon,radius" (radius in metres) or
// "bb,lat1,lon1,lat2,lon2".
func ParseArea(s string) (Area, error) {
	parts := strings.Split(s, ",")
	nums := make([]float64, 0, len(parts)-1)
	for _, p := range parts[1:] {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrBadArea, s, err)
		}
		nums = append(nums, f)
	}
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "circle":
		if len(nums) != 3 || nums[2] < 0 {
			return nil, fmt.Errorf("%w %q: want circle,lat,lon,radius", ErrBadArea, s)
		}
		return NewCircle(nums[0], nums[1], nums[2]), nil
	case "bb":
		if len(nums) != 4 {
			return nil, fmt.Errorf("%w %q: want bb,lat1,lon1,lat2,lon2", ErrBadArea, s)
		}
		return NewBoundingBox(nums[0], nums[1], nums[2], nums[3]), nil
	}
	return nil, fmt.Errorf("%w %q: unknown shape", ErrBadArea, s)
}
