package domain

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultEarthRadiusKM is the mean Earth radius of the spherical model.
	DefaultEarthRadiusKM = 6371.0
	// DefaultPi is the pi approximation used for circumference and radians.
	DefaultPi = 3.14159
	// DefaultResolutionDeg is the grid cell edge in degrees.
	DefaultResolutionDeg = 0.5
)

// AreaCalculator returns the surface area of the cell centered at lat.
type AreaCalculator interface {
	CellArea(lat float64) float64
}

// Sphere approximates each grid cell as a flat rectangle whose width is the
// parallel length at the cell-center latitude.
type Sphere struct {
	RadiusKM      float64
	Pi            float64
	ResolutionDeg float64
}

// DefaultSphere returns the 6371 km, pi=3.14159, 0.5 degree model.
func DefaultSphere() Sphere {
	return Sphere{RadiusKM: DefaultEarthRadiusKM, Pi: DefaultPi, ResolutionDeg: DefaultResolutionDeg}
}

// Circumference is 2*pi*R.
func (s Sphere) Circumference() float64 {
	return 2 * s.Pi * s.RadiusKM
}

// CellsPerCircle is 360/resolution, 720 for a half degree grid.
func (s Sphere) CellsPerCircle() float64 {
	return 360 / s.ResolutionDeg
}

// CellHeight is the meridional edge length in km.
func (s Sphere) CellHeight() float64 {
	return s.Circumference() / s.CellsPerCircle()
}

// CellWidth is the zonal edge length in km at lat degrees.
func (s Sphere) CellWidth(lat float64) float64 {
	return s.CellHeight() * math.Cos(s.Pi/180*math.Abs(lat))
}

// CellArea returns width*height in km^2.
func (s Sphere) CellArea(lat float64) float64 {
	return s.CellWidth(lat) * s.CellHeight()
}

// AreaCache memoizes an AreaCalculator by latitude. Area does not depend on
// longitude, so a regional grid only has as many distinct areas as rows.
type AreaCache struct {
	inner AreaCalculator
	cache *lru.Cache[float64, float64]
}

// NewAreaCache wraps inner with an LRU of size entries.
func NewAreaCache(inner AreaCalculator, size int) (*AreaCache, error) {
	c, err := lru.New[float64, float64](size)
	if err != nil {
		return nil, fmt.Errorf("area cache: %w", err)
	}
	return &AreaCache{inner: inner, cache: c}, nil
}

// CellArea returns the cached area for lat, computing it on a miss.
func (c *AreaCache) CellArea(lat float64) float64 {
	if a, ok := c.cache.Get(lat); ok {
		return a
	}
	a := c.inner.CellArea(lat)
	c.cache.Add(lat, a)
	return a
}

// Len returns the number of cached latitudes.
func (c *AreaCache) Len() int { return c.cache.Len() }
