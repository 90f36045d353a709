package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrNameMismatch reports a file name that does not follow the flux or
// intermediate naming convention.
var ErrNameMismatch = errors.New("file name does not match naming convention")

const (
	// FluxPrefix starts every raw cell file name.
	FluxPrefix = "fluxes_"
	// IntermediatePrefix starts every cell climatology file name.
	IntermediatePrefix = "monthly_precipitation."
)

var (
	// fluxNameRe matches "fluxes_<lat>_<lon>", e.g. "fluxes_-12.25_34.75".
	fluxNameRe = regexp.MustCompile(`^fluxes_(-?\d+(?:\.\d+)?)_(-?\d+(?:\.\d+)?)$`)

	// intermediateNameRe matches "monthly_precipitation.<lat>_<lon>".
	intermediateNameRe = regexp.MustCompile(`^monthly_precipitation\.(-?\d+(?:\.\d+)?)_(-?\d+(?:\.\d+)?)$`)
)

// CellID identifies a grid cell by the latitude and longitude of its center.
// The textual forms are kept as spelled in the source file name so that output
// names round-trip exactly.
type CellID struct {
	Lat     float64
	Lon     float64
	LatText string
	LonText string
}

// FluxFile is a discovered raw cell file. Err is set when the name carries
// the flux prefix but no parseable cell; Cell is then zero.
type FluxFile struct {
	Path string
	Cell CellID
	Err  error
}

// ParseFluxName extracts the cell identity from a flux file base name.
func ParseFluxName(name string) (CellID, error) {
	return parseCellName(fluxNameRe, name)
}

// ParseIntermediateName extracts the cell identity from a climatology file base name.
func ParseIntermediateName(name string) (CellID, error) {
	return parseCellName(intermediateNameRe, name)
}

func parseCellName(re *regexp.Regexp, name string) (CellID, error) {
	m := re.FindStringSubmatch(name)
	if len(m) != 3 {
		return CellID{}, fmt.Errorf("%q: %w", name, ErrNameMismatch)
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return CellID{}, fmt.Errorf("%q: latitude: %w", name, err)
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return CellID{}, fmt.Errorf("%q: longitude: %w", name, err)
	}
	if lat < -90 || lat > 90 {
		return CellID{}, fmt.Errorf("%q: latitude %g out of range: %w", name, lat, ErrNameMismatch)
	}
	return CellID{Lat: lat, Lon: lon, LatText: m[1], LonText: m[2]}, nil
}

// NewCellID builds a CellID from numeric coordinates, formatting the text
// forms with the shortest representation.
func NewCellID(lat, lon float64) CellID {
	return CellID{
		Lat:     lat,
		Lon:     lon,
		LatText: strconv.FormatFloat(lat, 'f', -1, 64),
		LonText: strconv.FormatFloat(lon, 'f', -1, 64),
	}
}

// String returns "<lat>_<lon>".
func (c CellID) String() string {
	return c.LatText + "_" + c.LonText
}

// IntermediateName is the file name the cell's climatology is stored under.
func (c CellID) IntermediateName() string {
	return IntermediatePrefix + c.String()
}
