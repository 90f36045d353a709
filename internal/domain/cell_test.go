package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFluxName(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"positive", "fluxes_12.25_34.75", 12.25, 34.75, false},
		{"negative", "fluxes_-12.25_-3.75", -12.25, -3.75, false},
		{"integer", "fluxes_0_45", 0, 45, false},
		{"missing lon", "fluxes_12.25", 0, 0, true},
		{"backup file", "fluxes_12.25_34.75~", 0, 0, true},
		{"wrong prefix", "flux_12.25_34.75", 0, 0, true},
		{"trailing text", "fluxes_12.25_34.75.txt", 0, 0, true},
		{"latitude out of range", "fluxes_95.25_34.75", 0, 0, true},
		{"empty", "", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell, err := ParseFluxName(tt.file)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNameMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.lat, cell.Lat)
			assert.Equal(t, tt.lon, cell.Lon)
		})
	}
}

func TestCellID_IntermediateNameRoundTrip(t *testing.T) {
	cell, err := ParseFluxName("fluxes_-12.250_34.75")
	require.NoError(t, err)

	// Text is preserved verbatim, including trailing zeros.
	name := cell.IntermediateName()
	assert.Equal(t, "monthly_precipitation.-12.250_34.75", name)

	back, err := ParseIntermediateName(name)
	require.NoError(t, err)
	assert.Equal(t, cell, back)
}

func TestParseIntermediateName_Mismatch(t *testing.T) {
	_, err := ParseIntermediateName("monthly_precipitation.abc_1")
	require.ErrorIs(t, err, ErrNameMismatch)
}

func TestNewCellID(t *testing.T) {
	c := NewCellID(45, -0.25)
	assert.Equal(t, "45_-0.25", c.String())
}
