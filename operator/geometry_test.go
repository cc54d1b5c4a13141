package operator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryEnabled(t *testing.T) {
	assert.False(t, Geometry{}.Enabled())
	assert.False(t, Geometry{Distance: math.Inf(1)}.Enabled())
	assert.True(t, Geometry{Distance: 6}.Enabled())
}

func TestGeometryValidate(t *testing.T) {
	tests := []struct {
		name    string
		geom    Geometry
		wantErr string
	}{
		{
			name: "DipoleDipole",
			geom: Geometry{Distance: 6, Angle: math.Pi / 3},
		},
		{
			name: "Disabled",
			geom: Geometry{},
		},
		{
			name: "DisabledSkipsSurfaceChecks",
			geom: Geometry{SurfaceEnabled: true, SurfaceDistance: -1},
		},
		{
			name:    "NegativeDistance",
			geom:    Geometry{Distance: -1},
			wantErr: "interatomic distance must not be negative",
		},
		{
			name:    "NaNDistance",
			geom:    Geometry{Distance: math.NaN()},
			wantErr: "interatomic distance must not be negative",
		},
		{
			name:    "NaNAngle",
			geom:    Geometry{Distance: 6, Angle: math.NaN()},
			wantErr: "interatomic angle must be a number",
		},
		{
			name:    "OrderBelowDipoleDipole",
			geom:    Geometry{Distance: 6, MaxMultipole: 2},
			wantErr: "multipole order is below dipole-dipole",
		},
		{
			name: "HigherOrderOnAxis",
			geom: Geometry{Distance: 6, MaxMultipole: 5},
		},
		{
			name:    "HigherOrderOffAxis",
			geom:    Geometry{Distance: 6, Angle: 0.1, MaxMultipole: 4},
			wantErr: "multipole orders beyond dipole-dipole require a zero angle",
		},
		{
			name:    "HigherOrderWithSurface",
			geom:    Geometry{Distance: 6, MaxMultipole: 4, SurfaceEnabled: true, SurfaceDistance: 10},
			wantErr: "the surface term supports dipole-dipole only",
		},
		{
			name:    "SurfaceDistanceUnset",
			geom:    Geometry{Distance: 6, SurfaceEnabled: true},
			wantErr: "surface distance must be positive",
		},
		{
			name: "SurfaceAboveBound",
			geom: Geometry{Distance: 6, SurfaceEnabled: true, SurfaceDistance: 4},
		},
		{
			name:    "AtomBelowSurface",
			geom:    Geometry{Distance: 6, SurfaceEnabled: true, SurfaceDistance: 2},
			wantErr: "atom below the surface plane",
		},
		{
			// With the axis parallel to the plane both atoms sit at the
			// midpoint height, so any positive surface distance is fine.
			name: "ParallelAxisNearSurface",
			geom: Geometry{Distance: 6, Angle: math.Pi / 2, SurfaceEnabled: true, SurfaceDistance: 0.05},
		},
		{
			// cos is negative for angles beyond pi/2; the bound uses its
			// magnitude, the lower atom is just the other one.
			name:    "FlippedAxisBelowSurface",
			geom:    Geometry{Distance: 6, Angle: math.Pi, SurfaceEnabled: true, SurfaceDistance: 2},
			wantErr: "atom below the surface plane",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geom.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var gerr *ErrGeometry
			require.ErrorAs(t, err, &gerr)
			assert.Equal(t, tt.wantErr, gerr.Reason)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGeometryErrorCarriesConfiguration(t *testing.T) {
	g := Geometry{Distance: 6, Angle: 0.25, SurfaceEnabled: true, SurfaceDistance: 1}
	err := g.Validate()

	var gerr *ErrGeometry
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 6.0, gerr.Distance)
	assert.Equal(t, 0.25, gerr.Angle)
	assert.Equal(t, 1.0, gerr.SurfaceDistance)
}
