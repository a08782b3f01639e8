package healpix

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qri-io/dggs-go"
)

func TestNpix(t *testing.T) {
	assert.EqualValues(t, 12, Npix(0))
	assert.EqualValues(t, 48, Npix(1))
	assert.EqualValues(t, 12*1024*1024, Npix(10))
}

func TestZonePacking(t *testing.T) {
	z, err := NewZone(5, 1000)
	require.NoError(t, err)
	level, pixel, err := SplitZone(z)
	require.NoError(t, err)
	assert.Equal(t, 5, level)
	assert.EqualValues(t, 1000, pixel)

	_, err = NewZone(MaxLevel+1, 0)
	assert.ErrorIs(t, err, ErrInvalidLevel)
	_, err = NewZone(0, 12)
	assert.ErrorIs(t, err, ErrInvalidZone)
	_, _, err = SplitZone(12)
	assert.ErrorIs(t, err, ErrInvalidZone)
}

func TestSpreadCompact(t *testing.T) {
	for _, v := range []uint64{0, 1, 2, 3, 0xABCD, 1<<24 - 1} {
		assert.Equal(t, v, compact(spread(v)))
	}
	assert.EqualValues(t, 0x5, spread(0x3))
}

func TestCentroidKnownValues(t *testing.T) {
	g := New()

	z, _ := NewZone(0, 4)
	c, err := g.ZoneWGS84Centroid(z)
	require.NoError(t, err)
	assert.InDelta(t, 0, c.Lon(), 1e-12)
	assert.InDelta(t, 0, c.Lat(), 1e-12)

	z, _ = NewZone(0, 0)
	c, err = g.ZoneWGS84Centroid(z)
	require.NoError(t, err)
	assert.InDelta(t, 45, c.Lon(), 1e-9)
	assert.InDelta(t, math.Asin(2.0/3.0)*180/math.Pi, c.Lat(), 1e-9)
}

func TestPointKnownValues(t *testing.T) {
	g := New()

	z, err := g.ZoneFromCRSCentroid(1, dggs.CRS84, orb.Point{10, 89})
	require.NoError(t, err)
	id, err := g.ZoneTextID(z)
	require.NoError(t, err)
	assert.Equal(t, "1-3", id)

	z, err = g.ZoneFromCRSCentroid(1, dggs.CRS84, orb.Point{10, -89})
	require.NoError(t, err)
	id, err = g.ZoneTextID(z)
	require.NoError(t, err)
	assert.Equal(t, "1-20", id)
}

func TestCentroidRoundTrip(t *testing.T) {
	g := New()
	for level := 0; level <= 4; level++ {
		for pixel := uint64(0); pixel < Npix(level); pixel++ {
			z, err := NewZone(level, pixel)
			require.NoError(t, err)
			c, err := g.ZoneWGS84Centroid(z)
			require.NoError(t, err)
			back, err := g.ZoneFromCRSCentroid(level, dggs.CRS84, c)
			require.NoError(t, err)
			require.Equal(t, z, back, "level %d pixel %d centroid %v", level, pixel, c)
		}
	}

	for _, pixel := range []uint64{0, 1, 12345, 4<<20 + 77, Npix(MaxLevel) - 1} {
		z, err := NewZone(MaxLevel, pixel)
		require.NoError(t, err)
		c, err := g.ZoneWGS84Centroid(z)
		require.NoError(t, err)
		back, err := g.ZoneFromCRSCentroid(MaxLevel, dggs.CRS84, c)
		require.NoError(t, err)
		assert.Equal(t, z, back, "pixel %d", pixel)
	}
}

func TestTextIDRoundTrip(t *testing.T) {
	g := New()
	z, _ := NewZone(7, 0xBEEF)
	id, err := g.ZoneTextID(z)
	require.NoError(t, err)
	assert.Equal(t, "7-BEEF", id)

	back, err := g.ZoneFromTextID(id)
	require.NoError(t, err)
	assert.Equal(t, z, back)

	back, err = g.ZoneFromTextID("7-beef")
	require.NoError(t, err)
	assert.Equal(t, z, back)

	for _, bad := range []string{"", "7", "x-1", "7-zz", "0-C", "25-0"} {
		_, err := g.ZoneFromTextID(bad)
		assert.Error(t, err, bad)
	}
}

func TestVertices(t *testing.T) {
	g := New()

	z, _ := NewZone(0, 4)
	vs, err := g.ZoneRefinedWGS84Vertices(z, 0)
	require.NoError(t, err)
	require.Len(t, vs, 4)
	lat := math.Asin(2.0/3.0) * 180 / math.Pi
	expected := []orb.Point{{0, lat}, {-45, 0}, {0, -lat}, {45, 0}}
	for i := range expected {
		assert.InDelta(t, expected[i].Lon(), vs[i].Lon(), 1e-9, "vertex %d", i)
		assert.InDelta(t, expected[i].Lat(), vs[i].Lat(), 1e-9, "vertex %d", i)
	}

	vs, err = g.ZoneRefinedWGS84Vertices(z, 3)
	require.NoError(t, err)
	assert.Len(t, vs, 16)

	_, err = g.ZoneRefinedWGS84Vertices(z, -1)
	assert.Error(t, err)
}

func TestVerticesAntimeridian(t *testing.T) {
	g := New()
	z, _ := NewZone(0, 6)
	c, err := g.ZoneWGS84Centroid(z)
	require.NoError(t, err)
	assert.InDelta(t, 180, math.Abs(c.Lon()), 1e-9)

	vs, err := g.ZoneRefinedWGS84Vertices(z, 0)
	require.NoError(t, err)
	bound := orb.MultiPoint(vs).Bound()
	assert.InDelta(t, 90, bound.Max.Lon()-bound.Min.Lon(), 1e-9)
}

func TestVerticesContainCentroid(t *testing.T) {
	g := New()
	for _, pixel := range []uint64{5, 100, 191} {
		z, _ := NewZone(2, pixel)
		c, err := g.ZoneWGS84Centroid(z)
		require.NoError(t, err)
		vs, err := g.ZoneRefinedWGS84Vertices(z, 0)
		require.NoError(t, err)
		b := orb.MultiPoint(vs).Bound()
		assert.True(t, b.Contains(c), "pixel %d centroid %v bound %v", pixel, c, b)
	}
}

func TestZoneFromPointErrors(t *testing.T) {
	g := New()
	_, err := g.ZoneFromCRSCentroid(3, dggs.CRS{Authority: "EPSG", Code: 3857}, orb.Point{0, 0})
	assert.ErrorIs(t, err, ErrUnsupportedCRS)
	_, err = g.ZoneFromCRSCentroid(-1, dggs.CRS84, orb.Point{0, 0})
	assert.ErrorIs(t, err, ErrInvalidLevel)
	_, err = g.ZoneFromCRSCentroid(3, dggs.CRS84, orb.Point{0, 91})
	assert.ErrorIs(t, err, ErrInvalidPoint)
	_, err = g.ZoneFromCRSCentroid(3, dggs.CRS84, orb.Point{math.NaN(), 0})
	assert.ErrorIs(t, err, ErrInvalidPoint)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, dggs.Engines(), dggs.GridHEALPix)
	b, err := dggs.NewBinding("healpix")
	require.NoError(t, err)
	assert.Equal(t, dggs.GridHEALPix, b.Name())
}
