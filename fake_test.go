package dggs

import (
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
)

// fakeGrid is a plate carree quadtree: level L has 2^L rows and 2^(L+1)
// columns of square cells. Zones pack level<<56 | row<<28 | col and text ids
// read "F<level>-<row>-<col>".
type fakeGrid struct {
	concurrent bool
	// vertices returned per boundary, 4 when zero
	vertices int
	// repeat the first two corners instead of returning four distinct ones
	collapse bool

	centroidCalls atomic.Int64
	vertexCalls   atomic.Int64
	pointCalls    atomic.Int64
	textCalls     atomic.Int64
	parseCalls    atomic.Int64
}

var _ ConcurrentGrid = (*fakeGrid)(nil)

func (g *fakeGrid) ConcurrentSafe() bool { return g.concurrent }

func (g *fakeGrid) calls() int64 {
	return g.centroidCalls.Load() + g.vertexCalls.Load() + g.pointCalls.Load() +
		g.textCalls.Load() + g.parseCalls.Load()
}

func fakeZone(level int, row, col uint64) Zone {
	return uint64(level)<<56 | row<<28 | col
}

func fakeSplit(z Zone) (level int, row, col uint64, err error) {
	level = int(z >> 56)
	row = (z >> 28) & (1<<28 - 1)
	col = z & (1<<28 - 1)
	if level > 20 || row >= 1<<uint(level) || col >= 2<<uint(level) {
		return 0, 0, 0, fmt.Errorf("fake: invalid zone %d", z)
	}
	return level, row, col, nil
}

func fakeCellSize(level int) float64 { return 180 / float64(uint64(1)<<uint(level)) }

func (g *fakeGrid) ZoneWGS84Centroid(z Zone) (orb.Point, error) {
	g.centroidCalls.Add(1)
	level, row, col, err := fakeSplit(z)
	if err != nil {
		return orb.Point{}, err
	}
	size := fakeCellSize(level)
	return orb.Point{-180 + (float64(col)+0.5)*size, -90 + (float64(row)+0.5)*size}, nil
}

func (g *fakeGrid) ZoneRefinedWGS84Vertices(z Zone, refinement int) ([]orb.Point, error) {
	g.vertexCalls.Add(1)
	level, row, col, err := fakeSplit(z)
	if err != nil {
		return nil, err
	}
	size := fakeCellSize(level)
	w, s := -180+float64(col)*size, -90+float64(row)*size
	ring := []orb.Point{{w, s}, {w + size, s}, {w + size, s + size}, {w, s + size}}
	if g.collapse {
		ring = []orb.Point{ring[0], ring[1], ring[0], ring[1]}
	}
	if g.vertices > 0 && g.vertices < len(ring) {
		ring = ring[:g.vertices]
	}
	return ring, nil
}

func (g *fakeGrid) ZoneFromCRSCentroid(level int, crs CRS, p orb.Point) (Zone, error) {
	g.pointCalls.Add(1)
	if crs != CRS84 {
		return 0, fmt.Errorf("fake: unsupported crs %s", crs)
	}
	if p.Lat() < -90 || p.Lat() > 90 || p.Lon() < -180 || p.Lon() > 180 {
		return 0, fmt.Errorf("fake: point out of range %v", p)
	}
	size := fakeCellSize(level)
	rows, cols := uint64(1)<<uint(level), uint64(2)<<uint(level)
	row := min(uint64(math.Floor((p.Lat()+90)/size)), rows-1)
	col := min(uint64(math.Floor((p.Lon()+180)/size)), cols-1)
	return fakeZone(level, row, col), nil
}

func (g *fakeGrid) ZoneTextID(z Zone) (string, error) {
	g.textCalls.Add(1)
	level, row, col, err := fakeSplit(z)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("F%d-%d-%d", level, row, col), nil
}

func (g *fakeGrid) ZoneFromTextID(id string) (Zone, error) {
	g.parseCalls.Add(1)
	var (
		level    int
		row, col uint64
	)
	if _, err := fmt.Sscanf(id, "F%d-%d-%d", &level, &row, &col); err != nil {
		return 0, fmt.Errorf("fake: invalid text id %q", id)
	}
	z := fakeZone(level, row, col)
	if _, _, _, err := fakeSplit(z); err != nil {
		return 0, err
	}
	return z, nil
}

// withEngine registers factory for name for the duration of the test and
// drops any cached binding before and after
func withEngine(t *testing.T, name string, factory GridFactory) {
	t.Helper()
	enginesMu.Lock()
	prev, had := engines[name]
	engines[name] = factory
	enginesMu.Unlock()
	dropBinding(name)

	t.Cleanup(func() {
		enginesMu.Lock()
		if had {
			engines[name] = prev
		} else {
			delete(engines, name)
		}
		enginesMu.Unlock()
		dropBinding(name)
	})
}

// withFakeEngine registers g for name and returns a counter of factory calls
func withFakeEngine(t *testing.T, name string, g *fakeGrid) *atomic.Int64 {
	t.Helper()
	calls := &atomic.Int64{}
	withEngine(t, name, func() (Grid, error) {
		calls.Add(1)
		return g, nil
	})
	return calls
}

// withoutEngine hides any engine registered for name during the test
func withoutEngine(t *testing.T, name string) {
	t.Helper()
	enginesMu.Lock()
	prev, had := engines[name]
	delete(engines, name)
	enginesMu.Unlock()
	dropBinding(name)

	t.Cleanup(func() {
		if had {
			enginesMu.Lock()
			engines[name] = prev
			enginesMu.Unlock()
		}
		dropBinding(name)
	})
}

func dropBinding(name string) {
	bindingsMu.Lock()
	delete(bindings, name)
	bindingsMu.Unlock()
}
