package dggs

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Grid system names the engine layer can bind
const (
	GridIVEA7H   = "IVEA7H"
	GridRHEALPix = "RHEALPIX"
	GridISEA7HZ7 = "ISEA7H_Z7"
	GridHEALPix  = "HEALPIX"
)

var supportedGrids = map[string]struct{}{
	GridIVEA7H:   {},
	GridRHEALPix: {},
	GridISEA7HZ7: {},
	GridHEALPix:  {},
}

// IsSupportedGrid reports whether name (in any case) is a grid system the
// engine layer can bind
func IsSupportedGrid(name string) bool {
	_, ok := supportedGrids[strings.ToUpper(name)]
	return ok
}

// SupportedGrids lists the supported grid system names in sorted order
func SupportedGrids() []string {
	names := make([]string, 0, len(supportedGrids))
	for n := range supportedGrids {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CRS names a coordinate reference system by authority and code
type CRS struct {
	Authority string
	Code      int
}

// CRS84 is WGS84 longitude/latitude in degrees, the only reference system
// used for point queries
var CRS84 = CRS{Authority: "OGC", Code: 84}

func (c CRS) String() string { return fmt.Sprintf("%s:%d", c.Authority, c.Code) }

// Grid is the per-cell interface of a grid engine. Points are (lon, lat) in
// degrees. Vertex lists are open rings.
type Grid interface {
	ZoneWGS84Centroid(zone Zone) (orb.Point, error)
	ZoneRefinedWGS84Vertices(zone Zone, edgeRefinement int) ([]orb.Point, error)
	ZoneFromCRSCentroid(level int, crs CRS, centroid orb.Point) (Zone, error)
	ZoneTextID(zone Zone) (string, error)
	ZoneFromTextID(id string) (Zone, error)
}

// ConcurrentGrid is implemented by engines whose methods may be called from
// several goroutines at once. Bulk calls on other engines run sequentially.
type ConcurrentGrid interface {
	Grid
	ConcurrentSafe() bool
}

// GridFactory initializes an engine for one grid system. A factory runs at most
// once per grid system per process.
type GridFactory func() (Grid, error)

var (
	enginesMu sync.RWMutex
	engines   = map[string]GridFactory{}

	bindingsMu    sync.Mutex
	bindings      = map[string]*Binding{}
	bindingFlight singleflight.Group
)

// RegisterEngine makes an engine available for a supported grid system. It is
// meant to be called from init functions and panics on an unsupported name, a
// nil factory or a second registration for the same name.
func RegisterEngine(name string, factory GridFactory) {
	name = strings.ToUpper(name)
	if !IsSupportedGrid(name) {
		panic(fmt.Sprintf("dggs: RegisterEngine for unsupported grid %q", name))
	}
	if factory == nil {
		panic("dggs: RegisterEngine factory is nil")
	}

	enginesMu.Lock()
	defer enginesMu.Unlock()
	if _, dup := engines[name]; dup {
		panic("dggs: RegisterEngine called twice for grid " + name)
	}
	engines[name] = factory
}

// Engines lists the grid systems with a registered engine, sorted
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for n := range engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var (
	engineCells = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dggs_engine_cells_total",
		Help: "Cells passed through grid engine bulk operations",
	}, []string{"grid", "operation"})

	engineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dggs_engine_errors_total",
		Help: "Grid engine bulk operations that failed",
	}, []string{"grid", "operation"})
)

// parallelThreshold is the input length from which bulk calls fan out
const parallelThreshold = 4096

// Binding wraps the engine of one grid system and broadcasts its per-cell
// operations over slices. Outputs always match inputs in length and order.
type Binding struct {
	name     string
	grid     Grid
	parallel bool
}

// NewBinding returns the binding for a grid system name, initializing its
// engine on first use. Bindings are cached by name and concurrent first calls
// share one engine initialization.
func NewBinding(gridName string) (*Binding, error) {
	name := strings.ToUpper(gridName)
	if !IsSupportedGrid(name) {
		return nil, fmt.Errorf("%w: %q is not supported by the engine layer", ErrUnsupportedGrid, gridName)
	}

	if b := cachedBinding(name); b != nil {
		return b, nil
	}

	v, err, _ := bindingFlight.Do(name, func() (interface{}, error) {
		if b := cachedBinding(name); b != nil {
			return b, nil
		}

		enginesMu.RLock()
		factory, ok := engines[name]
		enginesMu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrEngineUnavailable, name)
		}

		grid, err := factory()
		if err != nil {
			return nil, err
		}
		b := &Binding{name: name, grid: grid}
		if cg, ok := grid.(ConcurrentGrid); ok {
			b.parallel = cg.ConcurrentSafe()
		}

		bindingsMu.Lock()
		bindings[name] = b
		bindingsMu.Unlock()

		log.WithFields(logrus.Fields{
			"grid":     name,
			"parallel": b.parallel,
		}).Debug("bound grid engine")
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Binding), nil
}

func cachedBinding(name string) *Binding {
	bindingsMu.Lock()
	defer bindingsMu.Unlock()
	return bindings[name]
}

// Name is the upper case grid system name
func (b *Binding) Name() string { return b.name }

// Grid exposes the underlying engine
func (b *Binding) Grid() Grid { return b.grid }

// Centroids returns the centroid of every zone
func (b *Binding) Centroids(zones []Zone) ([]orb.Point, error) {
	return broadcast(b, "centroid", zones, b.grid.ZoneWGS84Centroid)
}

// RefinedVertices returns the open boundary ring of every zone, each edge
// subdivided by refinement
func (b *Binding) RefinedVertices(zones []Zone, refinement int) ([][]orb.Point, error) {
	return broadcast(b, "refined_vertices", zones, func(z Zone) ([]orb.Point, error) {
		return b.grid.ZoneRefinedWGS84Vertices(z, refinement)
	})
}

// ZonesFromPoints returns the zone containing every point at level
func (b *Binding) ZonesFromPoints(points []orb.Point, level int, crs CRS) ([]Zone, error) {
	return broadcast(b, "zone_from_point", points, func(p orb.Point) (Zone, error) {
		return b.grid.ZoneFromCRSCentroid(level, crs, p)
	})
}

// ZonesFromText converts textual identifiers to zones
func (b *Binding) ZonesFromText(ids []string) ([]Zone, error) {
	return broadcast(b, "zone_from_text", ids, b.grid.ZoneFromTextID)
}

// TextIDs converts zones to textual identifiers
func (b *Binding) TextIDs(zones []Zone) ([]string, error) {
	return broadcast(b, "text_id", zones, b.grid.ZoneTextID)
}

// broadcast applies fn to every element of in. The first error fails the
// call and is returned as the engine reported it.
func broadcast[In, Out any](b *Binding, op string, in []In, fn func(In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(in))
	if !b.parallel || len(in) < parallelThreshold {
		for i, v := range in {
			o, err := fn(v)
			if err != nil {
				engineErrors.WithLabelValues(b.name, op).Inc()
				return nil, err
			}
			out[i] = o
		}
		engineCells.WithLabelValues(b.name, op).Add(float64(len(in)))
		return out, nil
	}

	workers := runtime.GOMAXPROCS(0)
	chunk := (len(in) + workers - 1) / workers
	g, ctx := errgroup.WithContext(context.Background())
	for start := 0; start < len(in); start += chunk {
		start, end := start, min(start+chunk, len(in))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if ctx.Err() != nil {
					return nil
				}
				o, err := fn(in[i])
				if err != nil {
					return err
				}
				out[i] = o
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		engineErrors.WithLabelValues(b.name, op).Inc()
		return nil, err
	}
	engineCells.WithLabelValues(b.name, op).Add(float64(len(in)))
	return out, nil
}
