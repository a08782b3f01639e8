package dggs

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Configuration keys understood by FromConfig
const (
	KeyGridName = "grid_name"
	KeyLevel    = "level"
)

// Backend selects the representation of cell boundaries
type Backend string

// BackendShapely yields one closed-ring orb.Polygon per cell. The name is the
// backend keyword DGGS index clients already send.
const BackendShapely Backend = "shapely"

// GridInfo is the capability an Index needs from its grid configuration
type GridInfo interface {
	Level() int
	GridName() string
	ToConfig() map[string]interface{}
	CellsToGeographic(cells CellIDs) (lon, lat []float64, err error)
	GeographicToCells(lon, lat []float64) (TextIDs, error)
	CellsToBoundaries(cells CellIDs, backend Backend) ([]orb.Polygon, error)
	ChangeLevel(cells CellIDs, level int) (CellIDs, error)
}

// DescriptorKey is the comparable identity of a Descriptor
type DescriptorKey struct {
	Level    int
	GridName string
}

// Descriptor is an immutable grid configuration: a grid system, a refinement
// level and the engine binding derived from the grid name. Two descriptors
// are equal when their keys are; the binding does not take part.
type Descriptor struct {
	level    int
	gridName string
	binding  *Binding
}

var (
	_ GridInfo         = (*Descriptor)(nil)
	_ json.Marshaler   = (*Descriptor)(nil)
	_ json.Unmarshaler = (*Descriptor)(nil)
	_ yaml.Marshaler   = (*Descriptor)(nil)
	_ yaml.Unmarshaler = (*Descriptor)(nil)
)

// FromConfig builds a descriptor from a configuration mapping, usually the
// attributes of a cell identifier variable. grid_name and level are required;
// other keys are ignored.
func FromConfig(mapping map[string]interface{}) (*Descriptor, error) {
	raw, ok := mapping[KeyGridName]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: attribute %s is missing", ErrMissingField, KeyGridName)
	}
	name, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidConfig, KeyGridName, raw)
	}

	b, err := NewBinding(name)
	if err != nil {
		return nil, err
	}

	rawLevel, ok := mapping[KeyLevel]
	if !ok || rawLevel == nil {
		return nil, fmt.Errorf("%w: attribute %s is missing", ErrMissingField, KeyLevel)
	}
	level, err := parseLevel(rawLevel)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		level:    level,
		gridName: strings.ToUpper(name),
		binding:  b,
	}
	log.WithFields(logrus.Fields{"grid": d.gridName, "level": d.level}).Debug("created grid descriptor")
	return d, nil
}

func parseLevel(v interface{}) (int, error) {
	var level int64
	switch x := v.(type) {
	case int:
		level = int64(x)
	case int8:
		level = int64(x)
	case int16:
		level = int64(x)
	case int32:
		level = int64(x)
	case int64:
		level = x
	case uint:
		level = int64(x)
	case uint8:
		level = int64(x)
	case uint16:
		level = int64(x)
	case uint32:
		level = int64(x)
	case uint64:
		if x > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s %d out of range", ErrInvalidConfig, KeyLevel, x)
		}
		level = int64(x)
	case float64:
		// JSON decodes every number as float64
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidConfig, KeyLevel, x)
		}
		level = int64(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfig, KeyLevel, x)
		}
		level = i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfig, KeyLevel, x)
		}
		level = i
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidConfig, KeyLevel, v)
	}

	if level < 0 || level > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s %d out of range", ErrInvalidConfig, KeyLevel, level)
	}
	return int(level), nil
}

// Level is the refinement level used for point queries
func (d *Descriptor) Level() int { return d.level }

// GridName is the upper case grid system name
func (d *Descriptor) GridName() string { return d.gridName }

// Binding is the engine binding derived from the grid name
func (d *Descriptor) Binding() *Binding { return d.binding }

// Key returns the comparable identity of d
func (d *Descriptor) Key() DescriptorKey {
	return DescriptorKey{Level: d.level, GridName: d.gridName}
}

// Equal reports whether d and o describe the same grid configuration
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Key() == o.Key()
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s(level=%d)", d.gridName, d.level)
}

// ToConfig returns exactly the level and grid name. The binding is rebuilt
// from the grid name by FromConfig.
func (d *Descriptor) ToConfig() map[string]interface{} {
	return map[string]interface{}{
		KeyLevel:    d.level,
		KeyGridName: d.gridName,
	}
}

func (d *Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToConfig())
}

func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	parsed, err := FromConfig(m)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

func (d *Descriptor) MarshalYAML() (interface{}, error) {
	return d.ToConfig(), nil
}

func (d *Descriptor) UnmarshalYAML(node *yaml.Node) error {
	var m map[string]interface{}
	if err := node.Decode(&m); err != nil {
		return err
	}
	parsed, err := FromConfig(m)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// bound fails for descriptors not built by FromConfig, such as the zero value
func (d *Descriptor) bound() error {
	if d == nil || d.binding == nil {
		return fmt.Errorf("%w: descriptor has no engine binding", ErrInvalidGridInfo)
	}
	return nil
}

// zones resolves cells to engine handles, converting textual identifiers
func (d *Descriptor) zones(cells CellIDs) ([]Zone, error) {
	switch c := cells.(type) {
	case ZoneIDs:
		return c, nil
	case TextIDs:
		return d.binding.ZonesFromText(c)
	default:
		return nil, fmt.Errorf("unsupported cell identifier collection %T", cells)
	}
}

// CellsToGeographic returns the centroid longitude and latitude of every cell,
// aligned with the input
func (d *Descriptor) CellsToGeographic(cells CellIDs) (lon, lat []float64, err error) {
	if err := d.bound(); err != nil {
		return nil, nil, err
	}
	if cells == nil || cells.Len() == 0 {
		return []float64{}, []float64{}, nil
	}

	zones, err := d.zones(cells)
	if err != nil {
		return nil, nil, err
	}
	centroids, err := d.binding.Centroids(zones)
	if err != nil {
		return nil, nil, err
	}

	lon = make([]float64, len(centroids))
	lat = make([]float64, len(centroids))
	for i, c := range centroids {
		lon[i], lat[i] = c.Lon(), c.Lat()
	}
	return lon, lat, nil
}

// GeographicToCells returns the textual identifier of the cell containing each
// (lon, lat) pair at the descriptor level
func (d *Descriptor) GeographicToCells(lon, lat []float64) (TextIDs, error) {
	if err := d.bound(); err != nil {
		return nil, err
	}
	if len(lon) != len(lat) {
		return nil, fmt.Errorf("%w: %d longitudes, %d latitudes", ErrLengthMismatch, len(lon), len(lat))
	}
	if len(lon) == 0 {
		return TextIDs{}, nil
	}

	points := make([]orb.Point, len(lon))
	for i := range lon {
		points[i] = orb.Point{lon[i], lat[i]}
	}
	zones, err := d.binding.ZonesFromPoints(points, d.level, CRS84)
	if err != nil {
		return nil, err
	}
	ids, err := d.binding.TextIDs(zones)
	if err != nil {
		return nil, err
	}
	return TextIDs(ids), nil
}

// CellsToBoundaries returns the undivided boundary of every cell as a polygon
// with a single closed ring
func (d *Descriptor) CellsToBoundaries(cells CellIDs, backend Backend) ([]orb.Polygon, error) {
	if err := d.bound(); err != nil {
		return nil, err
	}
	if backend != BackendShapely {
		return nil, fmt.Errorf("%w: %q, only %q is implemented", ErrUnsupportedBackend, backend, BackendShapely)
	}
	if cells == nil || cells.Len() == 0 {
		return []orb.Polygon{}, nil
	}

	zones, err := d.zones(cells)
	if err != nil {
		return nil, err
	}
	vertices, err := d.binding.RefinedVertices(zones, 0)
	if err != nil {
		return nil, err
	}

	polygons := make([]orb.Polygon, len(vertices))
	for i, vs := range vertices {
		if n := distinctVertices(vs); n < 3 {
			return nil, fmt.Errorf("%w: cell %d has %d distinct", ErrDegenerateBoundary, i, n)
		}
		ring := make(orb.Ring, 0, len(vs)+1)
		ring = append(ring, vs...)
		ring = append(ring, vs[0])
		polygons[i] = orb.Polygon{ring}
	}
	return polygons, nil
}

func distinctVertices(vs []orb.Point) int {
	seen := make(map[orb.Point]struct{}, len(vs))
	for _, v := range vs {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// ChangeLevel is not implemented and always fails
func (d *Descriptor) ChangeLevel(cells CellIDs, level int) (CellIDs, error) {
	return nil, ErrLevelChangeNotImplemented
}
