package dggs

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/paulmach/orb"
)

// Index is a coordinate index over cell identifiers along one dimension. All
// coordinate semantics are delegated to its GridInfo. An Index is never
// mutated; operations that change the identifiers return a new Index.
type Index struct {
	cells CellIDs
	dim   string
	grid  GridInfo
	kind  IndexKind

	lookupOnce sync.Once
	lookup     map[string]int
}

// NewIndex builds an index over cells along dim. grid must be a usable grid
// configuration whose grid name has a registered index kind.
func NewIndex(cells CellIDs, dim string, grid GridInfo) (*Index, error) {
	if !validGridInfo(grid) {
		return nil, fmt.Errorf("%w: %T", ErrInvalidGridInfo, grid)
	}
	kind, ok := LookupIndexKind(grid.GridName())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGrid, grid.GridName())
	}
	return newIndex(kind, cells, dim, grid), nil
}

func newIndex(kind IndexKind, cells CellIDs, dim string, grid GridInfo) *Index {
	if cells == nil {
		cells = TextIDs{}
	}
	return &Index{cells: cells, dim: dim, grid: grid, kind: kind}
}

func validGridInfo(g GridInfo) bool {
	if g == nil {
		return false
	}
	if d, ok := g.(*Descriptor); ok {
		return d != nil && d.binding != nil
	}
	// typed nil behind the interface
	v := reflect.ValueOf(g)
	return !(v.Kind() == reflect.Ptr && v.IsNil())
}

// FromVariables builds an index from the single cell identifier variable in
// variables. The variable attributes, overlaid with options, must name the
// grid system and level.
func FromVariables(variables map[string]Variable, options Attributes) (*Index, error) {
	_, v, dim, err := ExtractCellIDVariable(variables)
	if err != nil {
		return nil, err
	}

	attrs := v.Attrs.Clone()
	for k, val := range options {
		attrs[k] = val
	}

	kind, d, err := dispatch(attrs)
	if err != nil {
		return nil, err
	}
	return newIndex(kind, v.Data, dim, d), nil
}

// GridInfo exposes the grid configuration of the index
func (idx *Index) GridInfo() GridInfo { return idx.grid }

// Dim is the dimension the index labels
func (idx *Index) Dim() string { return idx.dim }

// Kind is the registry entry the index was resolved to
func (idx *Index) Kind() IndexKind { return idx.kind }

func (idx *Index) Len() int { return idx.cells.Len() }

// Values returns the backing cell identifiers
func (idx *Index) Values() CellIDs { return idx.cells }

// ReprInline renders a one-line description no wider than maxWidth. A
// maxWidth of zero or less disables truncation.
func (idx *Index) ReprInline(maxWidth int) string {
	s := fmt.Sprintf("DGGSIndex(grid=%s,level=%d)", idx.grid.GridName(), idx.grid.Level())
	if maxWidth <= 0 || len(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return s[:maxWidth]
	}
	return s[:maxWidth-3] + "..."
}

func (idx *Index) String() string { return idx.ReprInline(0) }

// Replace returns an index over cells with the same dimension and grid
func (idx *Index) Replace(cells CellIDs) *Index {
	return newIndex(idx.kind, cells, idx.dim, idx.grid)
}

// Isel selects cells by position
func (idx *Index) Isel(positions []int) (*Index, error) {
	n := idx.cells.Len()
	for _, p := range positions {
		if p < 0 || p >= n {
			return nil, fmt.Errorf("position %d out of range for index of length %d", p, n)
		}
	}
	return idx.Replace(idx.cells.sub(positions)), nil
}

// Sel selects cells by label. Labels must use the same encoding as the index
// and every label must be present. It returns the positions of the labels and
// the selected index.
func (idx *Index) Sel(labels CellIDs) ([]int, *Index, error) {
	if reflect.TypeOf(labels) != reflect.TypeOf(idx.cells) {
		return nil, nil, fmt.Errorf("%w: index holds %T, labels are %T", ErrMixedEncoding, idx.cells, labels)
	}

	idx.lookupOnce.Do(func() {
		strs := idx.cells.Strings()
		idx.lookup = make(map[string]int, len(strs))
		for i := len(strs) - 1; i >= 0; i-- {
			idx.lookup[strs[i]] = i
		}
	})

	wanted := labels.Strings()
	positions := make([]int, len(wanted))
	for i, l := range wanted {
		p, ok := idx.lookup[l]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrCellNotFound, l)
		}
		positions[i] = p
	}
	return positions, idx.Replace(idx.cells.sub(positions)), nil
}

// CellCenters returns the centroid coordinates of every cell in the index
func (idx *Index) CellCenters() (lon, lat []float64, err error) {
	return idx.grid.CellsToGeographic(idx.cells)
}

// CellBoundaries returns the boundary polygon of every cell in the index
func (idx *Index) CellBoundaries() ([]orb.Polygon, error) {
	return idx.grid.CellsToBoundaries(idx.cells, BackendShapely)
}
