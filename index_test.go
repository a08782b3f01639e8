package dggs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellVariable(data CellIDs, attrs Attributes) map[string]Variable {
	return map[string]Variable{
		"cell_ids": {Name: "cell_ids", Dims: []string{"cells"}, Data: data, Attrs: attrs},
	}
}

func TestNewIndexInvalidGridInfo(t *testing.T) {
	var nilDescriptor *Descriptor
	for _, g := range []GridInfo{nil, nilDescriptor, &Descriptor{level: 1, gridName: "IVEA7H"}} {
		idx, err := NewIndex(ZoneIDs{1}, "cells", g)
		assert.Nil(t, idx)
		assert.ErrorIs(t, err, ErrInvalidGridInfo)
	}
}

func TestNewIndex(t *testing.T) {
	d, _ := fakeDescriptor(t, 3)
	idx, err := NewIndex(TextIDs{"F3-0-0"}, "cells", d)
	require.NoError(t, err)
	assert.Equal(t, "ivea7h", idx.Kind().Name)
	assert.Equal(t, "cells", idx.Dim())
	assert.Equal(t, 1, idx.Len())
	assert.Same(t, d, idx.GridInfo())

	empty, err := NewIndex(nil, "cells", d)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestFromVariables(t *testing.T) {
	withFakeEngine(t, GridRHEALPix, &fakeGrid{})
	attrs := Attributes{KeyGridName: "rhealpix", KeyLevel: float64(1)}

	idx, err := FromVariables(cellVariable(TextIDs{"F1-0-0", "F1-1-3"}, attrs), nil)
	require.NoError(t, err)
	assert.Equal(t, "rhealpix", idx.Kind().Name)
	assert.Equal(t, "cells", idx.Dim())
	assert.Equal(t, 1, idx.GridInfo().Level())
	assert.Equal(t, "RHEALPIX", idx.GridInfo().GridName())
	assert.Equal(t, "rhealpix", attrs[KeyGridName])

	// options take precedence over attributes
	idx, err = FromVariables(cellVariable(TextIDs{"F2-0-0"}, attrs), Attributes{KeyLevel: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.GridInfo().Level())
}

func TestFromVariablesErrors(t *testing.T) {
	withFakeEngine(t, GridRHEALPix, &fakeGrid{})
	attrs := Attributes{KeyGridName: "rhealpix", KeyLevel: 1}

	_, err := FromVariables(map[string]Variable{}, nil)
	assert.ErrorIs(t, err, ErrNoCellIDVariable)

	two := cellVariable(ZoneIDs{1}, attrs)
	two["other"] = Variable{Name: "other", Dims: []string{"cells"}, Data: ZoneIDs{2}, Attrs: attrs}
	_, err = FromVariables(two, nil)
	assert.ErrorIs(t, err, ErrAmbiguousCellIDVariable)

	flat := map[string]Variable{"grid": {Name: "grid", Dims: []string{"y", "x"}, Data: ZoneIDs{1}, Attrs: attrs}}
	_, err = FromVariables(flat, nil)
	assert.ErrorIs(t, err, ErrNotOneDimensional)

	_, err = FromVariables(cellVariable(ZoneIDs{1}, Attributes{KeyLevel: 1}), nil)
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = FromVariables(cellVariable(ZoneIDs{1}, Attributes{KeyGridName: "h3", KeyLevel: 1}), nil)
	assert.ErrorIs(t, err, ErrUnknownGrid)
}

func TestReprInline(t *testing.T) {
	withFakeEngine(t, GridRHEALPix, &fakeGrid{})
	idx, err := FromVariables(cellVariable(ZoneIDs{}, Attributes{KeyGridName: "rhealpix", KeyLevel: 5}), nil)
	require.NoError(t, err)

	full := "DGGSIndex(grid=RHEALPIX,level=5)"
	assert.Equal(t, full, idx.ReprInline(0))
	assert.Equal(t, full, idx.ReprInline(len(full)))
	assert.Equal(t, full, idx.String())
	assert.Equal(t, "DGGSIndex(g...", idx.ReprInline(14))
	assert.Len(t, idx.ReprInline(20), 20)
	assert.Equal(t, "DG", idx.ReprInline(2))
}

func TestReplace(t *testing.T) {
	d, _ := fakeDescriptor(t, 1)
	idx, err := NewIndex(ZoneIDs{fakeZone(1, 0, 0)}, "cells", d)
	require.NoError(t, err)

	next := idx.Replace(ZoneIDs{fakeZone(1, 0, 1), fakeZone(1, 1, 1)})
	assert.NotSame(t, idx, next)
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 2, next.Len())
	assert.Equal(t, idx.Dim(), next.Dim())
	assert.Same(t, idx.GridInfo(), next.GridInfo())
	assert.Equal(t, idx.Kind(), next.Kind())
}

func TestIsel(t *testing.T) {
	d, _ := fakeDescriptor(t, 1)
	idx, err := NewIndex(TextIDs{"F1-0-0", "F1-0-1", "F1-0-2"}, "cells", d)
	require.NoError(t, err)

	sel, err := idx.Isel([]int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, TextIDs{"F1-0-2", "F1-0-0"}, sel.Values())

	_, err = idx.Isel([]int{3})
	assert.Error(t, err)
	_, err = idx.Isel([]int{-1})
	assert.Error(t, err)
}

func TestSel(t *testing.T) {
	d, _ := fakeDescriptor(t, 1)
	idx, err := NewIndex(ZoneIDs{10, 20, 30, 20}, "cells", d)
	require.NoError(t, err)

	positions, sel, err := idx.Sel(ZoneIDs{30, 20})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, positions)
	assert.Equal(t, ZoneIDs{30, 20}, sel.Values())

	_, _, err = idx.Sel(ZoneIDs{40})
	assert.ErrorIs(t, err, ErrCellNotFound)

	_, _, err = idx.Sel(TextIDs{"10"})
	assert.ErrorIs(t, err, ErrMixedEncoding)
}

func TestIndexCellGeometry(t *testing.T) {
	d, _ := fakeDescriptor(t, 1)
	idx, err := NewIndex(TextIDs{"F1-1-3"}, "cells", d)
	require.NoError(t, err)

	lon, lat, err := idx.CellCenters()
	require.NoError(t, err)
	assert.Equal(t, []float64{135}, lon)
	assert.Equal(t, []float64{45}, lat)

	polygons, err := idx.CellBoundaries()
	require.NoError(t, err)
	require.Len(t, polygons, 1)
	bound := polygons[0].Bound()
	assert.Equal(t, 90.0, bound.Min.Lon())
	assert.Equal(t, 180.0, bound.Max.Lon())
}
