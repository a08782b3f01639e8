package dggs

import (
	"encoding/json"
	"fmt"
)

type MetaType string

const (
	// MTAttributes stores userland metadata keyed by array name
	MTAttributes MetaType = ".zattrs"
	// MTArray is the key for storing metadata on an array store
	MTArray MetaType = ".zarray"
	// MTGroup is the key for storing group definitions on an array store
	MTGroup MetaType = ".zgroup"
	// MTMetadata is the key for composite metadata
	MTMetadata MetaType = ".zmetadata"
)

// AttrArrayDimensions is the attribute listing the dimension names of an array
const AttrArrayDimensions = "_ARRAY_DIMENSIONS"

type MetaTyper interface {
	MetaType() MetaType
}

var metaTypes = map[MetaType]struct{}{
	MTAttributes: {},
	MTArray:      {},
	MTGroup:      {},
}

// relies on the fact that all keynames are 7 characters long
func KeyMetaType(s string) (mt MetaType, ok bool) {
	if len(s) < 7 {
		return mt, false
	}
	mt = MetaType(s[len(s)-7:])
	_, ok = metaTypes[mt]
	return mt, ok
}

// Attributes is the free-form metadata of an array. Cell identifier
// variables carry grid_name and level here.
type Attributes map[string]interface{}

func (Attributes) MetaType() MetaType { return MTAttributes }

// Clone returns a shallow copy that is never nil
func (a Attributes) Clone() Attributes {
	c := make(Attributes, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

// GridName returns the grid_name attribute when it is a string
func (a Attributes) GridName() (string, bool) {
	s, ok := a[KeyGridName].(string)
	return s, ok
}

// Dimensions returns the dimension names stored under AttrArrayDimensions
func (a Attributes) Dimensions() []string {
	switch dims := a[AttrArrayDimensions].(type) {
	case []string:
		return append([]string(nil), dims...)
	case []interface{}:
		names := make([]string, 0, len(dims))
		for _, d := range dims {
			s, ok := d.(string)
			if !ok {
				return nil
			}
			names = append(names, s)
		}
		return names
	default:
		return nil
	}
}

// Group is the metadata document stored under a ".zgroup" key
type Group struct {
	ZarrFormat int `json:"zarr_format"`
}

func (Group) MetaType() MetaType { return MTGroup }

// ConsolidatedMetadata gathers the metadata documents of a group hierarchy
// under a single ".zmetadata" key
type ConsolidatedMetadata struct {
	ConsolidatedFormat int                  `json:"zarr_consolidated_format"`
	Metadata           map[string]MetaTyper `json:"metadata"`
}

type consolidatedMetaDecoder struct {
	ConsolidatedFormat int                        `json:"zarr_consolidated_format"`
	Metadata           map[string]json.RawMessage `json:"metadata"`
}

func (m *ConsolidatedMetadata) UnmarshalJSON(d []byte) error {
	cd := consolidatedMetaDecoder{}
	if err := json.Unmarshal(d, &cd); err != nil {
		return err
	}
	cm := ConsolidatedMetadata{
		ConsolidatedFormat: cd.ConsolidatedFormat,
		Metadata:           map[string]MetaTyper{},
	}

	for key, data := range cd.Metadata {
		kt, ok := KeyMetaType(key)
		if !ok {
			return fmt.Errorf("invalid consoldated metadata key: %q", key)
		}

		switch kt {
		case MTArray:
			arr := &ArrayMeta{}
			if err := json.Unmarshal(data, arr); err != nil {
				return fmt.Errorf("reading %q metadata: %w", key, err)
			}
			cm.Metadata[key] = arr
		case MTAttributes:
			attr := Attributes{}
			if err := json.Unmarshal(data, &attr); err != nil {
				return fmt.Errorf("reading %q attributes: %w", key, err)
			}
			cm.Metadata[key] = attr
		case MTGroup:
			grp := Group{}
			if err := json.Unmarshal(data, &grp); err != nil {
				return fmt.Errorf("reading %q group: %w", key, err)
			}
			cm.Metadata[key] = grp
		}
	}

	*m = cm
	return nil
}

// Attributes returns the attributes consolidated for the node at path, or
// nil when there are none
func (m *ConsolidatedMetadata) Attributes(path Path) Attributes {
	a, _ := m.Metadata[path.Join(string(MTAttributes)).String()].(Attributes)
	return a
}

// Arrays lists the array metadata in m keyed by array path
func (m *ConsolidatedMetadata) Arrays() map[string]*ArrayMeta {
	arrays := map[string]*ArrayMeta{}
	for key, mt := range m.Metadata {
		arr, ok := mt.(*ArrayMeta)
		if !ok {
			continue
		}
		p, _ := NewPath(key)
		arrays[p[:len(p)-1].String()] = arr
	}
	return arrays
}

// ArrayMeta is the essential configuration of an array, stored as JSON under
// the ".zarray" key of the array. Cell identifier variables use a single
// dimension and a single chunk dimension.
type ArrayMeta struct {
	// Version of the storage specification the array adheres to
	ZarrFormat int `json:"zarr_format"`
	// Length of each dimension of the array
	Shape []int `json:"shape"`
	// Length of each dimension of a chunk. All chunks have the same shape.
	Chunks []int `json:"chunks"`
	// Data type of the array elements
	Dtype Dtype `json:"dtype"`
	// Primary compression codec, or null for uncompressed chunks
	Compressor *CompressionMeta `json:"compressor"`
	// Value of uninitialized portions of the array, or null
	FillValue interface{} `json:"fill_value"`
	// Either "C" or "F", the byte layout within each chunk
	Order string `json:"order"`
	// Codec configurations applied before compression, or null
	Filters []Filter `json:"filters"`

	// optional fields

	// Separator placed between the dimensions of a chunk key, "." when unset
	DimensionSeparator string `json:"dimension_separator,omitempty"`
}

func (a ArrayMeta) MetaType() MetaType { return MTArray }

// oneDimensional checks a can be read as a cell identifier variable
func (a *ArrayMeta) oneDimensional() error {
	if len(a.Shape) != 1 {
		return fmt.Errorf("%w: array shape %v", ErrNotOneDimensional, a.Shape)
	}
	if a.Shape[0] < 0 {
		return fmt.Errorf("invalid array length %d", a.Shape[0])
	}
	if len(a.Chunks) != 1 || a.Chunks[0] <= 0 {
		return fmt.Errorf("invalid chunk shape %v for array of shape %v", a.Chunks, a.Shape)
	}
	if len(a.Filters) > 0 {
		return fmt.Errorf("array filters are not supported, got %d", len(a.Filters))
	}
	return nil
}

type Filter struct {
	ID     string `json:"id"`
	Dtype  string `json:"dtype,omitempty"`
	AsType string `json:"astype,omitempty"`
}
