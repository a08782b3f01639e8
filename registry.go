package dggs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// IndexKind is a registered flavour of Index, one per grid system name
type IndexKind struct {
	// Name is the lower case registration key
	Name string
}

// indexKinds is built once at package initialization and never written again
var indexKinds = newIndexRegistry("ivea7h", "rhealpix", "healpix", "isea7h_z7")

func newIndexRegistry(names ...string) map[string]IndexKind {
	reg := make(map[string]IndexKind, len(names))
	for _, n := range names {
		n = strings.ToLower(n)
		if _, dup := reg[n]; dup {
			panic("dggs: index kind registered twice: " + n)
		}
		reg[n] = IndexKind{Name: n}
	}
	return reg
}

// LookupIndexKind resolves a grid name in any case to its index kind
func LookupIndexKind(gridName string) (IndexKind, bool) {
	k, ok := indexKinds[strings.ToLower(gridName)]
	return k, ok
}

// IndexKinds lists the registered index kinds sorted by name
func IndexKinds() []IndexKind {
	kinds := make([]IndexKind, 0, len(indexKinds))
	for _, k := range indexKinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Name < kinds[j].Name })
	return kinds
}

// dispatch resolves attrs to an index kind and grid descriptor. The registry
// and the engine-supported set are separate authorities and both must know
// the grid name.
func dispatch(attrs Attributes) (IndexKind, *Descriptor, error) {
	raw, ok := attrs[KeyGridName]
	if !ok || raw == nil {
		return IndexKind{}, nil, fmt.Errorf("%w: attribute %s is missing", ErrMissingField, KeyGridName)
	}
	original, ok := raw.(string)
	if !ok {
		return IndexKind{}, nil, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidConfig, KeyGridName, raw)
	}

	name := strings.ToUpper(original)
	kind, ok := LookupIndexKind(name)
	if !ok {
		return IndexKind{}, nil, fmt.Errorf("%w: %s", ErrUnknownGrid, original)
	}
	if !IsSupportedGrid(name) {
		return IndexKind{}, nil, fmt.Errorf("%w: %s is not supported by the engine layer", ErrUnknownGrid, original)
	}

	cfg := attrs.Clone()
	cfg[KeyGridName] = name
	d, err := FromConfig(cfg)
	if err != nil {
		return IndexKind{}, nil, err
	}

	log.WithFields(logrus.Fields{"kind": kind.Name, "grid": d.GridName(), "level": d.Level()}).Debug("dispatched cell index")
	return kind, d, nil
}
