package dggs

import (
	"fmt"
	"strconv"
)

// Zone is an engine-native cell handle. Engines pack the refinement level into
// the handle, so a Zone names one cell of one grid unambiguously.
type Zone = uint64

// CellIDs is an ordered collection of cell identifiers in a single declared
// encoding, either ZoneIDs or TextIDs
type CellIDs interface {
	Len() int
	// Strings renders every identifier in its own encoding
	Strings() []string
	sub(positions []int) CellIDs
}

// ZoneIDs are cell identifiers in the engine's native numeric form
type ZoneIDs []Zone

// TextIDs are cell identifiers in the grid's textual form
type TextIDs []string

var (
	_ CellIDs = ZoneIDs(nil)
	_ CellIDs = TextIDs(nil)
)

func (z ZoneIDs) Len() int { return len(z) }

func (z ZoneIDs) Strings() []string {
	s := make([]string, len(z))
	for i, id := range z {
		s[i] = strconv.FormatUint(id, 10)
	}
	return s
}

func (z ZoneIDs) sub(positions []int) CellIDs {
	out := make(ZoneIDs, len(positions))
	for i, p := range positions {
		out[i] = z[p]
	}
	return out
}

func (t TextIDs) Len() int { return len(t) }

func (t TextIDs) Strings() []string {
	return append([]string(nil), t...)
}

func (t TextIDs) sub(positions []int) CellIDs {
	out := make(TextIDs, len(positions))
	for i, p := range positions {
		out[i] = t[p]
	}
	return out
}

// ParseCellIDs decides the encoding of raw identifiers by parsing the first
// element as an unsigned decimal integer. When it parses, every element must
// parse and ZoneIDs are returned; otherwise no element may parse and TextIDs
// are returned. Mixed input fails with ErrMixedEncoding instead of being
// guessed.
func ParseCellIDs(raw []string) (CellIDs, error) {
	if len(raw) == 0 {
		return TextIDs{}, nil
	}
	if _, err := strconv.ParseUint(raw[0], 10, 64); err != nil {
		for i, s := range raw[1:] {
			if _, err := strconv.ParseUint(s, 10, 64); err == nil {
				return nil, fmt.Errorf("%w: element %d (%q) is numeric, element 0 (%q) is not", ErrMixedEncoding, i+1, s, raw[0])
			}
		}
		return TextIDs(append([]string(nil), raw...)), nil
	}

	zones := make(ZoneIDs, len(raw))
	for i, s := range raw {
		z, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d (%q) is not numeric, element 0 (%q) is", ErrMixedEncoding, i, s, raw[0])
		}
		zones[i] = z
	}
	return zones, nil
}
