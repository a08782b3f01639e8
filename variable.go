package dggs

import "fmt"

// Variable is a labeled one-dimensional coordinate variable holding cell
// identifiers
type Variable struct {
	Name  string
	Dims  []string
	Data  CellIDs
	Attrs Attributes
}

// ExtractCellIDVariable picks the single cell identifier variable out of
// variables and returns its name, the variable and its dimension
func ExtractCellIDVariable(variables map[string]Variable) (string, Variable, string, error) {
	switch len(variables) {
	case 0:
		return "", Variable{}, "", ErrNoCellIDVariable
	case 1:
	default:
		return "", Variable{}, "", fmt.Errorf("%w: got %d", ErrAmbiguousCellIDVariable, len(variables))
	}

	for name, v := range variables {
		if len(v.Dims) != 1 {
			return "", Variable{}, "", fmt.Errorf("%w: %q has dimensions %v", ErrNotOneDimensional, name, v.Dims)
		}
		return name, v, v.Dims[0], nil
	}
	panic("unreachable")
}
