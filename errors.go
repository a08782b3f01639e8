package dggs

import "errors"

var (
	// ErrUnsupportedGrid is returned when a grid system name is not one of the
	// grids the engine layer knows how to bind
	ErrUnsupportedGrid = errors.New("unsupported grid system")
	// ErrEngineUnavailable is returned when a grid system is supported but no
	// engine has been registered for it
	ErrEngineUnavailable = errors.New("no engine registered for grid system")
	// ErrMissingField is returned when a required configuration key is absent
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidConfig is returned when a configuration value has the wrong
	// type or range
	ErrInvalidConfig = errors.New("invalid grid configuration")
	// ErrUnknownGrid is returned by dispatch when a grid name has no index kind
	// or no engine support
	ErrUnknownGrid = errors.New("unknown DGGS grid name")
	// ErrInvalidGridInfo is returned when an index is built without a usable
	// grid descriptor
	ErrInvalidGridInfo = errors.New("grid info object is invalid")
	// ErrLengthMismatch is returned when longitude and latitude slices differ
	// in length
	ErrLengthMismatch = errors.New("longitude and latitude lengths differ")
	// ErrUnsupportedBackend is returned for boundary backends other than
	// BackendShapely
	ErrUnsupportedBackend = errors.New("unsupported boundary backend")
	// ErrLevelChangeNotImplemented is always returned by ChangeLevel
	ErrLevelChangeNotImplemented = errors.New("changing cell levels is not implemented")
	// ErrMixedEncoding is returned when raw identifiers mix numeric and textual
	// forms
	ErrMixedEncoding = errors.New("cell identifiers mix numeric and textual encodings")
	// ErrDegenerateBoundary is returned when an engine yields fewer than three
	// boundary vertices for a cell
	ErrDegenerateBoundary = errors.New("cell boundary has fewer than three vertices")
	// ErrNoCellIDVariable is returned when no cell identifier variable is given
	ErrNoCellIDVariable = errors.New("no cell identifier variable")
	// ErrAmbiguousCellIDVariable is returned when more than one candidate cell
	// identifier variable is given
	ErrAmbiguousCellIDVariable = errors.New("more than one cell identifier variable")
	// ErrNotOneDimensional is returned when a cell identifier variable does not
	// have exactly one dimension
	ErrNotOneDimensional = errors.New("cell identifier variable must be one-dimensional")
	// ErrCellNotFound is returned when a label selection misses the index
	ErrCellNotFound = errors.New("cell not found in index")
)
