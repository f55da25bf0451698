package timeline

import "errors"

var (
	// ErrMissingID marks an item without a stable identifier.
	ErrMissingID = errors.New("track item has no id")
	// ErrUnknownType marks an item whose type is outside the closed union.
	ErrUnknownType = errors.New("track item type is not recognized")
	// ErrInvalidDisplay marks a display window violating to > from >= 0.
	ErrInvalidDisplay = errors.New("track item display range is invalid")
)
