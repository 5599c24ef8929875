package logic

import "errors"

var (
	// ErrNotFound means no history exists for the requested player or row.
	ErrNotFound = errors.New("not found")

	// ErrMissingFeature means a feature vector lacks a field the selected
	// scoring function requires.
	ErrMissingFeature = errors.New("missing feature")

	// ErrInvalidOdds covers non-numeric or out of domain lines and odds.
	ErrInvalidOdds = errors.New("invalid odds")

	// ErrStaleDerivation means derived tables trail the raw event store.
	ErrStaleDerivation = errors.New("stale derivation")

	// ErrAmbiguous means a name matched more than one roster entry.
	ErrAmbiguous = errors.New("ambiguous player identity")

	ErrUnsupportedProp  = errors.New("unsupported prop type")
	ErrModelNotLoaded   = errors.New("no model registered for prop type")
	ErrDerivationActive = errors.New("derivation already running")
)
