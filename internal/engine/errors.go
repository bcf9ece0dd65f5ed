package engine

import "errors"

var (
	// ErrInvalidGeometry flags malformed coordinates, polygons with fewer
	// than three vertices, or a non-positive radius.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrNotFound flags a reference to an entity id absent from the
	// current data set.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput flags invalid filter or parameter ranges (min > max,
	// non-positive tolerances where one is required).
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyDataset flags an operation that explicitly requires a
	// non-empty data set. Plain queries against an empty engine simply
	// return no results.
	ErrEmptyDataset = errors.New("empty dataset")
)
