package domain

import (
	"fmt"
	"time"
)

// MissingInputError reports a required source file or requested month that
// is absent. The run halts; months are never skipped silently.
type MissingInputError struct {
	Source string    // which loader was reading, e.g. "altimetry"
	Path   string    // directory or file that was searched
	Month  time.Time // zero when the whole source is missing
}

func (e *MissingInputError) Error() string {
	if e.Month.IsZero() {
		return fmt.Sprintf("%s: missing input at %s", e.Source, e.Path)
	}
	return fmt.Sprintf("%s: no data for %s in %s", e.Source, e.Month.Format("2006-01"), e.Path)
}

// EmptyInterpolationSetError reports a nearest-neighbor fill or resample
// attempted with zero valid reference points, for which the result would be
// undefined.
type EmptyInterpolationSetError struct {
	Field string
	Step  int // index into the field's time axis
}

func (e *EmptyInterpolationSetError) Error() string {
	return fmt.Sprintf("field %q: no valid reference points at time step %d", e.Field, e.Step)
}

// ShapeMismatchError reports a field whose non-time dimensions disagree with
// the established target grid.
type ShapeMismatchError struct {
	Field string
	Got   []int
	Want  []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("field %q: shape %v does not match grid %v", e.Field, e.Got, e.Want)
}

// AttributeLossError reports a required provenance attribute missing at
// serialization time.
type AttributeLossError struct {
	Field string // "" for a dataset-level attribute
	Key   string
}

func (e *AttributeLossError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("dataset attribute %q is missing", e.Key)
	}
	return fmt.Sprintf("field %q: required attribute %q is missing", e.Field, e.Key)
}
