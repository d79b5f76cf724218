// Package check defines the check contract: a pure function from a dataset
// to a Result, parameterised at construction. Builtin checks cover the common
// tabular quality rules (format, missing values, ranges, duplicates,
// group consistency); custom checks register under a name via Register.
package check

import (
	"errors"
	"fmt"

	"github.com/datasmiths/tabinspect/pkg/dataset"
)

// ErrInvalidParameters marks a check that cannot be evaluated against the
// given dataset, typically because a named column is absent. It is always
// propagated to the caller, never folded into a Result.
var ErrInvalidParameters = errors.New("invalid check parameters")

// Result is the outcome of one check applied to one dataset.
// Immutable after creation.
type Result struct {
	// Passed is true iff FailingRows is empty.
	Passed bool

	// TotalRows is the number of rows evaluated.
	TotalRows int

	// FailingRows holds the zero-based indices of violating rows, ascending.
	FailingRows []int

	// Message is a one-line human-readable summary.
	Message string
}

// Func evaluates one configured check against a dataset. Implementations are
// deterministic and side-effect free: no dataset mutation, no I/O, identical
// input yields an identical Result. The only error a Func returns wraps
// ErrInvalidParameters; an empty dataset is a pass, not an error.
type Func func(ds dataset.Dataset) (*Result, error)

// NewResult assembles a Result, deriving Passed from the failing set so the
// two can never disagree. failing must be ascending; checks in this package
// scan rows in index order, which guarantees it.
func NewResult(total int, failing []int, msg string) *Result {
	return &Result{
		Passed:      len(failing) == 0,
		TotalRows:   total,
		FailingRows: failing,
		Message:     msg,
	}
}

// column fetches a named column or reports it as an invalid parameter.
func column(ds dataset.Dataset, name string) ([]string, error) {
	vals, ok := ds.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: column %q not found", ErrInvalidParameters, name)
	}
	return vals, nil
}
