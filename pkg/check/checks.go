package check

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/datasmiths/tabinspect/pkg/dataset"
)

// ColumnFormat builds a check that every value of col matches an RE2 pattern.
// The pattern is anchored to the whole value, so "[0-9]{10}" rejects both
// "123" and "12345678901".
func ColumnFormat(col, pattern string) (Func, error) {
	if col == "" {
		return nil, fmt.Errorf("%w: column name is required", ErrInvalidParameters)
	}
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", ErrInvalidParameters, pattern, err)
	}
	return func(ds dataset.Dataset) (*Result, error) {
		vals, err := column(ds, col)
		if err != nil {
			return nil, err
		}
		var failing []int
		for i, v := range vals {
			if !re.MatchString(v) {
				failing = append(failing, i)
			}
		}
		if len(failing) > 0 {
			return NewResult(len(vals), failing,
				fmt.Sprintf("%d of %d rows fail format %q in column %q", len(failing), len(vals), pattern, col)), nil
		}
		return NewResult(len(vals), nil,
			fmt.Sprintf("all %d rows match format %q in column %q", len(vals), pattern, col)), nil
	}, nil
}

// MissingValues builds a check that flags rows with an empty value in any of
// the named columns. With no columns named, every column is checked.
func MissingValues(cols ...string) Func {
	return func(ds dataset.Dataset) (*Result, error) {
		target := cols
		if len(target) == 0 {
			target = ds.Columns()
		}
		colVals, err := columns(ds, target)
		if err != nil {
			return nil, err
		}
		n := ds.RowCount()
		var failing []int
		for i := 0; i < n; i++ {
			for _, vals := range colVals {
				if vals[i] == "" {
					failing = append(failing, i)
					break
				}
			}
		}
		if len(failing) > 0 {
			return NewResult(n, failing,
				fmt.Sprintf("%d of %d rows have missing values in columns %v", len(failing), n, target)), nil
		}
		return NewResult(n, nil, fmt.Sprintf("no missing values in %d rows", n)), nil
	}
}

// ValueRange builds a check that a numeric column stays within [min, max].
// Either bound may be nil (open side); at least one is required. Values that
// do not parse as numbers count as violations.
func ValueRange(col string, min, max *float64) (Func, error) {
	if col == "" {
		return nil, fmt.Errorf("%w: column name is required", ErrInvalidParameters)
	}
	if min == nil && max == nil {
		return nil, fmt.Errorf("%w: value_range needs at least one bound", ErrInvalidParameters)
	}
	if min != nil && max != nil && *min > *max {
		return nil, fmt.Errorf("%w: min %g greater than max %g", ErrInvalidParameters, *min, *max)
	}
	bounds := rangeString(min, max)
	return func(ds dataset.Dataset) (*Result, error) {
		vals, err := column(ds, col)
		if err != nil {
			return nil, err
		}
		var failing []int
		for i, v := range vals {
			f, perr := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if perr != nil || (min != nil && f < *min) || (max != nil && f > *max) {
				failing = append(failing, i)
			}
		}
		if len(failing) > 0 {
			return NewResult(len(vals), failing,
				fmt.Sprintf("%d of %d rows outside %s in column %q", len(failing), len(vals), bounds, col)), nil
		}
		return NewResult(len(vals), nil,
			fmt.Sprintf("all %d rows within %s in column %q", len(vals), bounds, col)), nil
	}, nil
}

func rangeString(min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("[%g, %g]", *min, *max)
	case min != nil:
		return fmt.Sprintf("[%g, +inf)", *min)
	default:
		return fmt.Sprintf("(-inf, %g]", *max)
	}
}

// NoDuplicates builds a check that flags every row whose combination of the
// named columns occurs more than once, originals included. With no columns
// named, the whole row is the key.
func NoDuplicates(cols ...string) Func {
	return func(ds dataset.Dataset) (*Result, error) {
		target := cols
		if len(target) == 0 {
			target = ds.Columns()
		}
		colVals, err := columns(ds, target)
		if err != nil {
			return nil, err
		}
		n := ds.RowCount()
		keys := make([]string, n)
		counts := make(map[string]int, n)
		for i := 0; i < n; i++ {
			keys[i] = rowKey(colVals, i)
			counts[keys[i]]++
		}
		var failing []int
		for i := 0; i < n; i++ {
			if counts[keys[i]] > 1 {
				failing = append(failing, i)
			}
		}
		if len(failing) > 0 {
			return NewResult(n, failing,
				fmt.Sprintf("%d of %d rows are duplicates over columns %v", len(failing), n, target)), nil
		}
		return NewResult(n, nil, fmt.Sprintf("no duplicates over columns %v in %d rows", target, n)), nil
	}
}

// IdenticalWithinGroup builds a check that col holds one distinct value
// within every group of rows sharing the same by value. All rows of a
// conflicting group are flagged.
func IdenticalWithinGroup(by, col string) (Func, error) {
	if by == "" || col == "" {
		return nil, fmt.Errorf("%w: group and value columns are required", ErrInvalidParameters)
	}
	return func(ds dataset.Dataset) (*Result, error) {
		groups, err := column(ds, by)
		if err != nil {
			return nil, err
		}
		vals, err := column(ds, col)
		if err != nil {
			return nil, err
		}
		n := len(vals)
		first := make(map[string]string, n)
		conflicted := make(map[string]bool)
		for i := 0; i < n; i++ {
			v, seen := first[groups[i]]
			if !seen {
				first[groups[i]] = vals[i]
			} else if v != vals[i] {
				conflicted[groups[i]] = true
			}
		}
		var failing []int
		for i := 0; i < n; i++ {
			if conflicted[groups[i]] {
				failing = append(failing, i)
			}
		}
		if len(failing) > 0 {
			return NewResult(n, failing,
				fmt.Sprintf("%d of %d rows in groups with conflicting %q values (grouped by %q)", len(failing), n, col, by)), nil
		}
		return NewResult(n, nil, fmt.Sprintf("%q identical within every %q group", col, by)), nil
	}, nil
}

// Aggregate names accepted by GroupAggregate.
const (
	AggSum   = "sum"
	AggMean  = "mean"
	AggMin   = "min"
	AggMax   = "max"
	AggCount = "count"
)

// GroupAggregate builds a check that aggregates col per group of by and
// compares each group's aggregate to want. Groups whose aggregate differs by
// more than tolerance fail, and all their rows are flagged. count ignores
// col values and compares group sizes; the other aggregates treat
// non-numeric values as violations of the whole group.
func GroupAggregate(by, col, agg string, want, tolerance float64) (Func, error) {
	if by == "" || col == "" {
		return nil, fmt.Errorf("%w: group and value columns are required", ErrInvalidParameters)
	}
	if tolerance < 0 {
		return nil, fmt.Errorf("%w: tolerance must be >= 0", ErrInvalidParameters)
	}
	switch agg {
	case AggSum, AggMean, AggMin, AggMax, AggCount:
	default:
		return nil, fmt.Errorf("%w: unknown aggregate %q (want sum|mean|min|max|count)", ErrInvalidParameters, agg)
	}
	return func(ds dataset.Dataset) (*Result, error) {
		groups, err := column(ds, by)
		if err != nil {
			return nil, err
		}
		vals, err := column(ds, col)
		if err != nil {
			return nil, err
		}
		n := len(vals)
		failed := aggregateFailures(groups, vals, agg, want, tolerance)
		var failing []int
		for i := 0; i < n; i++ {
			if failed[groups[i]] {
				failing = append(failing, i)
			}
		}
		detail := fmt.Sprintf("%s(%q) by %q compared with %g", agg, col, by, want)
		if len(failing) > 0 {
			return NewResult(n, failing, fmt.Sprintf("%d of %d rows in groups failing %s", len(failing), n, detail)), nil
		}
		return NewResult(n, nil, fmt.Sprintf("all groups satisfy %s", detail)), nil
	}, nil
}

// aggregateFailures returns the set of group keys whose aggregate misses
// want by more than tolerance.
func aggregateFailures(groups, vals []string, agg string, want, tolerance float64) map[string]bool {
	type acc struct {
		sum      float64
		min, max float64
		numeric  int
		count    int
		bad      bool // non-numeric value seen
	}
	accs := make(map[string]*acc)
	order := make([]string, 0)
	for i, g := range groups {
		a := accs[g]
		if a == nil {
			a = &acc{}
			accs[g] = a
			order = append(order, g)
		}
		a.count++
		if agg == AggCount {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(vals[i]), 64)
		if err != nil {
			a.bad = true
			continue
		}
		a.numeric++
		if a.numeric == 1 || f < a.min {
			a.min = f
		}
		if a.numeric == 1 || f > a.max {
			a.max = f
		}
		a.sum += f
	}

	failed := make(map[string]bool)
	for _, g := range order {
		a := accs[g]
		if a.bad {
			failed[g] = true
			continue
		}
		var got float64
		switch agg {
		case AggSum:
			got = a.sum
		case AggMean:
			got = a.sum / float64(a.count)
		case AggMin:
			got = a.min
		case AggMax:
			got = a.max
		case AggCount:
			got = float64(a.count)
		}
		if diff := got - want; diff > tolerance || diff < -tolerance {
			failed[g] = true
		}
	}
	return failed
}

// columns resolves a list of column names, failing on the first absent one.
func columns(ds dataset.Dataset, names []string) ([][]string, error) {
	out := make([][]string, len(names))
	for i, c := range names {
		vals, err := column(ds, c)
		if err != nil {
			return nil, err
		}
		out[i] = vals
	}
	return out, nil
}

// rowKey builds a collision-proof composite key for row i by length-prefixing
// each cell.
func rowKey(colVals [][]string, i int) string {
	var b strings.Builder
	for _, vals := range colVals {
		fmt.Fprintf(&b, "%d:%s", len(vals[i]), vals[i])
	}
	return b.String()
}
