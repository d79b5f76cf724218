package check

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_ColumnFormat(t *testing.T) {
	fn, err := Build("column_format", map[string]any{
		"column":  "id",
		"pattern": "[0-9]{10}",
	})
	require.NoError(t, err)

	res, err := fn(col(t, "id", "1234567890", "abc"))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.FailingRows)
}

func TestBuild_GroupAggregate(t *testing.T) {
	fn, err := Build("group_aggregate", map[string]any{
		"by":        "g",
		"column":    "v",
		"aggregate": "sum",
		"want":      float64(3),
		"tolerance": 0.5,
	})
	require.NoError(t, err)

	ds := table(t, []string{"g", "v"}, [][]string{{"A", "1"}, {"A", "2"}})
	res, err := fn(ds)
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestBuild_NumericParamsFromInts(t *testing.T) {
	// Suite files parse "min: 0" as an int; the decoder must still land it in
	// a *float64 parameter.
	fn, err := Build("value_range", map[string]any{
		"column": "amount",
		"min":    0,
		"max":    100,
	})
	require.NoError(t, err)

	res, err := fn(col(t, "amount", "50", "101"))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.FailingRows)
}

func TestBuild_UnknownCheck(t *testing.T) {
	_, err := Build("nope", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameters)
	assert.Contains(t, err.Error(), `unknown check "nope"`)
	assert.Contains(t, err.Error(), "column_format", "error lists the known checks")
}

func TestBuild_UnknownParamRejected(t *testing.T) {
	_, err := Build("column_format", map[string]any{
		"column":  "id",
		"pattern": "x",
		"patern":  "typo",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameters)
	assert.Contains(t, err.Error(), "patern")
}

func TestBuild_InvalidParams(t *testing.T) {
	_, err := Build("value_range", map[string]any{"column": "amount"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameters)
	assert.Contains(t, err.Error(), `check "value_range"`)
}

func TestNames_SortedAndComplete(t *testing.T) {
	names := Names()
	assert.True(t, sort.StringsAreSorted(names))

	for _, want := range []string{
		"column_format",
		"group_aggregate",
		"identical_within_group",
		"missing_values",
		"no_duplicates",
		"value_range",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register("column_format", func(map[string]any) (Func, error) { return nil, nil })
	})
}
