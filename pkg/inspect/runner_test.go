package inspect

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasmiths/tabinspect/pkg/check"
	"github.com/datasmiths/tabinspect/pkg/dataset"
	"github.com/datasmiths/tabinspect/pkg/sink"
)

func passFunc(ds dataset.Dataset) (*check.Result, error) {
	return check.NewResult(ds.RowCount(), nil, "ok"), nil
}

func failFunc(ds dataset.Dataset) (*check.Result, error) {
	return check.NewResult(ds.RowCount(), []int{0}, "bad"), nil
}

func twoTargets(t *testing.T) []Target {
	t.Helper()
	users, err := dataset.New([]string{"id"}, [][]string{{"1"}, {"2"}})
	require.NoError(t, err)
	orders, err := dataset.New([]string{"id"}, [][]string{{"9"}})
	require.NoError(t, err)
	return []Target{
		{Label: "users", Dataset: users},
		{Label: "orders", Dataset: orders},
	}
}

func TestRun_AllPairsInOrder(t *testing.T) {
	a, err := New("a", passFunc)
	require.NoError(t, err)
	b, err := New("b", failFunc)
	require.NoError(t, err)

	sum := NewRunner([]*Inspector{a, b}).Run(context.Background(), twoTargets(t))

	require.Len(t, sum.Entries, 4)
	assert.Equal(t, "a", sum.Entries[0].Inspector)
	assert.Equal(t, "users", sum.Entries[0].Dataset)
	assert.Equal(t, "a", sum.Entries[1].Inspector)
	assert.Equal(t, "orders", sum.Entries[1].Dataset)
	assert.Equal(t, "b", sum.Entries[2].Inspector)
	assert.Equal(t, "users", sum.Entries[2].Dataset)
	assert.Equal(t, "b", sum.Entries[3].Inspector)
	assert.Equal(t, "orders", sum.Entries[3].Dataset)

	assert.Equal(t, 2, sum.Passed())
	assert.Equal(t, 2, sum.Failed())
	assert.Equal(t, 0, sum.Errs())
	assert.False(t, sum.Ok())
	assert.NotEmpty(t, sum.RunID)
	assert.False(t, sum.Started.IsZero())
}

func TestRun_ParallelKeepsEntryOrder(t *testing.T) {
	var evaluated atomic.Int32
	counting := func(ds dataset.Dataset) (*check.Result, error) {
		evaluated.Add(1)
		return check.NewResult(ds.RowCount(), nil, "ok"), nil
	}

	a, err := New("a", counting)
	require.NoError(t, err)
	b, err := New("b", counting)
	require.NoError(t, err)

	sum := NewRunner([]*Inspector{a, b}, WithParallel(4)).Run(context.Background(), twoTargets(t))

	require.Len(t, sum.Entries, 4)
	assert.EqualValues(t, 4, evaluated.Load())
	assert.Equal(t, "a", sum.Entries[0].Inspector)
	assert.Equal(t, "users", sum.Entries[0].Dataset)
	assert.Equal(t, "b", sum.Entries[3].Inspector)
	assert.Equal(t, "orders", sum.Entries[3].Dataset)
	assert.True(t, sum.Ok())
}

func TestRun_ErrorEntryDoesNotStopTheRun(t *testing.T) {
	broken := func(dataset.Dataset) (*check.Result, error) {
		return nil, check.ErrInvalidParameters
	}

	bad, err := New("bad", broken)
	require.NoError(t, err)
	good, err := New("good", passFunc)
	require.NoError(t, err)

	sum := NewRunner([]*Inspector{bad, good}).Run(context.Background(), twoTargets(t))

	require.Len(t, sum.Entries, 4)
	assert.Equal(t, 2, sum.Errs())
	assert.Equal(t, 2, sum.Passed())
	assert.False(t, sum.Ok())

	require.Error(t, sum.Entries[0].Err)
	assert.ErrorIs(t, sum.Entries[0].Err, check.ErrInvalidParameters)
	assert.Nil(t, sum.Entries[0].Report)
	assert.NoError(t, sum.Entries[2].Err)
}

func TestRun_EmptyTargets(t *testing.T) {
	a, err := New("a", passFunc)
	require.NoError(t, err)

	sum := NewRunner([]*Inspector{a}).Run(context.Background(), nil)
	assert.Empty(t, sum.Entries)
	assert.True(t, sum.Ok())
}

func TestSummary_OkIgnoresSinkFailures(t *testing.T) {
	sum := &Summary{
		Entries: []Entry{
			{
				Report: &sink.Report{Result: check.NewResult(5, nil, "ok")},
				Outcomes: []sink.Outcome{
					{Sink: "console", Delivered: true},
					{Sink: "chat", Err: errors.New("down")},
				},
			},
		},
	}

	assert.Equal(t, 1, sum.SinkFailures())
	assert.True(t, sum.Ok(), "delivery trouble is operational, not a data-quality failure")
}

func TestSummary_SuppressedIsNotAFailure(t *testing.T) {
	sum := &Summary{
		Entries: []Entry{
			{
				Report:   &sink.Report{Result: check.NewResult(5, nil, "ok")},
				Outcomes: []sink.Outcome{{Sink: "chat", Suppressed: true}},
			},
		},
	}

	assert.Equal(t, 0, sum.SinkFailures())
	assert.True(t, sum.Ok())
}
