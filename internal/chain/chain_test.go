package chain

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	calls  int
	result string
	ok     bool
	err    error
}

func (r *countingResolver) Resolve(_ context.Context, _ string) (string, bool, error) {
	r.calls++
	return r.result, r.ok, r.err
}

func TestFirstMatchWinsAndLaterResolversAreNotCalled(t *testing.T) {
	r1 := &countingResolver{}
	r2 := &countingResolver{result: "X", ok: true}
	r3 := &countingResolver{result: "Y", ok: true}

	got, ok, err := New[string, string](r1, r2, r3).Resolve(context.Background(), "subject")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "X", got)
	assert.Equal(t, 1, r1.calls)
	assert.Equal(t, 1, r2.calls)
	assert.Equal(t, 0, r3.calls, "resolver after the first match must not run")
}

func TestEmptyChainResolvesToNothing(t *testing.T) {
	_, ok, err := New[string, string]().Resolve(context.Background(), "subject")
	require.NoError(t, err)
	assert.False(t, ok)

	var nilChain *Chain[string, string]
	_, ok, err = nilChain.Resolve(context.Background(), "subject")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllDeferring(t *testing.T) {
	r1 := &countingResolver{}
	r2 := &countingResolver{}
	_, ok, err := New[string, string](r1, r2).Resolve(context.Background(), "subject")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, r1.calls)
	assert.Equal(t, 1, r2.calls)
}

func TestStopSentinelHaltsWithoutResult(t *testing.T) {
	stopper := &countingResolver{err: ErrStop}
	fallback := &countingResolver{result: "fallback", ok: true}

	_, ok, err := New[string, string](stopper, fallback).Resolve(context.Background(), "subject")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, fallback.calls, "ErrStop must halt the chain")
}

func TestErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	failing := &countingResolver{err: boom}
	fallback := &countingResolver{result: "fallback", ok: true}

	_, _, err := New[string, string](failing, fallback).Resolve(context.Background(), "subject")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, fallback.calls)
}

// Mirrors the sequential numbering contract: a chain whose head defers once
// must fall through deterministically, and successive calls yield successive
// values without gaps until reset.
func TestSequentialResolution(t *testing.T) {
	next := 1000
	deferred := Func[string, string](func(context.Context, string) (string, bool, error) {
		return "", false, nil
	})
	counter := Func[string, string](func(context.Context, string) (string, bool, error) {
		value := strconv.Itoa(next)
		next++
		return value, true, nil
	})
	c := New[string, string](deferred, counter)

	for i := 0; i < 3; i++ {
		got, ok, err := c.Resolve(context.Background(), "order")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, strconv.Itoa(1000+i), got)
	}

	next = 1000 // reset restores the initial value
	got, ok, err := c.Resolve(context.Background(), "order")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1000", got)
}
