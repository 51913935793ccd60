package action

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultVariants(t *testing.T) {
	ok := Success(42)
	assert.True(t, ok.IsSuccess())
	assert.Nil(t, ok.Failure())
	v, err := ok.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	failure := &RemoteFailure{Kind: KindRemote, Code: "Boom", Message: "it broke"}
	bad := Fail[int](failure)
	assert.False(t, bad.IsSuccess())
	assert.Equal(t, 0, bad.Value())
	assert.Equal(t, 7, bad.OrElse(7))
	_, err = bad.Get()
	var rf *RemoteFailure
	require.ErrorAs(t, err, &rf)
	assert.Equal(t, "Boom", rf.Code)

	assert.Panics(t, func() { Fail[int](nil) })
}

func TestResultCombinators(t *testing.T) {
	doubled := Map(Success(2), func(i int) int { return i * 2 })
	assert.Equal(t, 4, doubled.Value())

	asString := FlatMap(doubled, func(i int) Result[string] { return Success(strconv.Itoa(i)) })
	assert.Equal(t, "4", asString.Value())

	failure := TransportFailure(errors.New("connection refused"))
	failed := FlatMap(Fail[int](failure), func(i int) Result[string] {
		t.Fatal("must not run on failure")
		return Success("")
	})
	assert.Same(t, failure, failed.Failure())

	compensated := false
	recovered := FlatMapFailure(Fail[int](failure), func(f *RemoteFailure) Result[int] {
		compensated = true
		return Fail[int](f)
	})
	assert.True(t, compensated)
	assert.Same(t, failure, recovered.Failure())

	untouched := FlatMapFailure(Success(1), func(*RemoteFailure) Result[int] {
		t.Fatal("must not run on success")
		return Success(0)
	})
	assert.Equal(t, 1, untouched.Value())
}

func TestAllValues(t *testing.T) {
	all := AllValues([]Result[int]{Success(1), Success(2)})
	assert.Equal(t, []int{1, 2}, all.Value())

	first := &RemoteFailure{Kind: KindRemote, Message: "first"}
	second := &RemoteFailure{Kind: KindRemote, Message: "second"}
	mixed := AllValues([]Result[int]{Success(1), Fail[int](first), Fail[int](second)})
	assert.Same(t, first, mixed.Failure())
}

type namedAction struct{}

func (namedAction) ActionName() string { return "Custom" }

type plainAction struct{}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "Custom", NameOf(namedAction{}))
	assert.Equal(t, "plainAction", NameOf(plainAction{}))
	assert.Equal(t, "plainAction", NameOf(&plainAction{}))
}
