package action

// Unit is the success value of actions that return nothing
type Unit struct{}

// Result holds either a success value or a failure, never both and never neither.
type Result[R any] struct {
	value   R
	failure *RemoteFailure
}

func Success[R any](value R) Result[R] {
	return Result[R]{value: value}
}

// Fail panics on a nil failure, a Result without a failure would be a success
// with a zero value.
func Fail[R any](failure *RemoteFailure) Result[R] {
	if failure == nil {
		panic("action: Fail called with a nil failure")
	}
	return Result[R]{failure: failure}
}

func (r Result[R]) IsSuccess() bool {
	return r.failure == nil
}

// Value is the zero value of R on failure
func (r Result[R]) Value() R {
	return r.value
}

// Failure is nil on success
func (r Result[R]) Failure() *RemoteFailure {
	return r.failure
}

// Get converts to the usual Go pair, the error is a *RemoteFailure
func (r Result[R]) Get() (R, error) {
	if r.failure != nil {
		var zero R
		return zero, r.failure
	}
	return r.value, nil
}

func (r Result[R]) OrElse(fallback R) R {
	if r.failure != nil {
		return fallback
	}
	return r.value
}

func Map[R, S any](r Result[R], fn func(R) S) Result[S] {
	if r.failure != nil {
		return Result[S]{failure: r.failure}
	}
	return Success(fn(r.value))
}

func FlatMap[R, S any](r Result[R], fn func(R) Result[S]) Result[S] {
	if r.failure != nil {
		return Result[S]{failure: r.failure}
	}
	return fn(r.value)
}

// FlatMapFailure runs fn only on failure, it is the hook for compensating actions
func FlatMapFailure[R any](r Result[R], fn func(*RemoteFailure) Result[R]) Result[R] {
	if r.failure == nil {
		return r
	}
	return fn(r.failure)
}

// AllValues collects every success value, or returns the first failure
func AllValues[R any](results []Result[R]) Result[[]R] {
	values := make([]R, 0, len(results))
	for _, r := range results {
		if r.failure != nil {
			return Result[[]R]{failure: r.failure}
		}
		values = append(values, r.value)
	}
	return Success(values)
}
