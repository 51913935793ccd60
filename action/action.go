// Package action defines the protocol shared by every remote API call: an
// Action knows how to turn itself into a request and how to classify the
// response into a Result.
package action

import (
	"bytes"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// Action is an immutable description of one remote call with success type R.
// ToRequest must be deterministic for a given value, ToResult must never panic
// and always returns either a success or a failure.
type Action[R any] interface {
	ToRequest() (*http.Request, error)
	ToResult(resp *http.Response) Result[R]
}

// Named lets an action choose the name used in logs, metrics and spans
type Named interface {
	ActionName() string
}

func NameOf(a any) string {
	if named, ok := a.(Named); ok {
		return named.ActionName()
	}
	t := reflect.TypeOf(a)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	return t.Name()
}

var validate = validator.New()

// Validate checks the `validate` struct tags of an action's fields
func Validate(a any) error {
	return validate.Struct(a)
}

// NewRequest builds a request relative to the service base URI
func NewRequest(method, path string, body []byte, contentType string) (*http.Request, error) {
	if body == nil {
		return http.NewRequest(method, path, nil)
	}
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}
