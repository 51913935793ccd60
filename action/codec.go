package action

import (
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
)

func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func Successful(status int) bool {
	return status >= 200 && status < 300
}

// ReadBody reads and closes the response body
func ReadBody(resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, nil
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	return body, nil
}

// DecodeWith is the building block for ToResult: error statuses go through
// classify, successful bodies through decode, and a decode error becomes a
// DecodeError failure.
func DecodeWith[R any](resp *http.Response, decode func(body []byte) (R, error), classify func(resp *http.Response, body []byte) *RemoteFailure) Result[R] {
	body, err := ReadBody(resp)
	if err != nil {
		return Fail[R](TransportFailure(err))
	}
	if !Successful(resp.StatusCode) {
		return Fail[R](classify(resp, body))
	}
	value, err := decode(body)
	if err != nil {
		return Fail[R](DecodeFailure(resp.StatusCode, body, err))
	}
	return Success(value)
}

func DecodeJSON[R any](resp *http.Response) Result[R] {
	return DecodeWith(resp, func(body []byte) (R, error) {
		var out R
		err := json.Unmarshal(body, &out)
		return out, err
	}, FailureFromResponse)
}

// DecodeEmpty ignores the body of a successful response
func DecodeEmpty(resp *http.Response) Result[Unit] {
	return DecodeWith(resp, func([]byte) (Unit, error) {
		return Unit{}, nil
	}, FailureFromResponse)
}
