package action

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

type FailureKind string

const (
	// KindSigning means the request was never sent
	KindSigning FailureKind = "SigningError"
	// KindTransport covers connection refused, timeouts and broken bodies
	KindTransport FailureKind = "Transport"
	// KindDecode means a successful response did not have the expected shape
	KindDecode FailureKind = "DecodeError"
	// KindRemote is an error reported by the provider
	KindRemote FailureKind = "RemoteFailure"
	// KindProcessing is a failure of a caller supplied record consumer
	KindProcessing FailureKind = "ProcessingError"
	// KindInvalid means the action failed validation before it was encoded
	KindInvalid FailureKind = "InvalidAction"
)

// RemoteFailure is the structured failure carried by a Result.
type RemoteFailure struct {
	Kind    FailureKind
	Message string
	// Code is the provider error code, verbatim
	Code   string
	Status int
	// Body is the raw response body when there was one
	Body  []byte
	Cause error
}

func (f *RemoteFailure) Error() string {
	var sb strings.Builder
	sb.WriteString(string(f.Kind))
	if f.Status != 0 {
		fmt.Fprintf(&sb, " (status %d)", f.Status)
	}
	if f.Code != "" {
		sb.WriteString(" " + f.Code)
	}
	if f.Message != "" {
		sb.WriteString(": " + f.Message)
	}
	return sb.String()
}

func (f *RemoteFailure) Unwrap() error {
	return f.Cause
}

func SigningFailure(err error) *RemoteFailure {
	return &RemoteFailure{Kind: KindSigning, Message: err.Error(), Cause: err}
}

func TransportFailure(err error) *RemoteFailure {
	return &RemoteFailure{Kind: KindTransport, Message: err.Error(), Cause: err}
}

func DecodeFailure(status int, body []byte, err error) *RemoteFailure {
	return &RemoteFailure{Kind: KindDecode, Message: err.Error(), Status: status, Body: body, Cause: err}
}

func ProcessingFailure(err error) *RemoteFailure {
	return &RemoteFailure{Kind: KindProcessing, Message: err.Error(), Cause: err}
}

func InvalidFailure(err error) *RemoteFailure {
	return &RemoteFailure{Kind: KindInvalid, Message: err.Error(), Cause: err}
}

var (
	codePaths    = []string{"__type", "code", "Code", "error_code", "errorCode", "error.code", "Error.Code"}
	messagePaths = []string{"message", "Message", "errorMessage", "error.message", "Error.Message", "error"}
)

// FailureFromResponse classifies an error response. Codes it has never seen
// are kept as they are, and a body it cannot read still yields a failure
// keyed on the HTTP status.
func FailureFromResponse(resp *http.Response, body []byte) *RemoteFailure {
	failure := &RemoteFailure{
		Kind:   KindRemote,
		Status: resp.StatusCode,
		Body:   body,
	}

	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		for _, path := range codePaths {
			if v := parsed.Get(path); v.Exists() && v.Type != gjson.JSON && v.String() != "" {
				failure.Code = v.String()
				break
			}
		}
		for _, path := range messagePaths {
			if v := parsed.Get(path); v.Exists() && v.Type == gjson.String {
				failure.Message = v.String()
				break
			}
		}
	}

	if failure.Code == "" {
		failure.Code = resp.Header.Get("X-Amzn-ErrorType")
	}
	failure.Code = trimErrorCode(failure.Code)
	if failure.Message == "" {
		failure.Message = strings.TrimSpace(string(body))
	}
	if failure.Message == "" {
		failure.Message = http.StatusText(resp.StatusCode)
	}
	return failure
}

// trimErrorCode strips the namespace and the trailing URI AWS sometimes adds,
// e.g. com.amazonaws.secretsmanager#ResourceNotFoundException
func trimErrorCode(code string) string {
	if i := strings.LastIndex(code, "#"); i >= 0 {
		code = code[i+1:]
	}
	if i := strings.Index(code, ":"); i >= 0 {
		code = code[:i]
	}
	return code
}
