package s3

import (
	"encoding/xml"
	"net/http"

	"github.com/danthegoodman1/CloudConnect/action"
)

type errorBody struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	RequestId string   `xml:"RequestId"`
}

// classify reads the S3 <Error> document. HEAD responses and proxies that
// answer with something else fall back to the generic classification.
func classify(resp *http.Response, body []byte) *action.RemoteFailure {
	var e errorBody
	if err := xml.Unmarshal(body, &e); err != nil || e.Code == "" {
		return action.FailureFromResponse(resp, body)
	}
	message := e.Message
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &action.RemoteFailure{
		Kind:    action.KindRemote,
		Code:    e.Code,
		Message: message,
		Status:  resp.StatusCode,
		Body:    body,
	}
}

func decodeXML[R any](resp *http.Response) action.Result[R] {
	return action.DecodeWith(resp, func(body []byte) (R, error) {
		var out R
		err := xml.Unmarshal(body, &out)
		return out, err
	}, classify)
}

func decodeEmpty(resp *http.Response) action.Result[action.Unit] {
	return action.DecodeWith(resp, func([]byte) (action.Unit, error) {
		return action.Unit{}, nil
	}, classify)
}
