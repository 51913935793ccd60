package amazon

import (
	"net/http"

	"github.com/danthegoodman1/CloudConnect/action"
)

const JSONContentType = "application/x-amz-json-1.1"

// NewJSONRequest builds an AWS JSON 1.1 call: POST / with the operation
// named in X-Amz-Target.
func NewJSONRequest(targetPrefix, operation string, input any) (*http.Request, error) {
	body, err := action.Marshal(input)
	if err != nil {
		return nil, err
	}
	req, err := action.NewRequest(http.MethodPost, "/", body, JSONContentType)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Amz-Target", targetPrefix+"."+operation)
	return req, nil
}
