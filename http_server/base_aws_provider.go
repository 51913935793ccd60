package http_server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danthegoodman1/CloudConnect/action"
	"github.com/danthegoodman1/CloudConnect/amazon"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const DefaultAccount = "000000000000"

// BaseAWSProvider provides common functionality for all fake service providers
type BaseAWSProvider struct {
	serviceName string
	region      string
	account     string
	now         func() time.Time
}

// NewBaseAWSProvider creates a new base provider for the specified service
func NewBaseAWSProvider(serviceName, region string) *BaseAWSProvider {
	return &BaseAWSProvider{
		serviceName: serviceName,
		region:      region,
		account:     DefaultAccount,
		now:         time.Now,
	}
}

// ServiceName returns the AWS service name this provider handles
func (p *BaseAWSProvider) ServiceName() string {
	return p.serviceName
}

// SetClock replaces the time source used for timestamps
func (p *BaseAWSProvider) SetClock(now func() time.Time) {
	p.now = now
}

func (p *BaseAWSProvider) arn(resourceType, resource string) amazon.ARN {
	return amazon.NewARN(p.region, p.serviceName, resourceType, resource, p.account)
}

// apiError is a provider error rendered in the service's wire shape
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func newAPIError(status int, code, message string) *apiError {
	return &apiError{status: status, code: code, message: message}
}

func asAPIError(c echo.Context, err error) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("provider failed")
	return newAPIError(http.StatusInternalServerError, "InternalFailure", "internal failure")
}

// writeJSONError writes the AWS JSON 1.1 error shape
func writeJSONError(c echo.Context, err error) error {
	ae := asAPIError(c, err)
	c.Response().Header().Set("x-amzn-ErrorType", ae.code)
	return writeJSON(c, ae.status, amazon.JSONContentType, map[string]string{
		"__type":  ae.code,
		"message": ae.message,
	})
}

func writeJSON(c echo.Context, status int, contentType string, v any) error {
	body, err := action.Marshal(v)
	if err != nil {
		return fmt.Errorf("error in Marshal: %w", err)
	}
	return c.Blob(status, contentType, body)
}

func readJSON(c echo.Context, v any) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fmt.Errorf("error reading body: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if err = action.Unmarshal(body, v); err != nil {
		return newAPIError(http.StatusBadRequest, "SerializationException", err.Error())
	}
	return nil
}
