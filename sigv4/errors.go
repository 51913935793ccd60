package sigv4

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrMalformedAuth     = errors.New("malformed authorization header")
	ErrScopeMismatch     = errors.New("credential scope does not match request")
	ErrUnknownAccessKey  = errors.New("unknown access key id")
	ErrPayloadMismatch   = errors.New("payload hash does not match body")
	ErrInvalidExpiration = errors.New("presign expiration must be between 1 second and 7 days")
	ErrExpired           = errors.New("presigned url has expired")
	ErrMalformedChunk    = errors.New("malformed aws-chunked body")
)

// SigningError is returned when a request could not be signed. Nothing is
// sent and no partially signed request is returned alongside it.
type SigningError struct {
	// Op is the stage that failed: clock, credentials, payload
	Op  string
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("error signing request (%s): %s", e.Op, e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}
