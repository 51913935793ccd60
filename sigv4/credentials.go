package sigv4

import (
	"context"
	"errors"
	"time"
)

var ErrMissingCredentials = errors.New("missing access key id or secret access key")

type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	// SessionToken is only set for temporary credentials
	SessionToken string
}

// CredentialsProvider is called on every signing operation, so rotated
// credentials are picked up without any caching here. It must be safe for
// concurrent use.
type CredentialsProvider func(ctx context.Context) (Credentials, error)

func StaticCredentials(creds Credentials) CredentialsProvider {
	return func(context.Context) (Credentials, error) {
		return creds, nil
	}
}

// Clock supplies the signing time. It must be safe for concurrent use.
type Clock func() (time.Time, error)

func SystemClock() (time.Time, error) {
	return time.Now().UTC(), nil
}

func FixedClock(t time.Time) Clock {
	return func() (time.Time, error) {
		return t.UTC(), nil
	}
}

// CredentialScope binds a signature to a date, region and service.
type CredentialScope struct {
	Date    string
	Region  string
	Service string
}

func NewCredentialScope(t time.Time, region, service string) CredentialScope {
	return CredentialScope{
		Date:    t.UTC().Format(DateFormat),
		Region:  region,
		Service: service,
	}
}

// String formats the scope as date/region/service/aws4_request
func (s CredentialScope) String() string {
	return s.Date + "/" + s.Region + "/" + s.Service + "/" + ScopeTerminator
}
