package amazon

import (
	"context"
	"os"

	"github.com/danthegoodman1/CloudConnect/sigv4"
)

// EnvCredentials reads AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
// AWS_SESSION_TOKEN on every call, so rotated values are picked up. A nil
// getenv means os.Getenv.
func EnvCredentials(getenv func(string) string) sigv4.CredentialsProvider {
	if getenv == nil {
		getenv = os.Getenv
	}
	return func(context.Context) (sigv4.Credentials, error) {
		creds := sigv4.Credentials{
			AccessKeyID:     getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    getenv("AWS_SESSION_TOKEN"),
		}
		if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
			return sigv4.Credentials{}, sigv4.ErrMissingCredentials
		}
		return creds, nil
	}
}
