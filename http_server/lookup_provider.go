package http_server

import (
	"context"
	"fmt"
	"os"

	"github.com/danthegoodman1/CloudConnect/sigv4"
	json "github.com/goccy/go-json"
)

// LookupProvider is used to perform KV lookups for things like
// AWS Key ID to key secret and basic auth user to password.
// A missing key is a nil value, not an error.
type LookupProvider[TKey, TVal any] interface {
	Lookup(ctx context.Context, key TKey) (*TVal, error)
}

// MapLookupProvider serves lookups from a fixed map
type MapLookupProvider[TKey comparable, TVal any] map[TKey]TVal

func (m MapLookupProvider[TKey, TVal]) Lookup(_ context.Context, key TKey) (*TVal, error) {
	val, exists := m[key]
	if !exists {
		return nil, nil
	}
	return &val, nil
}

// NewEnvJSONLookupProvider reads a map from an env var holding a JSON object,
// e.g. AWS_KEYS={"AKIDEXAMPLE":"secret"}. An unset var is an error.
func NewEnvJSONLookupProvider(envVar string) (MapLookupProvider[string, string], error) {
	raw, ok := os.LookupEnv(envVar)
	if !ok {
		return nil, fmt.Errorf("%s is not set", envVar)
	}
	m := MapLookupProvider[string, string]{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("error in json.Unmarshal for %s: %w", envVar, err)
	}
	return m, nil
}

func secretLookup(p LookupProvider[string, string]) sigv4.SecretLookup {
	return func(ctx context.Context, keyID string) (string, error) {
		secret, err := p.Lookup(ctx, keyID)
		if err != nil {
			return "", fmt.Errorf("error in Lookup: %w", err)
		}
		if secret == nil {
			return "", sigv4.ErrUnknownAccessKey
		}
		return *secret, nil
	}
}
