package amazon

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint returns the public regional endpoint of a service, or override when
// it is set (a fake, LocalStack, a VPC endpoint).
func Endpoint(service, region, override string) (*url.URL, error) {
	raw := override
	if raw == "" {
		raw = "https://" + service + "." + region + ".amazonaws.com"
		if strings.HasPrefix(region, "cn-") {
			raw += ".cn"
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("error in url.Parse: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q needs a scheme and a host", raw)
	}
	return u, nil
}
