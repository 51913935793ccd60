// Package amazon holds the wire conventions shared by the AWS service
// families: regions, endpoints, ARNs, timestamps and the AWS JSON protocol.
package amazon

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

var (
	ErrInvalidARN    = errors.New("invalid arn")
	ErrInvalidRegion = errors.New("invalid region")

	regionPattern = regexp.MustCompile(`^[a-z]{2}(-gov|-iso[a-z]?)?-[a-z]+-\d$`)
)

// ValidateRegion accepts region names such as us-east-1 or us-gov-west-1
func ValidateRegion(region string) error {
	if !regionPattern.MatchString(region) {
		return fmt.Errorf("%w: %q", ErrInvalidRegion, region)
	}
	return nil
}

type ARN struct {
	Partition    string
	Service      string
	Region       string
	Account      string
	ResourceType string
	Resource     string
}

// NewARN builds an ARN in the aws partition
func NewARN(region, service, resourceType, resource, account string) ARN {
	return ARN{
		Partition:    "aws",
		Service:      service,
		Region:       region,
		Account:      account,
		ResourceType: resourceType,
		Resource:     resource,
	}
}

func (a ARN) String() string {
	s := "arn:" + a.Partition + ":" + a.Service + ":" + a.Region + ":" + a.Account + ":"
	if a.ResourceType != "" {
		s += a.ResourceType + ":"
	}
	return s + a.Resource
}

func (a ARN) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *ARN) UnmarshalText(text []byte) error {
	parsed, err := ParseARN(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseARN splits arn:partition:service:region:account:resource. A resource
// of the form type:name is split into ResourceType and Resource, the slash
// form stays whole in Resource.
func ParseARN(s string) (ARN, error) {
	parsed, err := arn.Parse(s)
	if err != nil {
		return ARN{}, fmt.Errorf("%w: %q: %w", ErrInvalidARN, s, err)
	}
	if parsed.Partition == "" || parsed.Service == "" {
		return ARN{}, fmt.Errorf("%w: %q", ErrInvalidARN, s)
	}
	a := ARN{
		Partition: parsed.Partition,
		Service:   parsed.Service,
		Region:    parsed.Region,
		Account:   parsed.AccountID,
		Resource:  parsed.Resource,
	}
	if typ, rest, ok := strings.Cut(parsed.Resource, ":"); ok {
		a.ResourceType = typ
		a.Resource = rest
	}
	return a, nil
}

// ResourceID returns the bare resource name for either a name or a full ARN
func ResourceID(idOrARN string) string {
	if !strings.HasPrefix(idOrARN, "arn:") {
		return idOrARN
	}
	return idOrARN[strings.LastIndex(idOrARN, ":")+1:]
}
