package sigv4

import (
	"fmt"
	"strings"
)

type PayloadMode int

const (
	// PayloadSigned hashes the full body into the signature
	PayloadSigned PayloadMode = iota
	// PayloadUnsigned uses the UNSIGNED-PAYLOAD placeholder regardless of the body
	PayloadUnsigned
	// PayloadStreamingSigned sends the body as aws-chunked with a signature per chunk
	PayloadStreamingSigned
)

const (
	UnsignedPayload  = "UNSIGNED-PAYLOAD"
	StreamingPayload = "STREAMING-AWS4-HMAC-SHA256-PAYLOAD"

	// EmptyStringSHA256 is the hex SHA-256 of zero bytes
	EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

func (m PayloadMode) String() string {
	switch m {
	case PayloadUnsigned:
		return "unsigned"
	case PayloadStreamingSigned:
		return "streaming"
	default:
		return "signed"
	}
}

// ParsePayloadMode accepts "signed", "unsigned" and "streaming" (case insensitive).
// An empty string means signed.
func ParsePayloadMode(s string) (PayloadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "signed":
		return PayloadSigned, nil
	case "unsigned":
		return PayloadUnsigned, nil
	case "streaming", "streaming-signed":
		return PayloadStreamingSigned, nil
	}
	return PayloadSigned, fmt.Errorf("unknown payload mode %q", s)
}
