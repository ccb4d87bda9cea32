package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Digest domains. The version suffix allows the encoding to change without
// colliding with earlier digests.
const (
	DomainInput  = "co2e/input/v1"
	DomainOutput = "co2e/output/v1"
)

// Digest returns the hex SHA-256 of domain, a 0x00 separator and the
// canonical encoding of v.
func Digest(domain string, v any, opts ...Option) (string, error) {
	data, err := Marshal(v, opts...)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
