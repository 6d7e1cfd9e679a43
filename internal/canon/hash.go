package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainModel prefixes model hashes. The version suffix allows a future
// change of algorithm.
const DomainModel = "pastas/model/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data). The null byte
// separates domain and data unambiguously.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the domain-separated hash of the canonical JSON of v.
func Hash(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

// ModelHash returns the content address of a model dump. The dump's file
// info is volatile and should be cleared by the caller before hashing.
func ModelHash(dump any) (string, error) {
	return Hash(DomainModel, dump)
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHash(domain string, v any) string {
	h, err := Hash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}
