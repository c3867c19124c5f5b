package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainFunction = "tessera/function/v" + SchemaVersion
	DomainModule   = "tessera/module/v" + SchemaVersion
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FunctionHash computes the content-addressed id of fn from its canonical
// encoding. Spans and concrete variable ids do not affect the hash.
func FunctionHash(fn *Function) (string, error) {
	canonical, err := MarshalFunction(fn)
	if err != nil {
		return "", fmt.Errorf("FunctionHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFunction, canonical), nil
}

// ModuleHash computes the content-addressed id of a module.
func ModuleHash(m *Module) (string, error) {
	canonical, err := MarshalModule(m)
	if err != nil {
		return "", fmt.Errorf("ModuleHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModule, canonical), nil
}

// MustFunctionHash is like FunctionHash but panics on error.
// Use only in tests or when the function is known to be well formed.
func MustFunctionHash(fn *Function) string {
	h, err := FunctionHash(fn)
	if err != nil {
		panic(err)
	}
	return h
}
