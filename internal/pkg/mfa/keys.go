package mfa

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrMissingMasterKey indicates an empty key provider.
var ErrMissingMasterKey = errors.New("mfa: missing master key")

// StaticKeyProvider returns the same key for every scope. Local development only.
type StaticKeyProvider struct {
	// KeyBytes is the raw AES key material.
	KeyBytes []byte
}

// Key returns a copy of the static key.
func (p StaticKeyProvider) Key(_ Scope) ([]byte, error) {
	if len(p.KeyBytes) == 0 {
		return nil, ErrMissingMasterKey
	}
	return append([]byte(nil), p.KeyBytes...), nil
}

// DerivedKeyProvider derives a distinct AES-256 key per scope from a master
// key using HKDF-SHA256. Leaking one derived key does not expose other identities.
type DerivedKeyProvider struct {
	master []byte
	salt   []byte
}

// NewDerivedKeyProvider returns a provider over master. salt may be nil.
func NewDerivedKeyProvider(master, salt []byte) (*DerivedKeyProvider, error) {
	if len(master) < aesKeyLen {
		return nil, ErrMissingMasterKey
	}
	return &DerivedKeyProvider{
		master: append([]byte(nil), master...),
		salt:   append([]byte(nil), salt...),
	}, nil
}

// Key derives the scope key.
func (p *DerivedKeyProvider) Key(scope Scope) ([]byte, error) {
	info := append([]byte(string(scope.Purpose)+":"), scope.Identity...)
	key := make([]byte, aesKeyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, p.master, p.salt, info), key); err != nil {
		return nil, err
	}
	return key, nil
}
