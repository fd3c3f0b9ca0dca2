package entity

import "time"

// Credential is the per-identity two-factor record. Secret holds the sealed
// TOTP seed and is empty whenever Enabled is false.
type Credential struct {
	Identity  string
	Secret    []byte
	Enabled   bool
	UpdatedAt time.Time
}

// Active reports whether the record can be used to check a code.
func (c *Credential) Active() bool {
	return c != nil && c.Enabled && len(c.Secret) > 0
}
