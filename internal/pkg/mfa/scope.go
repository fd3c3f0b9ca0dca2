package mfa

// Purpose identifies what a sealed value is used for.
type Purpose string

const (
	// PurposeOTPSeed scopes encryption to TOTP shared secrets.
	PurposeOTPSeed Purpose = "otp_seed"
)

// Scope binds a ciphertext to its owner. It is fed to AES-GCM as AAD, so a
// secret sealed for one identity cannot be opened under another.
type Scope struct {
	// Identity is the opaque subject the value belongs to.
	Identity string
	// Purpose is the encryption purpose.
	Purpose Purpose
}
