package otp

import (
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrIssuerRequired is returned by Generate when no issuer is configured.
var ErrIssuerRequired = errors.New("otp: issuer is required")

// OTP defines the contract for TOTP operations.
type OTP interface {
	// Generate creates a fresh shared secret and provisioning URI for an account label.
	Generate(accountName string) (Key, error)
	// Validate reports whether code matches secret at the given time within the skew window.
	Validate(code, secret string, at time.Time) bool
	// GenerateCode returns the code for secret at the given time.
	GenerateCode(secret string, at time.Time) (string, error)
}

// Key is the enrollment material handed to the operator's authenticator.
type Key struct {
	// Secret is the base32 shared secret.
	Secret string
	// URI is the otpauth:// provisioning URI embedding issuer and account.
	URI string
}

// Config configures a TOTP instance.
type Config struct {
	// Issuer is embedded in the provisioning URI.
	Issuer string
	// Period is the time step in seconds. Zero means 30.
	Period uint
	// Skew is the number of steps tolerated either side of now. Zero means 1.
	Skew uint
	// Digits is the code length, 6 or 8. Anything else means 6.
	Digits otp.Digits
}

// TOTP implements OTP using RFC 6238 with SHA1.
type TOTP struct {
	issuer string
	period uint
	skew   uint
	digits otp.Digits
}

// NewTOTP constructs a TOTP instance, filling unset fields with the RFC defaults.
func NewTOTP(cfg Config) *TOTP {
	if cfg.Digits != otp.DigitsSix && cfg.Digits != otp.DigitsEight {
		cfg.Digits = otp.DigitsSix
	}
	if cfg.Period == 0 {
		cfg.Period = 30
	}
	if cfg.Skew == 0 {
		cfg.Skew = 1
	}

	return &TOTP{
		issuer: cfg.Issuer,
		period: cfg.Period,
		skew:   cfg.Skew,
		digits: cfg.Digits,
	}
}

// Period returns the time step.
func (o *TOTP) Period() time.Duration {
	return time.Duration(o.period) * time.Second
}

// Generate creates a 160-bit secret and its provisioning URI.
func (o *TOTP) Generate(accountName string) (Key, error) {
	if o.issuer == "" {
		return Key{}, ErrIssuerRequired
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      o.issuer,
		AccountName: accountName,
		Period:      o.period,
		SecretSize:  20,
		Digits:      o.digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Key{}, err
	}

	return Key{Secret: key.Secret(), URI: key.URL()}, nil
}

// Validate reports whether code matches. Malformed codes or secrets never match.
func (o *TOTP) Validate(code, secret string, at time.Time) bool {
	if len(code) != o.digits.Length() || !isDigits(code) {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, at, o.opts())
	return ok && err == nil
}

// GenerateCode returns the code for secret at the given time.
func (o *TOTP) GenerateCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, o.opts())
}

func (o *TOTP) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    o.period,
		Skew:      o.skew,
		Digits:    o.digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
