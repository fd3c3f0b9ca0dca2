// Package otp generates TOTP enrollment secrets and checks six digit codes
// against them with a configurable clock-skew window.
package otp
