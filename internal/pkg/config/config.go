// Package config exposes typed, read-only access to runtime configuration.
package config

import (
	"io"
	"time"
)

// Config retrieves configuration values by dotted key. Missing keys yield the
// zero value of the requested type.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetUint(key string) uint
	GetFloat64(key string) float64

	// GetSecond reads an integer number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer number of minutes.
	GetMinute(key string) time.Duration

	// GetBinary decodes a base64 value.
	GetBinary(key string) []byte

	// GetArray reads a list, either a YAML sequence or a "a,b,c" string.
	// Blank elements are dropped.
	GetArray(key string) []string
}
