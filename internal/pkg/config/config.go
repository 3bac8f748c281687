// Package config reads typed settings by dotted key (for example
// "modules.identity.verification_ttl_minutes").
package config

import (
	"io"
	"time"
)

// TimeConfig reads integer values as durations of the named unit.
type TimeConfig interface {
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration
	GetDay(key string) time.Duration
}

type SignedIntConfig interface {
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
}

type UnsignedIntConfig interface {
	GetUint(key string) uint
	GetUint16(key string) uint16
	GetUint32(key string) uint32
	GetUint64(key string) uint64
}

type FloatConfig interface {
	GetFloat32(key string) float32
	GetFloat64(key string) float64
}

// Config defines a set of methods for retrieving configuration values of
// various types. A missing key yields the zero value of the type.
type Config interface {
	io.Closer
	TimeConfig
	SignedIntConfig
	UnsignedIntConfig
	FloatConfig

	GetBool(key string) bool
	GetString(key string) string

	// GetBinary decodes a base64 value.
	GetBinary(key string) []byte

	// GetArray returns a list value, or splits a "a,b,c" string. Blank
	// elements are dropped.
	GetArray(key string) []string

	// GetMap parses a "k1:v1,k2:v2" string.
	GetMap(key string) map[string]string
}
