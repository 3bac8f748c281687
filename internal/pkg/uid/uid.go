// Package uid generates identifiers: snowflake int64 for rows, UUID v7 for
// correlation and token IDs, and 256-bit hex strings for opaque tokens.
package uid

// NumberID generates int64 identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
