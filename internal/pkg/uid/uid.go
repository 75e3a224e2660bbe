// Package uid generates identifiers: UUIDs for correlation ids, short hex
// tokens for campaign keys and snowflake numbers for dispatch batches.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates time-ordered numeric identifiers.
type NumberID interface {
	Generate() int64
}
