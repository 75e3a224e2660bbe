// Package config exposes typed, read-only access to service configuration.
//
// Values come from a YAML file watched for changes, with environment
// variables taking precedence: the key "mail.password" is overridden by
// MAIL_PASSWORD. Missing keys read as zero values.
package config

import (
	"io"
	"time"
)

// Config defines a set of methods for retrieving configuration values of various types.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetInt(key string) int
	GetInt64(key string) int64
	GetFloat64(key string) float64
	GetString(key string) string

	// GetSecond reads an integer number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer number of minutes.
	GetMinute(key string) time.Duration

	// GetArray reads a comma separated list. Elements are trimmed and empty
	// elements are dropped, so an unset key yields an empty slice.
	GetArray(key string) []string

	// GetBinary reads a base64 encoded value. Invalid input yields nil.
	GetBinary(key string) []byte
}
