package kvstore

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DriverMemory selects the in-process mapping.
	DriverMemory = "memory"
	// DriverRedis selects the Redis mapping.
	DriverRedis = "redis"
)

// ErrUnknownDriver indicates an unsupported mapping driver.
var ErrUnknownDriver = errors.New("kvstore: unknown driver")

// FactoryOptions groups config for supported mapping backends.
type FactoryOptions struct {
	Memory MemoryConfig
	Redis  RedisConfig
}

// NewFromDriver constructs a Mapping by driver name. An empty driver selects
// memory.
func NewFromDriver(driver string, opts FactoryOptions) (Mapping, error) {
	switch strings.TrimSpace(driver) {
	case "", DriverMemory:
		return NewMemory(opts.Memory), nil
	case DriverRedis:
		return NewRedis(opts.Redis)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
