package uid

import (
	"fmt"
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates 63-bit time-ordered ids.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake returns a generator whose node number is derived from the
// host name, so replicas of the service do not share a node.
func NewSnowflake() (*Snowflake, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	nodeID := int64(h.Sum32() % (1 << snowflake.NodeBits))

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("uid: snowflake node %d: %w", nodeID, err)
	}

	return &Snowflake{node: node}, nil
}

// Generate returns the next id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
