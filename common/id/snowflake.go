package id

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const defaultNodeID int64 = 1

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
// Only the first call has an effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new unique int64 ID using the Snowflake algorithm.
// IDs are time-ordered, so ids minted later in a session sort after earlier ones.
// If Init was never called the generator falls back to node 1.
func New() int64 {
	_ = Init(defaultNodeID)
	return node.Generate().Int64()
}

// NewString returns New() in base 10.
func NewString() string {
	return strconv.FormatInt(New(), 10)
}
