package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID. Callers that
// run multiple instances (e.g. one RDE process per node) should pass a
// distinct ID per instance so generated IDs stay globally unique.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new globally unique int64 ID using the Snowflake algorithm.
// IDs are time-ordered and unique across distributed instances. Callers
// that never ran Init (tests, single-node defaults) get node 0 lazily.
func New() int64 {
	once.Do(func() {
		if node == nil {
			node, _ = snowflake.NewNode(0)
		}
	})
	return node.Generate().Int64()
}
