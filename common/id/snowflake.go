// Package id mints sweep, issue and notification identifiers.
package id

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu     sync.RWMutex
	node   *snowflake.Node
	nodeID int64
)

// Init binds the generator to a node. server, monitor and worker default to
// different node ids (NODE_ID) so sweep ids and notification ids minted by
// separate processes never collide. Re-binding to the same node is a no-op.
func Init(id int64) error {
	mu.Lock()
	defer mu.Unlock()

	if node != nil {
		if id == nodeID {
			return nil
		}
		return fmt.Errorf("id generator already bound to node %d", nodeID)
	}

	n, err := snowflake.NewNode(id)
	if err != nil {
		return fmt.Errorf("snowflake node %d: %w", id, err)
	}
	node, nodeID = n, id
	return nil
}

// New returns a time-ordered id. It panics before Init.
func New() int64 {
	mu.RLock()
	n := node
	mu.RUnlock()
	if n == nil {
		panic("id: New called before Init")
	}
	return n.Generate().Int64()
}

// NewString is New in decimal, the form stored for issue and notification ids.
func NewString() string {
	return strconv.FormatInt(New(), 10)
}
