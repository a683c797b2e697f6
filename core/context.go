package core

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// PipelineContext is the shared variable set threaded through a single
// advisory run. It is an ordered, mutable, string-keyed mapping: variables
// are set or overwritten, never removed, and iteration follows insertion
// order. A skill may only read variables written by an earlier stage.
//
// One PipelineContext exists per attempt; it is never shared across
// requests, so no locking is needed.
type PipelineContext struct {
	vars *orderedmap.OrderedMap[string, string]
}

// NewPipelineContext returns an empty context.
func NewPipelineContext() *PipelineContext {
	return &PipelineContext{vars: orderedmap.New[string, string]()}
}

// Set writes a variable. Overwriting keeps the key's original position.
func (c *PipelineContext) Set(key, value string) {
	c.vars.Set(key, value)
}

// Get reads a variable.
func (c *PipelineContext) Get(key string) (string, bool) {
	return c.vars.Get(key)
}

// GetDefault reads a variable, falling back to def when unset.
func (c *PipelineContext) GetDefault(key, def string) string {
	if v, ok := c.vars.Get(key); ok {
		return v
	}
	return def
}

// Keys returns all variable names in insertion order.
func (c *PipelineContext) Keys() []string {
	keys := make([]string, 0, c.vars.Len())
	for pair := c.vars.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Map returns a snapshot of the variables for template rendering.
func (c *PipelineContext) Map() map[string]string {
	m := make(map[string]string, c.vars.Len())
	for pair := c.vars.Oldest(); pair != nil; pair = pair.Next() {
		m[pair.Key] = pair.Value
	}
	return m
}

// Len returns the number of variables.
func (c *PipelineContext) Len() int {
	return c.vars.Len()
}

// String serializes the context as "key: value" lines in insertion order.
// Used for token accounting and debug logging.
func (c *PipelineContext) String() string {
	var b strings.Builder
	for pair := c.vars.Oldest(); pair != nil; pair = pair.Next() {
		fmt.Fprintf(&b, "%s: %s\n", pair.Key, pair.Value)
	}
	return b.String()
}
