// Package poscache stores the positions and sort keys of one layout pass so
// that the next pass can stay close to them.
//
// A Cache is owned by a single engine. It is read while a pass runs and
// replaced wholesale by [Cache.Record] once the pass completes, so no node
// ever sees a value written during its own pass. Snapshots serialize to JSON
// for persistence between processes:
//
//	{
//	  "positions": {"src": [412.5, 388.1], "src/main.go": [430.2, 371.9]},
//	  "orders":    {"src": 4096, "src/main.go": 1200}
//	}
package poscache

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/repobubbles/pkg/layout"
)

// Cache maps node paths to their last position and sort key.
// The zero value is ready to use. A Cache is not safe for concurrent use.
type Cache struct {
	positions map[string]layout.Point
	orders    map[string]float64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{}
}

// Position returns the cached position for path.
func (c *Cache) Position(path string) (layout.Point, bool) {
	if c == nil {
		return layout.Point{}, false
	}
	p, ok := c.positions[path]
	return p, ok
}

// Order returns the cached sort key for path.
func (c *Cache) Order(path string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	k, ok := c.orders[path]
	return k, ok
}

// SetPosition records the position of path.
func (c *Cache) SetPosition(path string, p layout.Point) {
	if c.positions == nil {
		c.positions = make(map[string]layout.Point)
	}
	c.positions[path] = p
}

// SetOrder records the sort key of path.
func (c *Cache) SetOrder(path string, key float64) {
	if c.orders == nil {
		c.orders = make(map[string]float64)
	}
	c.orders[path] = key
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.positions = nil
	c.orders = nil
}

// Len returns the number of cached positions.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.positions)
}

// Record replaces the cache contents with the final positions and sort keys
// of t, walking it depth-first.
func (c *Cache) Record(t *layout.Tree) {
	c.Clear()
	t.Walk(func(n *layout.Node) {
		c.SetPosition(n.Path, n.Pos())
		c.SetOrder(n.Path, n.SortKey)
	})
}

type snapshot struct {
	Positions map[string][2]float64 `json:"positions"`
	Orders    map[string]float64    `json:"orders"`
}

// MarshalJSON encodes the cache as a snapshot.
func (c *Cache) MarshalJSON() ([]byte, error) {
	s := snapshot{
		Positions: make(map[string][2]float64, len(c.positions)),
		Orders:    make(map[string]float64, len(c.orders)),
	}
	for k, p := range c.positions {
		s.Positions[k] = [2]float64{p.X, p.Y}
	}
	for k, v := range c.orders {
		s.Orders[k] = v
	}
	return json.Marshal(s)
}

// UnmarshalJSON replaces the cache contents with a decoded snapshot.
func (c *Cache) UnmarshalJSON(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode position snapshot: %w", err)
	}
	c.Clear()
	for k, p := range s.Positions {
		c.SetPosition(k, layout.Point{X: p[0], Y: p[1]})
	}
	for k, v := range s.Orders {
		c.SetOrder(k, v)
	}
	return nil
}
