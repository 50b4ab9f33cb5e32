package poscache

import (
	"encoding/json"
	"testing"

	"github.com/matzehuels/repobubbles/pkg/layout"
)

func TestCacheGetSet(t *testing.T) {
	c := New()
	if _, ok := c.Position("a"); ok {
		t.Error("empty cache should miss")
	}

	c.SetPosition("a", layout.Point{X: 1, Y: 2})
	c.SetOrder("a", 42)
	c.SetOrder("b", 0)

	if p, ok := c.Position("a"); !ok || p != (layout.Point{X: 1, Y: 2}) {
		t.Errorf("Position(a) = %+v, %v", p, ok)
	}
	if k, ok := c.Order("a"); !ok || k != 42 {
		t.Errorf("Order(a) = %v, %v", k, ok)
	}
	// A zero sort key is still a hit.
	if _, ok := c.Order("b"); !ok {
		t.Error("Order(b) should hit")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
	if _, ok := c.Order("a"); ok {
		t.Error("Order(a) should miss after Clear")
	}
}

func TestNilCacheMisses(t *testing.T) {
	var c *Cache
	if _, ok := c.Position("a"); ok {
		t.Error("nil cache Position should miss")
	}
	if _, ok := c.Order("a"); ok {
		t.Error("nil cache Order should miss")
	}
	if c.Len() != 0 {
		t.Error("nil cache Len should be 0")
	}
}

func TestRecordReplacesContents(t *testing.T) {
	c := New()
	c.SetPosition("stale", layout.Point{X: 9, Y: 9})

	lt := &layout.Tree{Nodes: []layout.Node{
		{ID: 0, Parent: layout.NoParent, Children: []int{1, 2}, Path: "", X: 500, Y: 500, SortKey: 10},
		{ID: 1, Parent: 0, Depth: 1, Path: "a", X: 400, Y: 500, SortKey: 5},
		{ID: 2, Parent: 0, Depth: 1, Path: "b", X: 600, Y: 500, SortKey: -3},
	}}
	c.Record(lt)

	if _, ok := c.Position("stale"); ok {
		t.Error("Record should drop entries from earlier passes")
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	if p, _ := c.Position("b"); p.X != 600 {
		t.Errorf("b position = %+v", p)
	}
	if k, _ := c.Order("b"); k != -3 {
		t.Errorf("b order = %v", k)
	}
	if _, ok := c.Order(""); !ok {
		t.Error("root order should be recorded")
	}
}

func TestSnapshotJSON(t *testing.T) {
	c := New()
	c.SetPosition("src/main.go", layout.Point{X: 1.5, Y: 2.5})
	c.SetOrder("src/main.go", 7)

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}

	restored := New()
	restored.SetPosition("old", layout.Point{})
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatal(err)
	}
	if _, ok := restored.Position("old"); ok {
		t.Error("Unmarshal should replace existing entries")
	}
	if p, ok := restored.Position("src/main.go"); !ok || p.X != 1.5 || p.Y != 2.5 {
		t.Errorf("position = %+v, %v", p, ok)
	}
	if k, ok := restored.Order("src/main.go"); !ok || k != 7 {
		t.Errorf("order = %v, %v", k, ok)
	}
}

func TestSnapshotInvalid(t *testing.T) {
	c := New()
	if err := json.Unmarshal([]byte(`{"positions": 3}`), c); err == nil {
		t.Error("expected error for malformed snapshot")
	}
}
