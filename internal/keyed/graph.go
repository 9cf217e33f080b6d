// Package keyed reads, patches and rewrites NSKeyedArchiver property lists.
//
// An archive is a top-level dictionary whose "$objects" array is a slot
// arena. Values elsewhere in the archive point into that arena through
// plist.UID handles. The graph never follows handles recursively; Resolve
// walks a chain iteratively with a hop limit equal to the slot count, so a
// cycle surfaces as DANGLING_REFERENCE instead of looping.
package keyed

import (
	"howett.net/plist"

	"github.com/hpungsan/brushport/internal/errors"
)

// ObjectsKey is the top-level key holding the slot arena.
const ObjectsKey = "$objects"

// State tracks where a graph is in its lifecycle.
type State int

const (
	StateLoaded State = iota
	StateResolved
	StatePatched
	StateReserialized
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateResolved:
		return "resolved"
	case StatePatched:
		return "patched"
	case StateReserialized:
		return "reserialized"
	default:
		return "unknown"
	}
}

// Graph is a decoded keyed archive. A Graph is owned by one goroutine.
type Graph struct {
	root  map[string]any
	slots []any
	state State
}

// Decode parses a keyed archive in any plist format.
func Decode(data []byte) (*Graph, error) {
	var root map[string]any
	if _, err := plist.Unmarshal(data, &root); err != nil {
		return nil, errors.NewInvalidTemplate("Brush.archive is not a property list", err)
	}
	slots, ok := root[ObjectsKey].([]any)
	if !ok {
		return nil, errors.NewInvalidTemplate("Brush.archive has no $objects array", nil)
	}
	return &Graph{root: root, slots: slots}, nil
}

// Len returns the number of slots.
func (g *Graph) Len() int { return len(g.slots) }

// State returns the current lifecycle state.
func (g *Graph) State() State { return g.state }

// Slot returns the raw value at index i, or nil when out of range.
func (g *Graph) Slot(i int) any {
	if i < 0 || i >= len(g.slots) {
		return nil
	}
	return g.slots[i]
}

// Resolve follows v through any chain of references and returns the value
// it lands on and the slot index of the last hop (-1 when v is not a
// reference).
func (g *Graph) Resolve(v any) (any, int, error) {
	out, idx, err := g.resolve(v)
	if err != nil {
		return nil, -1, err
	}
	return out, idx, nil
}

func (g *Graph) resolve(v any) (any, int, *errors.BrushError) {
	idx := -1
	for hops := 0; ; hops++ {
		uid, ok := v.(plist.UID)
		if !ok {
			return v, idx, nil
		}
		if hops >= len(g.slots) || uint64(uid) >= uint64(len(g.slots)) {
			return nil, -1, errors.NewDanglingReference(uint64(uid), len(g.slots))
		}
		idx = int(uid)
		v = g.slots[idx]
	}
}

// Validate checks that every reference in the archive resolves and moves
// the graph to StateResolved.
func (g *Graph) Validate() error {
	for k, v := range g.root {
		if k == ObjectsKey {
			continue
		}
		if err := g.check(v); err != nil {
			return err
		}
	}
	for _, v := range g.slots {
		if err := g.check(v); err != nil {
			return err
		}
	}
	if g.state < StateResolved {
		g.state = StateResolved
	}
	return nil
}

func (g *Graph) check(v any) error {
	switch x := v.(type) {
	case plist.UID:
		if _, _, err := g.resolve(x); err != nil {
			return err
		}
	case map[string]any:
		for _, child := range x {
			if err := g.check(child); err != nil {
				return err
			}
		}
	case []any:
		for _, child := range x {
			if err := g.check(child); err != nil {
				return err
			}
		}
	}
	return nil
}

// Lookup returns the resolved value of the first dictionary slot holding key.
func (g *Graph) Lookup(key string) (any, bool, error) {
	for _, slot := range g.slots {
		dict, ok := slot.(map[string]any)
		if !ok {
			continue
		}
		raw, ok := dict[key]
		if !ok {
			continue
		}
		v, _, err := g.Resolve(raw)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	return nil, false, nil
}

// Encode serializes the graph as a binary property list.
func (g *Graph) Encode() ([]byte, error) {
	g.root[ObjectsKey] = g.slots
	data, err := plist.Marshal(g.root, plist.BinaryFormat)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	g.state = StateReserialized
	return data, nil
}
