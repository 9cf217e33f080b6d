package keyed

import (
	"sort"
	"time"

	"github.com/hpungsan/brushport/internal/errors"
)

// Claim-once destination keys.
const (
	KeyCreationDate = "creationDate"
	KeyName         = "name"
	KeyTime         = "NS.time"
)

// CocoaEpoch is the reference date NSDate's NS.time counts seconds from.
var CocoaEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// PatchInput holds everything written into one bundle's graph.
type PatchInput struct {
	Values    map[string]any
	Name      string
	Timestamp time.Time
}

// PatchReport summarises one Patch pass.
type PatchReport struct {
	Stamped bool           `json:"stamped"`
	Renamed bool           `json:"renamed"`
	Hits    map[string]int `json:"hits"`
}

// Missing returns the value keys that matched no slot, sorted.
func (r *PatchReport) Missing(values map[string]any) []string {
	var out []string
	for k := range values {
		if r.Hits[k] == 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// rule patches one key in a dictionary slot. apply reports whether it
// changed anything; once rules stop matching after their first change.
type rule struct {
	key   string
	once  bool
	apply func(g *Graph, dict map[string]any, cur any) (bool, *errors.BrushError)
}

func rules(in PatchInput) []rule {
	rs := []rule{
		{key: KeyCreationDate, once: true, apply: stampDate(in.Timestamp)},
		{key: KeyName, once: true, apply: rename(in.Name)},
	}
	keys := make([]string, 0, len(in.Values))
	for k := range in.Values {
		if k == KeyCreationDate || k == KeyName {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rs = append(rs, rule{key: k, apply: overwrite(k, in.Values[k])})
	}
	return rs
}

func stampDate(ts time.Time) func(*Graph, map[string]any, any) (bool, *errors.BrushError) {
	secs := ts.Sub(CocoaEpoch).Seconds()
	return func(g *Graph, _ map[string]any, cur any) (bool, *errors.BrushError) {
		target, _, err := g.resolve(cur)
		if err != nil {
			return false, err
		}
		rec, ok := target.(map[string]any)
		if !ok {
			return false, nil
		}
		if _, ok := rec[KeyTime]; !ok {
			return false, nil
		}
		rec[KeyTime] = secs
		return true, nil
	}
}

func rename(name string) func(*Graph, map[string]any, any) (bool, *errors.BrushError) {
	return func(g *Graph, dict map[string]any, cur any) (bool, *errors.BrushError) {
		_, idx, err := g.resolve(cur)
		if err != nil {
			return false, err
		}
		if idx >= 0 {
			g.slots[idx] = name
		} else {
			dict[KeyName] = name
		}
		return true, nil
	}
}

func overwrite(key string, v any) func(*Graph, map[string]any, any) (bool, *errors.BrushError) {
	return func(_ *Graph, dict map[string]any, _ any) (bool, *errors.BrushError) {
		dict[key] = v
		return true, nil
	}
}

// Patch writes the timestamp, display name and parameter values into the
// graph in a single pass over the dictionary slots. creationDate and name
// are claimed by the first slot that accepts them; every value key is
// overwritten wherever it occurs. A reference that fails to resolve here is
// bundle scope.
func (g *Graph) Patch(in PatchInput) (*PatchReport, error) {
	if g.state < StateResolved {
		if err := g.Validate(); err != nil {
			return nil, bundleScope(err)
		}
	}

	rs := rules(in)
	claimed := make(map[string]bool, 2)
	report := &PatchReport{Hits: make(map[string]int, len(rs))}

	for i := range g.slots {
		dict, ok := g.slots[i].(map[string]any)
		if !ok {
			continue
		}
		for _, r := range rs {
			if r.once && claimed[r.key] {
				continue
			}
			cur, ok := dict[r.key]
			if !ok {
				continue
			}
			applied, err := r.apply(g, dict, cur)
			if err != nil {
				err.Scope = errors.ScopeBundle
				return nil, err
			}
			if !applied {
				continue
			}
			report.Hits[r.key]++
			if r.once {
				claimed[r.key] = true
			}
		}
	}

	report.Stamped = claimed[KeyCreationDate]
	report.Renamed = claimed[KeyName]
	g.state = StatePatched
	return report, nil
}

func bundleScope(err error) error {
	if bErr, ok := err.(*errors.BrushError); ok {
		bErr.Scope = errors.ScopeBundle
	}
	return err
}
