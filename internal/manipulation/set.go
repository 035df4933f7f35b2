package manipulation

import (
	"strconv"
)

// Group is one pass of operations. Names are unique within a group and keep
// their insertion order.
type Group struct {
	order  []Name
	values map[Name]string
}

func newGroup() *Group {
	return &Group{values: make(map[Name]string)}
}

func (g *Group) set(name Name, arg string) {
	if _, ok := g.values[name]; !ok {
		g.order = append(g.order, name)
	}
	g.values[name] = arg
}

func (g *Group) remove(name Name) {
	if _, ok := g.values[name]; !ok {
		return
	}
	delete(g.values, name)
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i:i], g.order[i+1:]...)
			break
		}
	}
}

// Get returns the argument stored for name.
func (g *Group) Get(name Name) (string, bool) {
	v, ok := g.values[name]
	return v, ok
}

// Has reports whether the group contains name.
func (g *Group) Has(name Name) bool {
	_, ok := g.values[name]
	return ok
}

// Len returns the number of operations in the group.
func (g *Group) Len() int { return len(g.order) }

// Names returns the operation names in insertion order.
func (g *Group) Names() []Name {
	return append([]Name(nil), g.order...)
}

// Map returns the group as a plain map.
func (g *Group) Map() map[string]string {
	out := make(map[string]string, len(g.values))
	for k, v := range g.values {
		out[string(k)] = v
	}
	return out
}

func (g *Group) clone() *Group {
	c := &Group{
		order:  append([]Name(nil), g.order...),
		values: make(map[Name]string, len(g.values)),
	}
	for k, v := range g.values {
		c.values[k] = v
	}
	return c
}

// Set is an ordered sequence of groups. The zero value is not usable; use
// NewSet.
type Set struct {
	groups []*Group
}

// NewSet returns a set with a single empty group.
func NewSet() *Set {
	return &Set{groups: []*Group{newGroup()}}
}

// Add validates ms and stores them in the last group, replacing any
// argument already present under the same name. Nothing is stored if any
// manipulation is invalid.
func (s *Set) Add(ms ...Manipulation) error {
	for _, m := range ms {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	last := s.groups[len(s.groups)-1]
	for _, m := range ms {
		last.set(m.Name, m.Argument)
	}
	return nil
}

// Apply closes the current group so later operations run in a new pass. An
// empty trailing group is reused.
func (s *Set) Apply() *Set {
	if s.groups[len(s.groups)-1].Len() > 0 {
		s.groups = append(s.groups, newGroup())
	}
	return s
}

// Remove deletes name from every group.
func (s *Set) Remove(name Name) {
	for _, g := range s.groups {
		g.remove(name)
	}
}

// Has reports whether any group contains name.
func (s *Set) Has(name Name) bool {
	for _, g := range s.groups {
		if g.Has(name) {
			return true
		}
	}
	return false
}

// Argument returns the argument for name from the last group that has it.
func (s *Set) Argument(name Name) (string, bool) {
	for i := len(s.groups) - 1; i >= 0; i-- {
		if v, ok := s.groups[i].Get(name); ok {
			return v, true
		}
	}
	return "", false
}

// FirstArgument returns the argument for name from the first group that has
// it.
func (s *Set) FirstArgument(name Name) (string, bool) {
	for _, g := range s.groups {
		if v, ok := g.Get(name); ok {
			return v, true
		}
	}
	return "", false
}

// IntArgument is Argument parsed as an integer. ok is false when the name is
// absent or the argument is not an integer.
func (s *Set) IntArgument(name Name) (int, bool) {
	v, ok := s.Argument(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Groups returns a copy of the group sequence, including an empty trailing
// group if one is open.
func (s *Set) Groups() []*Group {
	out := make([]*Group, len(s.groups))
	for i, g := range s.groups {
		out[i] = g.clone()
	}
	return out
}

// IsEmpty reports whether no group holds any operation.
func (s *Set) IsEmpty() bool {
	for _, g := range s.groups {
		if g.Len() > 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	return &Set{groups: s.Groups()}
}

// Manipulations returns the non-empty groups as manipulation lists in
// insertion order.
func (s *Set) Manipulations() [][]Manipulation {
	out := make([][]Manipulation, 0, len(s.groups))
	for _, g := range s.groups {
		if g.Len() == 0 {
			continue
		}
		ms := make([]Manipulation, 0, g.Len())
		for _, n := range g.order {
			ms = append(ms, Manipulation{Name: n, Argument: g.values[n]})
		}
		out = append(out, ms)
	}
	return out
}
