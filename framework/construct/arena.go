// Copyright (C) 2024 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package construct

import (
	"fmt"

	"github.com/graphwire/graphwire/core/fault"
	"github.com/graphwire/graphwire/framework/entity"
)

// ErrNotDefined is returned when completion reaches an entity whose
// definition never arrived.
const ErrNotDefined = fault.Const("construct: entity was declared but never defined")

// State is where a constructing entity stands on the way to sealed.
type State uint8

const (
	// NotComplete means the entity cannot be sealed yet.
	NotComplete State = iota
	// AssumedComplete means the entity is currently being resolved higher
	// up the same dependency chain, so a cycle through it is tolerated.
	// AssumedComplete never licenses instance creation; callers needing a
	// usable entity re-resolve from scratch.
	AssumedComplete
	// Complete means the entity is sealed.
	Complete
)

func (s State) String() string {
	switch s {
	case NotComplete:
		return "not-complete"
	case AssumedComplete:
		return "assumed-complete"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Constructing tracks one entity between declaration and seal.
type Constructing struct {
	id   int
	Kind entity.Kind
	Name string
	// Provisional is the handle minted at declaration.
	Provisional entity.Handle
	// Sealed is the final handle, nil until sealed.
	Sealed entity.Handle
	// Defined is set once the definition phase has filled the entity in.
	Defined bool

	deps []*Constructing
	seal func() (entity.Handle, error)
}

// ID is the entity's arena index.
func (c *Constructing) ID() int { return c.id }

// AddDep records that c cannot seal before d is sealed or assumed.
func (c *Constructing) AddDep(d *Constructing) {
	if d == nil || d == c {
		return
	}
	for _, have := range c.deps {
		if have == d {
			return
		}
	}
	c.deps = append(c.deps, d)
}

// OnSeal sets the closure that seals the entity. Resolve calls it exactly
// once, after every dependency is sealed or assumed.
func (c *Constructing) OnSeal(fn func() (entity.Handle, error)) {
	c.seal = fn
}

// Arena holds every entity a stream is constructing, addressed by the
// order of declaration.
type Arena struct {
	items []*Constructing
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Declare registers a new constructing entity and returns its record.
func (a *Arena) Declare(kind entity.Kind, name string, provisional entity.Handle) *Constructing {
	c := &Constructing{
		id:          len(a.items),
		Kind:        kind,
		Name:        name,
		Provisional: provisional,
	}
	a.items = append(a.items, c)
	return c
}

// Get returns the constructing entity with the given id, or nil.
func (a *Arena) Get(id int) *Constructing {
	if id < 0 || id >= len(a.items) {
		return nil
	}
	return a.items[id]
}

// Len is the number of declared entities.
func (a *Arena) Len() int { return len(a.items) }

// Resolve drives c as far toward sealed as its dependencies allow. assumed
// is the set of entities higher up the current resolution chain: a
// dependency found in it is a cycle and is tolerated as AssumedComplete.
// When every dependency is sealed or assumed, c itself seals and the
// result is Complete.
func (a *Arena) Resolve(c *Constructing, assumed map[*Constructing]bool) (State, error) {
	st, _, err := a.resolve(c, assumed)
	return st, err
}

// resolve additionally names the undefined entity that blocked completion,
// which may sit anywhere down the dependency chain.
func (a *Arena) resolve(c *Constructing, assumed map[*Constructing]bool) (State, *Constructing, error) {
	if c.Sealed != nil {
		return Complete, nil, nil
	}
	if assumed[c] {
		return AssumedComplete, nil, nil
	}
	if !c.Defined {
		return NotComplete, c, nil
	}
	assumed[c] = true
	defer delete(assumed, c)

	for _, d := range c.deps {
		st, blocked, err := a.resolve(d, assumed)
		if err != nil {
			return NotComplete, nil, err
		}
		if st == NotComplete {
			return NotComplete, blocked, nil
		}
	}

	if c.seal == nil {
		return NotComplete, nil, fmt.Errorf("construct: %v %q has no seal action", c.Kind, c.Name)
	}
	sealed, err := c.seal()
	if err != nil {
		return NotComplete, nil, err
	}
	c.Sealed = sealed
	return Complete, nil, nil
}

// CompleteAll seals every declared entity, in declaration order. An entity
// that was declared but never defined is an error: the stream referenced
// something it never finished describing.
func (a *Arena) CompleteAll() error {
	for _, c := range a.items {
		st, blocked, err := a.resolve(c, map[*Constructing]bool{})
		if err != nil {
			return err
		}
		if st != Complete {
			if blocked == nil {
				blocked = c
			}
			return fmt.Errorf("%w: %v %q", ErrNotDefined, blocked.Kind, blocked.Name)
		}
	}
	return nil
}
