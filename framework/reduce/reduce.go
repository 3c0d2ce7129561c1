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

// Package reduce lets types opt out of field-by-field serialization by
// collapsing a value into a named rebuilder plus the arguments that
// recreate it.
//
// Reducers run on the encoding side; rebuilders run on the decoding side
// and must be registered under the same name on both peers. A rebuilder is
// constructor-style (no target, it makes the value) or method-style (a
// target value is rebuilt first, then the rebuilder mutates or finishes
// it).
package reduce

import (
	"fmt"
	"reflect"

	"github.com/graphwire/graphwire/core/fault"
)

const (
	// ErrUnknownRebuilder is returned when a stream names a rebuilder the
	// decoding peer never registered.
	ErrUnknownRebuilder = fault.Const("reduce: unknown rebuilder")
	// ErrTargetMismatch is returned when a reduction's target does not
	// match its rebuilder's style.
	ErrTargetMismatch = fault.Const("reduce: reduction target does not match rebuilder style")
)

// Reduction is the portable form of a reduced value: the name of the
// rebuilder that recreates it, an optional target for method-style
// rebuilders, and the arguments to pass.
type Reduction struct {
	Rebuilder string
	Target    interface{}
	Args      []interface{}
}

// Reducer collapses values of some type into Reductions.
type Reducer interface {
	Reduce(t reflect.Type, v reflect.Value) (Reduction, error)
}

// ReducerFunc adapts a function to the Reducer interface.
type ReducerFunc func(t reflect.Type, v reflect.Value) (Reduction, error)

// Reduce implements Reducer.
func (f ReducerFunc) Reduce(t reflect.Type, v reflect.Value) (Reduction, error) {
	return f(t, v)
}

// RebuildFunc recreates a value of type t from a reduction's target and
// arguments.
type RebuildFunc func(t reflect.Type, target interface{}, args []interface{}) (interface{}, error)

// Rebuilder is a registered rebuild function.
type Rebuilder struct {
	// Name is the identity the stream carries.
	Name string
	// Fn does the rebuilding.
	Fn RebuildFunc
	// Method marks a method-style rebuilder: it requires a target, while
	// a constructor-style rebuilder forbids one.
	Method bool
}

// CheckTarget verifies a reduction's target against the rebuilder's style.
func (r Rebuilder) CheckTarget(target interface{}) error {
	if r.Method && target == nil {
		return fmt.Errorf("%w: method rebuilder %q needs a target", ErrTargetMismatch, r.Name)
	}
	if !r.Method && target != nil {
		return fmt.Errorf("%w: constructor rebuilder %q takes no target", ErrTargetMismatch, r.Name)
	}
	return nil
}

// Registry holds reducers keyed by exact type, falling back to kind
// family, plus the rebuilders both sides share.
type Registry struct {
	exact      map[reflect.Type]Reducer
	family     map[reflect.Kind]Reducer
	rebuilders map[string]Rebuilder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		exact:      map[reflect.Type]Reducer{},
		family:     map[reflect.Kind]Reducer{},
		rebuilders: map[string]Rebuilder{},
	}
}

// AddExact registers a reducer for one exact type. Exact entries take
// precedence over any family entry.
func (r *Registry) AddExact(t reflect.Type, reducer Reducer) {
	if t == nil || reducer == nil {
		panic(fmt.Errorf("Attempt to register nil reducer"))
	}
	r.exact[t] = reducer
}

// AddFamily registers a reducer for every type of a kind.
func (r *Registry) AddFamily(k reflect.Kind, reducer Reducer) {
	if reducer == nil {
		panic(fmt.Errorf("Attempt to register nil reducer"))
	}
	r.family[k] = reducer
}

// AddRebuilder registers a rebuilder under its name.
func (r *Registry) AddRebuilder(rb Rebuilder) {
	if rb.Name == "" || rb.Fn == nil {
		panic(fmt.Errorf("Attempt to register incomplete rebuilder"))
	}
	r.rebuilders[rb.Name] = rb
}

// Lookup finds the reducer for a type: exact match first, then the type's
// kind family.
func (r *Registry) Lookup(t reflect.Type) (Reducer, bool) {
	if reducer, found := r.exact[t]; found {
		return reducer, true
	}
	if reducer, found := r.family[t.Kind()]; found {
		return reducer, true
	}
	return nil, false
}

// Rebuilder finds a registered rebuilder by name.
func (r *Registry) Rebuilder(name string) (Rebuilder, error) {
	if rb, found := r.rebuilders[name]; found {
		return rb, nil
	}
	return Rebuilder{}, fmt.Errorf("%w: %q", ErrUnknownRebuilder, name)
}
