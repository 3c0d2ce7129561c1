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

// Package registry maps module scoped type names to live runtime types.
//
// Streams carry types by name, never by layout hash, so both peers of an
// exchange must register the same named types. A Namespace may layer on
// fallbacks, letting a session hold private registrations over a shared
// global set.
package registry

import (
	"fmt"
	"reflect"
)

// Key is the stream identity of a named type.
type Key struct {
	// Module is the defining module of the type. For host types this is
	// the package import path.
	Module string
	// Name is the type's simple name within its module.
	Name string
}

func (k Key) String() string {
	if k.Module == "" {
		return k.Name
	}
	return k.Module + "." + k.Name
}

// KeyOf derives the stream identity of a named runtime type.
func KeyOf(t reflect.Type) (Key, bool) {
	if t == nil || t.Name() == "" || t.PkgPath() == "" {
		return Key{}, false
	}
	return Key{Module: t.PkgPath(), Name: t.Name()}, true
}

// Namespace is a mapping of type identities to runtime types.
type Namespace struct {
	fallbacks []*Namespace
	types     map[Key]reflect.Type
	names     map[reflect.Type]Key
	aliases   map[Key]Key
}

// Global is the default global Namespace object.
var Global = NewNamespace()

// NewNamespace creates a new namespace layered on top of the specified
// fallbacks.
func NewNamespace(fallbacks ...*Namespace) *Namespace {
	return &Namespace{
		fallbacks: fallbacks,
		types:     map[Key]reflect.Type{},
		names:     map[reflect.Type]Key{},
		aliases:   map[Key]Key{},
	}
}

// Add registers a runtime type under the given identity.
func (n *Namespace) Add(key Key, t reflect.Type) {
	if t == nil {
		panic(fmt.Errorf("Attempt to add nil type to registry"))
	}
	if key.Name == "" {
		panic(fmt.Errorf("Type %v has no name", t))
	}
	if _, found := n.types[key]; found {
		panic(fmt.Errorf("Type for %s already present", key))
	}
	n.types[key] = t
	if _, found := n.names[t]; !found {
		n.names[t] = key
	}
}

// AddTypeOf registers the type of obj under its own module and name.
func (n *Namespace) AddTypeOf(obj interface{}) {
	t := reflect.TypeOf(obj)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	key, ok := KeyOf(t)
	if !ok {
		panic(fmt.Errorf("Type %v has no registerable name", t))
	}
	n.Add(key, t)
}

// AddAlias adds an identity alias which will be used if the type named
// from cannot be found.
func (n *Namespace) AddAlias(to, from Key) {
	n.aliases[from] = to
}

// AddFallbacks appends new Namespaces to the fallback list of this
// Namespace.
func (n *Namespace) AddFallbacks(fallbacks ...*Namespace) {
	n.fallbacks = append(n.fallbacks, fallbacks...)
}

// Lookup looks up a runtime type by the given identity in the Namespace.
// If there is no match, it will return nil.
func (n *Namespace) Lookup(key Key) reflect.Type {
	if t, found := n.types[key]; found {
		return t
	}
	for _, f := range n.fallbacks {
		if t := f.Lookup(key); t != nil {
			return t
		}
	}
	if alias, ok := n.aliases[key]; ok {
		return n.Lookup(alias)
	}
	return nil
}

// Name returns the identity a runtime type was registered under.
func (n *Namespace) Name(t reflect.Type) (Key, bool) {
	if key, found := n.names[t]; found {
		return key, true
	}
	for _, f := range n.fallbacks {
		if key, found := f.Name(t); found {
			return key, true
		}
	}
	return Key{}, false
}

// Count returns the number of entries reachable through this namespace.
// Because it sums the counts of the namespaces it depends on, this may be
// more than the number of unique keys.
func (n *Namespace) Count() int {
	size := len(n.types)
	for _, f := range n.fallbacks {
		size += f.Count()
	}
	return size
}

// Visit invokes the visitor for every registration reachable through this
// namespace.
// The visitor may be called with the same identity more than once if it is
// present in multiple namespaces.
func (n *Namespace) Visit(visitor func(Key, reflect.Type)) {
	n.VisitDirect(visitor)
	for _, f := range n.fallbacks {
		f.Visit(visitor)
	}
}

// VisitDirect invokes the visitor for every registration directly in this
// namespace.
func (n *Namespace) VisitDirect(visitor func(Key, reflect.Type)) {
	for key, t := range n.types {
		visitor(key, t)
	}
}
