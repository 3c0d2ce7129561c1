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

// Package graph serializes arbitrary object graphs, including cycles,
// shared sub-objects and reflective type definitions, for exchange between
// trusted peers running the identical binary.
//
// An Engine holds the per-peer agreement: registered type names, reducers
// and rebuilders, the entity factory and loader, and embed policies. The
// streams it produces decode only on an engine configured the same way.
package graph

import (
	"io"
	"reflect"

	"github.com/pkg/errors"

	"github.com/graphwire/graphwire/core/data/vle"
	"github.com/graphwire/graphwire/framework/classify"
	"github.com/graphwire/graphwire/framework/construct"
	"github.com/graphwire/graphwire/framework/entity"
	"github.com/graphwire/graphwire/framework/reduce"
	"github.com/graphwire/graphwire/framework/registry"
	"github.com/graphwire/graphwire/framework/wire"
)

// Policy selects how an engine encodes type definitions of a module.
type Policy uint8

const (
	// ByValue embeds the full definition; the decoding peer rebuilds the
	// type through its factory.
	ByValue Policy = iota
	// ByName writes a reference; the decoding peer must already have the
	// type.
	ByName
)

// Engine is a configured serializer/deserializer pair. Configure it fully
// before the first Serialize or Deserialize call; classifications are
// cached against the configuration they saw.
type Engine struct {
	registry   *registry.Namespace
	reducers   *reduce.Registry
	classifier *classify.Classifier
	factory    entity.Factory
	loader     entity.Loader
	embed      map[string]Policy
	runtime    wire.RuntimeVersion
}

// Option configures an Engine.
type Option func(*Engine)

// WithFactory installs the entity factory used to rebuild embedded type
// definitions. Without one, definitions decode to their model values.
func WithFactory(f entity.Factory) Option {
	return func(e *Engine) { e.factory = f }
}

// WithLoader installs the loader used to resolve entity references.
func WithLoader(l entity.Loader) Option {
	return func(e *Engine) { e.loader = l }
}

// WithRegistry replaces the engine's type namespace. The default is a
// fresh namespace falling back to registry.Global.
func WithRegistry(n *registry.Namespace) Option {
	return func(e *Engine) { e.registry = n }
}

// NewEngine creates an engine with the builtin reducers installed.
func NewEngine(options ...Option) *Engine {
	e := &Engine{
		registry: registry.NewNamespace(registry.Global),
		reducers: reduce.Builtins(),
		embed:    map[string]Policy{},
		runtime:  wire.HostRuntime(),
	}
	for _, o := range options {
		o(e)
	}
	e.classifier = classify.New(classify.Options{
		Reducers: e.reducers,
		Tuple:    reflect.TypeOf(Tuple{}),
		Custom:   reflect.TypeOf((*Custom)(nil)).Elem(),
	})
	return e
}

// RegisterType registers a runtime type under an explicit stream identity.
func (e *Engine) RegisterType(key registry.Key, t reflect.Type) {
	e.registry.Add(key, t)
}

// MustRegister registers the type of obj under its own package path and
// name. Pointers register their element type.
func (e *Engine) MustRegister(obj interface{}) {
	e.registry.AddTypeOf(obj)
}

// RegisterReducer installs a reducer for one exact type.
func (e *Engine) RegisterReducer(t reflect.Type, r reduce.Reducer) {
	e.reducers.AddExact(t, r)
}

// RegisterFamilyReducer installs a reducer for every type of a kind.
func (e *Engine) RegisterFamilyReducer(k reflect.Kind, r reduce.Reducer) {
	e.reducers.AddFamily(k, r)
}

// RegisterRebuilder installs a rebuilder under its name.
func (e *Engine) RegisterRebuilder(rb reduce.Rebuilder) {
	e.reducers.AddRebuilder(rb)
}

// SetEmbedPolicy selects Ref or Def encoding for type definitions of the
// named module. The default for unnamed modules is ByValue.
func (e *Engine) SetEmbedPolicy(module string, p Policy) {
	e.embed[module] = p
}

// AddAlias makes streams naming `from` resolve to the type registered as
// `to`.
func (e *Engine) AddAlias(to, from registry.Key) {
	e.registry.AddAlias(to, from)
}

func (e *Engine) policyFor(module string) Policy {
	return e.embed[module]
}

// Serialize writes value's whole object graph to out.
func (e *Engine) Serialize(out io.Writer, value interface{}) error {
	w := vle.Writer(out)
	wire.WriteHeader(w, e.runtime)
	enc := newEncoder(e, w)
	if err := enc.tagged(reflect.ValueOf(value)); err != nil {
		return err
	}
	if err := enc.queue.Drain(); err != nil {
		return err
	}
	return errors.Wrap(w.Error(), "writing stream")
}

// Deserialize reads one object graph from in. The whole graph, including
// any deferred entity construction, finishes before it returns; on error
// nothing partial is handed out.
func (e *Engine) Deserialize(in io.Reader) (interface{}, error) {
	r := vle.Reader(in)
	wire.ReadHeader(r)
	if err := r.Error(); err != nil {
		return nil, &FormatError{Offset: r.Offset(), Err: err}
	}
	dec := newDecoder(e, r)
	if err := dec.queue.Enqueue(construct.Completion, dec.arena.CompleteAll); err != nil {
		return nil, err
	}
	value, err := dec.tagged()
	if err != nil {
		return nil, err
	}
	if err := dec.queue.Drain(); err != nil {
		return nil, err
	}
	if err := r.Error(); err != nil {
		return nil, &FormatError{Offset: r.Offset(), Err: err}
	}
	return value, nil
}
