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

// Package enttest provides an in-memory entity.Factory and entity.Loader
// for tests. It records every call in order so tests can assert the
// declare, define, attribute, seal phase discipline.
package enttest

import (
	"fmt"

	"github.com/graphwire/graphwire/framework/entity"
	"github.com/graphwire/graphwire/framework/sig"
)

// Handle is the factory's handle implementation.
type Handle struct {
	kind   entity.Kind
	name   string
	sealed bool

	// Def is the definition given to DefineType, nil until then.
	Def *entity.TypeDef
	// Metadata is whatever Attribute attached.
	Metadata map[string]interface{}
	// Deps are the handles the definition's shapes resolved to, in
	// resolution order. Provisional entries are expected for cycles.
	Deps []entity.Handle
}

func (h *Handle) EntityKind() entity.Kind { return h.kind }
func (h *Handle) EntityName() string      { return h.name }
func (h *Handle) Complete() bool          { return h.sealed }

// Factory is an in-memory entity.Factory and entity.Loader.
type Factory struct {
	// Journal records every call as "verb kind:name", in order.
	Journal []string
	// Handles holds every minted handle by name.
	Handles map[string]*Handle
}

var (
	_ entity.Factory = (*Factory)(nil)
	_ entity.Loader  = (*Factory)(nil)
)

// New creates an empty factory.
func New() *Factory {
	return &Factory{Handles: map[string]*Handle{}}
}

func (f *Factory) log(verb string, kind entity.Kind, name string) {
	f.Journal = append(f.Journal, fmt.Sprintf("%s %v:%s", verb, kind, name))
}

func (f *Factory) declare(kind entity.Kind, name string) (*Handle, error) {
	if _, found := f.Handles[name]; found {
		return nil, fmt.Errorf("enttest: %v %q declared twice", kind, name)
	}
	h := &Handle{kind: kind, name: name}
	f.Handles[name] = h
	f.log("declare", kind, name)
	return h, nil
}

// DeclareUnit implements entity.Factory.
func (f *Factory) DeclareUnit(name, version string) (entity.Handle, error) {
	return f.declare(entity.KindUnit, name)
}

// DeclareModule implements entity.Factory.
func (f *Factory) DeclareModule(unit entity.Handle, name string) (entity.Handle, error) {
	return f.declare(entity.KindModule, name)
}

// DeclareType implements entity.Factory.
func (f *Factory) DeclareType(module entity.Handle, name string, declaring entity.Handle) (entity.Handle, error) {
	if declaring != nil {
		name = declaring.EntityName() + "." + name
	}
	return f.declare(entity.KindType, name)
}

func (f *Factory) mine(h entity.Handle) (*Handle, error) {
	mine, ok := h.(*Handle)
	if !ok || f.Handles[mine.name] != mine {
		return nil, entity.ErrNotProvisional
	}
	if mine.sealed {
		return nil, entity.ErrNotProvisional
	}
	return mine, nil
}

// DefineType implements entity.Factory. Every shape the definition depends
// on is resolved immediately, so cyclic definitions hand back provisional
// handles here.
func (f *Factory) DefineType(provisional entity.Handle, def *entity.TypeDef, resolve entity.Resolver) error {
	h, err := f.mine(provisional)
	if err != nil {
		return err
	}
	if h.Def != nil {
		return fmt.Errorf("enttest: type %q defined twice", h.name)
	}
	h.Def = def
	shapes := []sig.Type{}
	if def.Base != nil {
		shapes = append(shapes, def.Base)
	}
	shapes = append(shapes, def.Interfaces...)
	for _, fd := range def.Fields {
		shapes = append(shapes, fd.Type)
	}
	for _, shape := range shapes {
		dep, err := resolve(shape)
		if err != nil {
			return err
		}
		if dep != nil {
			h.Deps = append(h.Deps, dep)
		}
	}
	f.log("define", h.kind, h.name)
	return nil
}

// Attribute implements entity.Factory.
func (f *Factory) Attribute(provisional entity.Handle, metadata map[string]interface{}) error {
	h, err := f.mine(provisional)
	if err != nil {
		return err
	}
	h.Metadata = metadata
	f.log("attribute", h.kind, h.name)
	return nil
}

// Seal implements entity.Factory.
func (f *Factory) Seal(provisional entity.Handle) (entity.Handle, error) {
	h, err := f.mine(provisional)
	if err != nil {
		return nil, err
	}
	if h.kind == entity.KindType && h.Def == nil {
		return nil, fmt.Errorf("enttest: sealing undefined type %q", h.name)
	}
	h.sealed = true
	f.log("seal", h.kind, h.name)
	return h, nil
}

// Member implements entity.Factory and entity.Loader: it locates a member
// on a defined type by signature, before or after sealing.
func (f *Factory) Member(declaring entity.Handle, ref entity.MemberRef) (entity.Handle, error) {
	h, ok := declaring.(*Handle)
	if !ok || h.Def == nil {
		return nil, entity.ErrNotFound
	}
	name := h.name + "." + ref.Sig.Name
	switch ref.Kind {
	case entity.KindField:
		if h.Def.Field(ref.Sig.Name) == nil {
			return nil, entity.ErrNotFound
		}
	case entity.KindCtor:
		if h.Def.Ctor(ref.Sig) == nil {
			return nil, entity.ErrNotFound
		}
	case entity.KindMethod:
		if h.Def.Method(ref.Sig) == nil {
			return nil, entity.ErrNotFound
		}
	case entity.KindProperty:
		if h.Def.Property(ref.Sig.Name) == nil {
			return nil, entity.ErrNotFound
		}
	case entity.KindEvent:
		if h.Def.Event(ref.Sig.Name) == nil {
			return nil, entity.ErrNotFound
		}
	default:
		return nil, entity.ErrNotFound
	}
	f.log("member", ref.Kind, name)
	return &Handle{kind: ref.Kind, name: name, sealed: h.sealed}, nil
}

// Unit implements entity.Loader.
func (f *Factory) Unit(ref entity.UnitRef) (entity.Handle, error) {
	return f.lookup(entity.KindUnit, ref.Name)
}

// Module implements entity.Loader.
func (f *Factory) Module(ref entity.ModuleRef) (entity.Handle, error) {
	return f.lookup(entity.KindModule, ref.Name)
}

// Type implements entity.Loader.
func (f *Factory) Type(module entity.Handle, name string) (entity.Handle, error) {
	return f.lookup(entity.KindType, name)
}

func (f *Factory) lookup(kind entity.Kind, name string) (entity.Handle, error) {
	if h, found := f.Handles[name]; found && h.kind == kind {
		return h, nil
	}
	return nil, entity.ErrNotFound
}
