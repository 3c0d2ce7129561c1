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

package graph

import (
	"reflect"

	"github.com/graphwire/graphwire/framework/classify"
	"github.com/graphwire/graphwire/framework/construct"
	"github.com/graphwire/graphwire/framework/entity"
	"github.com/graphwire/graphwire/framework/sig"
	"github.com/graphwire/graphwire/framework/wire"
)

// memberOp maps a member kind to its reference operation.
func memberOp(k entity.Kind) wire.Op {
	switch k {
	case entity.KindField:
		return wire.FieldRef
	case entity.KindCtor:
		return wire.CtorRef
	case entity.KindProperty:
		return wire.PropertyRef
	case entity.KindEvent:
		return wire.EventRef
	}
	return wire.MethodRef
}

// entity encodes one tagged reflective value: runtime types, entity
// definitions, entity references and type variables.
func (enc *encoder) entity(v reflect.Value) error {
	switch val := v.Interface().(type) {
	case reflect.Type:
		return enc.memoized(v, wire.TypeRef, func() error {
			return enc.shape(val)
		})

	case *entity.TypeDef:
		return enc.typeValue(v, val)

	case *entity.UnitDef:
		return enc.memoized(v, wire.UnitDef, func() error {
			return enc.unitBody(val)
		})

	case *entity.ModuleDef:
		return enc.moduleValue(v, val)

	case *entity.FieldDef:
		return enc.memoized(v, wire.FieldDef, func() error {
			enc.fieldBody(val)
			return nil
		})

	case *entity.MethodDef:
		return enc.memoized(v, wire.MethodDef, func() error {
			return enc.methodBody(val)
		})

	case *entity.PropertyDef:
		return enc.memoized(v, wire.PropertyDef, func() error {
			return enc.propertyBody(val)
		})

	case *entity.EventDef:
		return enc.memoized(v, wire.EventDef, func() error {
			return enc.eventBody(val)
		})

	case entity.UnitRef:
		wire.WriteOp(enc.w, wire.UnitRef, true)
		enc.unitRef(val)
		return nil

	case entity.ModuleRef:
		wire.WriteOp(enc.w, wire.ModuleRef, true)
		enc.moduleRef(val)
		return nil

	case entity.MemberRef:
		wire.WriteOp(enc.w, memberOp(val.Kind), true)
		enc.memberRef(val)
		return nil

	case sig.TypeParam:
		wire.WriteOp(enc.w, wire.TypeParam, false)
		enc.w.Uint32(uint32(val.Index))
		return nil

	case sig.MethodParam:
		wire.WriteOp(enc.w, wire.MethodParam, false)
		enc.w.Uint32(uint32(val.Index))
		return nil
	}
	return &ClassificationError{Type: v.Type(), Reason: classify.ErrUnsupported}
}

// entityUntagged encodes the reflective model values whose static type
// elides the operation byte.
func (enc *encoder) entityUntagged(v reflect.Value) error {
	switch val := v.Interface().(type) {
	case entity.UnitRef:
		enc.unitRef(val)
		return nil
	case entity.ModuleRef:
		enc.moduleRef(val)
		return nil
	case entity.MemberRef:
		enc.memberRef(val)
		return nil
	case sig.TypeParam:
		enc.w.Uint32(uint32(val.Index))
		return nil
	case sig.MethodParam:
		enc.w.Uint32(uint32(val.Index))
		return nil
	}
	return &ClassificationError{Type: v.Type(), Reason: classify.ErrUnsupported}
}

func (enc *encoder) unitRef(u entity.UnitRef) {
	enc.w.String(u.Name)
	enc.w.String(u.Version)
}

func (enc *encoder) moduleRef(m entity.ModuleRef) {
	enc.unitRef(m.Unit)
	enc.w.String(m.Name)
}

// typeValue encodes a type definition either by name or by value,
// according to the embed policy of its module. The by-value form writes
// only the identity inline; structure and metadata go to the stream's
// trailer phases so definitions can be mutually recursive with the values
// that mention them.
func (enc *encoder) typeValue(v reflect.Value, def *entity.TypeDef) error {
	module := ""
	if def.Module != nil {
		module = def.Module.Name
	}
	if enc.e.policyFor(module) == ByName {
		return enc.memoized(v, wire.TypeRef, func() error {
			sig.WriteType(enc.w, def.Shape())
			return nil
		})
	}
	return enc.memoized(v, wire.TypeDef, func() error {
		enc.w.String(module)
		enc.w.String(def.QualifiedName())
		err := enc.queue.Enqueue(construct.Definition, func() error {
			return enc.typeDefinition(def)
		})
		if err != nil {
			return err
		}
		return enc.queue.Enqueue(construct.Attribution, func() error {
			return enc.attribution(def.Metadata)
		})
	})
}

func (enc *encoder) typeDefinition(def *entity.TypeDef) error {
	enc.w.Uint32(uint32(def.Flags))
	enc.w.Uint8(uint8(def.EnumBase))

	enc.w.Uint32(uint32(len(def.GenericParams)))
	for _, p := range def.GenericParams {
		enc.w.String(p)
	}

	if def.Base != nil {
		enc.w.Bool(true)
		sig.WriteType(enc.w, def.Base)
	} else {
		enc.w.Bool(false)
	}
	enc.w.Uint32(uint32(len(def.Interfaces)))
	for _, i := range def.Interfaces {
		sig.WriteType(enc.w, i)
	}

	enc.w.Uint32(uint32(len(def.Fields)))
	for _, f := range def.Fields {
		enc.fieldBody(f)
	}
	enc.w.Uint32(uint32(len(def.Ctors)))
	for _, c := range def.Ctors {
		if err := enc.methodBody(c); err != nil {
			return err
		}
	}
	enc.w.Uint32(uint32(len(def.Methods)))
	for _, m := range def.Methods {
		if err := enc.methodBody(m); err != nil {
			return err
		}
	}

	// Accessors of a declared property or event also appear in the method
	// list above; here they are named by signature and rebound on decode.
	enc.w.Uint32(uint32(len(def.Properties)))
	for _, p := range def.Properties {
		enc.w.String(p.Name)
		sig.WriteType(enc.w, p.Type)
		enc.w.Uint32(uint32(len(p.Indexes)))
		for _, i := range p.Indexes {
			sig.WriteType(enc.w, i)
		}
		enc.accessorSig(p.Getter)
		enc.accessorSig(p.Setter)
	}
	enc.w.Uint32(uint32(len(def.Events)))
	for _, e := range def.Events {
		enc.w.String(e.Name)
		sig.WriteType(enc.w, e.Type)
		enc.accessorSig(e.Add)
		enc.accessorSig(e.Remove)
	}
	return nil
}

func (enc *encoder) accessorSig(m *entity.MethodDef) {
	if m == nil {
		enc.w.Bool(false)
		return
	}
	enc.w.Bool(true)
	sig.WriteSignature(enc.w, m.Sig)
}

func (enc *encoder) fieldBody(f *entity.FieldDef) {
	enc.w.String(f.Name)
	sig.WriteType(enc.w, f.Type)
	enc.w.Bool(f.Static)
}

func (enc *encoder) methodBody(m *entity.MethodDef) error {
	sig.WriteSignature(enc.w, m.Sig)
	enc.w.Bool(m.Abstract)
	enc.w.Wide(uint64(len(m.Body)))
	enc.w.Data(m.Body)
	enc.w.Uint32(uint32(len(m.Tokens)))
	for _, tok := range m.Tokens {
		enc.memberRef(tok)
	}
	return nil
}

// propertyBody is the free-standing form: unlike a property inside a type
// definition it has no method list to rebind against, so the accessors
// are carried in full.
func (enc *encoder) propertyBody(p *entity.PropertyDef) error {
	enc.w.String(p.Name)
	sig.WriteType(enc.w, p.Type)
	enc.w.Uint32(uint32(len(p.Indexes)))
	for _, i := range p.Indexes {
		sig.WriteType(enc.w, i)
	}
	if err := enc.optionalMethod(p.Getter); err != nil {
		return err
	}
	return enc.optionalMethod(p.Setter)
}

func (enc *encoder) eventBody(e *entity.EventDef) error {
	enc.w.String(e.Name)
	sig.WriteType(enc.w, e.Type)
	if err := enc.optionalMethod(e.Add); err != nil {
		return err
	}
	return enc.optionalMethod(e.Remove)
}

func (enc *encoder) optionalMethod(m *entity.MethodDef) error {
	if m == nil {
		enc.w.Bool(false)
		return nil
	}
	enc.w.Bool(true)
	return enc.methodBody(m)
}

func (enc *encoder) attribution(meta map[string]interface{}) error {
	enc.w.Uint32(uint32(len(meta)))
	for _, k := range sortedKeys(meta) {
		enc.w.String(k)
		if err := enc.tagged(reflect.ValueOf(meta[k])); err != nil {
			return err
		}
	}
	return nil
}

func (enc *encoder) unitBody(u *entity.UnitDef) error {
	enc.w.String(u.Name)
	enc.w.String(u.Version)
	return enc.queue.Enqueue(construct.Definition, func() error {
		enc.w.Uint32(uint32(len(u.Modules)))
		for _, m := range u.Modules {
			if err := enc.tagged(reflect.ValueOf(m)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (enc *encoder) moduleValue(v reflect.Value, m *entity.ModuleDef) error {
	if enc.e.policyFor(m.Name) == ByName {
		return enc.memoized(v, wire.ModuleRef, func() error {
			ref := entity.ModuleRef{Name: m.Name}
			if m.Unit != nil {
				ref.Unit = entity.UnitRef{Name: m.Unit.Name, Version: m.Unit.Version}
			}
			enc.moduleRef(ref)
			return nil
		})
	}
	return enc.memoized(v, wire.ModuleDef, func() error {
		enc.w.String(m.Name)
		return enc.queue.Enqueue(construct.Definition, func() error {
			enc.w.Uint32(uint32(len(m.Types)))
			for _, t := range m.Types {
				if err := enc.tagged(reflect.ValueOf(t)); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// entityValue decodes one tagged reflective value.
func (dec *decoder) entityValue(op wire.Op, memoID uint64, reserved bool) (interface{}, error) {
	switch op {
	case wire.TypeRef:
		shape := sig.ReadType(dec.r)
		if err := dec.checkStream(); err != nil {
			return nil, err
		}
		v, err := dec.resolveTypeShape(shape)
		if err != nil {
			return nil, err
		}
		if reserved {
			dec.memo.fill(memoID, v)
		}
		return v, nil

	case wire.TypeDef:
		return dec.typeDefValue(memoID, reserved)

	case wire.UnitDef:
		return dec.unitDefValue(memoID, reserved)

	case wire.ModuleDef:
		return dec.moduleDefValue(memoID, reserved)

	case wire.UnitRef:
		ref, err := dec.unitRef()
		if err != nil {
			return nil, err
		}
		var v interface{} = ref
		if dec.e.loader != nil {
			h, err := dec.e.loader.Unit(ref)
			if err != nil {
				return nil, &ResolutionError{Name: ref.Name, Err: err}
			}
			v = h
		}
		if reserved {
			dec.memo.fill(memoID, v)
		}
		return v, nil

	case wire.ModuleRef:
		ref, err := dec.moduleRef()
		if err != nil {
			return nil, err
		}
		var v interface{} = ref
		if dec.e.loader != nil {
			h, err := dec.e.loader.Module(ref)
			if err != nil {
				return nil, &ResolutionError{Name: ref.Name, Err: err}
			}
			v = h
		}
		if reserved {
			dec.memo.fill(memoID, v)
		}
		return v, nil

	case wire.FieldRef, wire.CtorRef, wire.MethodRef, wire.PropertyRef, wire.EventRef:
		ref, err := dec.memberRef()
		if err != nil {
			return nil, err
		}
		v, err := dec.resolveMember(ref)
		if err != nil {
			return nil, err
		}
		if reserved {
			dec.memo.fill(memoID, v)
		}
		return v, nil

	case wire.FieldDef:
		f, err := dec.readField()
		if err != nil {
			return nil, err
		}
		if reserved {
			dec.memo.fill(memoID, f)
		}
		return f, nil

	case wire.MethodDef, wire.CtorDef:
		m, err := dec.readMethod()
		if err != nil {
			return nil, err
		}
		if reserved {
			dec.memo.fill(memoID, m)
		}
		return m, nil

	case wire.PropertyDef:
		p, err := dec.readProperty()
		if err != nil {
			return nil, err
		}
		if reserved {
			dec.memo.fill(memoID, p)
		}
		return p, nil

	case wire.EventDef:
		e, err := dec.readEvent()
		if err != nil {
			return nil, err
		}
		if reserved {
			dec.memo.fill(memoID, e)
		}
		return e, nil

	case wire.TypeParam:
		idx := int(dec.r.Uint32())
		if err := dec.checkStream(); err != nil {
			return nil, err
		}
		return sig.TypeParam{Index: idx}, nil

	case wire.MethodParam:
		idx := int(dec.r.Uint32())
		if err := dec.checkStream(); err != nil {
			return nil, err
		}
		return sig.MethodParam{Index: idx}, nil
	}
	return nil, dec.format(wire.ErrUnknownOp)
}

// entityUntagged decodes the reflective model values whose static type
// elides the operation byte.
func (dec *decoder) entityUntagged(slot reflect.Value) error {
	switch slot.Interface().(type) {
	case entity.UnitRef:
		ref, err := dec.unitRef()
		if err != nil {
			return err
		}
		slot.Set(reflect.ValueOf(ref))
		return nil
	case entity.ModuleRef:
		ref, err := dec.moduleRef()
		if err != nil {
			return err
		}
		slot.Set(reflect.ValueOf(ref))
		return nil
	case entity.MemberRef:
		ref, err := dec.memberRef()
		if err != nil {
			return err
		}
		slot.Set(reflect.ValueOf(ref))
		return nil
	case sig.TypeParam:
		idx := int(dec.r.Uint32())
		if err := dec.checkStream(); err != nil {
			return err
		}
		slot.Set(reflect.ValueOf(sig.TypeParam{Index: idx}))
		return nil
	case sig.MethodParam:
		idx := int(dec.r.Uint32())
		if err := dec.checkStream(); err != nil {
			return err
		}
		slot.Set(reflect.ValueOf(sig.MethodParam{Index: idx}))
		return nil
	}
	return &ClassificationError{Type: slot.Type(), Reason: classify.ErrUnsupported}
}

func (dec *decoder) unitRef() (entity.UnitRef, error) {
	ref := entity.UnitRef{
		Name:    dec.r.String(),
		Version: dec.r.String(),
	}
	return ref, dec.checkStream()
}

func (dec *decoder) moduleRef() (entity.ModuleRef, error) {
	unit, err := dec.unitRef()
	if err != nil {
		return entity.ModuleRef{}, err
	}
	ref := entity.ModuleRef{Unit: unit, Name: dec.r.String()}
	return ref, dec.checkStream()
}

// resolveTypeShape turns a type reference into whatever the host knows the
// type as: a handle still under construction by this stream, a registered
// runtime type, or a loaded entity.
func (dec *decoder) resolveTypeShape(shape sig.Type) (interface{}, error) {
	if named, ok := shape.(sig.Named); ok {
		if c, found := dec.constructing[typeKey{named.Module, named.Name}]; found {
			if c.Sealed != nil {
				return c.Sealed, nil
			}
			return c.Provisional, nil
		}
	}
	if t, err := dec.e.resolveShape(shape); err == nil {
		return t, nil
	}
	if named, ok := shape.(sig.Named); ok && dec.e.loader != nil {
		h, err := dec.loadType(named)
		if err == nil {
			return h, nil
		}
	}
	return nil, &ResolutionError{Name: shape.String(), Err: entity.ErrNotFound}
}

func (dec *decoder) loadType(named sig.Named) (entity.Handle, error) {
	// Loaders may key types globally; a missing module handle is not
	// itself a failure.
	mh, _ := dec.e.loader.Module(entity.ModuleRef{Name: named.Module})
	return dec.e.loader.Type(mh, named.Name)
}

// typeDefValue decodes an embedded type definition. Only the identity is
// inline; the structure arrives in the Definition trailer and metadata in
// the Attribution trailer, read by the closures enqueued here. With a
// factory configured the value is a provisional handle sealed during
// completion; without one it is the definition model itself.
func (dec *decoder) typeDefValue(memoID uint64, reserved bool) (interface{}, error) {
	module := dec.r.String()
	qname := dec.r.String()
	if err := dec.checkStream(); err != nil {
		return nil, err
	}

	model := &entity.TypeDef{Name: qname}
	if module != "" {
		model.Module = &entity.ModuleDef{Name: module}
	}

	var result interface{} = model
	var h entity.Handle
	var c *construct.Constructing
	if dec.e.factory != nil {
		var err error
		h, err = dec.e.factory.DeclareType(nil, qname, nil)
		if err != nil {
			return nil, &ResolutionError{Name: qname, Err: err}
		}
		c = dec.arena.Declare(entity.KindType, qname, h)
		dec.constructing[typeKey{module, qname}] = c
		c.OnSeal(func() (entity.Handle, error) {
			return dec.e.factory.Seal(h)
		})
		result = h
	}
	if reserved {
		dec.memo.fill(memoID, result)
	}

	err := dec.queue.Enqueue(construct.Definition, func() error {
		if err := dec.readTypeDefinition(model); err != nil {
			return err
		}
		if c != nil {
			if err := dec.e.factory.DefineType(h, model, dec.resolverFor(c)); err != nil {
				return &ResolutionError{Name: qname, Err: err}
			}
			c.Defined = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = dec.queue.Enqueue(construct.Attribution, func() error {
		meta, err := dec.readAttribution()
		if err != nil {
			return err
		}
		model.Metadata = meta
		if c != nil {
			if err := dec.e.factory.Attribute(h, meta); err != nil {
				return &ResolutionError{Name: qname, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolverFor resolves shapes inside a definition being rebuilt. A shape
// naming another type of the same stream yields that type's possibly
// provisional handle and records the sealing dependency.
func (dec *decoder) resolverFor(c *construct.Constructing) entity.Resolver {
	return func(shape sig.Type) (entity.Handle, error) {
		named, ok := shape.(sig.Named)
		if !ok {
			return nil, nil
		}
		if oc, found := dec.constructing[typeKey{named.Module, named.Name}]; found {
			c.AddDep(oc)
			if oc.Sealed != nil {
				return oc.Sealed, nil
			}
			return oc.Provisional, nil
		}
		if dec.e.loader != nil {
			if h, err := dec.loadType(named); err == nil {
				return h, nil
			}
		}
		return nil, nil
	}
}

func (dec *decoder) readTypeDefinition(def *entity.TypeDef) error {
	def.Flags = entity.TypeFlags(dec.r.Uint32())
	def.EnumBase = sig.Code(dec.r.Uint8())

	if n := dec.r.Count(); n > 0 {
		def.GenericParams = make([]string, n)
		for i := range def.GenericParams {
			def.GenericParams[i] = dec.r.String()
		}
	}
	if dec.r.Bool() {
		def.Base = sig.ReadType(dec.r)
	}
	if n := dec.r.Count(); n > 0 {
		def.Interfaces = make([]sig.Type, n)
		for i := range def.Interfaces {
			def.Interfaces[i] = sig.ReadType(dec.r)
		}
	}
	if err := dec.checkStream(); err != nil {
		return err
	}

	nFields := int(dec.r.Count())
	for i := 0; i < nFields; i++ {
		f, err := dec.readField()
		if err != nil {
			return err
		}
		def.Fields = append(def.Fields, f)
	}
	nCtors := int(dec.r.Count())
	for i := 0; i < nCtors; i++ {
		m, err := dec.readMethod()
		if err != nil {
			return err
		}
		def.Ctors = append(def.Ctors, m)
	}
	nMethods := int(dec.r.Count())
	for i := 0; i < nMethods; i++ {
		m, err := dec.readMethod()
		if err != nil {
			return err
		}
		def.Methods = append(def.Methods, m)
	}

	nProps := int(dec.r.Count())
	for i := 0; i < nProps; i++ {
		p := &entity.PropertyDef{Name: dec.r.String()}
		p.Type = sig.ReadType(dec.r)
		if n := dec.r.Count(); n > 0 {
			p.Indexes = make([]sig.Type, n)
			for j := range p.Indexes {
				p.Indexes[j] = sig.ReadType(dec.r)
			}
		}
		var err error
		if p.Getter, err = dec.accessor(def); err != nil {
			return err
		}
		if p.Setter, err = dec.accessor(def); err != nil {
			return err
		}
		def.Properties = append(def.Properties, p)
	}
	nEvents := int(dec.r.Count())
	for i := 0; i < nEvents; i++ {
		e := &entity.EventDef{Name: dec.r.String()}
		e.Type = sig.ReadType(dec.r)
		var err error
		if e.Add, err = dec.accessor(def); err != nil {
			return err
		}
		if e.Remove, err = dec.accessor(def); err != nil {
			return err
		}
		def.Events = append(def.Events, e)
	}
	return dec.checkStream()
}

// accessor rebinds an accessor named by signature against the definition's
// method list.
func (dec *decoder) accessor(def *entity.TypeDef) (*entity.MethodDef, error) {
	if !dec.r.Bool() {
		return nil, dec.checkStream()
	}
	s := sig.ReadSignature(dec.r)
	if err := dec.checkStream(); err != nil {
		return nil, err
	}
	m := def.Method(s)
	if m == nil {
		return nil, &ResolutionError{Name: s.String(), Err: entity.ErrNotFound}
	}
	return m, nil
}

func (dec *decoder) readField() (*entity.FieldDef, error) {
	f := &entity.FieldDef{Name: dec.r.String()}
	f.Type = sig.ReadType(dec.r)
	f.Static = dec.r.Bool()
	return f, dec.checkStream()
}

func (dec *decoder) readMethod() (*entity.MethodDef, error) {
	m := &entity.MethodDef{}
	m.Sig = sig.ReadSignature(dec.r)
	m.Abstract = dec.r.Bool()
	n := int(dec.r.Wide())
	if err := dec.checkStream(); err != nil {
		return nil, err
	}
	if n > 0 {
		m.Body = make([]byte, n)
		dec.r.Data(m.Body)
	}
	nTokens := int(dec.r.Count())
	if err := dec.checkStream(); err != nil {
		return nil, err
	}
	for i := 0; i < nTokens; i++ {
		tok, err := dec.memberRef()
		if err != nil {
			return nil, err
		}
		m.Tokens = append(m.Tokens, tok)
	}
	return m, nil
}

func (dec *decoder) readProperty() (*entity.PropertyDef, error) {
	p := &entity.PropertyDef{Name: dec.r.String()}
	p.Type = sig.ReadType(dec.r)
	if n := dec.r.Count(); n > 0 {
		p.Indexes = make([]sig.Type, n)
		for i := range p.Indexes {
			p.Indexes[i] = sig.ReadType(dec.r)
		}
	}
	if err := dec.checkStream(); err != nil {
		return nil, err
	}
	var err error
	if p.Getter, err = dec.optionalMethod(); err != nil {
		return nil, err
	}
	if p.Setter, err = dec.optionalMethod(); err != nil {
		return nil, err
	}
	return p, nil
}

func (dec *decoder) readEvent() (*entity.EventDef, error) {
	e := &entity.EventDef{Name: dec.r.String()}
	e.Type = sig.ReadType(dec.r)
	if err := dec.checkStream(); err != nil {
		return nil, err
	}
	var err error
	if e.Add, err = dec.optionalMethod(); err != nil {
		return nil, err
	}
	if e.Remove, err = dec.optionalMethod(); err != nil {
		return nil, err
	}
	return e, nil
}

func (dec *decoder) optionalMethod() (*entity.MethodDef, error) {
	present := dec.r.Bool()
	if err := dec.checkStream(); err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return dec.readMethod()
}

func (dec *decoder) readAttribution() (map[string]interface{}, error) {
	n := int(dec.r.Count())
	if err := dec.checkStream(); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	meta := make(map[string]interface{}, n)
	for i := 0; i < n; i++ {
		key := dec.r.String()
		if err := dec.checkStream(); err != nil {
			return nil, err
		}
		v, err := dec.tagged()
		if err != nil {
			return nil, err
		}
		meta[key] = v
	}
	return meta, nil
}

// resolveMember turns a member reference into a live handle when the
// declaring type is known, or hands back the reference model.
func (dec *decoder) resolveMember(ref entity.MemberRef) (interface{}, error) {
	named, ok := ref.Declaring.(sig.Named)
	if !ok {
		return ref, nil
	}
	if c, found := dec.constructing[typeKey{named.Module, named.Name}]; found && dec.e.factory != nil {
		h := c.Sealed
		if h == nil {
			h = c.Provisional
		}
		mh, err := dec.e.factory.Member(h, ref)
		if err != nil {
			return nil, &ResolutionError{Name: named.Name, Err: err}
		}
		return mh, nil
	}
	if dec.e.loader != nil {
		if h, err := dec.loadType(named); err == nil {
			mh, err := dec.e.loader.Member(h, ref)
			if err != nil {
				return nil, &ResolutionError{Name: named.Name, Err: err}
			}
			return mh, nil
		}
	}
	return ref, nil
}

func (dec *decoder) unitDefValue(memoID uint64, reserved bool) (interface{}, error) {
	model := &entity.UnitDef{
		Name:    dec.r.String(),
		Version: dec.r.String(),
	}
	if err := dec.checkStream(); err != nil {
		return nil, err
	}

	var result interface{} = model
	var c *construct.Constructing
	if dec.e.factory != nil {
		h, err := dec.e.factory.DeclareUnit(model.Name, model.Version)
		if err != nil {
			return nil, &ResolutionError{Name: model.Name, Err: err}
		}
		c = dec.arena.Declare(entity.KindUnit, model.Name, h)
		c.OnSeal(func() (entity.Handle, error) {
			return dec.e.factory.Seal(h)
		})
		result = h
	}
	if reserved {
		dec.memo.fill(memoID, result)
	}

	err := dec.queue.Enqueue(construct.Definition, func() error {
		n := int(dec.r.Count())
		if err := dec.checkStream(); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			v, err := dec.tagged()
			if err != nil {
				return err
			}
			if m, ok := v.(*entity.ModuleDef); ok {
				m.Unit = model
				model.Modules = append(model.Modules, m)
			}
		}
		if c != nil {
			c.Defined = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (dec *decoder) moduleDefValue(memoID uint64, reserved bool) (interface{}, error) {
	model := &entity.ModuleDef{Name: dec.r.String()}
	if err := dec.checkStream(); err != nil {
		return nil, err
	}

	var result interface{} = model
	var c *construct.Constructing
	if dec.e.factory != nil {
		h, err := dec.e.factory.DeclareModule(nil, model.Name)
		if err != nil {
			return nil, &ResolutionError{Name: model.Name, Err: err}
		}
		c = dec.arena.Declare(entity.KindModule, model.Name, h)
		c.OnSeal(func() (entity.Handle, error) {
			return dec.e.factory.Seal(h)
		})
		result = h
	}
	if reserved {
		dec.memo.fill(memoID, result)
	}

	err := dec.queue.Enqueue(construct.Definition, func() error {
		n := int(dec.r.Count())
		if err := dec.checkStream(); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			v, err := dec.tagged()
			if err != nil {
				return err
			}
			if t, ok := v.(*entity.TypeDef); ok {
				t.Module = model
				model.Types = append(model.Types, t)
			}
		}
		if c != nil {
			c.Defined = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
