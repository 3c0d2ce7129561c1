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
	"unsafe"

	"github.com/graphwire/graphwire/core/data/pod"
	"github.com/graphwire/graphwire/framework/classify"
	"github.com/graphwire/graphwire/framework/construct"
	"github.com/graphwire/graphwire/framework/entity"
	"github.com/graphwire/graphwire/framework/sig"
	"github.com/graphwire/graphwire/framework/wire"
)

// declaredField is one entry of a stream's field list for a type.
type declaredField struct {
	name  string
	shape sig.Type
}

// typeKey is the full stream identity of a constructing type. Two modules
// may each define a type of the same name.
type typeKey struct {
	module, name string
}

// decoder holds the call-scoped state of one Deserialize.
type decoder struct {
	e            *Engine
	r            pod.Reader
	memo         *decMemo
	queue        *construct.Queue
	arena        *construct.Arena
	constructing map[typeKey]*construct.Constructing
	described    map[reflect.Type][]declaredField
}

func newDecoder(e *Engine, r pod.Reader) *decoder {
	return &decoder{
		e:            e,
		r:            r,
		memo:         newDecMemo(),
		queue:        construct.NewQueue(),
		arena:        construct.NewArena(),
		constructing: map[typeKey]*construct.Constructing{},
		described:    map[reflect.Type][]declaredField{},
	}
}

// format wraps a stream-level failure with the position reading stopped at.
func (dec *decoder) format(err error) error {
	return &FormatError{Offset: dec.r.Offset(), Err: err}
}

// checkStream surfaces the reader's sticky error as a FormatError.
func (dec *decoder) checkStream() error {
	if err := dec.r.Error(); err != nil {
		return dec.format(err)
	}
	return nil
}

// valueInto decodes one slot. The static type decides whether an operation
// byte is present, with the same rule the encoder used.
func (dec *decoder) valueInto(slot reflect.Value, static reflect.Type) error {
	if wire.Inferable(static) {
		return dec.untaggedInto(slot)
	}
	value, err := dec.tagged()
	if err != nil {
		return err
	}
	return assign(slot, value)
}

func assign(slot reflect.Value, value interface{}) error {
	if value == nil {
		slot.Set(reflect.Zero(slot.Type()))
		return nil
	}
	rv := reflect.ValueOf(value)
	if !rv.Type().AssignableTo(slot.Type()) {
		return &ResolutionError{Name: slot.Type().String(), Err: ErrSlotMismatch}
	}
	slot.Set(rv)
	return nil
}

// tagged decodes one tagged value.
func (dec *decoder) tagged() (interface{}, error) {
	op, transient := wire.ReadOp(dec.r)
	if err := dec.checkStream(); err != nil {
		return nil, err
	}

	// Reservation order mirrors the encoder exactly: one slot per
	// non-transient memoizable operation, reserved before its payload.
	memoID := uint64(0)
	reserved := false
	if op.Memoizes() && !transient {
		memoID = dec.memo.reserve()
		reserved = true
	}

	switch op {
	case wire.Nil:
		return nil, nil

	case wire.Ref:
		id := dec.r.Uint64()
		if err := dec.checkStream(); err != nil {
			return nil, err
		}
		return dec.memo.lookup(id)

	case wire.Bool, wire.Int8, wire.Int16, wire.Int32, wire.Int64, wire.Int,
		wire.Uint8, wire.Uint16, wire.Uint32, wire.Uint64, wire.Uint,
		wire.Uintptr, wire.Float32, wire.Float64, wire.Complex64,
		wire.Complex128, wire.String:
		return dec.scalarOf(op)

	case wire.Slice:
		t, err := dec.readShapeType()
		if err != nil {
			return nil, err
		}
		if t.Kind() != reflect.Slice {
			return nil, &ResolutionError{Name: t.String(), Err: ErrSlotMismatch}
		}
		n := int(dec.r.Wide())
		if err := dec.checkStream(); err != nil {
			return nil, err
		}
		s := reflect.MakeSlice(t, n, n)
		if reserved {
			dec.memo.fill(memoID, s.Interface())
		}
		if err := dec.sequenceInto(s, n); err != nil {
			return nil, err
		}
		return s.Interface(), nil

	case wire.Array:
		t, err := dec.readShapeType()
		if err != nil {
			return nil, err
		}
		if t.Kind() != reflect.Array {
			return nil, &ResolutionError{Name: t.String(), Err: ErrSlotMismatch}
		}
		av := reflect.New(t).Elem()
		if err := dec.sequenceInto(av, t.Len()); err != nil {
			return nil, err
		}
		return av.Interface(), nil

	case wire.Enum:
		t, err := dec.readShapeType()
		if err != nil {
			return nil, err
		}
		ev := reflect.New(t).Elem()
		dec.scalarInto(ev)
		if err := dec.checkStream(); err != nil {
			return nil, err
		}
		return ev.Interface(), nil

	case wire.Tuple:
		n := dec.r.Count()
		if err := dec.checkStream(); err != nil {
			return nil, err
		}
		tup := make(Tuple, n)
		if reserved {
			dec.memo.fill(memoID, tup)
		}
		for i := range tup {
			el, err := dec.tagged()
			if err != nil {
				return nil, err
			}
			tup[i] = el
		}
		return tup, nil

	case wire.Delegate:
		return dec.delegateBody()

	case wire.Reduced:
		t, err := dec.readShapeType()
		if err != nil {
			return nil, err
		}
		result, err := dec.reducedBody(t)
		if err != nil {
			return nil, err
		}
		if reserved {
			dec.memo.fill(memoID, result)
		}
		return result, nil

	case wire.Custom:
		t, err := dec.readShapeType()
		if err != nil {
			return nil, err
		}
		return dec.customValue(t, memoID, reserved)

	case wire.Auto:
		t, err := dec.readShapeType()
		if err != nil {
			return nil, err
		}
		return dec.autoValue(t, memoID, reserved)

	default:
		return dec.entityValue(op, memoID, reserved)
	}
}

// untaggedInto decodes a slot whose static type elides the operation byte.
func (dec *decoder) untaggedInto(slot reflect.Value) error {
	t := slot.Type()
	info := dec.e.classifier.Of(t)
	if err := info.Err(); err != nil {
		return &ClassificationError{Type: t, Reason: err}
	}
	switch info.Mode {
	case classify.Builtin:
		dec.scalarInto(slot)
		return dec.checkStream()
	case classify.Enum:
		dec.scalarInto(slot)
		return dec.checkStream()
	case classify.Sequence:
		return dec.sequenceInto(slot, t.Len())
	case classify.Auto:
		return dec.autoInto(slot)
	case classify.Reduced:
		result, err := dec.reducedBody(t)
		if err != nil {
			return err
		}
		return assign(slot, result)
	case classify.Custom:
		return dec.customInto(slot.Addr())
	case classify.Delegate:
		d, err := dec.delegateBody()
		if err != nil {
			return err
		}
		return assign(slot, d)
	case classify.Entity:
		return dec.entityUntagged(slot)
	}
	return &ClassificationError{Type: t, Reason: classify.ErrUnsupported}
}

// readShapeType reads a structural shape and resolves it to a runtime
// type.
func (dec *decoder) readShapeType() (reflect.Type, error) {
	shape := sig.ReadType(dec.r)
	if err := dec.checkStream(); err != nil {
		return nil, err
	}
	return dec.e.resolveShape(shape)
}

func (dec *decoder) scalarOf(op wire.Op) (interface{}, error) {
	var v interface{}
	switch op {
	case wire.Bool:
		v = dec.r.Bool()
	case wire.Int8:
		v = dec.r.Int8()
	case wire.Int16:
		v = dec.r.Int16()
	case wire.Int32:
		v = dec.r.Int32()
	case wire.Int64:
		v = dec.r.Int64()
	case wire.Int:
		v = int(dec.r.Int64())
	case wire.Uint8:
		v = dec.r.Uint8()
	case wire.Uint16:
		v = dec.r.Uint16()
	case wire.Uint32:
		v = dec.r.Uint32()
	case wire.Uint64:
		v = dec.r.Uint64()
	case wire.Uint:
		v = uint(dec.r.Uint64())
	case wire.Uintptr:
		v = uintptr(dec.r.Uint64())
	case wire.Float32:
		v = dec.r.Float32()
	case wire.Float64:
		v = dec.r.Float64()
	case wire.Complex64:
		v = dec.r.Complex64()
	case wire.Complex128:
		v = dec.r.Complex128()
	case wire.String:
		v = dec.r.String()
	}
	if err := dec.checkStream(); err != nil {
		return nil, err
	}
	return v, nil
}

func (dec *decoder) scalarInto(slot reflect.Value) {
	switch slot.Kind() {
	case reflect.Bool:
		slot.SetBool(dec.r.Bool())
	case reflect.Int8:
		slot.SetInt(int64(dec.r.Int8()))
	case reflect.Int16:
		slot.SetInt(int64(dec.r.Int16()))
	case reflect.Int32:
		slot.SetInt(int64(dec.r.Int32()))
	case reflect.Int, reflect.Int64:
		slot.SetInt(dec.r.Int64())
	case reflect.Uint8:
		slot.SetUint(uint64(dec.r.Uint8()))
	case reflect.Uint16:
		slot.SetUint(uint64(dec.r.Uint16()))
	case reflect.Uint32:
		slot.SetUint(uint64(dec.r.Uint32()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		slot.SetUint(dec.r.Uint64())
	case reflect.Float32:
		slot.SetFloat(float64(dec.r.Float32()))
	case reflect.Float64:
		slot.SetFloat(dec.r.Float64())
	case reflect.Complex64:
		slot.SetComplex(complex128(dec.r.Complex64()))
	case reflect.Complex128:
		slot.SetComplex(dec.r.Complex128())
	case reflect.String:
		slot.SetString(dec.r.String())
	}
}

// sequenceInto fills a slice or array value of known length.
func (dec *decoder) sequenceInto(seq reflect.Value, n int) error {
	elem := seq.Type().Elem()
	if blockable(elem) {
		if n > 0 {
			size := int(elem.Size())
			var data unsafe.Pointer
			if seq.Kind() == reflect.Slice {
				data = seq.UnsafePointer()
			} else {
				data = seq.Addr().UnsafePointer()
			}
			dec.r.Data(unsafe.Slice((*byte)(data), n*size))
		}
		return dec.checkStream()
	}
	for i := 0; i < n; i++ {
		if err := dec.valueInto(seq.Index(i), elem); err != nil {
			return err
		}
	}
	return nil
}

func (dec *decoder) autoValue(t reflect.Type, memoID uint64, reserved bool) (interface{}, error) {
	if t.Kind() == reflect.Pointer {
		if t.Elem().Kind() != reflect.Struct {
			return nil, &ResolutionError{Name: t.String(), Err: ErrSlotMismatch}
		}
		pv := reflect.New(t.Elem())
		if reserved {
			dec.memo.fill(memoID, pv.Interface())
		}
		if err := dec.autoInto(pv.Elem()); err != nil {
			return nil, err
		}
		return pv.Interface(), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, &ResolutionError{Name: t.String(), Err: ErrSlotMismatch}
	}
	sv := reflect.New(t).Elem()
	if err := dec.autoInto(sv); err != nil {
		return nil, err
	}
	return sv.Interface(), nil
}

// autoInto decodes an object's fields into sv. The first payload for a
// type in a stream carries the field list; later payloads reuse it. A
// field list that does not line up with the local type is drained in full
// to keep the stream aligned, then reported.
func (dec *decoder) autoInto(sv reflect.Value) error {
	t := sv.Type()
	declared, seen := dec.described[t]
	if !seen {
		n := dec.r.Count()
		if err := dec.checkStream(); err != nil {
			return err
		}
		declared = make([]declaredField, n)
		for i := range declared {
			declared[i].name = dec.r.String()
			declared[i].shape = sig.ReadType(dec.r)
		}
		if err := dec.checkStream(); err != nil {
			return err
		}
		dec.described[t] = declared
	}

	info := dec.e.classifier.Of(t)
	if err := info.Err(); err != nil {
		return &ClassificationError{Type: t, Reason: err}
	}
	local := map[string]classify.Field{}
	for _, f := range info.Fields {
		local[f.Name] = f
	}

	mismatch := false
	for _, df := range declared {
		ft, err := dec.e.resolveShape(df.shape)
		if err != nil {
			return err
		}
		if f, found := local[df.name]; found && f.Type == ft {
			if err := dec.valueInto(sv.Field(f.Index), ft); err != nil {
				return err
			}
			delete(local, df.name)
			continue
		}
		scratch := reflect.New(ft).Elem()
		if err := dec.valueInto(scratch, ft); err != nil {
			return err
		}
		mismatch = true
	}
	if mismatch || len(local) != 0 {
		return &ResolutionError{Name: t.String(), Err: ErrFieldMismatch}
	}
	return nil
}

func (dec *decoder) reducedBody(t reflect.Type) (interface{}, error) {
	name := dec.r.String()
	hasTarget := dec.r.Bool()
	if err := dec.checkStream(); err != nil {
		return nil, err
	}
	var target interface{}
	if hasTarget {
		var err error
		if target, err = dec.tagged(); err != nil {
			return nil, err
		}
	}
	n := dec.r.Count()
	if err := dec.checkStream(); err != nil {
		return nil, err
	}
	args := make([]interface{}, n)
	for i := range args {
		var err error
		if args[i], err = dec.tagged(); err != nil {
			return nil, err
		}
	}

	rb, err := dec.e.reducers.Rebuilder(name)
	if err != nil {
		return nil, &ReducerContractError{Rebuilder: name, Err: err}
	}
	if err := rb.CheckTarget(target); err != nil {
		return nil, &ReducerContractError{Rebuilder: name, Err: err}
	}
	result, err := rb.Fn(t, target, args)
	if err != nil {
		return nil, &ReducerContractError{Rebuilder: name, Err: err}
	}
	if reflect.TypeOf(result) != t {
		return nil, &ReducerContractError{
			Rebuilder: name,
			Err:       &ResolutionError{Name: t.String(), Err: ErrSlotMismatch},
		}
	}
	return result, nil
}

func (dec *decoder) customValue(t reflect.Type, memoID uint64, reserved bool) (interface{}, error) {
	if t.Kind() == reflect.Pointer {
		pv := reflect.New(t.Elem())
		if reserved {
			dec.memo.fill(memoID, pv.Interface())
		}
		if err := dec.customInto(pv); err != nil {
			return nil, err
		}
		return pv.Interface(), nil
	}
	pv := reflect.New(t)
	if err := dec.customInto(pv); err != nil {
		return nil, err
	}
	return pv.Elem().Interface(), nil
}

// customInto restores a Custom value through a pointer to it.
func (dec *decoder) customInto(pv reflect.Value) error {
	n := dec.r.Count()
	if err := dec.checkStream(); err != nil {
		return err
	}
	names := make([]string, n)
	values := make([]interface{}, n)
	for i := range names {
		names[i] = dec.r.String()
		if err := dec.checkStream(); err != nil {
			return err
		}
		var err error
		if values[i], err = dec.tagged(); err != nil {
			return err
		}
	}
	c, ok := pv.Interface().(Custom)
	if !ok {
		return &ResolutionError{Name: pv.Type().String(), Err: ErrSlotMismatch}
	}
	if err := c.RestoreFields(names, values); err != nil {
		return &ResolutionError{Name: pv.Type().String(), Err: err}
	}
	return nil
}

func (dec *decoder) delegateBody() (entity.Delegate, error) {
	shape := sig.ReadType(dec.r)
	n := dec.r.Count()
	if err := dec.checkStream(); err != nil {
		return entity.Delegate{}, err
	}
	invs := make([]entity.Invocation, n)
	for i := range invs {
		target, err := dec.tagged()
		if err != nil {
			return entity.Delegate{}, err
		}
		ref, err := dec.memberRef()
		if err != nil {
			return entity.Delegate{}, err
		}
		invs[i] = entity.Invocation{Target: target, Method: ref}
	}
	return entity.Delegate{Type: shape, Invocations: invs}, nil
}

func (dec *decoder) memberRef() (entity.MemberRef, error) {
	ref := entity.MemberRef{Kind: entity.Kind(dec.r.Uint8())}
	if dec.r.Bool() {
		ref.Declaring = sig.ReadType(dec.r)
	}
	ref.Sig = sig.ReadSignature(dec.r)
	if err := dec.checkStream(); err != nil {
		return entity.MemberRef{}, err
	}
	return ref, nil
}
