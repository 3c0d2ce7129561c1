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
	"fmt"
	"reflect"
	"sort"
	"unsafe"

	"github.com/graphwire/graphwire/core/data/pod"
	"github.com/graphwire/graphwire/framework/classify"
	"github.com/graphwire/graphwire/framework/construct"
	"github.com/graphwire/graphwire/framework/entity"
	"github.com/graphwire/graphwire/framework/sig"
	"github.com/graphwire/graphwire/framework/wire"
)

// encoder holds the call-scoped state of one Serialize: the memo table,
// the trailer queue and the set of types whose field lists were already
// written to this stream.
type encoder struct {
	e         *Engine
	w         pod.Writer
	memo      *encMemo
	queue     *construct.Queue
	described map[reflect.Type]bool
}

func newEncoder(e *Engine, w pod.Writer) *encoder {
	return &encoder{
		e:         e,
		w:         w,
		memo:      newEncMemo(),
		queue:     construct.NewQueue(),
		described: map[reflect.Type]bool{},
	}
}

// value encodes one slot. Slots whose static type has a value kind elide
// the operation byte; everything else is tagged.
func (enc *encoder) value(v reflect.Value, static reflect.Type) error {
	if wire.Inferable(static) {
		return enc.untagged(v)
	}
	return enc.tagged(v)
}

// memoized writes either a back-reference or a reservation followed by the
// operation and its payload. Values with no stable identity are written
// transient.
func (enc *encoder) memoized(v reflect.Value, op wire.Op, payload func() error) error {
	key, hasIdentity := keyOf(v)
	if !hasIdentity {
		wire.WriteOp(enc.w, op, true)
		return payload()
	}
	if id, found := enc.memo.lookup(key); found {
		wire.WriteOp(enc.w, wire.Ref, false)
		enc.w.Uint64(id)
		return nil
	}
	if _, err := enc.memo.reserve(key, enc.w.Offset()); err != nil {
		return err
	}
	wire.WriteOp(enc.w, op, false)
	return payload()
}

func (enc *encoder) tagged(v reflect.Value) error {
	if !v.IsValid() {
		wire.WriteOp(enc.w, wire.Nil, false)
		return nil
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			wire.WriteOp(enc.w, wire.Nil, false)
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			wire.WriteOp(enc.w, wire.Nil, false)
			return nil
		}
	}

	t := v.Type()
	info := enc.e.classifier.Of(t)
	if err := info.Err(); err != nil {
		return &ClassificationError{Type: t, Reason: err}
	}

	switch info.Mode {
	case classify.Builtin:
		op, _ := wire.ScalarOp(t.Kind())
		wire.WriteOp(enc.w, op, false)
		enc.scalar(v)
		return nil

	case classify.Enum:
		wire.WriteOp(enc.w, wire.Enum, false)
		if err := enc.shape(t); err != nil {
			return err
		}
		enc.scalar(v)
		return nil

	case classify.Sequence:
		if t.Kind() == reflect.Slice {
			return enc.memoized(v, wire.Slice, func() error {
				if err := enc.shape(t); err != nil {
					return err
				}
				return enc.sliceBody(v)
			})
		}
		wire.WriteOp(enc.w, wire.Array, true)
		if err := enc.shape(t); err != nil {
			return err
		}
		return enc.arrayBody(v)

	case classify.Pointer:
		if err := enc.pointable(info); err != nil {
			return err
		}
		return enc.memoized(v, wire.Auto, func() error {
			if err := enc.shape(t); err != nil {
				return err
			}
			return enc.autoBody(v.Elem())
		})

	case classify.Auto:
		wire.WriteOp(enc.w, wire.Auto, true)
		if err := enc.shape(t); err != nil {
			return err
		}
		return enc.autoBody(v)

	case classify.Tuple:
		return enc.memoized(v, wire.Tuple, func() error {
			tup := v.Interface().(Tuple)
			enc.w.Uint32(uint32(len(tup)))
			for _, el := range tup {
				if err := enc.tagged(reflect.ValueOf(el)); err != nil {
					return err
				}
			}
			return nil
		})

	case classify.Delegate:
		wire.WriteOp(enc.w, wire.Delegate, true)
		return enc.delegateBody(v.Interface().(entity.Delegate))

	case classify.Reduced:
		return enc.memoized(v, wire.Reduced, func() error {
			if err := enc.shape(t); err != nil {
				return err
			}
			return enc.reducedBody(t, v, info)
		})

	case classify.Custom:
		return enc.memoized(v, wire.Custom, func() error {
			if err := enc.shape(t); err != nil {
				return err
			}
			return enc.customBody(v)
		})

	case classify.Entity:
		return enc.entity(v)
	}
	return &ClassificationError{Type: t, Reason: classify.ErrUnsupported}
}

// untagged encodes a slot whose type both directions know statically.
func (enc *encoder) untagged(v reflect.Value) error {
	t := v.Type()
	info := enc.e.classifier.Of(t)
	if err := info.Err(); err != nil {
		return &ClassificationError{Type: t, Reason: err}
	}
	switch info.Mode {
	case classify.Builtin:
		enc.scalar(v)
		return nil
	case classify.Enum:
		enc.scalar(v)
		return nil
	case classify.Sequence:
		return enc.arrayBody(v)
	case classify.Auto:
		return enc.autoBody(v)
	case classify.Reduced:
		return enc.reducedBody(t, v, info)
	case classify.Custom:
		return enc.customBody(v)
	case classify.Delegate:
		return enc.delegateBody(v.Interface().(entity.Delegate))
	case classify.Entity:
		return enc.entityUntagged(v)
	}
	return &ClassificationError{Type: t, Reason: classify.ErrUnsupported}
}

// pointable restricts the pointer form to plain structs: structs with
// their own strategy (reducers, custom hooks) have no pointer identity on
// the decode side to hang the memo slot on.
func (enc *encoder) pointable(info *classify.Info) error {
	if info.Elem != nil && info.Elem.Mode == classify.Auto {
		return nil
	}
	return &ClassificationError{Type: info.Type, Reason: classify.ErrPointerElem}
}

func (enc *encoder) shape(t reflect.Type) error {
	s, err := enc.e.shapeOf(t)
	if err != nil {
		return &ClassificationError{Type: t, Reason: err}
	}
	sig.WriteType(enc.w, s)
	return nil
}

func (enc *encoder) scalar(v reflect.Value) {
	switch v.Kind() {
	case reflect.Bool:
		enc.w.Bool(v.Bool())
	case reflect.Int8:
		enc.w.Int8(int8(v.Int()))
	case reflect.Int16:
		enc.w.Int16(int16(v.Int()))
	case reflect.Int32:
		enc.w.Int32(int32(v.Int()))
	case reflect.Int, reflect.Int64:
		enc.w.Int64(v.Int())
	case reflect.Uint8:
		enc.w.Uint8(uint8(v.Uint()))
	case reflect.Uint16:
		enc.w.Uint16(uint16(v.Uint()))
	case reflect.Uint32:
		enc.w.Uint32(uint32(v.Uint()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		enc.w.Uint64(v.Uint())
	case reflect.Float32:
		enc.w.Float32(float32(v.Float()))
	case reflect.Float64:
		enc.w.Float64(v.Float())
	case reflect.Complex64:
		enc.w.Complex64(complex64(v.Complex()))
	case reflect.Complex128:
		enc.w.Complex128(v.Complex())
	case reflect.String:
		enc.w.String(v.String())
	}
}

func (enc *encoder) sliceBody(v reflect.Value) error {
	t := v.Type()
	n := v.Len()
	enc.w.Wide(uint64(n))
	if blockable(t.Elem()) {
		if n > 0 {
			size := int(t.Elem().Size())
			enc.w.Data(unsafe.Slice((*byte)(v.UnsafePointer()), n*size))
		}
		return nil
	}
	for i := 0; i < n; i++ {
		if err := enc.value(v.Index(i), t.Elem()); err != nil {
			return err
		}
	}
	return nil
}

func (enc *encoder) arrayBody(v reflect.Value) error {
	t := v.Type()
	if blockable(t.Elem()) && t.Len() > 0 {
		if !v.CanAddr() {
			tmp := reflect.New(t).Elem()
			tmp.Set(v)
			v = tmp
		}
		size := int(t.Elem().Size())
		enc.w.Data(unsafe.Slice((*byte)(v.Addr().UnsafePointer()), t.Len()*size))
		return nil
	}
	for i := 0; i < t.Len(); i++ {
		if err := enc.value(v.Index(i), t.Elem()); err != nil {
			return err
		}
	}
	return nil
}

func (enc *encoder) autoBody(v reflect.Value) error {
	t := v.Type()
	info := enc.e.classifier.Of(t)
	if err := info.Err(); err != nil {
		return &ClassificationError{Type: t, Reason: err}
	}
	if !enc.described[t] {
		enc.described[t] = true
		enc.w.Uint32(uint32(len(info.Fields)))
		for _, f := range info.Fields {
			enc.w.String(f.Name)
			if err := enc.shape(f.Type); err != nil {
				return err
			}
		}
	}
	for _, f := range info.Fields {
		if err := enc.value(v.Field(f.Index), f.Type); err != nil {
			return err
		}
	}
	return nil
}

func (enc *encoder) reducedBody(t reflect.Type, v reflect.Value, info *classify.Info) error {
	red, err := info.Reducer.Reduce(t, v)
	if err != nil {
		return &ReducerContractError{Rebuilder: red.Rebuilder, Err: err}
	}
	rb, err := enc.e.reducers.Rebuilder(red.Rebuilder)
	if err != nil {
		return &ReducerContractError{Rebuilder: red.Rebuilder, Err: err}
	}
	if err := rb.CheckTarget(red.Target); err != nil {
		return &ReducerContractError{Rebuilder: red.Rebuilder, Err: err}
	}
	enc.w.String(red.Rebuilder)
	if red.Target != nil {
		enc.w.Bool(true)
		if err := enc.tagged(reflect.ValueOf(red.Target)); err != nil {
			return err
		}
	} else {
		enc.w.Bool(false)
	}
	enc.w.Uint32(uint32(len(red.Args)))
	for _, a := range red.Args {
		if err := enc.tagged(reflect.ValueOf(a)); err != nil {
			return err
		}
	}
	return nil
}

func (enc *encoder) customBody(v reflect.Value) error {
	c := v.Interface().(Custom)
	names, values := c.CollectFields()
	if len(names) != len(values) {
		return &ClassificationError{
			Type:   v.Type(),
			Reason: fmt.Errorf("CollectFields returned %d names for %d values", len(names), len(values)),
		}
	}
	enc.w.Uint32(uint32(len(names)))
	for i := range names {
		enc.w.String(names[i])
		if err := enc.tagged(reflect.ValueOf(values[i])); err != nil {
			return err
		}
	}
	return nil
}

func (enc *encoder) delegateBody(d entity.Delegate) error {
	sig.WriteType(enc.w, d.Type)
	enc.w.Uint32(uint32(len(d.Invocations)))
	for _, inv := range d.Invocations {
		if err := enc.tagged(reflect.ValueOf(inv.Target)); err != nil {
			return err
		}
		enc.memberRef(inv.Method)
	}
	return nil
}

func (enc *encoder) memberRef(ref entity.MemberRef) {
	enc.w.Uint8(uint8(ref.Kind))
	if ref.Declaring != nil {
		enc.w.Bool(true)
		sig.WriteType(enc.w, ref.Declaring)
	} else {
		enc.w.Bool(false)
	}
	sig.WriteSignature(enc.w, ref.Sig)
}

// sortedKeys orders metadata deterministically.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
