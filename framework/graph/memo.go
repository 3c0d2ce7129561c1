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

	"github.com/graphwire/graphwire/framework/entity"
)

// memoKey is the identity of an encoded instance: the address of its
// backing data, the length for slices (two slices may share a data pointer
// with different lengths), and the type (a struct and its first field
// share an address).
type memoKey struct {
	ptr uintptr
	len int
	t   reflect.Type
}

func keyOf(v reflect.Value) (memoKey, bool) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map:
		return memoKey{ptr: v.Pointer(), t: v.Type()}, true
	case reflect.Slice:
		return memoKey{ptr: v.Pointer(), len: v.Len(), t: v.Type()}, true
	}
	return memoKey{}, false
}

// encMemo assigns sequential ids to instances on the encoding side. An id
// is reserved at the stream position of the instance's op, before any of
// its payload, which is what lets a cycle hit the reservation.
type encMemo struct {
	ids     map[memoKey]uint64
	lastPos uint64
	primed  bool
}

func newEncMemo() *encMemo {
	return &encMemo{ids: map[memoKey]uint64{}}
}

// lookup returns the id of an already-reserved instance.
func (m *encMemo) lookup(key memoKey) (uint64, bool) {
	id, found := m.ids[key]
	return id, found
}

// reserve assigns the next id to the instance at the given stream
// position. Positions must strictly increase: two reservations at one
// position mean an op was never written between them.
func (m *encMemo) reserve(key memoKey, pos uint64) (uint64, error) {
	if m.primed && pos <= m.lastPos {
		return 0, fmt.Errorf("graph: memo reservation at position %d does not advance past %d", pos, m.lastPos)
	}
	if _, found := m.ids[key]; found {
		return 0, fmt.Errorf("graph: instance reserved twice")
	}
	id := uint64(len(m.ids))
	m.ids[key] = id
	m.lastPos = pos
	m.primed = true
	return id, nil
}

// decSlot is one decoded instance. Reserved when its op is read, filled as
// soon as the instance exists. A provisional entity handle fills its slot
// at declaration, so forward references to entities always resolve.
type decSlot struct {
	value  interface{}
	filled bool
}

// decMemo mirrors encMemo on the decoding side: ids are implicit in
// reservation order.
type decMemo struct {
	slots []decSlot
}

func newDecMemo() *decMemo {
	return &decMemo{}
}

// reserve appends an unfilled slot and returns its id.
func (m *decMemo) reserve() uint64 {
	m.slots = append(m.slots, decSlot{})
	return uint64(len(m.slots) - 1)
}

// fill sets the slot's value. Filling early, before an instance's payload
// is decoded, is how cycles tie back.
func (m *decMemo) fill(id uint64, v interface{}) {
	m.slots[id].value = v
	m.slots[id].filled = true
}

// lookup resolves a back-reference. A reference to an unfilled slot is
// only legal when the slot holds nothing yet because its value is still
// being rebuilt, which is an error for everything except entities (whose
// provisional handles fill eagerly).
func (m *decMemo) lookup(id uint64) (interface{}, error) {
	if id >= uint64(len(m.slots)) {
		return nil, fmt.Errorf("%w: id %d of %d", ErrUnfilledSlot, id, len(m.slots))
	}
	s := m.slots[id]
	if !s.filled {
		return nil, fmt.Errorf("%w: id %d", ErrSelfReduction, id)
	}
	return s.value, nil
}

// handle returns the slot's value as an entity handle if it is one.
func (m *decMemo) handle(id uint64) (entity.Handle, bool) {
	if id >= uint64(len(m.slots)) {
		return nil, false
	}
	h, ok := m.slots[id].value.(entity.Handle)
	return h, ok
}
