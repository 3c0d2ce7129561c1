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

package wire_test

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphwire/graphwire/core/data/vle"
	"github.com/graphwire/graphwire/framework/wire"
)

func TestOpRoundTrip(t *testing.T) {
	for _, test := range []struct {
		op        wire.Op
		transient bool
	}{
		{wire.Nil, false},
		{wire.Bool, false},
		{wire.String, false},
		{wire.Auto, false},
		{wire.Auto, true},
		{wire.TypeDef, false},
		{wire.TypeDef, true},
		{wire.MethodParam, false},
	} {
		b := &bytes.Buffer{}
		w := vle.Writer(b)
		wire.WriteOp(w, test.op, test.transient)
		require.NoError(t, w.Error())

		r := vle.Reader(b)
		op, transient := wire.ReadOp(r)
		require.NoError(t, r.Error())
		assert.Equal(t, test.op, op)
		assert.Equal(t, test.transient, transient)
	}
}

func TestOpTransientOnlyWhenMemoizable(t *testing.T) {
	// The transient bit on a scalar op never appears on the wire.
	b := &bytes.Buffer{}
	w := vle.Writer(b)
	wire.WriteOp(w, wire.Bool, true)
	assert.Equal(t, []byte{uint8(wire.Bool)}, b.Bytes())

	// But a stream carrying one is rejected.
	r := vle.Reader(bytes.NewReader([]byte{uint8(wire.Bool) | wire.Transient}))
	wire.ReadOp(r)
	assert.Equal(t, wire.ErrUnknownOp, r.Error())
}

func TestUnknownOp(t *testing.T) {
	r := vle.Reader(bytes.NewReader([]byte{0x7f}))
	wire.ReadOp(r)
	assert.Equal(t, wire.ErrUnknownOp, r.Error())
}

func TestHeaderRoundTrip(t *testing.T) {
	b := &bytes.Buffer{}
	w := vle.Writer(b)
	wire.WriteHeader(w, wire.RuntimeVersion{Major: 1, Minor: 21})
	require.NoError(t, w.Error())

	r := vle.Reader(b)
	h := wire.ReadHeader(r)
	require.NoError(t, r.Error())
	assert.Equal(t, uint32(wire.VersionMajor), h.Major)
	assert.Equal(t, uint32(wire.VersionMinor), h.Minor)
	assert.Equal(t, wire.RuntimeVersion{Major: 1, Minor: 21}, h.Runtime)
}

func TestHeaderBadMagic(t *testing.T) {
	r := vle.Reader(bytes.NewReader([]byte{'n', 'o', 'p', 'e', 0, 0, 0, 0}))
	wire.ReadHeader(r)
	assert.Equal(t, wire.ErrBadMagic, r.Error())
}

func TestHeaderBadMajor(t *testing.T) {
	b := &bytes.Buffer{}
	w := vle.Writer(b)
	w.Data([]byte("gwf1"))
	w.Uint32(99)
	w.Uint32(0)
	w.Uint32(1)
	w.Uint32(21)
	require.NoError(t, w.Error())

	r := vle.Reader(b)
	wire.ReadHeader(r)
	assert.Equal(t, wire.ErrVersionMismatch, r.Error())
}

func TestHeaderTruncated(t *testing.T) {
	r := vle.Reader(bytes.NewReader([]byte{'g', 'w'}))
	wire.ReadHeader(r)
	assert.Error(t, r.Error())
}

func TestInferable(t *testing.T) {
	type record struct{ A int }
	inferable := []reflect.Type{
		reflect.TypeOf(false),
		reflect.TypeOf(int(0)),
		reflect.TypeOf(uint64(0)),
		reflect.TypeOf(""),
		reflect.TypeOf(1.5),
		reflect.TypeOf(complex128(0)),
		reflect.TypeOf(record{}),
		reflect.TypeOf([3]int{}),
	}
	tagged := []reflect.Type{
		nil,
		reflect.TypeOf(&record{}),
		reflect.TypeOf([]int(nil)),
		reflect.TypeOf(map[string]int(nil)),
		reflect.TypeOf((*interface{})(nil)).Elem(),
		reflect.TypeOf(make(chan int)),
	}
	for _, ty := range inferable {
		assert.True(t, wire.Inferable(ty), "%v", ty)
	}
	for _, ty := range tagged {
		assert.False(t, wire.Inferable(ty), "%v", ty)
	}
}

func TestHostRuntime(t *testing.T) {
	rv := wire.HostRuntime()
	assert.NotZero(t, rv.Major)
}
