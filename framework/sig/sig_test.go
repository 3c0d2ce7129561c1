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

package sig_test

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphwire/graphwire/core/data/vle"
	"github.com/graphwire/graphwire/framework/sig"
)

type record struct {
	ID   int64
	Name string
}

func TestFromReflect(t *testing.T) {
	recordShape := sig.Named{
		Module: reflect.TypeOf(record{}).PkgPath(),
		Name:   "record",
	}
	for _, test := range []struct {
		rt       reflect.Type
		expected sig.Type
	}{
		{reflect.TypeOf(int32(0)), sig.Builtin{Code: sig.Int32}},
		{reflect.TypeOf(""), sig.Builtin{Code: sig.String}},
		{reflect.TypeOf((*interface{})(nil)).Elem(), sig.Builtin{Code: sig.Any}},
		{reflect.TypeOf(record{}), recordShape},
		{reflect.TypeOf(&record{}), sig.Pointer{Elem: recordShape}},
		{reflect.TypeOf([]float64{}), sig.Slice{Elem: sig.Builtin{Code: sig.Float64}}},
		{reflect.TypeOf([2][3]uint8{}), sig.Array{Lens: []int{2, 3}, Elem: sig.Builtin{Code: sig.Uint8}}},
		{reflect.TypeOf(map[string]bool{}), sig.Map{Key: sig.Builtin{Code: sig.String}, Elem: sig.Builtin{Code: sig.Bool}}},
	} {
		got, err := sig.FromReflect(test.rt)
		require.NoError(t, err, "type %v", test.rt)
		assert.True(t, sig.Equal(test.expected, got), "type %v: expected %v got %v", test.rt, test.expected, got)
	}
}

func TestFromReflectUnsupported(t *testing.T) {
	for _, rt := range []reflect.Type{
		reflect.TypeOf(make(chan int)),
		reflect.TypeOf(func() {}),
		reflect.TypeOf((*error)(nil)).Elem(),
	} {
		_, err := sig.FromReflect(rt)
		assert.ErrorIs(t, err, sig.ErrUnsupportedType, "type %v", rt)
	}
}

func TestToReflect(t *testing.T) {
	resolve := func(module, name string) (reflect.Type, bool) {
		if name == "record" {
			return reflect.TypeOf(record{}), true
		}
		return nil, false
	}
	for _, test := range []struct {
		shape    sig.Type
		expected reflect.Type
	}{
		{sig.Builtin{Code: sig.Complex128}, reflect.TypeOf(complex128(0))},
		{sig.Builtin{Code: sig.Any}, reflect.TypeOf((*interface{})(nil)).Elem()},
		{sig.Pointer{Elem: sig.Named{Module: "m", Name: "record"}}, reflect.TypeOf(&record{})},
		{sig.Slice{Elem: sig.Builtin{Code: sig.Int}}, reflect.TypeOf([]int{})},
		{sig.Array{Lens: []int{4, 2}, Elem: sig.Builtin{Code: sig.Bool}}, reflect.TypeOf([4][2]bool{})},
		{sig.Map{Key: sig.Builtin{Code: sig.Uint32}, Elem: sig.Builtin{Code: sig.String}}, reflect.TypeOf(map[uint32]string{})},
	} {
		got, err := sig.ToReflect(test.shape, resolve)
		require.NoError(t, err, "shape %v", test.shape)
		assert.Equal(t, test.expected, got, "shape %v", test.shape)
	}
}

func TestToReflectUnresolved(t *testing.T) {
	_, err := sig.ToReflect(sig.Named{Module: "m", Name: "missing"}, nil)
	assert.ErrorIs(t, err, sig.ErrUnresolvedType)
}

func TestToReflectNotConcrete(t *testing.T) {
	for _, shape := range []sig.Type{
		sig.TypeParam{Index: 0},
		sig.MethodParam{Index: 1},
		sig.ByRef{Elem: sig.Builtin{Code: sig.Int}},
		sig.Constructed{Def: sig.Named{Module: "m", Name: "box"}, Args: []sig.Type{sig.Builtin{Code: sig.Int}}},
	} {
		_, err := sig.ToReflect(shape, nil)
		assert.ErrorIs(t, err, sig.ErrNotConcrete, "shape %v", shape)
	}
}

func TestEqual(t *testing.T) {
	list := sig.Named{Module: "m", Name: "list"}
	for _, test := range []struct {
		a, b     sig.Type
		expected bool
	}{
		{sig.Builtin{Code: sig.Int}, sig.Builtin{Code: sig.Int}, true},
		{sig.Builtin{Code: sig.Int}, sig.Builtin{Code: sig.Uint}, false},
		{list, sig.Named{Module: "m", Name: "list"}, true},
		{list, sig.Named{Module: "n", Name: "list"}, false},
		{sig.Array{Lens: []int{2}, Elem: list}, sig.Array{Lens: []int{2}, Elem: list}, true},
		{sig.Array{Lens: []int{2}, Elem: list}, sig.Array{Lens: []int{3}, Elem: list}, false},
		{sig.Constructed{Def: list, Args: []sig.Type{sig.TypeParam{Index: 0}}},
			sig.Constructed{Def: list, Args: []sig.Type{sig.TypeParam{Index: 0}}}, true},
		{sig.Constructed{Def: list, Args: []sig.Type{sig.TypeParam{Index: 0}}},
			sig.Constructed{Def: list, Args: []sig.Type{sig.TypeParam{Index: 1}}}, false},
		{nil, nil, true},
		{nil, list, false},
	} {
		assert.Equal(t, test.expected, sig.Equal(test.a, test.b), "%v == %v", test.a, test.b)
	}
}

func TestTypeCodecRoundTrip(t *testing.T) {
	shapes := []sig.Type{
		sig.Builtin{Code: sig.Float32},
		sig.Named{Module: "github.com/example/pkg", Name: "Widget"},
		sig.Pointer{Elem: sig.Named{Module: "m", Name: "node"}},
		sig.Slice{Elem: sig.Slice{Elem: sig.Builtin{Code: sig.Uint8}}},
		sig.Array{Lens: []int{3, 4, 5}, Elem: sig.Builtin{Code: sig.Int64}},
		sig.Map{Key: sig.Builtin{Code: sig.String}, Elem: sig.Builtin{Code: sig.Any}},
		sig.ByRef{Elem: sig.Builtin{Code: sig.Int}},
		sig.TypeParam{Index: 2},
		sig.MethodParam{Index: 0},
		sig.Constructed{
			Def:  sig.Named{Module: "m", Name: "pair"},
			Args: []sig.Type{sig.Builtin{Code: sig.Int}, sig.TypeParam{Index: 1}},
		},
	}
	for _, shape := range shapes {
		buf := &bytes.Buffer{}
		w := vle.Writer(buf)
		sig.WriteType(w, shape)
		require.NoError(t, w.Error(), "shape %v", shape)

		r := vle.Reader(buf)
		got := sig.ReadType(r)
		require.NoError(t, r.Error(), "shape %v", shape)
		assert.True(t, sig.Equal(shape, got), "shape %v: got %v", shape, got)
	}
}

func TestReadTypeBadTag(t *testing.T) {
	r := vle.Reader(bytes.NewReader([]byte{0xff}))
	got := sig.ReadType(r)
	assert.Nil(t, got)
	assert.ErrorIs(t, r.Error(), sig.ErrUnknownShape)
}

func TestReadTypeDepthLimit(t *testing.T) {
	// A run of pointer tags deeper than any well formed shape.
	data := bytes.Repeat([]byte{2 /* pointer */}, 1000)
	r := vle.Reader(bytes.NewReader(data))
	got := sig.ReadType(r)
	assert.Nil(t, got)
	assert.ErrorIs(t, r.Error(), sig.ErrShapeDepth)
}

func TestSignatureCodecRoundTrip(t *testing.T) {
	s := sig.Signature{
		Name:         "Insert",
		Convention:   sig.Instance,
		GenericArity: 1,
		Return:       sig.Builtin{Code: sig.Bool},
		Params: []sig.Type{
			sig.Builtin{Code: sig.Int},
			sig.MethodParam{Index: 0},
		},
	}
	buf := &bytes.Buffer{}
	w := vle.Writer(buf)
	sig.WriteSignature(w, s)
	require.NoError(t, w.Error())

	r := vle.Reader(buf)
	got := sig.ReadSignature(r)
	require.NoError(t, r.Error())
	assert.True(t, s.Equal(got), "got %v", got)
}

func TestSignatureEqual(t *testing.T) {
	base := sig.Signature{
		Name:   "Get",
		Return: sig.Builtin{Code: sig.String},
		Params: []sig.Type{sig.Builtin{Code: sig.Int}},
	}
	assert.True(t, base.Equal(base))

	byName := base
	byName.Name = "Set"
	assert.False(t, base.Equal(byName))

	byParams := base
	byParams.Params = []sig.Type{sig.Builtin{Code: sig.Int64}}
	assert.False(t, base.Equal(byParams))

	ctor := sig.Signature{Params: []sig.Type{sig.Builtin{Code: sig.String}}}
	assert.True(t, ctor.Equal(sig.Signature{Params: []sig.Type{sig.Builtin{Code: sig.String}}}))
}

func TestSignatureString(t *testing.T) {
	s := sig.Signature{
		Name:       "Sum",
		Convention: sig.Variadic,
		Return:     sig.Builtin{Code: sig.Int},
		Params:     []sig.Type{sig.Slice{Elem: sig.Builtin{Code: sig.Int}}},
	}
	assert.Equal(t, "int Sum([]int...)", s.String())
}
