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

package sig

import (
	"github.com/graphwire/graphwire/core/data/pod"
	"github.com/graphwire/graphwire/core/fault"
)

const (
	// ErrUnknownShape is raised when a stream carries a shape tag this
	// build does not know.
	ErrUnknownShape = fault.Const("sig: unknown shape tag")
	// ErrShapeDepth is raised when a stream nests shapes deeper than a
	// well formed description can.
	ErrShapeDepth = fault.Const("sig: shape nests too deeply")
)

// maxDepth bounds shape nesting when decoding, so a corrupt or hostile
// stream cannot recurse without limit.
const maxDepth = 64

const (
	tagBuiltin = iota
	tagNamed
	tagPointer
	tagSlice
	tagArray
	tagMap
	tagByRef
	tagTypeParam
	tagMethodParam
	tagConstructed
)

// WriteType encodes a shape. Errors stick to the writer.
func WriteType(w pod.Writer, t Type) {
	switch t := t.(type) {
	case Builtin:
		w.Uint8(tagBuiltin)
		w.Uint8(uint8(t.Code))
	case Named:
		w.Uint8(tagNamed)
		w.String(t.Module)
		w.String(t.Name)
	case Pointer:
		w.Uint8(tagPointer)
		WriteType(w, t.Elem)
	case Slice:
		w.Uint8(tagSlice)
		WriteType(w, t.Elem)
	case Array:
		w.Uint8(tagArray)
		w.Uint32(uint32(len(t.Lens)))
		for _, n := range t.Lens {
			w.Uint64(uint64(n))
		}
		WriteType(w, t.Elem)
	case Map:
		w.Uint8(tagMap)
		WriteType(w, t.Key)
		WriteType(w, t.Elem)
	case ByRef:
		w.Uint8(tagByRef)
		WriteType(w, t.Elem)
	case TypeParam:
		w.Uint8(tagTypeParam)
		w.Uint32(uint32(t.Index))
	case MethodParam:
		w.Uint8(tagMethodParam)
		w.Uint32(uint32(t.Index))
	case Constructed:
		w.Uint8(tagConstructed)
		WriteType(w, t.Def)
		w.Uint32(uint32(len(t.Args)))
		for _, a := range t.Args {
			WriteType(w, a)
		}
	default:
		w.SetError(ErrUnsupportedType)
	}
}

// ReadType decodes a shape. On failure the error sticks to the reader and
// the returned shape is nil.
func ReadType(r pod.Reader) Type {
	t := readType(r, 0)
	if r.Error() != nil {
		return nil
	}
	return t
}

func readType(r pod.Reader, depth int) Type {
	if depth > maxDepth {
		r.SetError(ErrShapeDepth)
		return nil
	}
	tag := r.Uint8()
	if r.Error() != nil {
		return nil
	}
	switch tag {
	case tagBuiltin:
		c := Code(r.Uint8())
		if c == Invalid || c >= codeCount {
			r.SetError(ErrUnknownShape)
			return nil
		}
		return Builtin{Code: c}
	case tagNamed:
		module := r.String()
		name := r.String()
		return Named{Module: module, Name: name}
	case tagPointer:
		return Pointer{Elem: readType(r, depth+1)}
	case tagSlice:
		return Slice{Elem: readType(r, depth+1)}
	case tagArray:
		rank := r.Count()
		lens := make([]int, rank)
		for i := range lens {
			lens[i] = int(r.Uint64())
		}
		return Array{Lens: lens, Elem: readType(r, depth+1)}
	case tagMap:
		key := readType(r, depth+1)
		return Map{Key: key, Elem: readType(r, depth+1)}
	case tagByRef:
		return ByRef{Elem: readType(r, depth+1)}
	case tagTypeParam:
		return TypeParam{Index: int(r.Uint32())}
	case tagMethodParam:
		return MethodParam{Index: int(r.Uint32())}
	case tagConstructed:
		def := readType(r, depth+1)
		args := make([]Type, r.Count())
		for i := range args {
			args[i] = readType(r, depth+1)
		}
		return Constructed{Def: def, Args: args}
	}
	r.SetError(ErrUnknownShape)
	return nil
}

// WriteSignature encodes a member signature.
func WriteSignature(w pod.Writer, s Signature) {
	w.String(s.Name)
	w.Uint8(uint8(s.Convention))
	w.Uint32(uint32(s.GenericArity))
	if s.Return != nil {
		w.Bool(true)
		WriteType(w, s.Return)
	} else {
		w.Bool(false)
	}
	w.Uint32(uint32(len(s.Params)))
	for _, p := range s.Params {
		WriteType(w, p)
	}
}

// ReadSignature decodes a member signature.
func ReadSignature(r pod.Reader) Signature {
	s := Signature{
		Name:         r.String(),
		Convention:   Convention(r.Uint8()),
		GenericArity: int(r.Uint32()),
	}
	if r.Bool() {
		s.Return = ReadType(r)
	}
	if n := r.Count(); n > 0 {
		s.Params = make([]Type, n)
		for i := range s.Params {
			s.Params[i] = ReadType(r)
		}
	}
	return s
}
