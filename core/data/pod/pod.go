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

// Package pod declares the symmetrical reader and writer interfaces for
// plain-old-data values.
//
// Each primitive type has a dedicated method pair rather than a single
// boxed-value method pair; the graph codec sits in the hot path of every
// value it moves. Both interfaces carry a sticky error: once a call fails,
// all later calls become no-ops and Error returns the first failure. Both
// interfaces also report the byte offset consumed or produced so far, which
// the memo table uses as the identity of a value's encoding.
package pod

// Readable is the interface to things that can read themselves as
// plain-old-data.
type Readable interface {
	// ReadSimple is invoked by a Reader to read the POD.
	ReadSimple(Reader)
}

// Writable is the interface to things that can write themselves as
// plain-old-data.
type Writable interface {
	// WriteSimple is invoked by a Writer to write the POD.
	WriteSimple(Writer)
}

// Writer is the interface for encoding primitive values to a stream.
type Writer interface {
	// Data writes the bytes to the stream verbatim.
	Data([]byte)
	// Bool encodes a boolean value.
	Bool(bool)
	// Int8 encodes a signed 8 bit value as a single byte.
	Int8(int8)
	// Uint8 encodes an unsigned 8 bit value as a single byte.
	Uint8(uint8)
	// Int16 encodes a signed, variable length, 16 bit value.
	Int16(int16)
	// Uint16 encodes an unsigned, variable length, 16 bit value.
	Uint16(uint16)
	// Int32 encodes a signed, variable length, 32 bit value.
	Int32(int32)
	// Uint32 encodes an unsigned, variable length, 32 bit value.
	Uint32(uint32)
	// Int64 encodes a signed, variable length, 64 bit value.
	Int64(int64)
	// Uint64 encodes an unsigned, variable length, 64 bit value.
	Uint64(uint64)
	// Wide encodes an unsigned value in the wide (15 bits per group) form,
	// used for bulk block lengths.
	Wide(uint64)
	// Float32 encodes a 32 bit floating-point value.
	Float32(float32)
	// Float64 encodes a 64 bit floating-point value.
	Float64(float64)
	// Complex64 encodes a 64 bit complex value.
	Complex64(complex64)
	// Complex128 encodes a 128 bit complex value.
	Complex128(complex128)
	// String encodes a length-prefixed string.
	String(string)
	// StringOpt encodes a string that may be absent. An absent string is
	// written with length -1 and is distinct from the empty string.
	StringOpt(v string, present bool)
	// Simple writes a Writable to the stream.
	Simple(Writable)
	// Offset returns the number of bytes written so far.
	Offset() uint64
	// Error returns the first error encountered, or nil.
	Error() error
	// SetError records err as the sticky error if none is recorded yet.
	SetError(err error)
}

// Reader is the interface for decoding primitive values from a stream.
// It is the exact mirror of Writer.
type Reader interface {
	// Data reads exactly len(p) bytes from the stream into p.
	Data(p []byte)
	// Bool decodes a boolean value.
	Bool() bool
	// Int8 decodes a signed 8 bit value.
	Int8() int8
	// Uint8 decodes an unsigned 8 bit value.
	Uint8() uint8
	// Int16 decodes a signed, variable length, 16 bit value.
	Int16() int16
	// Uint16 decodes an unsigned, variable length, 16 bit value.
	Uint16() uint16
	// Int32 decodes a signed, variable length, 32 bit value.
	Int32() int32
	// Uint32 decodes an unsigned, variable length, 32 bit value.
	Uint32() uint32
	// Int64 decodes a signed, variable length, 64 bit value.
	Int64() int64
	// Uint64 decodes an unsigned, variable length, 64 bit value.
	Uint64() uint64
	// Wide decodes a value written with Writer.Wide.
	Wide() uint64
	// Float32 decodes a 32 bit floating-point value.
	Float32() float32
	// Float64 decodes a 64 bit floating-point value.
	Float64() float64
	// Complex64 decodes a 64 bit complex value.
	Complex64() complex64
	// Complex128 decodes a 128 bit complex value.
	Complex128() complex128
	// String decodes a length-prefixed string. An absent string decodes as
	// the empty string; use StringOpt where absence matters.
	String() string
	// StringOpt decodes a string that may be absent.
	StringOpt() (v string, present bool)
	// Count decodes a collection size.
	Count() uint32
	// Simple reads a Readable from the stream.
	Simple(Readable)
	// Offset returns the number of bytes consumed so far.
	Offset() uint64
	// Error returns the first error encountered, or nil.
	Error() error
	// SetError records err as the sticky error if none is recorded yet.
	SetError(err error)
}
