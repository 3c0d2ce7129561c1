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

package vle

import (
	"io"
	"math"

	"github.com/graphwire/graphwire/core/data/pod"
	"github.com/graphwire/graphwire/core/fault"
)

const (
	// ErrMalformedVarint is returned when a variable-length integer carries
	// more continuation bytes than the maximum width allows.
	ErrMalformedVarint = fault.Const("vle: malformed variable-length integer")
	// ErrStringLength is returned when a string carries a negative length
	// other than the absent marker.
	ErrStringLength = fault.Const("vle: invalid string length")

	// maxVarintLen is the longest legal 7-bit encoding of a 64 bit value.
	maxVarintLen = 10
	// maxWideGroups is the longest legal 15-bit encoding of a 64 bit value.
	maxWideGroups = 5
)

// Reader creates a pod.Reader that reads from the provided io.Reader.
func Reader(r io.Reader) pod.Reader {
	return &reader{reader: r}
}

// Writer creates a pod.Writer that writes to the supplied io.Writer.
func Writer(w io.Writer) pod.Writer {
	return &writer{writer: w}
}

type reader struct {
	reader io.Reader
	tmp    [maxVarintLen]byte
	off    uint64
	err    error
}

type writer struct {
	writer io.Writer
	tmp    [maxVarintLen]byte
	off    uint64
	err    error
}

func shuffle32(v uint32) uint32 {
	return 0 |
		((v & 0x000000ff) << 24) |
		((v & 0x0000ff00) << 8) |
		((v & 0x00ff0000) >> 8) |
		((v & 0xff000000) >> 24)
}

func shuffle64(v uint64) uint64 {
	return 0 |
		((v & 0x00000000000000ff) << 56) |
		((v & 0x000000000000ff00) << 40) |
		((v & 0x0000000000ff0000) << 24) |
		((v & 0x00000000ff000000) << 8) |
		((v & 0x000000ff00000000) >> 8) |
		((v & 0x0000ff0000000000) >> 24) |
		((v & 0x00ff000000000000) >> 40) |
		((v & 0xff00000000000000) >> 56)
}

func zigzag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

func unzigzag(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

func (w *writer) uintv(v uint64) {
	i := 0
	for v >= 0x80 {
		w.tmp[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	w.tmp[i] = byte(v)
	w.Data(w.tmp[:i+1])
}

func (r *reader) uintv() uint64 {
	v := uint64(0)
	shift := uint(0)
	for i := 0; i < maxVarintLen; i++ {
		b := r.Uint8()
		if r.err != nil {
			// Running dry inside a started varint is a truncation, not a
			// clean end of stream.
			if i > 0 && r.err == io.EOF {
				r.err = io.ErrUnexpectedEOF
			}
			return 0
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if i == maxVarintLen-1 && b > 1 {
				// The tenth byte only has one significant bit.
				r.SetError(ErrMalformedVarint)
				return 0
			}
			return v
		}
		shift += 7
	}
	r.SetError(ErrMalformedVarint)
	return 0
}

func (w *writer) intv(v int64) {
	w.uintv(zigzag(v))
}

func (r *reader) intv() int64 {
	return unzigzag(r.uintv())
}

func (w *writer) widev(v uint64) {
	for {
		g := uint16(v & 0x7fff)
		v >>= 15
		if v != 0 {
			g |= 0x8000
		}
		w.tmp[0] = byte(g)
		w.tmp[1] = byte(g >> 8)
		w.Data(w.tmp[:2])
		if v == 0 {
			return
		}
	}
}

func (r *reader) widev() uint64 {
	v := uint64(0)
	shift := uint(0)
	for i := 0; i < maxWideGroups; i++ {
		r.Data(r.tmp[:2])
		if r.err != nil {
			if i > 0 && r.err == io.EOF {
				r.err = io.ErrUnexpectedEOF
			}
			return 0
		}
		g := uint16(r.tmp[0]) | uint16(r.tmp[1])<<8
		v |= uint64(g&0x7fff) << shift
		if g&0x8000 == 0 {
			return v
		}
		shift += 15
	}
	r.SetError(ErrMalformedVarint)
	return 0
}

func (r *reader) Data(p []byte) {
	if r.err != nil {
		return
	}
	n, err := io.ReadFull(r.reader, p)
	r.off += uint64(n)
	r.err = err
}

func (w *writer) Data(data []byte) {
	if w.err != nil {
		return
	}
	n, err := w.writer.Write(data)
	w.off += uint64(n)
	if err != nil {
		w.err = err
		return
	}
	if n != len(data) {
		w.err = io.ErrShortWrite
	}
}

func (r *reader) Bool() bool {
	return r.Uint8() != 0
}

func (w *writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

func (r *reader) Uint8() uint8 {
	if r.err != nil {
		return 0
	}
	n, err := io.ReadFull(r.reader, r.tmp[:1])
	r.off += uint64(n)
	r.err = err
	return r.tmp[0]
}

func (w *writer) Uint8(v uint8) {
	if w.err != nil {
		return
	}
	w.tmp[0] = v
	w.Data(w.tmp[:1])
}

func (r *reader) Int8() int8    { return int8(r.Uint8()) }
func (w *writer) Int8(v int8)   { w.Uint8(uint8(v)) }
func (r *reader) Int16() int16  { return int16(r.intv()) }
func (w *writer) Int16(v int16) { w.intv(int64(v)) }

func (r *reader) Uint16() uint16  { return uint16(r.uintv()) }
func (w *writer) Uint16(v uint16) { w.uintv(uint64(v)) }
func (r *reader) Int32() int32    { return int32(r.intv()) }
func (w *writer) Int32(v int32)   { w.intv(int64(v)) }
func (r *reader) Uint32() uint32  { return uint32(r.uintv()) }
func (w *writer) Uint32(v uint32) { w.uintv(uint64(v)) }
func (r *reader) Int64() int64    { return r.intv() }
func (w *writer) Int64(v int64)   { w.intv(v) }
func (r *reader) Uint64() uint64  { return r.uintv() }
func (w *writer) Uint64(v uint64) { w.uintv(v) }
func (r *reader) Wide() uint64    { return r.widev() }
func (w *writer) Wide(v uint64)   { w.widev(v) }

func (r *reader) Float32() float32 {
	return math.Float32frombits(shuffle32(r.Uint32()))
}

func (w *writer) Float32(v float32) {
	w.Uint32(shuffle32(math.Float32bits(v)))
}

func (r *reader) Float64() float64 {
	return math.Float64frombits(shuffle64(r.Uint64()))
}

func (w *writer) Float64(v float64) {
	w.Uint64(shuffle64(math.Float64bits(v)))
}

func (r *reader) Complex64() complex64 {
	re := r.Float32()
	im := r.Float32()
	return complex(re, im)
}

func (w *writer) Complex64(v complex64) {
	w.Float32(real(v))
	w.Float32(imag(v))
}

func (r *reader) Complex128() complex128 {
	re := r.Float64()
	im := r.Float64()
	return complex(re, im)
}

func (w *writer) Complex128(v complex128) {
	w.Float64(real(v))
	w.Float64(imag(v))
}

func (r *reader) String() string {
	s, _ := r.StringOpt()
	return s
}

func (w *writer) String(v string) {
	w.intv(int64(len(v)))
	w.Data([]byte(v))
}

func (r *reader) StringOpt() (string, bool) {
	n := r.intv()
	switch {
	case r.err != nil:
		return "", false
	case n == -1:
		return "", false
	case n < 0:
		r.SetError(ErrStringLength)
		return "", false
	case n == 0:
		return "", true
	}
	s := make([]byte, n)
	r.Data(s)
	if r.err != nil {
		return "", false
	}
	return string(s), true
}

func (w *writer) StringOpt(v string, present bool) {
	if !present {
		w.intv(-1)
		return
	}
	w.String(v)
}

func (r *reader) Count() uint32 {
	return r.Uint32()
}

func (r *reader) Simple(o pod.Readable) {
	o.ReadSimple(r)
}

func (w *writer) Simple(o pod.Writable) {
	o.WriteSimple(w)
}

func (r *reader) Offset() uint64 { return r.off }
func (w *writer) Offset() uint64 { return w.off }

func (r *reader) Error() error { return r.err }
func (w *writer) Error() error { return w.err }

func (r *reader) SetError(err error) {
	if r.err != nil {
		return
	}
	r.err = err
}

func (w *writer) SetError(err error) {
	if w.err != nil {
		return
	}
	w.err = err
}
