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

package vle_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphwire/graphwire/core/data/pod"
	"github.com/graphwire/graphwire/core/data/vle"
)

func TestUint64(t *testing.T) {
	for _, test := range []struct {
		name  string
		value uint64
		data  []byte
	}{
		{"Zero", 0, []byte{0x00}},
		{"One", 1, []byte{0x01}},
		{"SevenBits", 127, []byte{0x7f}},
		{"EightBits", 128, []byte{0x80, 0x01}},
		{"Mid", 300, []byte{0xac, 0x02}},
		{"Max", 0xffffffffffffffff, []byte{
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01,
		}},
	} {
		t.Run(test.name, func(t *testing.T) {
			b := &bytes.Buffer{}
			w := vle.Writer(b)
			w.Uint64(test.value)
			require.NoError(t, w.Error())
			assert.Equal(t, test.data, b.Bytes())
			assert.Equal(t, uint64(len(test.data)), w.Offset())

			r := vle.Reader(bytes.NewReader(test.data))
			got := r.Uint64()
			require.NoError(t, r.Error())
			assert.Equal(t, test.value, got)
			assert.Equal(t, uint64(len(test.data)), r.Offset())
		})
	}
}

func TestInt64(t *testing.T) {
	for _, test := range []struct {
		name  string
		value int64
		data  []byte
	}{
		{"Zero", 0, []byte{0x00}},
		{"MinusOne", -1, []byte{0x01}},
		{"One", 1, []byte{0x02}},
		{"SixBits", 63, []byte{0x7e}},
		{"MinusSixtyFour", -64, []byte{0x7f}},
		{"SixtyFour", 64, []byte{0x80, 0x01}},
		{"Min", -9223372036854775808, []byte{
			0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01,
		}},
	} {
		t.Run(test.name, func(t *testing.T) {
			b := &bytes.Buffer{}
			w := vle.Writer(b)
			w.Int64(test.value)
			require.NoError(t, w.Error())
			assert.Equal(t, test.data, b.Bytes())

			r := vle.Reader(bytes.NewReader(test.data))
			assert.Equal(t, test.value, r.Int64())
			require.NoError(t, r.Error())
		})
	}
}

func TestWide(t *testing.T) {
	for _, test := range []struct {
		name  string
		value uint64
		data  []byte
	}{
		{"Zero", 0, []byte{0x00, 0x00}},
		{"One", 1, []byte{0x01, 0x00}},
		{"FifteenBits", 0x7fff, []byte{0xff, 0x7f}},
		{"SixteenBits", 0x8000, []byte{0x00, 0x80, 0x01, 0x00}},
	} {
		t.Run(test.name, func(t *testing.T) {
			b := &bytes.Buffer{}
			w := vle.Writer(b)
			w.Wide(test.value)
			require.NoError(t, w.Error())
			assert.Equal(t, test.data, b.Bytes())

			r := vle.Reader(bytes.NewReader(test.data))
			assert.Equal(t, test.value, r.Wide())
			require.NoError(t, r.Error())
		})
	}
}

func TestFloats(t *testing.T) {
	b := &bytes.Buffer{}
	w := vle.Writer(b)
	w.Float32(1.0)
	require.NoError(t, w.Error())
	assert.Equal(t, []byte{0xbf, 0x80, 0x02}, b.Bytes())

	b.Reset()
	w = vle.Writer(b)
	w.Float64(1.0)
	require.NoError(t, w.Error())
	assert.Equal(t, []byte{0xbf, 0xe0, 0x03}, b.Bytes())

	for _, v := range []float64{0, 1, -1, 64.5, 1e300, -2.75} {
		b := &bytes.Buffer{}
		w := vle.Writer(b)
		w.Float64(v)
		r := vle.Reader(b)
		assert.Equal(t, v, r.Float64())
		require.NoError(t, r.Error())
	}
}

func TestComplex(t *testing.T) {
	b := &bytes.Buffer{}
	w := vle.Writer(b)
	w.Complex64(complex(float32(1.5), float32(-2)))
	w.Complex128(complex(3.25, 4.5))
	require.NoError(t, w.Error())

	r := vle.Reader(b)
	assert.Equal(t, complex(float32(1.5), float32(-2)), r.Complex64())
	assert.Equal(t, complex(3.25, 4.5), r.Complex128())
	require.NoError(t, r.Error())
}

func TestString(t *testing.T) {
	b := &bytes.Buffer{}
	w := vle.Writer(b)
	w.String("Hello")
	require.NoError(t, w.Error())
	assert.Equal(t, []byte{0x0a, 'H', 'e', 'l', 'l', 'o'}, b.Bytes())

	r := vle.Reader(bytes.NewReader(b.Bytes()))
	assert.Equal(t, "Hello", r.String())
	require.NoError(t, r.Error())
}

func TestStringOpt(t *testing.T) {
	b := &bytes.Buffer{}
	w := vle.Writer(b)
	w.StringOpt("", false)
	w.StringOpt("", true)
	w.StringOpt("hi", true)
	require.NoError(t, w.Error())
	assert.Equal(t, []byte{0x01, 0x00, 0x04, 'h', 'i'}, b.Bytes())

	r := vle.Reader(bytes.NewReader(b.Bytes()))
	s, ok := r.StringOpt()
	assert.False(t, ok)
	assert.Equal(t, "", s)
	s, ok = r.StringOpt()
	assert.True(t, ok)
	assert.Equal(t, "", s)
	s, ok = r.StringOpt()
	assert.True(t, ok)
	assert.Equal(t, "hi", s)
	require.NoError(t, r.Error())
}

func TestSmallInts(t *testing.T) {
	b := &bytes.Buffer{}
	w := vle.Writer(b)
	w.Bool(true)
	w.Bool(false)
	w.Int8(-1)
	w.Uint8(0xff)
	w.Int16(-2)
	w.Uint16(0xbeef)
	w.Int32(1 << 20)
	w.Uint32(0x01234567)
	require.NoError(t, w.Error())

	r := vle.Reader(b)
	assert.Equal(t, true, r.Bool())
	assert.Equal(t, false, r.Bool())
	assert.Equal(t, int8(-1), r.Int8())
	assert.Equal(t, uint8(0xff), r.Uint8())
	assert.Equal(t, int16(-2), r.Int16())
	assert.Equal(t, uint16(0xbeef), r.Uint16())
	assert.Equal(t, int32(1<<20), r.Int32())
	assert.Equal(t, uint32(0x01234567), r.Uint32())
	require.NoError(t, r.Error())
}

func TestMalformedVarint(t *testing.T) {
	// Eleven continuation bytes can never be a legal 64 bit value.
	data := bytes.Repeat([]byte{0x80}, 11)
	r := vle.Reader(bytes.NewReader(data))
	r.Uint64()
	assert.Equal(t, vle.ErrMalformedVarint, r.Error())

	// A tenth byte with more than the lowest bit set overflows 64 bits.
	data = append(bytes.Repeat([]byte{0xff}, 9), 0x02)
	r = vle.Reader(bytes.NewReader(data))
	r.Uint64()
	assert.Equal(t, vle.ErrMalformedVarint, r.Error())
}

func TestTruncated(t *testing.T) {
	r := vle.Reader(bytes.NewReader([]byte{0x80}))
	r.Uint64()
	assert.Equal(t, io.ErrUnexpectedEOF, r.Error())

	r = vle.Reader(bytes.NewReader(nil))
	r.Uint8()
	assert.Equal(t, io.EOF, r.Error())

	r = vle.Reader(bytes.NewReader([]byte{0x0a, 'H', 'e'}))
	_ = r.String()
	assert.Equal(t, io.ErrUnexpectedEOF, r.Error())

	// A wide count cut between 15 bit groups.
	r = vle.Reader(bytes.NewReader([]byte{0x00, 0x80}))
	r.Wide()
	assert.Equal(t, io.ErrUnexpectedEOF, r.Error())
}

func TestStickyErrors(t *testing.T) {
	r := vle.Reader(bytes.NewReader([]byte{0x01, 0x02}))
	r.SetError(io.ErrClosedPipe)
	assert.Equal(t, uint8(0), r.Uint8())
	assert.Equal(t, io.ErrClosedPipe, r.Error())
	assert.Equal(t, uint64(0), r.Offset())
}

type limitedWriter struct {
	limit int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		n := w.limit
		w.limit = 0
		return n, io.ErrShortWrite
	}
	w.limit -= len(p)
	return len(p), nil
}

func TestShortWrite(t *testing.T) {
	w := vle.Writer(&limitedWriter{limit: 1})
	w.Uint64(1 << 40)
	assert.Equal(t, io.ErrShortWrite, w.Error())
}

type simple int8

func (s *simple) ReadSimple(r pod.Reader) { *s = simple(r.Int8()) }
func (s simple) WriteSimple(w pod.Writer) { w.Int8(int8(s)) }

func TestSimple(t *testing.T) {
	b := &bytes.Buffer{}
	w := vle.Writer(b)
	w.Simple(simple(-5))
	require.NoError(t, w.Error())

	r := vle.Reader(b)
	var got simple
	r.Simple(&got)
	assert.Equal(t, simple(-5), got)
	require.NoError(t, r.Error())
}
