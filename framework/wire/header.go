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

package wire

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/graphwire/graphwire/core/data/pod"
	"github.com/graphwire/graphwire/core/fault"
)

// Protocol version implemented by this package. A stream whose major
// version differs is rejected before any value is read; the minor version
// is informational.
const (
	VersionMajor = 1
	VersionMinor = 0
)

const (
	// ErrBadMagic is returned when a stream does not start with the format
	// magic.
	ErrBadMagic = fault.Const("wire: stream does not start with the format magic")
	// ErrVersionMismatch is returned when a stream's major protocol version
	// differs from this package's.
	ErrVersionMismatch = fault.Const("wire: unsupported protocol major version")
)

// magic identifies the stream format. It is the first four bytes of every
// stream.
var magic = [4]byte{'g', 'w', 'f', '1'}

// RuntimeVersion is the host runtime version pair recorded in the header.
// The protocol assumes both peers run the identical binary build, so the
// pair is recorded for diagnostics, not negotiated.
type RuntimeVersion struct {
	Major uint32
	Minor uint32
}

// HostRuntime returns the runtime version pair of this process, parsed
// from runtime.Version (for release builds, "goM.N[.P]").
func HostRuntime() RuntimeVersion {
	v := strings.TrimPrefix(runtime.Version(), "go")
	parts := strings.SplitN(v, ".", 3)
	rv := RuntimeVersion{}
	if len(parts) > 0 {
		if n, err := strconv.Atoi(parts[0]); err == nil {
			rv.Major = uint32(n)
		}
	}
	if len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil {
			rv.Minor = uint32(n)
		}
	}
	return rv
}

// Header is the stream preamble: magic, protocol version and the host
// runtime version pair of the writing process.
type Header struct {
	Major   uint32
	Minor   uint32
	Runtime RuntimeVersion
}

// WriteHeader writes the stream preamble for the current protocol version.
func WriteHeader(w pod.Writer, rt RuntimeVersion) {
	w.Data(magic[:])
	w.Uint32(VersionMajor)
	w.Uint32(VersionMinor)
	w.Uint32(rt.Major)
	w.Uint32(rt.Minor)
}

// ReadHeader reads and validates the stream preamble. A bad magic or an
// unsupported major version is rejected before any value payload is
// touched.
func ReadHeader(r pod.Reader) Header {
	var m [4]byte
	r.Data(m[:])
	if r.Error() != nil {
		return Header{}
	}
	if m != magic {
		r.SetError(ErrBadMagic)
		return Header{}
	}
	h := Header{Major: r.Uint32(), Minor: r.Uint32()}
	h.Runtime = RuntimeVersion{Major: r.Uint32(), Minor: r.Uint32()}
	if r.Error() != nil {
		return h
	}
	if h.Major != VersionMajor {
		r.SetError(ErrVersionMismatch)
	}
	return h
}
