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

// Package vle implements the pod.Reader and pod.Writer interfaces with a
// variable-length encoding scheme.
//
// Unsigned integers are written seven bits per byte, least significant
// group first, with the high bit of each byte set when another byte
// follows. A 64 bit value therefore occupies at most ten bytes, and a
// tenth byte with any bit above the lowest set, or a tenth byte that still
// has its continuation bit set, is a malformed sequence and a hard format
// error.
//
// Signed integers are zigzag folded (sign in the lowest bit) and written in
// the unsigned form, so small negative numbers stay short.
//
// The wide form writes fifteen bits per two-byte group, low byte first,
// with the high bit of the second byte as the continuation marker. It is
// used for lengths of bulk data blocks, which are rarely small enough for
// the seven bit form to win.
//
// Floating-point values have their bits byte-reversed before being written
// in the unsigned form, moving the exponent into the low bytes so common
// values encode compactly.
//
// Strings are length-prefixed with a signed length; length -1 marks an
// absent string, which is distinct from an empty one.
package vle
