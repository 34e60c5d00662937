// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package index

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pidb/duckdb/pkg/containers"
)

// Composite keys are encoded so byte order matches value order: signed
// integers get their sign bit flipped, floats use order-preserving IEEE
// tricks, varlen columns are terminated with 0x00 0x00 and embedded zero
// bytes escaped as 0x00 0xFF.

func encodeUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func encodeInt64(buf []byte, v int64) []byte {
	return encodeUint64(buf, uint64(v)^(1<<63))
}

func encodeFloat64(buf []byte, v float64) []byte {
	bits := math.Float64bits(v)
	if bits>>63 != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return encodeUint64(buf, bits)
}

func encodeBytes(buf []byte, v []byte) []byte {
	for _, b := range v {
		if b == 0x00 {
			buf = append(buf, 0x00, 0xFF)
			continue
		}
		buf = append(buf, b)
	}
	return append(buf, 0x00, 0x00)
}

func encodeValue(buf []byte, v any, isNull bool) []byte {
	// nulls sort first within one key column
	if isNull {
		return append(buf, 0x00)
	}
	buf = append(buf, 0x01)
	switch x := v.(type) {
	case bool:
		if x {
			return append(buf, 1)
		}
		return append(buf, 0)
	case int8:
		return encodeInt64(buf, int64(x))
	case int16:
		return encodeInt64(buf, int64(x))
	case int32:
		return encodeInt64(buf, int64(x))
	case int64:
		return encodeInt64(buf, x)
	case uint8:
		return encodeUint64(buf, uint64(x))
	case uint16:
		return encodeUint64(buf, uint64(x))
	case uint32:
		return encodeUint64(buf, uint64(x))
	case uint64:
		return encodeUint64(buf, x)
	case float32:
		return encodeFloat64(buf, float64(x))
	case float64:
		return encodeFloat64(buf, x)
	case []byte:
		return encodeBytes(buf, x)
	default:
		panic(fmt.Sprintf("index: cannot encode key value %T", v))
	}
}

// EncodeKey builds the composite key of one row from the given columns.
func EncodeKey(bat *containers.Batch, row int, colIDs []int) []byte {
	buf := make([]byte, 0, 16*len(colIDs))
	for _, col := range colIDs {
		vec := bat.Vecs[col]
		buf = encodeValue(buf, vec.Get(row), vec.IsNull(row))
	}
	return buf
}
