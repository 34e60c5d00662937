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

package containers

import (
	"fmt"

	"github.com/pidb/duckdb/pkg/container/types"
)

// MockVector generates rows of deterministic data starting at offset.
func MockVector(typ types.Type, rows int, offset int) Vector {
	vec := MakeVector(typ)
	for i := 0; i < rows; i++ {
		v := offset + i
		switch typ.Oid {
		case types.T_bool:
			vec.Append(v%2 == 0, false)
		case types.T_int8:
			vec.Append(int8(v), false)
		case types.T_int16:
			vec.Append(int16(v), false)
		case types.T_int32:
			vec.Append(int32(v), false)
		case types.T_int64:
			vec.Append(int64(v), false)
		case types.T_uint8:
			vec.Append(uint8(v), false)
		case types.T_uint16:
			vec.Append(uint16(v), false)
		case types.T_uint32:
			vec.Append(uint32(v), false)
		case types.T_uint64:
			vec.Append(uint64(v), false)
		case types.T_float32:
			vec.Append(float32(v), false)
		case types.T_float64:
			vec.Append(float64(v), false)
		case types.T_char, types.T_varchar:
			vec.Append([]byte(fmt.Sprintf("mock_%d", v)), false)
		default:
			panic(fmt.Sprintf("containers: cannot mock type %s", typ))
		}
	}
	return vec
}

// MockBatch generates a batch of deterministic data, one attribute per type,
// named mock_0, mock_1, ...
func MockBatch(typs []types.Type, rows int) *Batch {
	bat := NewBatch()
	for i, typ := range typs {
		bat.AddVector(fmt.Sprintf("mock_%d", i), MockVector(typ, rows, 0))
	}
	return bat
}
