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

package types

import "fmt"

type T uint8

const (
	T_any T = iota
	T_bool
	T_int8
	T_int16
	T_int32
	T_int64
	T_uint8
	T_uint16
	T_uint32
	T_uint64
	T_float32
	T_float64
	T_char
	T_varchar
)

// Type describes the logical type of one column.
type Type struct {
	Oid T
	// Size is the fixed payload width in bytes, -1 for varlen types.
	Size int32
}

func (t T) ToType() Type {
	switch t {
	case T_bool, T_int8, T_uint8:
		return Type{Oid: t, Size: 1}
	case T_int16, T_uint16:
		return Type{Oid: t, Size: 2}
	case T_int32, T_uint32, T_float32:
		return Type{Oid: t, Size: 4}
	case T_int64, T_uint64, T_float64:
		return Type{Oid: t, Size: 8}
	case T_char, T_varchar:
		return Type{Oid: t, Size: -1}
	default:
		panic(fmt.Sprintf("types: unsupported oid %d", t))
	}
}

func (t T) String() string {
	switch t {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int8:
		return "TINYINT"
	case T_int16:
		return "SMALLINT"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_uint8:
		return "TINYINT UNSIGNED"
	case T_uint16:
		return "SMALLINT UNSIGNED"
	case T_uint32:
		return "INT UNSIGNED"
	case T_uint64:
		return "BIGINT UNSIGNED"
	case T_float32:
		return "FLOAT"
	case T_float64:
		return "DOUBLE"
	case T_char:
		return "CHAR"
	case T_varchar:
		return "VARCHAR"
	}
	return fmt.Sprintf("T(%d)", t)
}

func (t Type) String() string {
	return t.Oid.String()
}

func (t Type) IsVarlen() bool {
	return t.Size < 0
}

func (t Type) Eq(o Type) bool {
	return t.Oid == o.Oid
}
