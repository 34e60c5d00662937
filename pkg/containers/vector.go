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
	"bytes"
	"fmt"

	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/pidb/duckdb/pkg/container/types"
)

// ItOp visits one row of a vector.
type ItOp = func(v any, isNull bool, row int) error

// Vector is one column of rows. Nulls are tracked in a separate bitmap, the
// payload keeps a zero value at null positions.
type Vector interface {
	GetType() types.Type
	Length() int

	Append(v any, isNull bool)
	Get(i int) any
	IsNull(i int) bool
	Update(i int, v any, isNull bool)

	HasNull() bool
	NullMask() *roaring64.Bitmap
	NullCount() int

	Extend(o Vector)
	ExtendWithOffset(o Vector, srcOff, srcLen int)
	CloneWindow(offset, length int) Vector
	Truncate(length int)
	Reset()

	Foreach(op ItOp) error
	ForeachWindow(offset, length int, op ItOp) error

	Equals(o Vector) bool
	String() string
	Close()
}

type vector[T any] struct {
	typ   types.Type
	vals  []T
	nulls *roaring64.Bitmap
}

func newVector[T any](typ types.Type) *vector[T] {
	return &vector[T]{typ: typ}
}

// MakeVector allocates an empty vector of the given logical type.
func MakeVector(typ types.Type) Vector {
	switch typ.Oid {
	case types.T_bool:
		return newVector[bool](typ)
	case types.T_int8:
		return newVector[int8](typ)
	case types.T_int16:
		return newVector[int16](typ)
	case types.T_int32:
		return newVector[int32](typ)
	case types.T_int64:
		return newVector[int64](typ)
	case types.T_uint8:
		return newVector[uint8](typ)
	case types.T_uint16:
		return newVector[uint16](typ)
	case types.T_uint32:
		return newVector[uint32](typ)
	case types.T_uint64:
		return newVector[uint64](typ)
	case types.T_float32:
		return newVector[float32](typ)
	case types.T_float64:
		return newVector[float64](typ)
	case types.T_char, types.T_varchar:
		return newVector[[]byte](typ)
	default:
		panic(fmt.Sprintf("containers: unsupported type %s", typ))
	}
}

func (vec *vector[T]) GetType() types.Type {
	return vec.typ
}

func (vec *vector[T]) Length() int {
	return len(vec.vals)
}

func (vec *vector[T]) Append(v any, isNull bool) {
	if isNull {
		var zero T
		if vec.nulls == nil {
			vec.nulls = roaring64.New()
		}
		vec.nulls.Add(uint64(len(vec.vals)))
		vec.vals = append(vec.vals, zero)
		return
	}
	vec.vals = append(vec.vals, v.(T))
}

func (vec *vector[T]) Get(i int) any {
	return vec.vals[i]
}

func (vec *vector[T]) IsNull(i int) bool {
	return vec.nulls != nil && vec.nulls.Contains(uint64(i))
}

func (vec *vector[T]) Update(i int, v any, isNull bool) {
	if isNull {
		var zero T
		vec.vals[i] = zero
		if vec.nulls == nil {
			vec.nulls = roaring64.New()
		}
		vec.nulls.Add(uint64(i))
		return
	}
	if vec.nulls != nil {
		vec.nulls.Remove(uint64(i))
	}
	vec.vals[i] = v.(T)
}

func (vec *vector[T]) HasNull() bool {
	return vec.nulls != nil && !vec.nulls.IsEmpty()
}

func (vec *vector[T]) NullMask() *roaring64.Bitmap {
	return vec.nulls
}

func (vec *vector[T]) NullCount() int {
	if vec.nulls == nil {
		return 0
	}
	return int(vec.nulls.GetCardinality())
}

func (vec *vector[T]) Extend(o Vector) {
	vec.ExtendWithOffset(o, 0, o.Length())
}

func (vec *vector[T]) ExtendWithOffset(o Vector, srcOff, srcLen int) {
	src := o.(*vector[T])
	for i := srcOff; i < srcOff+srcLen; i++ {
		vec.Append(src.vals[i], src.IsNull(i))
	}
}

func (vec *vector[T]) CloneWindow(offset, length int) Vector {
	cloned := newVector[T](vec.typ)
	cloned.ExtendWithOffset(vec, offset, length)
	return cloned
}

func (vec *vector[T]) Truncate(length int) {
	if length >= len(vec.vals) {
		return
	}
	vec.vals = vec.vals[:length]
	if vec.nulls != nil {
		vec.nulls.RemoveRange(uint64(length), uint64(1)<<63)
	}
}

func (vec *vector[T]) Reset() {
	vec.vals = vec.vals[:0]
	vec.nulls = nil
}

func (vec *vector[T]) Foreach(op ItOp) error {
	return vec.ForeachWindow(0, vec.Length(), op)
}

func (vec *vector[T]) ForeachWindow(offset, length int, op ItOp) error {
	for i := offset; i < offset+length; i++ {
		if err := op(vec.vals[i], vec.IsNull(i), i); err != nil {
			return err
		}
	}
	return nil
}

func (vec *vector[T]) Equals(o Vector) bool {
	if vec.Length() != o.Length() {
		return false
	}
	if !vec.typ.Eq(o.GetType()) {
		return false
	}
	for i := 0; i < vec.Length(); i++ {
		if vec.IsNull(i) != o.IsNull(i) {
			return false
		}
		if vec.IsNull(i) {
			continue
		}
		if b, ok := any(vec.vals[i]).([]byte); ok {
			if !bytes.Equal(b, o.Get(i).([]byte)) {
				return false
			}
		} else if vec.Get(i) != o.Get(i) {
			return false
		}
	}
	return true
}

func (vec *vector[T]) String() string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s;%d;[", vec.typ, vec.Length())
	max := vec.Length()
	if max > 10 {
		max = 10
	}
	for i := 0; i < max; i++ {
		if vec.IsNull(i) {
			fmt.Fprint(&w, "null ")
		} else {
			fmt.Fprintf(&w, "%v ", vec.vals[i])
		}
	}
	fmt.Fprint(&w, "]")
	return w.String()
}

func (vec *vector[T]) Close() {
	vec.vals = nil
	vec.nulls = nil
}
