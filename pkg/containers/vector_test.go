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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pidb/duckdb/pkg/container/types"
)

func TestVectorAppendGet(t *testing.T) {
	vec := MakeVector(types.T_int32.ToType())
	for i := 0; i < 10; i++ {
		if i%3 == 0 {
			vec.Append(nil, true)
		} else {
			vec.Append(int32(i), false)
		}
	}
	require.Equal(t, 10, vec.Length())
	assert.True(t, vec.HasNull())
	assert.Equal(t, 4, vec.NullCount())
	assert.True(t, vec.IsNull(0))
	assert.False(t, vec.IsNull(1))
	assert.Equal(t, int32(4), vec.Get(4))
}

func TestVectorUpdate(t *testing.T) {
	vec := MakeVector(types.T_varchar.ToType())
	vec.Append([]byte("a"), false)
	vec.Append(nil, true)
	vec.Update(0, nil, true)
	vec.Update(1, []byte("b"), false)
	assert.True(t, vec.IsNull(0))
	assert.False(t, vec.IsNull(1))
	assert.Equal(t, []byte("b"), vec.Get(1))
}

func TestVectorWindowAndExtend(t *testing.T) {
	vec := MockVector(types.T_int64.ToType(), 20, 100)
	cloned := vec.CloneWindow(5, 10)
	require.Equal(t, 10, cloned.Length())
	assert.Equal(t, int64(105), cloned.Get(0))

	other := MakeVector(types.T_int64.ToType())
	other.ExtendWithOffset(vec, 0, 5)
	require.Equal(t, 5, other.Length())
	other.Extend(cloned)
	require.Equal(t, 15, other.Length())
	assert.Equal(t, int64(114), other.Get(14))
}

func TestVectorTruncate(t *testing.T) {
	vec := MakeVector(types.T_int16.ToType())
	vec.Append(int16(1), false)
	vec.Append(nil, true)
	vec.Append(int16(3), false)
	vec.Truncate(1)
	require.Equal(t, 1, vec.Length())
	assert.False(t, vec.HasNull())
}

func TestVectorEquals(t *testing.T) {
	a := MockVector(types.T_varchar.ToType(), 8, 0)
	b := MockVector(types.T_varchar.ToType(), 8, 0)
	assert.True(t, a.Equals(b))
	b.Update(3, nil, true)
	assert.False(t, a.Equals(b))
}

func TestBatchBasics(t *testing.T) {
	typs := []types.Type{types.T_int32.ToType(), types.T_varchar.ToType()}
	bat := MockBatch(typs, 12)
	require.Equal(t, 12, bat.Length())
	require.Equal(t, 2, bat.ColumnCount())

	window := bat.CloneWindow(4, 4)
	require.Equal(t, 4, window.Length())
	assert.Equal(t, int32(4), window.Vecs[0].Get(0))

	other := BuildBatch(bat.Attrs, typs)
	other.Extend(bat)
	assert.True(t, other.Equals(bat))

	other.Truncate(3)
	require.Equal(t, 3, other.Length())
}

func TestVectorCodecRoundTrip(t *testing.T) {
	typs := []types.Type{
		types.T_bool.ToType(),
		types.T_int8.ToType(),
		types.T_int64.ToType(),
		types.T_uint32.ToType(),
		types.T_float64.ToType(),
		types.T_varchar.ToType(),
	}
	bat := BuildBatch([]string{"a", "b", "c", "d", "e", "f"}, typs)
	src := MockBatch(typs, 30)
	bat.Extend(src)
	bat.Vecs[2].Update(7, nil, true)
	bat.Vecs[5].Update(11, nil, true)

	var buf bytes.Buffer
	require.NoError(t, WriteBatch(&buf, bat))
	decoded, err := ReadBatch(&buf)
	require.NoError(t, err)
	require.Equal(t, bat.Length(), decoded.Length())
	for i := range bat.Vecs {
		assert.True(t, bat.Vecs[i].Equals(decoded.Vecs[i]), "column %d", i)
	}
}
