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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pidb/duckdb/pkg/catalog"
	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
)

func intBatch(vals ...int64) (*containers.Batch, []types.Rowid) {
	bat := containers.BuildBatch([]string{"c0"}, []types.Type{types.T_int64.ToType()})
	rowids := make([]types.Rowid, len(vals))
	for i, v := range vals {
		bat.Vecs[0].Append(v, false)
		rowids[i] = types.Rowid(i)
	}
	return bat, rowids
}

func TestBtreeIndexAppendDuplicate(t *testing.T) {
	idx := NewBtreeIndex("pk", true, false, []int{0}, []string{"c0"})
	bat, rowids := intBatch(1, 2, 3)
	require.NoError(t, idx.Append(bat, rowids))
	require.Equal(t, 3, idx.Count())

	dup, dupIDs := intBatch(3)
	err := idx.Append(dup, dupIDs)
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrDuplicateEntry))
}

func TestBtreeIndexDelete(t *testing.T) {
	idx := NewBtreeIndex("pk", true, false, []int{0}, nil)
	bat, rowids := intBatch(1, 2, 3)
	require.NoError(t, idx.Append(bat, rowids))
	idx.Delete(bat, rowids)
	require.Equal(t, 0, idx.Count())
	// the keys can be inserted again
	require.NoError(t, idx.Append(bat, rowids))
}

func TestBtreeIndexVerifyAppendNoManager(t *testing.T) {
	idx := NewBtreeIndex("pk", true, false, []int{0}, []string{"c0"})
	bat, rowids := intBatch(1, 2)
	require.NoError(t, idx.Append(bat, rowids))

	fresh, _ := intBatch(5, 6)
	require.NoError(t, idx.VerifyAppend(fresh, nil))

	conflicting, _ := intBatch(2)
	err := idx.VerifyAppend(conflicting, nil)
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrConstraintViolation))
	assert.Contains(t, err.Error(), "Duplicate key")
}

func TestBtreeIndexVerifyAppendScanThenThrow(t *testing.T) {
	idx := NewBtreeIndex("pk", true, false, []int{0}, nil)
	bat, rowids := intBatch(1, 2, 3)
	require.NoError(t, idx.Append(bat, rowids))

	probe, _ := intBatch(2, 9, 3)
	cm := NewConflictManager(VerifyTypeAppend, probe.Length(), nil)
	cm.SetMode(ConflictManagerScan)
	require.NoError(t, idx.VerifyAppend(probe, cm))
	require.Equal(t, 2, cm.Conflicts().Count())
	assert.Equal(t, 0, cm.Conflicts().Get(0))
	assert.Equal(t, 2, cm.Conflicts().Get(1))

	// rows claimed by the scan do not fail the throw phase
	cm.SetMode(ConflictManagerThrow)
	require.NoError(t, idx.VerifyAppend(probe, cm))

	// a conflict the scan never claimed does fail
	other := NewConflictManager(VerifyTypeAppend, probe.Length(), nil)
	other.SetMode(ConflictManagerThrow)
	err := idx.VerifyAppend(probe, other)
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrConstraintViolation))
}

func TestBtreeIndexVerifyForeignKey(t *testing.T) {
	idx := NewBtreeIndex("pk", true, false, []int{0}, nil)
	bat, rowids := intBatch(10, 20, 30)
	require.NoError(t, idx.Append(bat, rowids))

	probe, _ := intBatch(20, 25, 30)
	cm := NewConflictManager(VerifyTypeAppendFK, probe.Length(), nil)
	cm.SetMode(ConflictManagerScan)
	idx.VerifyForeignKey(probe, cm)
	cm.Finalize()
	require.Equal(t, 2, cm.Conflicts().Count())
	assert.True(t, cm.Conflicts().IndexMapsToLocation(0, 0))
	assert.False(t, cm.Conflicts().IndexMapsToLocation(1, 1))
	assert.True(t, cm.Conflicts().IndexMapsToLocation(1, 2))
}

func TestBtreeIndexCompositeAndOrdering(t *testing.T) {
	idx := NewBtreeIndex("uk", true, false, []int{0, 1}, []string{"a", "b"})
	bat := containers.BuildBatch([]string{"a", "b"},
		[]types.Type{types.T_int32.ToType(), types.T_varchar.ToType()})
	bat.Vecs[0].Append(int32(-5), false)
	bat.Vecs[1].Append([]byte("x"), false)
	bat.Vecs[0].Append(int32(-5), false)
	bat.Vecs[1].Append([]byte("y"), false)
	require.NoError(t, idx.Append(bat, []types.Rowid{0, 1}))

	same := containers.BuildBatch([]string{"a", "b"},
		[]types.Type{types.T_int32.ToType(), types.T_varchar.ToType()})
	same.Vecs[0].Append(int32(-5), false)
	same.Vecs[1].Append([]byte("x"), false)
	err := idx.Append(same, []types.Rowid{2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: -5")
}

func TestBtreeIndexIsUpdated(t *testing.T) {
	idx := NewBtreeIndex("uk", true, false, []int{1, 3}, nil)
	assert.True(t, idx.IndexIsUpdated([]int{3}))
	assert.True(t, idx.IndexIsUpdated([]int{0, 1}))
	assert.False(t, idx.IndexIsUpdated([]int{0, 2}))
}

func TestTableIndexListScanStop(t *testing.T) {
	list := NewTableIndexList()
	list.AddIndex(NewBtreeIndex("a", true, false, []int{0}, nil))
	list.AddIndex(NewBtreeIndex("b", false, true, []int{1}, nil))
	list.AddIndex(NewBtreeIndex("c", true, false, []int{2}, nil))

	visited := 0
	list.Scan(func(idx Index) bool {
		visited++
		return idx.Name() == "b"
	})
	assert.Equal(t, 2, visited)
}

func TestFindForeignKeyIndex(t *testing.T) {
	list := NewTableIndexList()
	unique := NewBtreeIndex("pk", true, false, []int{0, 1}, nil)
	foreign := NewBtreeIndex("fk", false, true, []int{0, 1}, nil)
	list.AddIndex(unique)
	list.AddIndex(foreign)

	// order-insensitive column matching, flag selected by direction
	found := list.FindForeignKeyIndex([]int{1, 0}, catalog.FKTypePrimaryKeyTable)
	require.NotNil(t, found)
	assert.Equal(t, "pk", found.Name())

	found = list.FindForeignKeyIndex([]int{0, 1}, catalog.FKTypeForeignKeyTable)
	require.NotNil(t, found)
	assert.Equal(t, "fk", found.Name())

	assert.Nil(t, list.FindForeignKeyIndex([]int{0, 2}, catalog.FKTypePrimaryKeyTable))
}

func TestManagedSelection(t *testing.T) {
	sel := &ManagedSelection{}
	sel.Append(1)
	sel.Append(4)
	sel.Append(4)
	sel.Append(2)
	require.Equal(t, 3, sel.Count())
	assert.Equal(t, 1, sel.Get(0))
	assert.Equal(t, 2, sel.Get(1))
	assert.Equal(t, 4, sel.Get(2))
	assert.True(t, sel.IndexMapsToLocation(0, 1))
	assert.False(t, sel.IndexMapsToLocation(0, 0))
	assert.False(t, sel.IndexMapsToLocation(3, 9))
}

func TestConflictInfoTargetMatches(t *testing.T) {
	idx := NewBtreeIndex("uk", true, false, []int{2, 0}, nil)
	assert.True(t, (&ConflictInfo{}).ConflictTargetMatches(idx))
	assert.True(t, (&ConflictInfo{ColumnIDs: []int{0, 2}}).ConflictTargetMatches(idx))
	assert.False(t, (&ConflictInfo{ColumnIDs: []int{0, 1}}).ConflictTargetMatches(idx))
}
