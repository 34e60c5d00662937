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

package tables

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pidb/duckdb/pkg/catalog"
	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
	"github.com/pidb/duckdb/pkg/index"
	"github.com/pidb/duckdb/pkg/tasks"
)

func TestInsertCommitScan(t *testing.T) {
	db := newTestDB(t)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int32.ToType(), true},
		testCol{"v", types.T_varchar.ToType(), true})

	bat := containers.BuildBatch(
		[]string{"k", "v"},
		[]types.Type{types.T_int32.ToType(), types.T_varchar.ToType()})
	for i, s := range []string{"a", "b", "c"} {
		bat.Vecs[0].Append(int32(i+1), false)
		bat.Vecs[1].Append([]byte(s), false)
	}

	tx := db.TxnMgr.StartTxn()
	require.NoError(t, table.LocalAppendBatch(entry, tx, bat))

	// the writer sees its own local rows before commit
	own := scanAll(t, table, tx, allColumnIDs(table))
	require.Equal(t, 3, own.Length())

	require.NoError(t, db.CommitTxn(tx, nil))

	reader := db.TxnMgr.StartTxn()
	got := scanAll(t, table, reader, allColumnIDs(table))
	require.Equal(t, 3, got.Length())
	assert.Equal(t, []byte("b"), got.Vecs[1].Get(1))
	assert.Equal(t, uint64(3), table.info.Cardinality())
	assert.Equal(t, uint64(3), table.GetTotalRows())
}

func TestNotNullViolation(t *testing.T) {
	db := newTestDB(t)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int32.ToType(), true},
		testCol{"v", types.T_varchar.ToType(), false})

	bat := containers.BuildBatch(
		[]string{"k", "v"},
		[]types.Type{types.T_int32.ToType(), types.T_varchar.ToType()})
	bat.Vecs[0].Append(nil, true)
	bat.Vecs[1].Append([]byte("x"), false)

	tx := db.TxnMgr.StartTxn()
	err := table.LocalAppendBatch(entry, tx, bat)
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrConstraintViolation))
	assert.Contains(t, err.Error(), "kv.k")
	assert.Equal(t, uint64(0), table.info.Cardinality())
}

func TestEmptyChunkIsNoop(t *testing.T) {
	db := newTestDB(t)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})

	empty := containers.BuildBatch([]string{"k"}, []types.Type{types.T_int64.ToType()})
	tx := db.TxnMgr.StartTxn()
	require.NoError(t, table.LocalAppendBatch(entry, tx, empty))
	require.NoError(t, db.CommitTxn(tx, nil))
	assert.Equal(t, uint64(0), table.GetTotalRows())
	assert.Equal(t, uint64(0), table.info.Cardinality())
}

func TestScanEmptyTable(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	tx := db.TxnMgr.StartTxn()
	got := scanAll(t, table, tx, allColumnIDs(table))
	assert.Zero(t, got.Length())
}

func TestCardinalityAcrossRowGroups(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})

	// 50 rows over 4-row vectors and 8-row groups
	total := int64(50)
	vals := make([]int64, 0, total)
	for i := int64(0); i < total; i++ {
		vals = append(vals, i)
	}
	appendCommitted(t, db, "kv", int64Batch([]string{"k"}, vals))

	require.Equal(t, uint64(total), table.info.Cardinality())
	info := table.GetStorageInfo()
	require.Len(t, info, 7)
	assert.Equal(t, types.Rowid(48), info[6].Start)
	assert.Equal(t, 2, info[6].RowCount)

	reader := db.TxnMgr.StartTxn()
	got := scanAll(t, table, reader, allColumnIDs(table))
	assert.Equal(t, vals, sortedInt64Column(got, 0))
}

func TestFetchByRowid(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	appendCommitted(t, db, "kv", int64Batch([]string{"k"}, []int64{10, 20, 30}))

	tx := db.TxnMgr.StartTxn()
	result := table.BuildResultBatch([]int{0})
	var state ColumnFetchState
	fetched := table.Fetch(tx, result, []int{0}, []types.Rowid{1, 2}, 2, &state)
	require.Equal(t, 2, fetched)
	assert.Equal(t, int64(20), result.Vecs[0].Get(0))
	assert.Equal(t, int64(30), result.Vecs[0].Get(1))
}

func TestAppendLockProtocolAndRevert(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	require.NoError(t, table.CreateIndex(
		index.NewBtreeIndex("kv_pk", true, false, []int{0}, []string{"k"})))

	appendCommitted(t, db, "kv", int64Batch([]string{"k"}, []int64{1, 2, 3}))

	uk := table.info.indexes
	countEntries := func() int {
		total := 0
		uk.Scan(func(idx index.Index) bool {
			total += idx.(*index.BtreeIndex).Count()
			return false
		})
		return total
	}
	require.Equal(t, 3, countEntries())

	// drive the raw commit-path append, then revert it
	tx := db.TxnMgr.StartTxn()
	bat := int64Batch([]string{"k"}, []int64{7, 8, 9, 10, 11})
	var state TableAppendState
	require.NoError(t, table.AppendLock(&state))
	require.Equal(t, types.Rowid(3), state.RowStart)
	require.NoError(t, table.InitializeAppend(tx, &state, uint64(bat.Length())))
	table.Append(bat, &state)
	require.NoError(t, table.AppendToIndexes(bat, state.RowStart))
	state.ReleaseLock()
	require.Equal(t, uint64(8), table.GetTotalRows())
	require.Equal(t, 8, countEntries())

	table.RevertAppend(state.RowStart, uint64(bat.Length()))
	assert.Equal(t, uint64(3), table.GetTotalRows())
	assert.Equal(t, uint64(3), table.info.Cardinality())
	assert.Equal(t, 3, countEntries())

	reader := db.TxnMgr.StartTxn()
	got := scanAll(t, table, reader, allColumnIDs(table))
	assert.Equal(t, []int64{1, 2, 3}, sortedInt64Column(got, 0))
}

func TestInitializeAppendWithoutLockPanics(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	tx := db.TxnMgr.StartTxn()
	require.Panics(t, func() {
		_ = table.InitializeAppend(tx, &TableAppendState{}, 1)
	})
}

func TestDeleteRouting(t *testing.T) {
	db := newTestDB(t)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	appendCommitted(t, db, "kv", int64Batch([]string{"k"}, []int64{1, 2, 3}))

	// zero rows is a no-op
	tx := db.TxnMgr.StartTxn()
	n, err := table.Delete(entry, tx, nil, 0)
	require.NoError(t, err)
	require.Zero(t, n)

	// persistent delete: invisible to the deleter, visible to older
	// snapshots until commit
	n, err = table.Delete(entry, tx, []types.Rowid{1}, 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	own := scanAll(t, table, tx, allColumnIDs(table))
	assert.Equal(t, []int64{1, 3}, sortedInt64Column(own, 0))

	other := db.TxnMgr.StartTxn()
	before := scanAll(t, table, other, allColumnIDs(table))
	assert.Equal(t, []int64{1, 2, 3}, sortedInt64Column(before, 0))

	require.NoError(t, db.CommitTxn(tx, nil))
	after := scanAll(t, table, db.TxnMgr.StartTxn(), allColumnIDs(table))
	assert.Equal(t, []int64{1, 3}, sortedInt64Column(after, 0))

	// a rolled back delete leaves no tombstone
	rollback := db.TxnMgr.StartTxn()
	n, err = table.Delete(entry, rollback, []types.Rowid{0}, 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	db.RollbackTxn(rollback)
	final := scanAll(t, table, db.TxnMgr.StartTxn(), allColumnIDs(table))
	assert.Equal(t, []int64{1, 3}, sortedInt64Column(final, 0))
}

func TestDeleteLocalRows(t *testing.T) {
	db := newTestDB(t)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})

	tx := db.TxnMgr.StartTxn()
	require.NoError(t, table.LocalAppendBatch(entry, tx,
		int64Batch([]string{"k"}, []int64{5, 6, 7})))

	// find the local rowids through a rowid scan
	got := scanAll(t, table, tx, []int{0, RowidColumnID})
	require.Equal(t, 3, got.Length())
	rowid := got.Vecs[1].Get(1).(int64)
	require.True(t, types.IsLocalRowid(rowid))

	n, err := table.Delete(entry, tx, []types.Rowid{rowid}, 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	left := scanAll(t, table, tx, allColumnIDs(table))
	assert.Equal(t, []int64{5, 7}, sortedInt64Column(left, 0))

	require.NoError(t, db.CommitTxn(tx, nil))
	committed := scanAll(t, table, db.TxnMgr.StartTxn(), allColumnIDs(table))
	assert.Equal(t, []int64{5, 7}, sortedInt64Column(committed, 0))
	assert.Equal(t, uint64(2), table.info.Cardinality())
}

func TestUpdateRoutingAndNoop(t *testing.T) {
	db := newTestDB(t)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false},
		testCol{"v", types.T_int64.ToType(), false})
	appendCommitted(t, db, "kv",
		int64Batch([]string{"k", "v"}, []int64{1, 2}, []int64{10, 20}))

	tx := db.TxnMgr.StartTxn()
	empty := containers.BuildBatch([]string{"v"}, []types.Type{types.T_int64.ToType()})
	require.NoError(t, table.Update(entry, tx, nil, []int{1}, empty))

	updates := int64Batch([]string{"v"}, []int64{99})
	require.NoError(t, table.Update(entry, tx, []types.Rowid{0}, []int{1}, updates))

	got := scanAll(t, table, db.TxnMgr.StartTxn(), allColumnIDs(table))
	assert.Equal(t, []int64{20, 99}, sortedInt64Column(got, 1))
}

func TestUpdateColumn(t *testing.T) {
	db := newTestDB(t)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false},
		testCol{"v", types.T_varchar.ToType(), false})

	bat := containers.BuildBatch(
		[]string{"k", "v"},
		[]types.Type{types.T_int64.ToType(), types.T_varchar.ToType()})
	bat.Vecs[0].Append(int64(1), false)
	bat.Vecs[1].Append([]byte("one"), false)
	bat.Vecs[0].Append(int64(2), false)
	bat.Vecs[1].Append([]byte("original"), false)
	appendCommitted(t, db, "kv", bat)

	tx := db.TxnMgr.StartTxn()
	updates := containers.BuildBatch([]string{"v"}, []types.Type{types.T_varchar.ToType()})
	updates.Vecs[0].Append([]byte("z"), false)
	require.NoError(t, table.UpdateColumn(entry, tx, []types.Rowid{0}, []int{1}, updates))

	got := scanAll(t, table, db.TxnMgr.StartTxn(), allColumnIDs(table))
	require.Equal(t, 2, got.Length())
	assert.Equal(t, []byte("z"), got.Vecs[1].Get(0))
	assert.Equal(t, []byte("original"), got.Vecs[1].Get(1))
}

func TestUpdateIndexedColumnPanics(t *testing.T) {
	db := newTestDB(t)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	require.NoError(t, table.CreateIndex(
		index.NewBtreeIndex("kv_pk", true, false, []int{0}, nil)))
	appendCommitted(t, db, "kv", int64Batch([]string{"k"}, []int64{1}))

	tx := db.TxnMgr.StartTxn()
	updates := int64Batch([]string{"k"}, []int64{2})
	require.Panics(t, func() {
		_ = table.Update(entry, tx, []types.Rowid{0}, []int{0}, updates)
	})
}

func TestAddColumnWithDefault(t *testing.T) {
	db := newTestDB(t)
	entry, parent := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	appendCommitted(t, db, "kv", int64Batch([]string{"k"}, []int64{1, 2, 3, 4, 5}))

	tx := db.TxnMgr.StartTxn()
	def := &catalog.ColDef{Name: "d", Type: types.T_int32.ToType(), NullAbility: true}
	successor, err := NewTableAddColumn(tx, parent, def,
		&catalog.ConstExpr{Typ: types.T_int32.ToType(), Val: int32(7)})
	require.NoError(t, err)

	assert.False(t, parent.IsRoot())
	assert.True(t, successor.IsRoot())
	assert.Same(t, parent.info, successor.info)

	_, resolved := currentTable(t, db, "kv")
	assert.Same(t, successor, resolved)

	got := scanAll(t, successor, db.TxnMgr.StartTxn(), allColumnIDs(successor))
	require.Equal(t, 5, got.Length())
	for i := 0; i < got.Length(); i++ {
		assert.Equal(t, int32(7), got.Vecs[1].Get(i))
	}

	// the demoted parent rejects mutation
	var state LocalAppendState
	err = parent.InitializeLocalAppend(&state, tx)
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrTxnWriteConflict))
	_ = entry
}

func TestDropColumnRejectedByIndex(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"a", types.T_int64.ToType(), false},
		testCol{"b", types.T_int64.ToType(), false})
	require.NoError(t, table.CreateIndex(
		index.NewBtreeIndex("kv_uk", true, false, []int{1}, nil)))

	tx := db.TxnMgr.StartTxn()

	// directly indexed
	_, err := NewTableDropColumn(tx, table, 1)
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrCatalog))

	// an index depends on a column after the dropped one
	_, err = NewTableDropColumn(tx, table, 0)
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrCatalog))

	// the table is untouched
	assert.True(t, table.IsRoot())
	assert.Len(t, table.ColumnDefs(), 2)
	_, resolved := currentTable(t, db, "kv")
	assert.Same(t, table, resolved)
}

func TestDropColumn(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"a", types.T_int64.ToType(), false},
		testCol{"b", types.T_int64.ToType(), false})
	appendCommitted(t, db, "kv",
		int64Batch([]string{"a", "b"}, []int64{1, 2}, []int64{10, 20}))

	tx := db.TxnMgr.StartTxn()
	successor, err := NewTableDropColumn(tx, table, 0)
	require.NoError(t, err)
	require.Len(t, successor.ColumnDefs(), 1)
	assert.Equal(t, "b", successor.ColumnDefs()[0].Name)
	assert.Equal(t, 0, successor.ColumnDefs()[0].StorageIdx)

	got := scanAll(t, successor, db.TxnMgr.StartTxn(), allColumnIDs(successor))
	assert.Equal(t, []int64{10, 20}, sortedInt64Column(got, 0))
}

func TestAlterType(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int32.ToType(), false})

	bat := containers.BuildBatch([]string{"k"}, []types.Type{types.T_int32.ToType()})
	for _, v := range []int32{3, 1, 2} {
		bat.Vecs[0].Append(v, false)
	}
	appendCommitted(t, db, "kv", bat)

	tx := db.TxnMgr.StartTxn()
	cast := &catalog.CastExpr{
		Target: types.T_int64.ToType(),
		Child:  &catalog.ColumnExpr{Typ: types.T_int32.ToType(), ColIdx: 0, Name: "k"},
	}
	successor, err := NewTableAlterType(tx, table, 0, types.T_int64.ToType(), cast)
	require.NoError(t, err)

	got := scanAll(t, successor, db.TxnMgr.StartTxn(), allColumnIDs(successor))
	assert.Equal(t, []int64{1, 2, 3}, sortedInt64Column(got, 0))

	// statistics were recomputed during conversion
	stats := successor.GetStatistics(0)
	assert.Equal(t, int64(1), stats.Min)
	assert.Equal(t, int64(3), stats.Max)
}

func TestAlterTypeRejectedByIndex(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int32.ToType(), false})
	require.NoError(t, table.CreateIndex(
		index.NewBtreeIndex("kv_pk", true, false, []int{0}, nil)))

	tx := db.TxnMgr.StartTxn()
	cast := &catalog.CastExpr{
		Target: types.T_int64.ToType(),
		Child:  &catalog.ColumnExpr{Typ: types.T_int32.ToType(), ColIdx: 0, Name: "k"},
	}
	_, err := NewTableAlterType(tx, table, 0, types.T_int64.ToType(), cast)
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrCatalog))
	assert.True(t, table.IsRoot())
}

func TestAddConstraintNotNull(t *testing.T) {
	db := newTestDB(t)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	appendCommitted(t, db, "kv", int64Batch([]string{"k"}, []int64{1, 2}))

	tx := db.TxnMgr.StartTxn()
	successor, err := NewTableAddConstraint(tx, table, &catalog.NotNull{ColIdx: 0})
	require.NoError(t, err)
	assert.False(t, table.IsRoot())
	assert.False(t, successor.ColumnDefs()[0].Nullable())

	// the new root rejects nulls now
	newEntry, resolved := currentTable(t, db, "kv")
	bat := containers.BuildBatch([]string{"k"}, []types.Type{types.T_int64.ToType()})
	bat.Vecs[0].Append(nil, true)
	tx2 := db.TxnMgr.StartTxn()
	err = resolved.LocalAppendBatch(newEntry, tx2, bat)
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrConstraintViolation))
	_ = entry
}

func TestAddConstraintNotNullRejectsOffendingRows(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	bat := containers.BuildBatch([]string{"k"}, []types.Type{types.T_int64.ToType()})
	bat.Vecs[0].Append(int64(1), false)
	bat.Vecs[0].Append(nil, true)
	appendCommitted(t, db, "kv", bat)

	tx := db.TxnMgr.StartTxn()
	_, err := NewTableAddConstraint(tx, table, &catalog.NotNull{ColIdx: 0})
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrConstraintViolation))
	assert.True(t, table.IsRoot())
}

func TestAddConstraintUnsupportedKind(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	tx := db.TxnMgr.StartTxn()
	_, err := NewTableAddConstraint(tx, table, &catalog.Unique{Columns: []int{0}})
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrNYI))
}

func TestAddConstraintChecksLocalRows(t *testing.T) {
	db := newTestDB(t)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})

	tx := db.TxnMgr.StartTxn()
	bat := containers.BuildBatch([]string{"k"}, []types.Type{types.T_int64.ToType()})
	bat.Vecs[0].Append(nil, true)
	require.NoError(t, table.LocalAppendBatch(entry, tx, bat))

	_, err := NewTableAddConstraint(tx, table, &catalog.NotNull{ColIdx: 0})
	require.Error(t, err)
	assert.True(t, dberr.IsErrCode(err, dberr.ErrConstraintViolation))
}

func TestScanTableSegmentSlicing(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	vals := make([]int64, 20)
	for i := range vals {
		vals[i] = int64(i)
	}
	appendCommitted(t, db, "kv", int64Batch([]string{"k"}, vals))

	// [6, 15) crosses vector and row-group boundaries unaligned
	got := make([]int64, 0)
	table.ScanTableSegment(6, 9, func(bat *containers.Batch) {
		for i := 0; i < bat.Length(); i++ {
			got = append(got, bat.Vecs[0].Get(i).(int64))
		}
	})
	assert.Equal(t, []int64{6, 7, 8, 9, 10, 11, 12, 13, 14}, got)
}

func TestParallelScan(t *testing.T) {
	opts := testOptions()
	opts.VerifyParallelism = true
	db := NewDatabase("testdb", opts)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})

	vals := make([]int64, 17)
	for i := range vals {
		vals[i] = int64(i)
	}
	appendCommitted(t, db, "kv", int64Batch([]string{"k"}, vals))

	tx := db.TxnMgr.StartTxn()
	require.NoError(t, table.LocalAppendBatch(entry, tx,
		int64Batch([]string{"k"}, []int64{100, 101})))

	// 17 rows / 4-row chunks under deterministic parallelism
	assert.Equal(t, 5, table.MaxThreads())

	state := &ParallelTableScanState{}
	table.InitializeParallelScan(tx, state)

	var mu sync.Mutex
	got := make([]int64, 0, 19)
	pool := tasks.NewPool(4)
	defer pool.Release()
	for {
		scanState := &TableScanState{}
		scanState.Initialize(allColumnIDs(table), nil)
		if !table.NextParallelScan(tx, state, scanState) {
			break
		}
		require.NoError(t, pool.Submit(func() {
			for {
				chunk := table.BuildResultBatch([]int{0})
				if !table.rowGroups.Scan(tx, &scanState.TableState, []int{0}, nil, chunk) &&
					!db.GetLocalStorage(tx).Scan(&scanState.LocalState, []int{0}, nil, chunk) {
					break
				}
				mu.Lock()
				for i := 0; i < chunk.Length(); i++ {
					got = append(got, chunk.Vecs[0].Get(i).(int64))
				}
				mu.Unlock()
			}
		}))
	}
	pool.Wait()

	want := append(append([]int64{}, vals...), 100, 101)
	mu.Lock()
	gotSorted := append([]int64{}, got...)
	mu.Unlock()
	bat := int64Batch([]string{"k"}, gotSorted)
	assert.Equal(t, want, sortedInt64Column(bat, 0))
}

func TestGetStatistics(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	appendCommitted(t, db, "kv", int64Batch([]string{"k"}, []int64{5, 1, 9, 1}))

	stats := table.GetStatistics(0)
	require.NotNil(t, stats)
	assert.Equal(t, int64(1), stats.Min)
	assert.Equal(t, int64(9), stats.Max)
	assert.Equal(t, uint64(0), stats.NullCount)
	assert.Equal(t, uint64(3), stats.DistinctCount())

	assert.Nil(t, table.GetStatistics(RowidColumnID))

	// copies do not alias the live stats
	stats.Min = int64(-100)
	assert.Equal(t, int64(1), table.GetStatistics(0).Min)

	table.SetStatistics(0, func(s *ColumnStats) {
		s.Max = int64(1000)
	})
	assert.Equal(t, int64(1000), table.GetStatistics(0).Max)
}

func TestMergeStorageKeepsUnusedIndexArgument(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})

	data := NewRowGroupCollection([]string{"k"},
		[]types.Type{types.T_int64.ToType()}, db.opts)
	state := &TableAppendState{}
	data.InitializeAppend(state, 3)
	data.Append(int64Batch([]string{"k"}, []int64{1, 2, 3}), state)

	table.MergeStorage(data, index.NewTableIndexList())
	assert.Equal(t, uint64(3), table.GetTotalRows())
}

func TestDropTable(t *testing.T) {
	db := newTestDB(t)
	_, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	require.NoError(t, db.DropTable("kv"))
	assert.True(t, table.rowGroups.Dropped())
	_, _, err := db.GetEntry("main", "kv")
	require.Error(t, err)
}

func TestScanWithFilters(t *testing.T) {
	db := newTestDB(t)
	entry, table := createTestTable(t, db, "kv",
		testCol{"k", types.T_int64.ToType(), false})
	appendCommitted(t, db, "kv", int64Batch([]string{"k"}, []int64{1, 2, 3, 4, 5, 6}))

	tx := db.TxnMgr.StartTxn()
	require.NoError(t, table.LocalAppendBatch(entry, tx,
		int64Batch([]string{"k"}, []int64{7, 8})))

	filters := TableFilterSet{
		0: func(v any, isNull bool) bool {
			return !isNull && v.(int64)%2 == 0
		},
	}
	state := &TableScanState{}
	table.InitializeScanWithTxn(tx, state, []int{0}, filters)
	got := table.BuildResultBatch([]int{0})
	for {
		chunk := table.BuildResultBatch([]int{0})
		if !table.Scan(tx, chunk, state) {
			break
		}
		got.Extend(chunk)
	}
	assert.Equal(t, []int64{2, 4, 6, 8}, sortedInt64Column(got, 0))
}
