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

	"github.com/pidb/duckdb/pkg/catalog"
	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
	"github.com/pidb/duckdb/pkg/index"
	"github.com/pidb/duckdb/pkg/txn"
	"github.com/pidb/duckdb/pkg/wal"
)

// LocalTableStorage buffers one transaction's uncommitted rows of one
// table, with a parallel transaction-local index set.
type LocalTableStorage struct {
	table      *Table
	collection *RowGroupCollection
	indexes    *index.TableIndexList
}

func newLocalTableStorage(table *Table) *LocalTableStorage {
	storage := &LocalTableStorage{
		table:      table,
		collection: NewRowGroupCollection(table.storageAttrs(), table.storageTypes(), table.db.opts),
		indexes:    index.NewTableIndexList(),
	}
	// mirror the table's index set so uniqueness and foreign keys can be
	// checked against uncommitted rows
	table.info.indexes.Scan(func(idx index.Index) bool {
		storage.indexes.AddIndex(index.NewBtreeIndex(
			idx.Name(), idx.IsUnique(), idx.IsForeign(), idx.ColumnIDs(), nil))
		return false
	})
	return storage
}

func (storage *LocalTableStorage) rowCount() uint64 {
	return storage.collection.GetTotalRows()
}

// LocalStorage holds one transaction's uncommitted data across tables,
// keyed by table identity.
type LocalStorage struct {
	txn *txn.Txn

	mu     sync.Mutex
	tables map[*Table]*LocalTableStorage
	// touched tracks tables that received persistent tombstones, so commit
	// and rollback can resolve them.
	touched map[*Table]bool
}

func NewLocalStorage(t *txn.Txn) *LocalStorage {
	return &LocalStorage{
		txn:     t,
		tables:  make(map[*Table]*LocalTableStorage),
		touched: make(map[*Table]bool),
	}
}

func (ls *LocalStorage) markDeleted(table *Table) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.touched[table] = true
}

func (ls *LocalStorage) find(table *Table) *LocalTableStorage {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.tables[table]
}

func (ls *LocalStorage) getOrCreate(table *Table) *LocalTableStorage {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	storage := ls.tables[table]
	if storage == nil {
		storage = newLocalTableStorage(table)
		ls.tables[table] = storage
	}
	return storage
}

// Find reports whether this transaction buffered any data for table.
func (ls *LocalStorage) Find(table *Table) bool {
	return ls.find(table) != nil
}

// GetIndexes returns the transaction-local index set of table.
func (ls *LocalStorage) GetIndexes(table *Table) *index.TableIndexList {
	storage := ls.find(table)
	if storage == nil {
		panic(dberr.NewInternalError("no local storage for table %s", table.info.tableName))
	}
	return storage.indexes
}

//===--------------------------------------------------------------------===//
// Append
//===--------------------------------------------------------------------===//

func (ls *LocalStorage) InitializeAppend(state *LocalAppendState, table *Table) {
	state.storage = ls.getOrCreate(table)
}

// Append buffers one verified chunk and feeds the transaction-local
// indexes. Within-transaction duplicates surface here.
func (ls *LocalStorage) Append(state *LocalAppendState, bat *containers.Batch) error {
	storage := state.storage
	rowStart := types.LocalRowid(storage.rowCount())
	appendState := &TableAppendState{RowStart: types.Rowid(storage.rowCount())}
	storage.collection.InitializeAppend(appendState, uint64(bat.Length()))
	storage.collection.Append(bat, appendState)

	rowids := make([]types.Rowid, bat.Length())
	for i := range rowids {
		rowids[i] = rowStart + types.Rowid(i)
	}
	var failed error
	appended := make([]index.Index, 0)
	storage.indexes.Scan(func(idx index.Index) bool {
		if err := idx.Append(bat, rowids); err != nil {
			failed = err
			return true
		}
		appended = append(appended, idx)
		return false
	})
	if failed != nil {
		for _, idx := range appended {
			idx.Delete(bat, rowids)
		}
		storage.collection.RevertAppendInternal(appendState.RowStart, uint64(bat.Length()))
		return failed
	}
	return nil
}

func (ls *LocalStorage) FinalizeAppend(state *LocalAppendState) {
	state.storage = nil
}

//===--------------------------------------------------------------------===//
// Scan & fetch
//===--------------------------------------------------------------------===//

func (ls *LocalStorage) InitializeScan(table *Table, state *LocalScanState) {
	storage := ls.find(table)
	if storage == nil {
		state.bound = false
		return
	}
	state.storage = storage
	storage.collection.InitializeScan(&state.tableScan, scanTypeLocal)
	state.bound = true
}

// Scan yields up to one vector of the transaction's local rows. Rowid
// pseudo columns are rebased into the local identifier range.
func (ls *LocalStorage) Scan(state *LocalScanState, columnIDs []int, filters TableFilterSet, result *containers.Batch) bool {
	if !state.bound {
		return false
	}
	before := result.Length()
	if !state.storage.collection.Scan(ls.txn, &state.tableScan, columnIDs, filters, result) {
		return false
	}
	for i, col := range columnIDs {
		if col != RowidColumnID {
			continue
		}
		vec := result.Vecs[i]
		for row := before; row < vec.Length(); row++ {
			vec.Update(row, types.LocalRowid(uint64(vec.Get(row).(int64))), false)
		}
	}
	return true
}

func (ls *LocalStorage) InitializeParallelScan(table *Table, state *ParallelLocalScanState) {
	state.storage = ls.find(table)
	state.done = false
}

// NextParallelScan hands out the transaction-local rows as a single task;
// local storage is single-threaded per transaction.
func (ls *LocalStorage) NextParallelScan(table *Table, state *ParallelLocalScanState, scanState *LocalScanState) bool {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.storage == nil || state.done {
		return false
	}
	state.done = true
	scanState.storage = state.storage
	state.storage.collection.InitializeScan(&scanState.tableScan, scanTypeLocal)
	scanState.bound = true
	return true
}

// FetchChunk materializes the local rows addressed by rowids, all stored
// columns, for delete-side constraint verification.
func (ls *LocalStorage) FetchChunk(table *Table, rowids []types.Rowid, count int) (*containers.Batch, error) {
	storage := ls.find(table)
	if storage == nil {
		return nil, dberr.NewInternalError("no local storage for table %s", table.info.tableName)
	}
	result := containers.BuildBatch(table.storageAttrs(), table.storageTypes())
	ids := make([]types.Rowid, count)
	for i := 0; i < count; i++ {
		ids[i] = types.Rowid(types.LocalRowidOffset(rowids[i]))
	}
	all := make([]int, len(result.Vecs))
	for i := range all {
		all[i] = i
	}
	storage.collection.fetch(ls.txn, scanTypeLocal, result, all, ids, count)
	return result, nil
}

//===--------------------------------------------------------------------===//
// Delete & update
//===--------------------------------------------------------------------===//

// Delete tombstones local rows and unhooks them from the local indexes.
func (ls *LocalStorage) Delete(table *Table, rowids []types.Rowid, count int) int {
	storage := ls.find(table)
	if storage == nil {
		return 0
	}
	if !storage.indexes.Empty() {
		if bat, err := ls.FetchChunk(table, rowids, count); err == nil && bat.Length() > 0 {
			local := rowids[:count]
			storage.indexes.Scan(func(idx index.Index) bool {
				idx.Delete(bat, local)
				return false
			})
		}
	}
	ids := make([]types.Rowid, count)
	for i := 0; i < count; i++ {
		ids[i] = types.Rowid(types.LocalRowidOffset(rowids[i]))
	}
	return storage.collection.Delete(ls.txn, ids, count)
}

func (ls *LocalStorage) Update(table *Table, rowids []types.Rowid, columnIDs []int, updates *containers.Batch) {
	storage := ls.find(table)
	if storage == nil {
		panic(dberr.NewInternalError("update on a table without local storage"))
	}
	ids := make([]types.Rowid, updates.Length())
	for i := range ids {
		ids[i] = types.Rowid(types.LocalRowidOffset(rowids[i]))
	}
	storage.collection.Update(ls.txn, ids, columnIDs, updates)
}

//===--------------------------------------------------------------------===//
// Schema change mirrors
//===--------------------------------------------------------------------===//

// AddColumn rebuilds outstanding local data for the successor table.
func (ls *LocalStorage) AddColumn(old, next *Table, def *catalog.ColDef, defaultExpr catalog.Expr) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	storage := ls.tables[old]
	if storage == nil {
		return nil
	}
	collection, err := storage.collection.AddColumn(def, defaultExpr)
	if err != nil {
		return err
	}
	storage.collection = collection
	storage.table = next
	delete(ls.tables, old)
	ls.tables[next] = storage
	return nil
}

func (ls *LocalStorage) DropColumn(old, next *Table, removedStorageIdx int) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	storage := ls.tables[old]
	if storage == nil {
		return
	}
	storage.collection = storage.collection.RemoveColumn(removedStorageIdx)
	storage.table = next
	delete(ls.tables, old)
	ls.tables[next] = storage
}

func (ls *LocalStorage) ChangeType(old, next *Table, changedStorageIdx int, target types.Type, castExpr catalog.Expr) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	storage := ls.tables[old]
	if storage == nil {
		return nil
	}
	collection, err := storage.collection.AlterType(changedStorageIdx, target, castExpr)
	if err != nil {
		return err
	}
	storage.collection = collection
	storage.table = next
	delete(ls.tables, old)
	ls.tables[next] = storage
	return nil
}

// MoveStorage hands the outstanding local data of old to its successor.
func (ls *LocalStorage) MoveStorage(old, next *Table) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	storage := ls.tables[old]
	if storage == nil {
		return
	}
	storage.table = next
	delete(ls.tables, old)
	ls.tables[next] = storage
}

// VerifyNewConstraint checks outstanding local rows against a NOT NULL
// constraint being added.
func (ls *LocalStorage) VerifyNewConstraint(table *Table, colName string, storageIdx int) error {
	storage := ls.find(table)
	if storage == nil {
		return nil
	}
	return storage.collection.VerifyNewConstraint(table.info.tableName, colName, storageIdx)
}

//===--------------------------------------------------------------------===//
// Optimistic writes
//===--------------------------------------------------------------------===//

// OptimisticDataWriter accumulates large appends into a private collection
// that is merged into local storage in one step.
type OptimisticDataWriter struct {
	table      *Table
	collection *RowGroupCollection
}

func (w *OptimisticDataWriter) WriteNewRowGroup(bat *containers.Batch) {
	state := &TableAppendState{RowStart: types.Rowid(w.collection.GetTotalRows())}
	w.collection.InitializeAppend(state, uint64(bat.Length()))
	w.collection.Append(bat, state)
}

func (w *OptimisticDataWriter) Collection() *RowGroupCollection {
	return w.collection
}

func (ls *LocalStorage) CreateOptimisticWriter(table *Table) *OptimisticDataWriter {
	return &OptimisticDataWriter{
		table:      table,
		collection: NewRowGroupCollection(table.storageAttrs(), table.storageTypes(), table.db.opts),
	}
}

// LocalMerge folds an optimistically written collection into the
// transaction's local rows, feeding the local indexes.
func (ls *LocalStorage) LocalMerge(table *Table, collection *RowGroupCollection) error {
	storage := ls.getOrCreate(table)
	rowStart := types.LocalRowid(storage.rowCount())
	storage.collection.MergeStorage(collection)
	if storage.indexes.Empty() {
		return nil
	}
	var failed error
	collection.mu.RLock()
	defer collection.mu.RUnlock()
	offset := types.Rowid(0)
	for _, g := range collection.groups {
		rowids := make([]types.Rowid, g.rows())
		for i := range rowids {
			rowids[i] = rowStart + offset + types.Rowid(i)
		}
		storage.indexes.Scan(func(idx index.Index) bool {
			if err := idx.Append(g.bat, rowids); err != nil {
				failed = err
				return true
			}
			return false
		})
		if failed != nil {
			return failed
		}
		offset += types.Rowid(g.rows())
	}
	return nil
}

//===--------------------------------------------------------------------===//
// Commit & rollback
//===--------------------------------------------------------------------===//

// Commit flushes every buffered table into its row groups under the append
// protocol, emits the WAL records, and stamps deletes. On an index failure
// the partially flushed range is reverted and the error returned.
func (ls *LocalStorage) Commit(commitID types.TS, log *wal.Writer) error {
	ls.mu.Lock()
	tables := make([]*LocalTableStorage, 0, len(ls.tables))
	for _, storage := range ls.tables {
		tables = append(tables, storage)
	}
	touched := make([]*Table, 0, len(ls.touched))
	for table := range ls.touched {
		if _, buffered := ls.tables[table]; !buffered {
			touched = append(touched, table)
		}
	}
	ls.mu.Unlock()

	for _, storage := range tables {
		if err := ls.flushTable(storage, commitID, log); err != nil {
			return err
		}
	}
	for _, table := range touched {
		table.rowGroups.CommitDeletes(ls.txn.ID, commitID)
	}
	ls.mu.Lock()
	ls.tables = make(map[*Table]*LocalTableStorage)
	ls.touched = make(map[*Table]bool)
	ls.mu.Unlock()
	return nil
}

func (ls *LocalStorage) flushTable(storage *LocalTableStorage, commitID types.TS, log *wal.Writer) error {
	table := storage.table
	appendCount := storage.rowCount()

	var state TableAppendState
	if appendCount > 0 {
		if err := table.AppendLock(&state); err != nil {
			return err
		}
		defer state.ReleaseLock()
		if err := table.InitializeAppend(ls.txn, &state, appendCount); err != nil {
			return err
		}

		scan := &LocalScanState{}
		ls.InitializeScan(table, scan)
		columnIDs := make([]int, len(table.storageAttrs()))
		for i := range columnIDs {
			columnIDs[i] = i
		}
		flushed := uint64(0)
		for {
			result := containers.BuildBatch(table.storageAttrs(), table.storageTypes())
			if !ls.Scan(scan, columnIDs, nil, result) {
				break
			}
			table.Append(result, &state)
			if err := table.AppendToIndexes(result, state.RowStart+types.Rowid(flushed)); err != nil {
				removed := uint64(0)
				table.ScanTableSegment(state.RowStart, flushed, func(bat *containers.Batch) {
					table.RemoveFromIndexes(bat, state.RowStart+types.Rowid(removed))
					removed += uint64(bat.Length())
				})
				table.RevertAppendInternal(state.RowStart, flushed+uint64(result.Length()))
				return err
			}
			flushed += uint64(result.Length())
		}
		if log != nil {
			if err := table.WriteToLog(log, state.RowStart, flushed); err != nil {
				return err
			}
		}
		// CommitAppend retakes the append lock
		state.ReleaseLock()
		table.CommitAppend(commitID, state.RowStart, flushed)
	}
	table.rowGroups.CommitDeletes(ls.txn.ID, commitID)
	return nil
}

// Rollback drops buffered rows and clears persistent tombstones left by
// the transaction.
func (ls *LocalStorage) Rollback() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for table := range ls.tables {
		table.rowGroups.RevertDeletes(ls.txn.ID)
	}
	for table := range ls.touched {
		table.rowGroups.RevertDeletes(ls.txn.ID)
	}
	ls.tables = make(map[*Table]*LocalTableStorage)
	ls.touched = make(map[*Table]bool)
}
