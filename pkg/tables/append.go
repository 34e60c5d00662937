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
	"github.com/pidb/duckdb/pkg/catalog"
	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
	"github.com/pidb/duckdb/pkg/index"
	"github.com/pidb/duckdb/pkg/txn"
	"github.com/pidb/duckdb/pkg/wal"
)

//===--------------------------------------------------------------------===//
// Local append
//===--------------------------------------------------------------------===//

// InitializeLocalAppend opens an append stream into the transaction's
// local storage.
func (t *Table) InitializeLocalAppend(state *LocalAppendState, tx *txn.Txn) error {
	if !t.isRoot.Load() {
		return dberr.NewTxnWriteConflict("adding entries to a table that has been altered")
	}
	ls := t.db.GetLocalStorage(tx)
	ls.InitializeAppend(state, t)
	return nil
}

// LocalAppend verifies the chunk's constraints and buffers it in the
// transaction's local storage. Empty chunks are a no-op. The unsafe flag
// skips verification for callers that already verified.
func (t *Table) LocalAppend(state *LocalAppendState, entry *catalog.TableEntry, tx *txn.Txn, bat *containers.Batch, unsafe bool) error {
	if bat.Length() == 0 {
		return nil
	}
	if bat.ColumnCount() != len(t.storageAttrs()) {
		panic(dberr.NewInternalError("append chunk arity %d does not match table %q",
			bat.ColumnCount(), t.info.tableName))
	}
	if !t.isRoot.Load() {
		return dberr.NewTxnWriteConflict("adding entries to a table that has been altered")
	}
	if !unsafe {
		if err := t.VerifyAppendConstraints(entry, tx, bat, nil); err != nil {
			return err
		}
	}
	ls := t.db.GetLocalStorage(tx)
	return ls.Append(state, bat)
}

func (t *Table) FinalizeLocalAppend(state *LocalAppendState) {
	state.storage = nil
}

// LocalAppendBatch is the one-chunk convenience: initialize, append,
// finalize.
func (t *Table) LocalAppendBatch(entry *catalog.TableEntry, tx *txn.Txn, bat *containers.Batch) error {
	var state LocalAppendState
	if err := t.InitializeLocalAppend(&state, tx); err != nil {
		return err
	}
	if err := t.LocalAppend(&state, entry, tx, bat, false); err != nil {
		return err
	}
	t.FinalizeLocalAppend(&state)
	return nil
}

// CreateOptimisticWriter opens a writer that spills large appends outside
// the local row collection.
func (t *Table) CreateOptimisticWriter(tx *txn.Txn) *OptimisticDataWriter {
	ls := t.db.GetLocalStorage(tx)
	return ls.CreateOptimisticWriter(t)
}

// LocalMerge folds an optimistically written collection into the
// transaction's local rows.
func (t *Table) LocalMerge(tx *txn.Txn, collection *RowGroupCollection) error {
	ls := t.db.GetLocalStorage(tx)
	return ls.LocalMerge(t, collection)
}

//===--------------------------------------------------------------------===//
// Append (commit path)
//===--------------------------------------------------------------------===//

// AppendLock takes the append lock and pins the append position at the
// current row count.
func (t *Table) AppendLock(state *TableAppendState) error {
	t.appendMu.Lock()
	if !t.isRoot.Load() {
		t.appendMu.Unlock()
		return dberr.NewTxnWriteConflict("adding entries to a table that has been altered")
	}
	state.releaseAppendLock = t.appendMu.Unlock
	state.RowStart = types.Rowid(t.rowGroups.GetTotalRows())
	state.CurrentRow = state.RowStart
	return nil
}

// InitializeAppend reserves row-group space for appendCount rows. The
// append lock must be held through AppendLock.
func (t *Table) InitializeAppend(tx *txn.Txn, state *TableAppendState, appendCount uint64) error {
	if !state.Locked() {
		panic(dberr.NewInternalError("AppendLock must be called before InitializeAppend"))
	}
	t.rowGroups.InitializeAppend(state, appendCount)
	return nil
}

// Append streams one chunk into the reserved range.
func (t *Table) Append(bat *containers.Batch, state *TableAppendState) {
	if !t.isRoot.Load() {
		panic(dberr.NewInternalError("append on a non-root table"))
	}
	t.rowGroups.Append(bat, state)
}

// CommitAppend stamps the commit id on the appended range and moves the
// cardinality forward.
func (t *Table) CommitAppend(commitID types.TS, rowStart types.Rowid, count uint64) {
	t.appendMu.Lock()
	defer t.appendMu.Unlock()
	t.rowGroups.CommitAppend(commitID, rowStart, count)
	t.info.cardinality.Add(count)
}

// RevertAppendInternal truncates the row groups back to startRow and
// restores the cardinality.
func (t *Table) RevertAppendInternal(startRow types.Rowid, count uint64) {
	if count == 0 {
		return
	}
	t.info.cardinality.Store(uint64(startRow))
	if !t.isRoot.Load() {
		panic(dberr.NewInternalError("revert on a non-root table"))
	}
	t.rowGroups.RevertAppendInternal(startRow, count)
}

// RevertAppend removes the appended range from every index, re-scanning
// the range to regenerate its row identifiers, then truncates the row
// groups.
func (t *Table) RevertAppend(startRow types.Rowid, count uint64) {
	t.appendMu.Lock()
	defer t.appendMu.Unlock()

	if !t.info.indexes.Empty() {
		currentRowBase := startRow
		t.ScanTableSegment(startRow, count, func(bat *containers.Batch) {
			rowids := make([]types.Rowid, bat.Length())
			for i := range rowids {
				rowids[i] = currentRowBase + types.Rowid(i)
			}
			t.info.indexes.Scan(func(idx index.Index) bool {
				idx.Delete(bat, rowids)
				return false
			})
			currentRowBase += types.Rowid(bat.Length())
		})
	}
	t.RevertAppendInternal(startRow, count)
}

//===--------------------------------------------------------------------===//
// Segment scan & WAL
//===--------------------------------------------------------------------===//

// ScanTableSegment reads the committed rows in [rowStart, rowStart+count)
// and hands them to fn one vector at a time, slicing the boundary vectors
// when the range is not vector aligned.
func (t *Table) ScanTableSegment(rowStart types.Rowid, count uint64, fn func(bat *containers.Batch)) {
	if count == 0 {
		return
	}
	end := rowStart + types.Rowid(count)

	columnIDs := make([]int, len(t.storageAttrs()))
	for i := range columnIDs {
		columnIDs[i] = i
	}
	state := &TableScanState{}
	state.Initialize(columnIDs, nil)
	alignedStart := t.rowGroups.InitializeScanWithOffset(&state.TableState, rowStart, end)

	currentRow := alignedStart
	for currentRow < end {
		bat := t.BuildResultBatch(columnIDs)
		if !t.rowGroups.Scan(nil, &state.TableState, columnIDs, nil, bat) {
			break
		}
		endRow := currentRow + types.Rowid(bat.Length())
		chunkStart := currentRow
		if chunkStart < rowStart {
			chunkStart = rowStart
		}
		chunkEnd := endRow
		if chunkEnd > end {
			chunkEnd = end
		}
		chunkCount := int(chunkEnd - chunkStart)
		if chunkCount != bat.Length() {
			startInChunk := 0
			if currentRow < rowStart {
				startInChunk = int(rowStart - currentRow)
			}
			bat = bat.CloneWindow(startInChunk, chunkCount)
		}
		fn(bat)
		currentRow = endRow
	}
}

// WriteToLog emits the appended range as WAL insert records.
func (t *Table) WriteToLog(log *wal.Writer, rowStart types.Rowid, count uint64) error {
	if log.SkipWriting {
		return nil
	}
	if err := log.WriteSetTable(t.info.schemaName, t.info.tableName); err != nil {
		return err
	}
	var failed error
	t.ScanTableSegment(rowStart, count, func(bat *containers.Batch) {
		if failed != nil {
			return
		}
		failed = log.WriteInsert(bat)
	})
	return failed
}

// MergeStorage folds a row-group collection into the table's storage. The
// index list rides along for a later maintenance pass and is not consulted
// today.
func (t *Table) MergeStorage(data *RowGroupCollection, indexes *index.TableIndexList) {
	t.rowGroups.MergeStorage(data)
	t.rowGroups.Verify()
}

//===--------------------------------------------------------------------===//
// Index maintenance
//===--------------------------------------------------------------------===//

// AppendToIndexes inserts the chunk into every index, generating row
// identifiers from rowStart. A failing index unwinds the ones already fed.
func AppendToIndexes(indexes *index.TableIndexList, bat *containers.Batch, rowStart types.Rowid) error {
	if indexes.Empty() {
		return nil
	}
	rowids := make([]types.Rowid, bat.Length())
	for i := range rowids {
		rowids[i] = rowStart + types.Rowid(i)
	}

	var failed error
	alreadyAppended := make([]index.Index, 0)
	indexes.Scan(func(idx index.Index) bool {
		if err := idx.Append(bat, rowids); err != nil {
			failed = err
			return true
		}
		alreadyAppended = append(alreadyAppended, idx)
		return false
	})
	if failed != nil {
		for _, idx := range alreadyAppended {
			idx.Delete(bat, rowids)
		}
		return failed
	}
	return nil
}

func (t *Table) AppendToIndexes(bat *containers.Batch, rowStart types.Rowid) error {
	if !t.isRoot.Load() {
		panic(dberr.NewInternalError("index append on a non-root table"))
	}
	return AppendToIndexes(t.info.indexes, bat, rowStart)
}

// RemoveFromIndexes deletes the chunk's entries, regenerating row
// identifiers from rowStart.
func (t *Table) RemoveFromIndexes(bat *containers.Batch, rowStart types.Rowid) {
	if !t.isRoot.Load() {
		panic(dberr.NewInternalError("index removal on a non-root table"))
	}
	if t.info.indexes.Empty() {
		return
	}
	rowids := make([]types.Rowid, bat.Length())
	for i := range rowids {
		rowids[i] = rowStart + types.Rowid(i)
	}
	t.info.indexes.Scan(func(idx index.Index) bool {
		idx.Delete(bat, rowids)
		return false
	})
}

// RemoveRowidsFromIndexes deletes rows by identifier, re-fetching their
// key columns from storage.
func (t *Table) RemoveRowidsFromIndexes(rowids []types.Rowid, count int) {
	if !t.isRoot.Load() {
		panic(dberr.NewInternalError("index removal on a non-root table"))
	}
	t.rowGroups.RemoveFromIndexes(t.info.indexes, rowids, count)
}
