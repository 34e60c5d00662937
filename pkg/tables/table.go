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
	"sync/atomic"

	"github.com/pidb/duckdb/pkg/catalog"
	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
	"github.com/pidb/duckdb/pkg/index"
	"github.com/pidb/duckdb/pkg/logutil"
	"github.com/pidb/duckdb/pkg/txn"
)

// Table is the storage façade of one logical table. It multiplexes the
// committed row groups, the per-transaction local storage and the index
// set. A schema change produces a successor sharing the same TableInfo and
// demotes this table; a demoted table rejects every mutation.
type Table struct {
	db   *Database
	info *TableInfo

	columnDefs []*catalog.ColDef
	rowGroups  *RowGroupCollection

	// appendMu serializes append initialization, cardinality moves, revert
	// and schema change.
	appendMu sync.Mutex
	isRoot   atomic.Bool
}

// NewTable builds a table from persistent data, or empty when data is nil.
func NewTable(db *Database, schemaName, tableName string, entry *catalog.TableEntry, data *PersistentTableData) *Table {
	t := &Table{
		db:   db,
		info: NewTableInfo(db, schemaName, tableName),
	}
	for _, def := range entry.Schema.ColDefs {
		t.columnDefs = append(t.columnDefs, def.Clone())
	}
	t.rowGroups = NewRowGroupCollection(t.storageAttrs(), t.storageTypes(), db.opts)
	if data != nil && len(data.RowGroups) > 0 {
		t.rowGroups.Initialize(data)
	} else {
		t.rowGroups.InitializeEmpty()
	}
	t.info.cardinality.Store(t.rowGroups.GetTotalRows())
	t.rowGroups.Verify()
	t.isRoot.Store(true)
	return t
}

func (t *Table) newSuccessor(defs []*catalog.ColDef, rowGroups *RowGroupCollection) *Table {
	successor := &Table{
		db:         t.db,
		info:       t.info,
		columnDefs: defs,
		rowGroups:  rowGroups,
	}
	successor.isRoot.Store(true)
	return successor
}

// publish installs the successor in the catalog and demotes the parent.
// The parent's append lock must be held.
func (t *Table) publish(successor *Table, entry *catalog.TableEntry) {
	t.db.install(t.info.tableName, successor, entry)
	t.isRoot.Store(false)
}

func (t *Table) successorEntry(extra ...catalog.Constraint) *catalog.TableEntry {
	old, _, err := t.db.GetEntry(t.info.schemaName, t.info.tableName)
	if err != nil {
		panic(dberr.NewInternalError("table %q lost its catalog entry", t.info.tableName))
	}
	schema := &catalog.Schema{Name: t.info.tableName}
	entry := catalog.NewTableEntry(schema)
	entry.Constraints = append(append([]catalog.Constraint{}, old.Constraints...), extra...)
	return entry
}

func (t *Table) IsRoot() bool {
	return t.isRoot.Load()
}

func (t *Table) Info() *TableInfo {
	return t.info
}

func (t *Table) ColumnDefs() []*catalog.ColDef {
	return t.columnDefs
}

// GetTypes returns every declared column's type.
func (t *Table) GetTypes() []types.Type {
	typs := make([]types.Type, 0, len(t.columnDefs))
	for _, def := range t.columnDefs {
		typs = append(typs, def.Type)
	}
	return typs
}

func (t *Table) storageAttrs() []string {
	attrs := make([]string, 0, len(t.columnDefs))
	for _, def := range t.columnDefs {
		if def.Generated() {
			continue
		}
		attrs = append(attrs, def.Name)
	}
	return attrs
}

func (t *Table) storageTypes() []types.Type {
	typs := make([]types.Type, 0, len(t.columnDefs))
	for _, def := range t.columnDefs {
		if def.Generated() {
			continue
		}
		typs = append(typs, def.Type)
	}
	return typs
}

// BuildResultBatch allocates a batch shaped for the given scan columns.
func (t *Table) BuildResultBatch(columnIDs []int) *containers.Batch {
	bat := containers.NewBatch()
	attrs := t.storageAttrs()
	typs := t.storageTypes()
	for _, col := range columnIDs {
		if col == RowidColumnID {
			bat.AddVector("__rowid", containers.MakeVector(types.T_int64.ToType()))
			continue
		}
		bat.AddVector(attrs[col], containers.MakeVector(typs[col]))
	}
	return bat
}

//===--------------------------------------------------------------------===//
// Schema change constructors
//===--------------------------------------------------------------------===//

func (t *Table) checkRootForAlter() error {
	if !t.isRoot.Load() {
		return dberr.NewTxnWriteConflict("altering a table that has been altered")
	}
	return nil
}

// NewTableAddColumn derives a successor with one more column, filled from
// the default expression.
func NewTableAddColumn(tx *txn.Txn, parent *Table, def *catalog.ColDef, defaultExpr catalog.Expr) (*Table, error) {
	parent.appendMu.Lock()
	defer parent.appendMu.Unlock()
	if err := parent.checkRootForAlter(); err != nil {
		return nil, err
	}
	defs := make([]*catalog.ColDef, 0, len(parent.columnDefs)+1)
	for _, col := range parent.columnDefs {
		defs = append(defs, col.Clone())
	}
	added := def.Clone()
	defs = append(defs, added)

	entry := parent.successorEntry()
	entry.Schema.ColDefs = defs
	if err := entry.Schema.Finalize(); err != nil {
		return nil, err
	}

	rowGroups, err := parent.rowGroups.AddColumn(added, defaultExpr)
	if err != nil {
		return nil, err
	}
	successor := parent.newSuccessor(defs, rowGroups)

	ls := parent.db.GetLocalStorage(tx)
	if err := ls.AddColumn(parent, successor, added, defaultExpr); err != nil {
		return nil, err
	}

	parent.publish(successor, entry)
	return successor, nil
}

// NewTableDropColumn derives a successor without the removed column. It
// fails when any index references the dropped column or any column at a
// higher ordinal.
func NewTableDropColumn(tx *txn.Txn, parent *Table, removed int) (*Table, error) {
	parent.appendMu.Lock()
	defer parent.appendMu.Unlock()
	if err := parent.checkRootForAlter(); err != nil {
		return nil, err
	}
	if removed >= len(parent.columnDefs) {
		return nil, dberr.NewCatalogError("no column at ordinal %d", removed)
	}
	dropped := parent.columnDefs[removed]

	if !dropped.Generated() {
		var depErr error
		parent.info.indexes.Scan(func(idx index.Index) bool {
			for _, columnID := range idx.ColumnIDs() {
				if columnID == dropped.StorageIdx {
					depErr = dberr.NewCatalogError("cannot drop this column: an index depends on it")
					return true
				} else if columnID > dropped.StorageIdx {
					depErr = dberr.NewCatalogError("cannot drop this column: an index depends on a column after it")
					return true
				}
			}
			return false
		})
		if depErr != nil {
			return nil, depErr
		}
	}

	defs := make([]*catalog.ColDef, 0, len(parent.columnDefs)-1)
	for i, col := range parent.columnDefs {
		if i == removed {
			continue
		}
		defs = append(defs, col.Clone())
	}
	entry := parent.successorEntry()
	entry.Schema.ColDefs = defs
	if err := entry.Schema.Finalize(); err != nil {
		return nil, err
	}

	rowGroups := parent.rowGroups
	if !dropped.Generated() {
		rowGroups = parent.rowGroups.RemoveColumn(dropped.StorageIdx)
	}
	successor := parent.newSuccessor(defs, rowGroups)

	if !dropped.Generated() {
		ls := parent.db.GetLocalStorage(tx)
		ls.DropColumn(parent, successor, dropped.StorageIdx)
	}

	parent.publish(successor, entry)
	return successor, nil
}

// NewTableAddConstraint derives a successor carrying one more constraint.
// The row groups are shared: adding a constraint changes no layout. Only
// NOT NULL can be added this way.
func NewTableAddConstraint(tx *txn.Txn, parent *Table, constraint catalog.Constraint) (*Table, error) {
	parent.appendMu.Lock()
	defer parent.appendMu.Unlock()
	if err := parent.checkRootForAlter(); err != nil {
		return nil, err
	}
	defs := make([]*catalog.ColDef, 0, len(parent.columnDefs))
	for _, col := range parent.columnDefs {
		defs = append(defs, col.Clone())
	}

	if err := parent.VerifyNewConstraint(tx, constraint); err != nil {
		return nil, err
	}
	if notNull, ok := constraint.(*catalog.NotNull); ok {
		defs[notNull.ColIdx].NullAbility = false
	}

	entry := parent.successorEntry(constraint)
	entry.Schema.ColDefs = defs
	if err := entry.Schema.Finalize(); err != nil {
		return nil, err
	}

	successor := parent.newSuccessor(defs, parent.rowGroups)

	ls := parent.db.GetLocalStorage(tx)
	ls.MoveStorage(parent, successor)

	parent.publish(successor, entry)
	return successor, nil
}

// NewTableAlterType derives a successor with the column cast to the target
// type. It fails when any index references the changed column.
func NewTableAlterType(tx *txn.Txn, parent *Table, changed int, target types.Type, castExpr catalog.Expr) (*Table, error) {
	parent.appendMu.Lock()
	defer parent.appendMu.Unlock()
	if err := parent.checkRootForAlter(); err != nil {
		return nil, err
	}
	def := parent.columnDefs[changed]
	var depErr error
	parent.info.indexes.Scan(func(idx index.Index) bool {
		for _, columnID := range idx.ColumnIDs() {
			if columnID == def.StorageIdx {
				depErr = dberr.NewCatalogError("cannot change the type of this column: an index depends on it")
				return true
			}
		}
		return false
	})
	if depErr != nil {
		return nil, depErr
	}

	defs := make([]*catalog.ColDef, 0, len(parent.columnDefs))
	for _, col := range parent.columnDefs {
		defs = append(defs, col.Clone())
	}
	defs[changed].Type = target

	entry := parent.successorEntry()
	entry.Schema.ColDefs = defs
	if err := entry.Schema.Finalize(); err != nil {
		return nil, err
	}

	rowGroups, err := parent.rowGroups.AlterType(def.StorageIdx, target, castExpr)
	if err != nil {
		return nil, err
	}
	successor := parent.newSuccessor(defs, rowGroups)

	ls := parent.db.GetLocalStorage(tx)
	if err := ls.ChangeType(parent, successor, def.StorageIdx, target, castExpr); err != nil {
		return nil, err
	}

	parent.publish(successor, entry)
	return successor, nil
}

//===--------------------------------------------------------------------===//
// Scan
//===--------------------------------------------------------------------===//

// InitializeScan binds a scan over the committed row groups only.
func (t *Table) InitializeScan(state *TableScanState, columnIDs []int, filters TableFilterSet) {
	state.Initialize(columnIDs, filters)
	t.rowGroups.InitializeScan(&state.TableState, scanTypeSnapshot)
}

// InitializeScanWithTxn additionally binds the transaction-local rows.
func (t *Table) InitializeScanWithTxn(tx *txn.Txn, state *TableScanState, columnIDs []int, filters TableFilterSet) {
	t.InitializeScan(state, columnIDs, filters)
	ls := t.db.GetLocalStorage(tx)
	ls.InitializeScan(t, &state.LocalState)
}

// InitializeScanWithOffset binds a committed-rows scan over the range
// [startRow, endRow) and returns the vector-aligned first row.
func (t *Table) InitializeScanWithOffset(state *TableScanState, columnIDs []int, startRow, endRow types.Rowid) types.Rowid {
	state.Initialize(columnIDs, nil)
	return t.rowGroups.InitializeScanWithOffset(&state.TableState, startRow, endRow)
}

// Scan yields up to one vector of rows per call, first from the committed
// row groups, then from the transaction's local rows. Returns false once
// both are exhausted.
func (t *Table) Scan(tx *txn.Txn, result *containers.Batch, state *TableScanState) bool {
	if t.rowGroups.Scan(tx, &state.TableState, state.columnIDs, state.filters, result) {
		return true
	}
	ls := t.db.GetLocalStorage(tx)
	return ls.Scan(&state.LocalState, state.columnIDs, state.filters, result)
}

// MaxThreads is the number of scan tasks worth scheduling: one per chunk
// of the committed rows, plus one.
func (t *Table) MaxThreads() int {
	chunkTuples := uint64(t.db.opts.StorageCfg.VectorMaxRows) * uint64(t.rowGroups.vectorsPerChunk())
	return int(t.GetTotalRows()/chunkTuples) + 1
}

func (t *Table) InitializeParallelScan(tx *txn.Txn, state *ParallelTableScanState) {
	t.rowGroups.InitializeParallelScan(&state.ScanState)
	ls := t.db.GetLocalStorage(tx)
	ls.InitializeParallelScan(t, &state.LocalState)
}

// NextParallelScan hands the next chunk to scanState. Committed chunks are
// exhausted before the local rows are handed out.
func (t *Table) NextParallelScan(tx *txn.Txn, state *ParallelTableScanState, scanState *TableScanState) bool {
	if t.rowGroups.NextParallelScan(&state.ScanState, &scanState.TableState, scanTypeSnapshot) {
		return true
	}
	scanState.TableState.BatchIndex = state.ScanState.BatchIndex
	ls := t.db.GetLocalStorage(tx)
	return ls.NextParallelScan(t, &state.LocalState, &scanState.LocalState)
}

// InitializeCreateIndexScan grabs the append lock so nothing is appended
// until the index build finishes, then binds a committed-rows scan.
func (t *Table) InitializeCreateIndexScan(state *CreateIndexScanState, columnIDs []int) {
	t.appendMu.Lock()
	state.releaseAppendLock = t.appendMu.Unlock
	state.Initialize(columnIDs, nil)
	t.rowGroups.InitializeScan(&state.TableState, scanTypeCommitted)
}

// CreateIndexScan yields committed rows regardless of snapshot.
func (t *Table) CreateIndexScan(state *CreateIndexScanState, result *containers.Batch) bool {
	return t.rowGroups.Scan(nil, &state.TableState, state.columnIDs, state.filters, result)
}

// CreateIndex builds idx from the committed rows and attaches it.
func (t *Table) CreateIndex(idx index.Index) error {
	columnIDs := make([]int, len(t.storageAttrs()))
	for i := range columnIDs {
		columnIDs[i] = i
	}
	columnIDs = append(columnIDs, RowidColumnID)
	state := &CreateIndexScanState{}
	t.InitializeCreateIndexScan(state, columnIDs)
	defer state.Release()

	for {
		result := t.BuildResultBatch(columnIDs)
		if !t.CreateIndexScan(state, result) {
			break
		}
		rowidVec := result.Vecs[len(columnIDs)-1]
		rowids := make([]types.Rowid, result.Length())
		for i := range rowids {
			rowids[i] = rowidVec.Get(i).(int64)
		}
		bat := containers.NewBatch()
		for i := 0; i < len(columnIDs)-1; i++ {
			bat.AddVector(result.Attrs[i], result.Vecs[i])
		}
		if err := idx.Append(bat, rowids); err != nil {
			return err
		}
	}
	t.info.indexes.AddIndex(idx)
	return nil
}

//===--------------------------------------------------------------------===//
// Fetch
//===--------------------------------------------------------------------===//

// Fetch materializes the rows addressed by rowids that are visible to tx.
func (t *Table) Fetch(tx *txn.Txn, result *containers.Batch, columnIDs []int, rowids []types.Rowid, count int, state *ColumnFetchState) int {
	return t.rowGroups.Fetch(tx, result, columnIDs, rowids, count)
}

//===--------------------------------------------------------------------===//
// Delete & update
//===--------------------------------------------------------------------===//

// Delete verifies delete-side constraints over the addressed rows, then
// routes the delete by row identifier range. Returns the count of rows
// actually removed.
func (t *Table) Delete(entry *catalog.TableEntry, tx *txn.Txn, rowids []types.Rowid, count int) (int, error) {
	if count == 0 {
		return 0, nil
	}
	ls := t.db.GetLocalStorage(tx)
	firstID := rowids[0]

	var verifyBat *containers.Batch
	if types.IsLocalRowid(firstID) {
		var err error
		if verifyBat, err = ls.FetchChunk(t, rowids, count); err != nil {
			return 0, err
		}
	} else {
		verifyBat = containers.BuildBatch(t.storageAttrs(), t.storageTypes())
		columnIDs := make([]int, len(verifyBat.Vecs))
		for i := range columnIDs {
			columnIDs[i] = i
		}
		var fetchState ColumnFetchState
		t.Fetch(tx, verifyBat, columnIDs, rowids, count, &fetchState)
	}
	if err := t.VerifyDeleteConstraints(entry, tx, verifyBat); err != nil {
		return 0, err
	}

	if types.IsLocalRowid(firstID) {
		return ls.Delete(t, rowids, count), nil
	}
	deleted := t.rowGroups.Delete(tx, rowids, count)
	ls.markDeleted(t)
	return deleted, nil
}

// Update verifies NOT NULL and CHECK over the updated columns and routes
// by row identifier range. Key columns of any index must not be updated;
// the planner rewrites those into delete plus insert.
func (t *Table) Update(entry *catalog.TableEntry, tx *txn.Txn, rowids []types.Rowid, columnIDs []int, updates *containers.Batch) error {
	count := updates.Length()
	if count == 0 {
		return nil
	}
	if !t.isRoot.Load() {
		return dberr.NewTxnWriteConflict("cannot update a table that has been altered")
	}
	if err := t.VerifyUpdateConstraints(entry, tx, updates, columnIDs); err != nil {
		return err
	}
	firstID := rowids[0]
	if types.IsLocalRowid(firstID) {
		ls := t.db.GetLocalStorage(tx)
		ls.Update(t, rowids, columnIDs, updates)
		return nil
	}
	t.rowGroups.Update(tx, rowids, columnIDs, updates)
	return nil
}

// UpdateColumn updates one column addressed by path, bypassing the
// constraint pass the planner already applied.
func (t *Table) UpdateColumn(entry *catalog.TableEntry, tx *txn.Txn, rowids []types.Rowid, columnPath []int, updates *containers.Batch) error {
	if updates.Length() == 0 {
		return nil
	}
	if !t.isRoot.Load() {
		return dberr.NewTxnWriteConflict("cannot update a table that has been altered")
	}
	return t.rowGroups.UpdateColumn(tx, rowids, columnPath, updates)
}

//===--------------------------------------------------------------------===//
// Statistics, checkpoint, drop
//===--------------------------------------------------------------------===//

// GetStatistics snapshots one column's statistics, nil for the rowid
// pseudo column.
func (t *Table) GetStatistics(columnID int) *ColumnStats {
	if columnID == RowidColumnID {
		return nil
	}
	return t.rowGroups.CopyStats(columnID)
}

func (t *Table) SetStatistics(columnID int, set func(*ColumnStats)) {
	if columnID == RowidColumnID {
		panic(dberr.NewInternalError("rowid column carries no statistics"))
	}
	t.rowGroups.SetStatistics(columnID, set)
}

func (t *Table) GetTotalRows() uint64 {
	return t.rowGroups.GetTotalRows()
}

func (t *Table) GetStorageInfo() []RowGroupInfo {
	return t.rowGroups.GetStorageInfo()
}

func (t *Table) CommitDropColumn(columnID int) {
	t.rowGroups.CommitDropColumn(columnID)
}

// CommitDropTable marks every row group reclaimable after a drop commits.
func (t *Table) CommitDropTable() {
	logutil.Infof("table %s.%s dropped", t.info.schemaName, t.info.tableName)
	t.rowGroups.CommitDropTable()
}
