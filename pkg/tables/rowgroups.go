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
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pidb/duckdb/pkg/catalog"
	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
	"github.com/pidb/duckdb/pkg/index"
	"github.com/pidb/duckdb/pkg/logutil"
	"github.com/pidb/duckdb/pkg/options"
	"github.com/pidb/duckdb/pkg/txn"
)

// RowidColumnID selects the row identifier pseudo column in a scan.
const RowidColumnID = -1

// restoredTS stamps rows loaded from a checkpoint. The timestamp allocator
// starts at it so restored rows are visible to every new snapshot.
const restoredTS types.TS = 1

// rowGroup is one vector-aligned block of rows with per-row commit and
// delete stamps.
type rowGroup struct {
	start types.Rowid
	bat   *containers.Batch

	commitTS  []types.TS
	deleteTS  []types.TS
	deleteTxn []uint64
}

func (g *rowGroup) rows() int {
	return g.bat.Length()
}

// cloneForWrite deep-copies the group so a schema-change successor can
// keep appending without growing vectors the parent still reads.
func (g *rowGroup) cloneForWrite() *rowGroup {
	return &rowGroup{
		start:     g.start,
		bat:       g.bat.CloneWindow(0, g.rows()),
		commitTS:  append([]types.TS{}, g.commitTS...),
		deleteTS:  append([]types.TS{}, g.deleteTS...),
		deleteTxn: append([]uint64{}, g.deleteTxn...),
	}
}

// RowGroupCollection owns the committed columnar rows of one table.
type RowGroupCollection struct {
	opts  *options.Options
	attrs []string
	typs  []types.Type

	mu        sync.RWMutex
	groups    []*rowGroup
	totalRows uint64

	stats []*ColumnStats

	dropped atomic.Bool
}

func NewRowGroupCollection(attrs []string, typs []types.Type, opts *options.Options) *RowGroupCollection {
	c := &RowGroupCollection{
		opts:  opts,
		attrs: append([]string{}, attrs...),
		typs:  append([]types.Type{}, typs...),
	}
	for _, typ := range typs {
		c.stats = append(c.stats, NewColumnStats(typ))
	}
	return c
}

func (c *RowGroupCollection) InitializeEmpty() {
	c.groups = nil
	c.totalRows = 0
}

// Initialize loads checkpointed row groups. Restored rows are stamped
// committed.
func (c *RowGroupCollection) Initialize(data *PersistentTableData) {
	start := types.Rowid(0)
	for _, bat := range data.RowGroups {
		rows := bat.Length()
		g := &rowGroup{
			start:     start,
			bat:       bat,
			commitTS:  make([]types.TS, rows),
			deleteTS:  make([]types.TS, rows),
			deleteTxn: make([]uint64, rows),
		}
		for i := range g.commitTS {
			g.commitTS[i] = restoredTS
		}
		c.groups = append(c.groups, g)
		start += types.Rowid(rows)
	}
	c.totalRows = uint64(start)
	if len(data.Stats) == len(c.stats) {
		for i, s := range data.Stats {
			c.stats[i] = s.Clone()
		}
	}
}

func (c *RowGroupCollection) GetTotalRows() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalRows
}

func (c *RowGroupCollection) groupCapacity() int {
	return int(c.opts.RowGroupMaxRows())
}

func (c *RowGroupCollection) vectorSize() int {
	return int(c.opts.StorageCfg.VectorMaxRows)
}

// unshareTailLocked replaces the last group with a private copy when it
// still has append capacity; full groups stay shared with the parent.
func (c *RowGroupCollection) unshareTailLocked() {
	if n := len(c.groups); n > 0 && c.groups[n-1].rows() < c.groupCapacity() {
		c.groups[n-1] = c.groups[n-1].cloneForWrite()
	}
}

// findGroupLocked locates the group holding row, by dense start offsets.
func (c *RowGroupCollection) findGroupLocked(row types.Rowid) (*rowGroup, int) {
	n := len(c.groups)
	pos := sort.Search(n, func(i int) bool {
		return c.groups[i].start > row
	}) - 1
	if pos < 0 || row-c.groups[pos].start >= types.Rowid(c.groups[pos].rows()) {
		panic(dberr.NewInternalError("rowid %d out of range", row))
	}
	return c.groups[pos], int(row - c.groups[pos].start)
}

// rowVisible applies the scan type's visibility rule to one row.
func (g *rowGroup) rowVisible(typ scanType, t *txn.Txn, row int) bool {
	switch typ {
	case scanTypeCommitted:
		return true
	case scanTypeLocal:
		return g.deleteTxn[row] != t.ID
	default:
		if !t.CanSee(g.commitTS[row]) {
			return false
		}
		if g.deleteTxn[row] == t.ID {
			return false
		}
		return g.deleteTS[row] == 0 || g.deleteTS[row] > t.StartTS
	}
}

//===--------------------------------------------------------------------===//
// Scan
//===--------------------------------------------------------------------===//

func (c *RowGroupCollection) InitializeScan(state *RowGroupScanState, typ scanType) {
	state.collection = c
	state.typ = typ
	state.groupIdx = 0
	state.vecIdx = 0
	state.maxGroupIdx = -1
	state.maxVecIdx = -1
	state.startRow = 0
	state.endRow = -1
	state.exhausted = false
}

// InitializeScanWithOffset positions the cursor at the vector containing
// startRow and returns the vector-aligned row the scan will begin at.
func (c *RowGroupCollection) InitializeScanWithOffset(state *RowGroupScanState, startRow, endRow types.Rowid) types.Rowid {
	c.InitializeScan(state, scanTypeCommitted)
	state.endRow = endRow
	c.mu.RLock()
	defer c.mu.RUnlock()
	if uint64(startRow) >= c.totalRows {
		state.exhausted = true
		return startRow
	}
	g, offset := c.findGroupLocked(startRow)
	state.groupIdx = sort.Search(len(c.groups), func(i int) bool {
		return c.groups[i].start > g.start
	}) - 1
	state.vecIdx = offset / c.vectorSize()
	return g.start + types.Rowid(state.vecIdx*c.vectorSize())
}

// Scan materializes up to one vector of visible rows into result. Returns
// false when the cursor is exhausted and no rows were produced.
func (c *RowGroupCollection) Scan(t *txn.Txn, state *RowGroupScanState, columnIDs []int, filters TableFilterSet, result *containers.Batch) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vsize := c.vectorSize()
	for !state.exhausted {
		if state.groupIdx >= len(c.groups) {
			state.exhausted = true
			break
		}
		if state.maxGroupIdx >= 0 &&
			(state.groupIdx > state.maxGroupIdx ||
				(state.groupIdx == state.maxGroupIdx && state.vecIdx > state.maxVecIdx)) {
			state.exhausted = true
			break
		}
		g := c.groups[state.groupIdx]
		begin := state.vecIdx * vsize
		if begin >= g.rows() {
			state.groupIdx++
			state.vecIdx = 0
			continue
		}
		vecStart := g.start + types.Rowid(begin)
		if state.endRow >= 0 && vecStart >= state.endRow {
			state.exhausted = true
			break
		}
		end := begin + vsize
		if end > g.rows() {
			end = g.rows()
		}
		produced := 0
		for row := begin; row < end; row++ {
			if !g.rowVisible(state.typ, t, row) {
				continue
			}
			if !passesFilters(g.bat, row, filters) {
				continue
			}
			appendRowToResult(g.bat, row, g.start+types.Rowid(row), columnIDs, result)
			produced++
		}
		state.vecIdx++
		if produced > 0 {
			return true
		}
	}
	return false
}

func passesFilters(bat *containers.Batch, row int, filters TableFilterSet) bool {
	for col, filter := range filters {
		vec := bat.Vecs[col]
		if !filter(vec.Get(row), vec.IsNull(row)) {
			return false
		}
	}
	return true
}

func appendRowToResult(bat *containers.Batch, row int, rowid types.Rowid, columnIDs []int, result *containers.Batch) {
	for i, col := range columnIDs {
		if col == RowidColumnID {
			result.Vecs[i].Append(rowid, false)
			continue
		}
		vec := bat.Vecs[col]
		result.Vecs[i].Append(vec.Get(row), vec.IsNull(row))
	}
}

//===--------------------------------------------------------------------===//
// Parallel scan
//===--------------------------------------------------------------------===//

func (c *RowGroupCollection) InitializeParallelScan(state *ParallelRowGroupScanState) {
	state.collection = c
	state.groupIdx = 0
	state.vecIdx = 0
	state.BatchIndex = 0
}

// vectorsPerChunk is the parallel scan task granularity: one row group's
// worth of vectors, or a single vector under deterministic parallelism.
func (c *RowGroupCollection) vectorsPerChunk() int {
	if c.opts.VerifyParallelism {
		return 1
	}
	return int(c.opts.StorageCfg.RowGroupVectors)
}

// NextParallelScan carves out the next chunk into scanState. Returns false
// when all chunks are handed out.
func (c *RowGroupCollection) NextParallelScan(state *ParallelRowGroupScanState, scanState *RowGroupScanState, typ scanType) bool {
	state.mu.Lock()
	defer state.mu.Unlock()
	c.mu.RLock()
	defer c.mu.RUnlock()

	vsize := c.vectorSize()
	for {
		if state.groupIdx >= len(c.groups) {
			return false
		}
		g := c.groups[state.groupIdx]
		if state.vecIdx*vsize >= g.rows() {
			state.groupIdx++
			state.vecIdx = 0
			continue
		}
		break
	}

	chunk := c.vectorsPerChunk()
	c.InitializeScan(scanState, typ)
	scanState.groupIdx = state.groupIdx
	scanState.vecIdx = state.vecIdx
	scanState.maxGroupIdx = state.groupIdx
	scanState.maxVecIdx = state.vecIdx + chunk - 1
	scanState.BatchIndex = state.BatchIndex

	state.BatchIndex++
	state.vecIdx += chunk
	g := c.groups[state.groupIdx]
	if state.vecIdx*vsize >= g.rows() {
		state.groupIdx++
		state.vecIdx = 0
	}
	return true
}

//===--------------------------------------------------------------------===//
// Fetch
//===--------------------------------------------------------------------===//

// Fetch gathers the rows visible to t among rowids into result. Returns the
// number of rows materialized.
func (c *RowGroupCollection) Fetch(t *txn.Txn, result *containers.Batch, columnIDs []int, rowids []types.Rowid, count int) int {
	return c.fetch(t, scanTypeSnapshot, result, columnIDs, rowids, count)
}

func (c *RowGroupCollection) fetch(t *txn.Txn, typ scanType, result *containers.Batch, columnIDs []int, rowids []types.Rowid, count int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fetched := 0
	for i := 0; i < count; i++ {
		g, offset := c.findGroupLocked(rowids[i])
		if !g.rowVisible(typ, t, offset) {
			continue
		}
		appendRowToResult(g.bat, offset, rowids[i], columnIDs, result)
		fetched++
	}
	return fetched
}

//===--------------------------------------------------------------------===//
// Append
//===--------------------------------------------------------------------===//

// InitializeAppend reserves space for appendCount rows.
func (c *RowGroupCollection) InitializeAppend(state *TableAppendState, appendCount uint64) {
	state.TotalCount = appendCount
	state.CurrentRow = state.RowStart
}

func (c *RowGroupCollection) appendableGroupLocked() *rowGroup {
	if n := len(c.groups); n > 0 && c.groups[n-1].rows() < c.groupCapacity() {
		return c.groups[n-1]
	}
	g := &rowGroup{
		start: types.Rowid(c.totalRows),
		bat:   containers.BuildBatch(c.attrs, c.typs),
	}
	c.groups = append(c.groups, g)
	return g
}

// Append streams one batch into the collection. Rows are uncommitted until
// CommitAppend stamps them.
func (c *RowGroupCollection) Append(bat *containers.Batch, state *TableAppendState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := bat.Length()
	appended := 0
	for appended < rows {
		g := c.appendableGroupLocked()
		free := c.groupCapacity() - g.rows()
		n := rows - appended
		if n > free {
			n = free
		}
		g.bat.ExtendWithOffset(bat, appended, n)
		for i := 0; i < n; i++ {
			g.commitTS = append(g.commitTS, 0)
			g.deleteTS = append(g.deleteTS, 0)
			g.deleteTxn = append(g.deleteTxn, 0)
		}
		appended += n
		c.totalRows += uint64(n)
	}
	for i, vec := range bat.Vecs {
		c.stats[i].Update(vec)
	}
	state.CurrentRow += types.Rowid(rows)
}

// CommitAppend stamps the commit timestamp on the appended range.
func (c *RowGroupCollection) CommitAppend(commitID types.TS, rowStart types.Rowid, count uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := uint64(0); i < count; i++ {
		g, offset := c.findGroupLocked(rowStart + types.Rowid(i))
		g.commitTS[offset] = commitID
	}
}

// RevertAppendInternal truncates the collection back to startRow.
func (c *RowGroupCollection) RevertAppendInternal(startRow types.Rowid, count uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.groups) > 0 {
		g := c.groups[len(c.groups)-1]
		if g.start >= startRow {
			c.groups = c.groups[:len(c.groups)-1]
			continue
		}
		keep := int(startRow - g.start)
		if keep < g.rows() {
			g.bat.Truncate(keep)
			g.commitTS = g.commitTS[:keep]
			g.deleteTS = g.deleteTS[:keep]
			g.deleteTxn = g.deleteTxn[:keep]
		}
		break
	}
	c.totalRows = uint64(startRow)
}

//===--------------------------------------------------------------------===//
// Delete & update
//===--------------------------------------------------------------------===//

// Delete tombstones the rows for t. Committed visibility happens at
// CommitDeletes. Returns the number of rows newly deleted.
func (c *RowGroupCollection) Delete(t *txn.Txn, ids []types.Rowid, count int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	deleted := 0
	for i := 0; i < count; i++ {
		g, offset := c.findGroupLocked(ids[i])
		if g.deleteTxn[offset] != 0 || g.deleteTS[offset] != 0 {
			continue
		}
		g.deleteTxn[offset] = t.ID
		deleted++
	}
	return deleted
}

// CommitDeletes stamps the delete timestamp on every row t tombstoned.
func (c *RowGroupCollection) CommitDeletes(txnID uint64, commitID types.TS) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range c.groups {
		for row, owner := range g.deleteTxn {
			if owner == txnID {
				g.deleteTS[row] = commitID
			}
		}
	}
}

// RevertDeletes clears tombstones left by a rolled-back transaction.
func (c *RowGroupCollection) RevertDeletes(txnID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range c.groups {
		for row, owner := range g.deleteTxn {
			if owner == txnID && g.deleteTS[row] == 0 {
				g.deleteTxn[row] = 0
			}
		}
	}
}

// Update writes new values for the given storage ordinals in place.
func (c *RowGroupCollection) Update(t *txn.Txn, ids []types.Rowid, columnIDs []int, updates *containers.Batch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < updates.Length(); i++ {
		g, offset := c.findGroupLocked(ids[i])
		for j, col := range columnIDs {
			vec := updates.Vecs[j]
			g.bat.Vecs[col].Update(offset, vec.Get(i), vec.IsNull(i))
			c.stats[col].UpdateValue(vec.Get(i), vec.IsNull(i))
		}
	}
}

// UpdateColumn updates one column addressed by path. Only top-level columns
// are supported.
func (c *RowGroupCollection) UpdateColumn(t *txn.Txn, ids []types.Rowid, columnPath []int, updates *containers.Batch) error {
	if len(columnPath) != 1 {
		return dberr.NewNYI("update of a nested column")
	}
	c.Update(t, ids, columnPath[:1], updates)
	return nil
}

//===--------------------------------------------------------------------===//
// Schema change
//===--------------------------------------------------------------------===//

// AddColumn derives a collection with one more column, filled from the
// default expression. Unchanged columns are shared with the parent.
func (c *RowGroupCollection) AddColumn(def *catalog.ColDef, defaultExpr catalog.Expr) (*RowGroupCollection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	next := NewRowGroupCollection(
		append(append([]string{}, c.attrs...), def.Name),
		append(append([]types.Type{}, c.typs...), def.Type),
		c.opts)
	copy(next.stats, c.cloneStatsLocked())
	for _, g := range c.groups {
		bat := containers.NewBatch()
		for i, vec := range g.bat.Vecs {
			bat.AddVector(g.bat.Attrs[i], vec)
		}
		var newVec containers.Vector
		if defaultExpr == nil {
			newVec = containers.MakeVector(def.Type)
			for i := 0; i < g.rows(); i++ {
				newVec.Append(nil, true)
			}
		} else {
			var err error
			if newVec, err = defaultExpr.Eval(g.bat); err != nil {
				return nil, err
			}
		}
		bat.AddVector(def.Name, newVec)
		next.stats[len(c.typs)].Update(newVec)
		next.groups = append(next.groups, &rowGroup{
			start:     g.start,
			bat:       bat,
			commitTS:  g.commitTS,
			deleteTS:  g.deleteTS,
			deleteTxn: g.deleteTxn,
		})
	}
	next.unshareTailLocked()
	next.totalRows = c.totalRows
	return next, nil
}

// RemoveColumn derives a collection without the given storage ordinal.
func (c *RowGroupCollection) RemoveColumn(removed int) *RowGroupCollection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	attrs := make([]string, 0, len(c.attrs)-1)
	typs := make([]types.Type, 0, len(c.typs)-1)
	for i := range c.attrs {
		if i == removed {
			continue
		}
		attrs = append(attrs, c.attrs[i])
		typs = append(typs, c.typs[i])
	}
	next := NewRowGroupCollection(attrs, typs, c.opts)
	stats := c.cloneStatsLocked()
	next.stats = append(stats[:removed:removed], stats[removed+1:]...)
	for _, g := range c.groups {
		bat := containers.NewBatch()
		for i, vec := range g.bat.Vecs {
			if i == removed {
				continue
			}
			bat.AddVector(g.bat.Attrs[i], vec)
		}
		next.groups = append(next.groups, &rowGroup{
			start:     g.start,
			bat:       bat,
			commitTS:  g.commitTS,
			deleteTS:  g.deleteTS,
			deleteTxn: g.deleteTxn,
		})
	}
	next.unshareTailLocked()
	next.totalRows = c.totalRows
	return next
}

// AlterType derives a collection with the column cast to the target type.
// The altered column's statistics are recomputed during conversion.
func (c *RowGroupCollection) AlterType(changed int, target types.Type, castExpr catalog.Expr) (*RowGroupCollection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	typs := append([]types.Type{}, c.typs...)
	typs[changed] = target
	next := NewRowGroupCollection(append([]string{}, c.attrs...), typs, c.opts)
	stats := c.cloneStatsLocked()
	stats[changed] = NewColumnStats(target)
	next.stats = stats
	for _, g := range c.groups {
		casted, err := castExpr.Eval(g.bat)
		if err != nil {
			return nil, err
		}
		bat := containers.NewBatch()
		for i, vec := range g.bat.Vecs {
			if i == changed {
				bat.AddVector(g.bat.Attrs[i], casted)
				continue
			}
			bat.AddVector(g.bat.Attrs[i], vec)
		}
		next.stats[changed].Update(casted)
		next.groups = append(next.groups, &rowGroup{
			start:     g.start,
			bat:       bat,
			commitTS:  g.commitTS,
			deleteTS:  g.deleteTS,
			deleteTxn: g.deleteTxn,
		})
	}
	next.unshareTailLocked()
	next.totalRows = c.totalRows
	return next, nil
}

// VerifyNewConstraint scans every appended row against a NOT NULL
// constraint being added.
func (c *RowGroupCollection) VerifyNewConstraint(tableName, colName string, storageIdx int) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.groups {
		vec := g.bat.Vecs[storageIdx]
		for row := 0; row < g.rows(); row++ {
			if vec.IsNull(row) {
				return dberr.NewConstraintViolation(
					"NOT NULL constraint failed: %s.%s", tableName, colName)
			}
		}
	}
	return nil
}

//===--------------------------------------------------------------------===//
// Merge, checkpoint, stats
//===--------------------------------------------------------------------===//

// MergeStorage moves the rows of data into this collection. The rows stay
// uncommitted until the owner stamps them.
func (c *RowGroupCollection) MergeStorage(data *RowGroupCollection) {
	data.mu.RLock()
	defer data.mu.RUnlock()
	state := &TableAppendState{RowStart: types.Rowid(c.GetTotalRows())}
	for _, g := range data.groups {
		c.Append(g.bat, state)
	}
}

// Checkpoint writes the committed, non-deleted rows of every row group.
func (c *RowGroupCollection) Checkpoint(writer TableDataWriter, globalStats []*ColumnStats) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.groups {
		bat := containers.BuildBatch(c.attrs, c.typs)
		for row := 0; row < g.rows(); row++ {
			if g.commitTS[row] == 0 || g.deleteTS[row] != 0 {
				continue
			}
			bat.ExtendWithOffset(g.bat, row, 1)
		}
		if bat.Length() == 0 {
			continue
		}
		if err := writer.WriteRowGroup(bat); err != nil {
			return err
		}
	}
	return nil
}

func (c *RowGroupCollection) cloneStatsLocked() []*ColumnStats {
	cloned := make([]*ColumnStats, len(c.stats))
	for i, s := range c.stats {
		cloned[i] = s.Clone()
	}
	return cloned
}

// CopyStats snapshots one column's statistics.
func (c *RowGroupCollection) CopyStats(columnID int) *ColumnStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats[columnID].Clone()
}

// SetStatistics mutates one column's statistics under the collection lock.
func (c *RowGroupCollection) SetStatistics(columnID int, set func(*ColumnStats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set(c.stats[columnID])
}

// RemoveFromIndexes deletes the given rows from every index, re-fetching
// their key columns from storage.
func (c *RowGroupCollection) RemoveFromIndexes(indexes *index.TableIndexList, rowids []types.Rowid, count int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bat := containers.BuildBatch(c.attrs, c.typs)
	kept := make([]types.Rowid, 0, count)
	all := make([]int, len(c.attrs))
	for i := range all {
		all[i] = i
	}
	for i := 0; i < count; i++ {
		g, offset := c.findGroupLocked(rowids[i])
		appendRowToResult(g.bat, offset, rowids[i], all, bat)
		kept = append(kept, rowids[i])
	}
	indexes.Scan(func(idx index.Index) bool {
		idx.Delete(bat, kept)
		return false
	})
}

func (c *RowGroupCollection) CommitDropColumn(columnID int) {
	logutil.Debugf("row groups: column %d storage reclaimable", columnID)
}

// CommitDropTable marks every row group reclaimable.
func (c *RowGroupCollection) CommitDropTable() {
	c.dropped.Store(true)
}

func (c *RowGroupCollection) Dropped() bool {
	return c.dropped.Load()
}

// RowGroupInfo is one row of GetStorageInfo output.
type RowGroupInfo struct {
	GroupIdx  int
	Start     types.Rowid
	RowCount  int
	Committed int
	Deleted   int
}

func (c *RowGroupCollection) GetStorageInfo() []RowGroupInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info := make([]RowGroupInfo, 0, len(c.groups))
	for i, g := range c.groups {
		committed, deleted := 0, 0
		for row := 0; row < g.rows(); row++ {
			if g.commitTS[row] != 0 {
				committed++
			}
			if g.deleteTS[row] != 0 {
				deleted++
			}
		}
		info = append(info, RowGroupInfo{
			GroupIdx:  i,
			Start:     g.start,
			RowCount:  g.rows(),
			Committed: committed,
			Deleted:   deleted,
		})
	}
	return info
}

// Verify panics on a broken collection invariant.
func (c *RowGroupCollection) Verify() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	next := types.Rowid(0)
	for _, g := range c.groups {
		if g.start != next {
			panic(dberr.NewInternalError("row group starts not dense: %d != %d", g.start, next))
		}
		if len(g.commitTS) != g.rows() || len(g.deleteTS) != g.rows() {
			panic(dberr.NewInternalError("row group stamp arity mismatch at %d", g.start))
		}
		next += types.Rowid(g.rows())
	}
	if uint64(next) != c.totalRows {
		panic(dberr.NewInternalError("row count drift: %d != %d", next, c.totalRows))
	}
}
