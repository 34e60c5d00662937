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

	"github.com/pidb/duckdb/pkg/container/types"
)

// TableFilter accepts or rejects one value of the filtered column.
type TableFilter func(v any, isNull bool) bool

// TableFilterSet maps storage ordinals to their pushed-down filter.
type TableFilterSet map[int]TableFilter

type scanType uint8

const (
	// scanTypeSnapshot observes rows committed at the snapshot timestamp.
	scanTypeSnapshot scanType = iota
	// scanTypeCommitted observes appended rows regardless of commit
	// stamps, used by segment scans and index rebuild.
	scanTypeCommitted
	// scanTypeLocal observes a transaction's own uncommitted rows.
	scanTypeLocal
)

// RowGroupScanState is a cursor over a RowGroupCollection, advancing one
// vector per Scan call.
type RowGroupScanState struct {
	collection *RowGroupCollection
	typ        scanType

	groupIdx int
	vecIdx   int
	// maxVecIdx bounds the cursor for parallel chunks, -1 means unbounded.
	maxGroupIdx int
	maxVecIdx   int
	// startRow/endRow clip offset scans.
	startRow types.Rowid
	endRow   types.Rowid

	BatchIndex int
	exhausted  bool
}

// LocalScanState is the cursor over a transaction's local rows of a table.
type LocalScanState struct {
	storage   *LocalTableStorage
	tableScan RowGroupScanState
	bound     bool
}

// TableScanState carries one scan over a table: the persistent cursor plus
// the transaction-local cursor.
type TableScanState struct {
	columnIDs []int
	filters   TableFilterSet

	TableState RowGroupScanState
	LocalState LocalScanState
}

func (state *TableScanState) Initialize(columnIDs []int, filters TableFilterSet) {
	state.columnIDs = columnIDs
	state.filters = filters
	state.TableState = RowGroupScanState{}
	state.LocalState = LocalScanState{}
}

func (state *TableScanState) GetColumnIDs() []int {
	return state.columnIDs
}

// ParallelRowGroupScanState hands out disjoint chunks of a collection to
// concurrent scanners.
type ParallelRowGroupScanState struct {
	mu         sync.Mutex
	collection *RowGroupCollection
	groupIdx   int
	vecIdx     int
	BatchIndex int
}

// ParallelLocalScanState mirrors the chunk cursor for local rows.
type ParallelLocalScanState struct {
	mu      sync.Mutex
	storage *LocalTableStorage
	done    bool
}

type ParallelTableScanState struct {
	ScanState  ParallelRowGroupScanState
	LocalState ParallelLocalScanState
}

// CreateIndexScanState scans committed rows while holding the append lock
// so no appender can race the index build.
type CreateIndexScanState struct {
	TableScanState
	releaseAppendLock func()
}

// Release drops the append lock held since initialization.
func (state *CreateIndexScanState) Release() {
	if state.releaseAppendLock != nil {
		state.releaseAppendLock()
		state.releaseAppendLock = nil
	}
}

// TableAppendState tracks one commit-path append: the reserved row range
// and the held append lock.
type TableAppendState struct {
	RowStart   types.Rowid
	CurrentRow types.Rowid
	TotalCount uint64

	releaseAppendLock func()
}

func (state *TableAppendState) Locked() bool {
	return state.releaseAppendLock != nil
}

// ReleaseLock drops the append lock after the append stream finished.
func (state *TableAppendState) ReleaseLock() {
	if state.releaseAppendLock != nil {
		state.releaseAppendLock()
		state.releaseAppendLock = nil
	}
}

// LocalAppendState is the handle for one transaction-local append stream.
type LocalAppendState struct {
	storage *LocalTableStorage
}

// ColumnFetchState is reserved for fetch-path caching.
type ColumnFetchState struct{}
