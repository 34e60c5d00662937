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
	"sync"

	"github.com/pidb/duckdb/pkg/catalog"
	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/containers"
)

// TableIndexList is the set of indexes attached to one table.
type TableIndexList struct {
	mu      sync.RWMutex
	indexes []Index
}

func NewTableIndexList() *TableIndexList {
	return &TableIndexList{}
}

func (l *TableIndexList) AddIndex(idx Index) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.indexes = append(l.indexes, idx)
}

func (l *TableIndexList) Empty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.indexes) == 0
}

func (l *TableIndexList) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.indexes)
}

// Scan visits every index until the visitor returns true.
func (l *TableIndexList) Scan(visitor func(Index) bool) {
	l.mu.RLock()
	indexes := make([]Index, len(l.indexes))
	copy(indexes, l.indexes)
	l.mu.RUnlock()
	for _, idx := range indexes {
		if visitor(idx) {
			return
		}
	}
}

// VerifyForeignKey probes the index covering keyCols and records a match in
// cm for every row of bat whose key exists.
func (l *TableIndexList) VerifyForeignKey(keyCols []int, bat *containers.Batch, cm *ConflictManager) error {
	var target Index
	l.Scan(func(idx Index) bool {
		if ColumnSetsEqual(keyCols, idx.ColumnIDs()) {
			target = idx
			return true
		}
		return false
	})
	if target == nil {
		return dberr.NewInternalError("no index covers the foreign key columns %v", keyCols)
	}
	target.VerifyForeignKey(bat, cm)
	return nil
}

// FindForeignKeyIndex locates the index serving one side of a foreign-key
// relationship: the unique index when probing the parent side, the foreign
// index when probing the child side. Column sets compare order-insensitively.
func (l *TableIndexList) FindForeignKeyIndex(keyCols []int, fkType catalog.FKType) Index {
	var found Index
	l.Scan(func(idx Index) bool {
		if fkType == catalog.FKTypePrimaryKeyTable {
			if !idx.IsUnique() {
				return false
			}
		} else if !idx.IsForeign() {
			return false
		}
		if !ColumnSetsEqual(keyCols, idx.ColumnIDs()) {
			return false
		}
		found = idx
		return true
	})
	return found
}
