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
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/google/btree"

	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
)

const btreeDegree = 8

type btreeItem struct {
	key   []byte
	rowid types.Rowid
}

func (it *btreeItem) Less(than btree.Item) bool {
	o := than.(*btreeItem)
	if c := bytes.Compare(it.key, o.key); c != 0 {
		return c < 0
	}
	return it.rowid < o.rowid
}

// BtreeIndex is an ordered secondary index over encoded composite keys.
// Unique indexes keep one entry per key, foreign indexes keep one entry per
// (key, rowid) pair.
type BtreeIndex struct {
	name      string
	unique    bool
	foreign   bool
	columnIDs []int
	colNames  []string

	mu   sync.RWMutex
	tree *btree.BTree
}

func NewBtreeIndex(name string, unique, foreign bool, columnIDs []int, colNames []string) *BtreeIndex {
	return &BtreeIndex{
		name:      name,
		unique:    unique,
		foreign:   foreign,
		columnIDs: columnIDs,
		colNames:  colNames,
		tree:      btree.New(btreeDegree),
	}
}

func (idx *BtreeIndex) Name() string      { return idx.name }
func (idx *BtreeIndex) Type() IndexType   { return IndexTypeBtree }
func (idx *BtreeIndex) IsUnique() bool    { return idx.unique }
func (idx *BtreeIndex) IsForeign() bool   { return idx.foreign }
func (idx *BtreeIndex) ColumnIDs() []int  { return idx.columnIDs }

func (idx *BtreeIndex) containsKeyLocked(key []byte) bool {
	found := false
	idx.tree.AscendGreaterOrEqual(&btreeItem{key: key, rowid: -1 << 62}, func(it btree.Item) bool {
		found = bytes.Equal(it.(*btreeItem).key, key)
		return false
	})
	return found
}

func (idx *BtreeIndex) Append(bat *containers.Batch, rowids []types.Rowid) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i := 0; i < bat.Length(); i++ {
		key := EncodeKey(bat, i, idx.columnIDs)
		if idx.unique && idx.containsKeyLocked(key) {
			return dberr.NewDuplicateEntry(idx.GenerateErrorKeyName(bat, i), idx.name)
		}
		idx.tree.ReplaceOrInsert(&btreeItem{key: key, rowid: rowids[i]})
	}
	return nil
}

func (idx *BtreeIndex) Delete(bat *containers.Batch, rowids []types.Rowid) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i := 0; i < bat.Length(); i++ {
		key := EncodeKey(bat, i, idx.columnIDs)
		idx.tree.Delete(&btreeItem{key: key, rowid: rowids[i]})
	}
}

func (idx *BtreeIndex) VerifyAppend(bat *containers.Batch, cm *ConflictManager) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for i := 0; i < bat.Length(); i++ {
		key := EncodeKey(bat, i, idx.columnIDs)
		if !idx.containsKeyLocked(key) {
			continue
		}
		keyName := idx.GenerateErrorKeyName(bat, i)
		if cm == nil {
			return dberr.NewConstraintViolation("%s",
				idx.GenerateConstraintErrorMessage(VerifyTypeAppend, keyName))
		}
		if err := cm.AddConflict(idx, i, keyName); err != nil {
			return err
		}
	}
	return nil
}

// VerifyForeignKey probes cm.InputCount rows; bat may carry empty
// placeholder vectors outside the key columns. A row with a null key
// column never references anything: it counts as matched on the append
// side and as unreferenced on the delete side.
func (idx *BtreeIndex) VerifyForeignKey(bat *containers.Batch, cm *ConflictManager) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for i := 0; i < cm.InputCount(); i++ {
		if idx.keyHasNull(bat, i) {
			if cm.VerifyType() == VerifyTypeAppendFK {
				cm.AddMatch(i)
			}
			continue
		}
		key := EncodeKey(bat, i, idx.columnIDs)
		if idx.containsKeyLocked(key) {
			cm.AddMatch(i)
		}
	}
}

func (idx *BtreeIndex) keyHasNull(bat *containers.Batch, row int) bool {
	for _, col := range idx.columnIDs {
		if bat.Vecs[col].IsNull(row) {
			return true
		}
	}
	return false
}

func (idx *BtreeIndex) IndexIsUpdated(colIDs []int) bool {
	for _, col := range colIDs {
		for _, own := range idx.columnIDs {
			if col == own {
				return true
			}
		}
	}
	return false
}

func (idx *BtreeIndex) GenerateErrorKeyName(bat *containers.Batch, row int) string {
	parts := make([]string, 0, len(idx.columnIDs))
	for i, col := range idx.columnIDs {
		vec := bat.Vecs[col]
		name := ""
		if i < len(idx.colNames) {
			name = idx.colNames[i] + ": "
		}
		if vec.IsNull(row) {
			parts = append(parts, name+"null")
			continue
		}
		v := vec.Get(row)
		if b, ok := v.([]byte); ok {
			parts = append(parts, fmt.Sprintf("%s%s", name, string(b)))
		} else {
			parts = append(parts, fmt.Sprintf("%s%v", name, v))
		}
	}
	return strings.Join(parts, ", ")
}

func (idx *BtreeIndex) GenerateConstraintErrorMessage(vt VerifyExistenceType, keyName string) string {
	switch vt {
	case VerifyTypeAppend:
		return fmt.Sprintf("Duplicate key \"%s\" violates unique constraint", keyName)
	case VerifyTypeAppendFK:
		return fmt.Sprintf(
			"Violates foreign key constraint because key \"%s\" does not exist in the referenced table", keyName)
	case VerifyTypeDeleteFK:
		return fmt.Sprintf(
			"Violates foreign key constraint because key \"%s\" is still referenced by a foreign key in a different table", keyName)
	}
	return fmt.Sprintf("constraint failure on key \"%s\"", keyName)
}

// Count returns the number of entries, for tests and storage info.
func (idx *BtreeIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree.Len()
}
