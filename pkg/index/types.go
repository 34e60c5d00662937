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
	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
)

type IndexType uint8

const (
	IndexTypeBtree IndexType = iota
)

func (t IndexType) String() string {
	switch t {
	case IndexTypeBtree:
		return "BTREE"
	}
	return "UNKNOWN"
}

// VerifyExistenceType tells an index why a key is being probed, which
// selects the constraint error message on failure.
type VerifyExistenceType uint8

const (
	// VerifyTypeAppend probes for duplicates before an insert.
	VerifyTypeAppend VerifyExistenceType = iota
	// VerifyTypeAppendFK probes the parent side before a child insert.
	VerifyTypeAppendFK
	// VerifyTypeDeleteFK probes the child side before a parent delete.
	VerifyTypeDeleteFK
)

// Index is one secondary index attached to a table. Batches handed to an
// index are laid out like the owning table's stored columns; the index
// projects its own key columns.
type Index interface {
	Name() string
	Type() IndexType
	IsUnique() bool
	IsForeign() bool
	// ColumnIDs are the storage ordinals of the key columns.
	ColumnIDs() []int

	Append(bat *containers.Batch, rowids []types.Rowid) error
	Delete(bat *containers.Batch, rowids []types.Rowid)

	// VerifyAppend probes every row of bat for uniqueness conflicts. With a
	// nil conflict manager any conflict fails immediately; otherwise the
	// manager's mode decides between recording and failing.
	VerifyAppend(bat *containers.Batch, cm *ConflictManager) error
	// VerifyForeignKey records in cm which rows of bat have a matching key.
	VerifyForeignKey(bat *containers.Batch, cm *ConflictManager)

	// IndexIsUpdated reports whether any of the given storage ordinals is a
	// key column of this index.
	IndexIsUpdated(colIDs []int) bool

	GenerateErrorKeyName(bat *containers.Batch, row int) string
	GenerateConstraintErrorMessage(vt VerifyExistenceType, keyName string) string
}
