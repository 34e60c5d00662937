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
	"sync/atomic"

	"github.com/pidb/duckdb/pkg/index"
)

// TableInfo is the shared bundle of one logical table. A table and every
// schema-change successor hold the same TableInfo so the index set and the
// cardinality stay single-sourced across alters.
type TableInfo struct {
	db         *Database
	schemaName string
	tableName  string

	// cardinality counts committed, non-reverted rows. Mutated only under
	// the owning table's append lock.
	cardinality atomic.Uint64

	indexes *index.TableIndexList
}

func NewTableInfo(db *Database, schemaName, tableName string) *TableInfo {
	return &TableInfo{
		db:         db,
		schemaName: schemaName,
		tableName:  tableName,
		indexes:    index.NewTableIndexList(),
	}
}

func (info *TableInfo) SchemaName() string {
	return info.schemaName
}

func (info *TableInfo) TableName() string {
	return info.tableName
}

func (info *TableInfo) Indexes() *index.TableIndexList {
	return info.indexes
}

func (info *TableInfo) Cardinality() uint64 {
	return info.cardinality.Load()
}
