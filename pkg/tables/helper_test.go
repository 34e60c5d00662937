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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pidb/duckdb/pkg/catalog"
	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
	"github.com/pidb/duckdb/pkg/options"
	"github.com/pidb/duckdb/pkg/txn"
)

// small vectors and row groups so a handful of rows crosses every
// boundary the real sizes would only hit with millions
func testOptions() *options.Options {
	return (&options.Options{
		StorageCfg: &options.StorageCfg{
			VectorMaxRows:   4,
			RowGroupVectors: 2,
		},
	}).FillDefaults()
}

func newTestDB(t *testing.T) *Database {
	t.Helper()
	return NewDatabase("testdb", testOptions())
}

type testCol struct {
	name    string
	typ     types.Type
	notNull bool
}

func buildEntry(t *testing.T, name string, cols ...testCol) *catalog.TableEntry {
	t.Helper()
	schema := catalog.NewSchema(name)
	for _, col := range cols {
		def := schema.AppendCol(col.name, col.typ)
		def.NullAbility = !col.notNull
	}
	require.NoError(t, schema.Finalize())
	entry := catalog.NewTableEntry(schema)
	for i, col := range cols {
		if col.notNull {
			entry.AddConstraint(&catalog.NotNull{ColIdx: i})
		}
	}
	return entry
}

func createTestTable(t *testing.T, db *Database, name string, cols ...testCol) (*catalog.TableEntry, *Table) {
	t.Helper()
	entry := buildEntry(t, name, cols...)
	table, err := db.CreateTable("main", entry, nil)
	require.NoError(t, err)
	return entry, table
}

// currentTable re-resolves the root version after schema changes.
func currentTable(t *testing.T, db *Database, name string) (*catalog.TableEntry, *Table) {
	t.Helper()
	entry, table, err := db.GetEntry("main", name)
	require.NoError(t, err)
	return entry, table
}

func appendCommitted(t *testing.T, db *Database, name string, bat *containers.Batch) {
	t.Helper()
	tx := db.TxnMgr.StartTxn()
	entry, table := currentTable(t, db, name)
	require.NoError(t, table.LocalAppendBatch(entry, tx, bat))
	require.NoError(t, db.CommitTxn(tx, nil))
}

func allColumnIDs(table *Table) []int {
	ids := make([]int, len(table.storageAttrs()))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func scanAll(t *testing.T, table *Table, tx *txn.Txn, columnIDs []int) *containers.Batch {
	t.Helper()
	state := &TableScanState{}
	table.InitializeScanWithTxn(tx, state, columnIDs, nil)
	result := table.BuildResultBatch(columnIDs)
	for {
		chunk := table.BuildResultBatch(columnIDs)
		if !table.Scan(tx, chunk, state) {
			break
		}
		result.Extend(chunk)
	}
	return result
}

// sortedInt64Column flattens one int64 column for multiset comparison.
func sortedInt64Column(bat *containers.Batch, col int) []int64 {
	vals := make([]int64, 0, bat.Length())
	for i := 0; i < bat.Length(); i++ {
		vals = append(vals, bat.Vecs[col].Get(i).(int64))
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	return vals
}

func int64Batch(attrs []string, cols ...[]int64) *containers.Batch {
	typs := make([]types.Type, len(cols))
	for i := range typs {
		typs[i] = types.T_int64.ToType()
	}
	bat := containers.BuildBatch(attrs, typs)
	for c, vals := range cols {
		for _, v := range vals {
			bat.Vecs[c].Append(v, false)
		}
	}
	return bat
}
