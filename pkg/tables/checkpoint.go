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
	"github.com/pidb/duckdb/pkg/containers"
)

// PersistentTableData is the restore-side image of a checkpointed table:
// the compacted row groups and the column statistics.
type PersistentTableData struct {
	RowGroups []*containers.Batch
	Stats     []*ColumnStats
}

// TableDataWriter receives a table checkpoint. The payload arrives first,
// one row group per call, then FinalizeTable persists column statistics,
// row-group pointers, the table pointer and the index data, in that order.
type TableDataWriter interface {
	WriteRowGroup(bat *containers.Batch) error
	FinalizeTable(globalStats []*ColumnStats, info *TableInfo) error
}

// Checkpoint serializes the table: per-column statistics are copied, every
// row group is handed to the writer, then the writer finalizes the table
// metadata. Contents are not mutated; reads may run concurrently.
func (t *Table) Checkpoint(writer TableDataWriter) error {
	globalStats := make([]*ColumnStats, 0, len(t.storageAttrs()))
	for i := range t.storageAttrs() {
		globalStats = append(globalStats, t.rowGroups.CopyStats(i))
	}
	if err := t.rowGroups.Checkpoint(writer, globalStats); err != nil {
		return err
	}
	return writer.FinalizeTable(globalStats, t.info)
}
