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

package catalog

// TableEntry is the catalog handle for one table: its schema and declared
// constraints. The storage façade receives it on verification paths.
type TableEntry struct {
	Schema      *Schema
	Constraints []Constraint
}

func NewTableEntry(schema *Schema) *TableEntry {
	return &TableEntry{Schema: schema}
}

func (entry *TableEntry) Name() string {
	return entry.Schema.Name
}

func (entry *TableEntry) AddConstraint(c Constraint) {
	entry.Constraints = append(entry.Constraints, c)
}

func (entry *TableEntry) HasGeneratedColumns() bool {
	return entry.Schema.HasGeneratedColumns()
}
