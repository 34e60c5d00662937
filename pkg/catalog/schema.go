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

import (
	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/container/types"
)

// ColDef describes one column. Generated columns carry a generation
// expression and own no storage ordinal.
type ColDef struct {
	Name string
	// Idx is the declared ordinal among all columns.
	Idx int
	// StorageIdx is the ordinal among stored columns, compacted over
	// non-generated columns. -1 for generated columns.
	StorageIdx int
	Type       types.Type
	// NullAbility is true when the column accepts nulls.
	NullAbility bool
	Default     Expr
	GenExpr     Expr
}

func (def *ColDef) Generated() bool {
	return def.GenExpr != nil
}

func (def *ColDef) Nullable() bool {
	return def.NullAbility
}

func (def *ColDef) Clone() *ColDef {
	cloned := *def
	return &cloned
}

type Schema struct {
	Name    string
	ColDefs []*ColDef
}

func NewSchema(name string) *Schema {
	return &Schema{Name: name}
}

func (s *Schema) AppendCol(name string, typ types.Type) *ColDef {
	def := &ColDef{
		Name:        name,
		Type:        typ,
		NullAbility: true,
	}
	s.ColDefs = append(s.ColDefs, def)
	return def
}

// Finalize assigns declared ordinals and compacts storage ordinals across
// non-generated columns. Call after any change to the column list.
func (s *Schema) Finalize() error {
	names := make(map[string]bool, len(s.ColDefs))
	storageIdx := 0
	for i, def := range s.ColDefs {
		if names[def.Name] {
			return dberr.NewCatalogError("duplicate column %q", def.Name)
		}
		names[def.Name] = true
		def.Idx = i
		if def.Generated() {
			def.StorageIdx = -1
			continue
		}
		def.StorageIdx = storageIdx
		storageIdx++
	}
	return nil
}

func (s *Schema) GetColumn(idx int) *ColDef {
	return s.ColDefs[idx]
}

func (s *Schema) ColumnCount() int {
	return len(s.ColDefs)
}

func (s *Schema) HasGeneratedColumns() bool {
	for _, def := range s.ColDefs {
		if def.Generated() {
			return true
		}
	}
	return false
}

// Attrs returns the names of stored columns in storage order.
func (s *Schema) Attrs() []string {
	attrs := make([]string, 0, len(s.ColDefs))
	for _, def := range s.ColDefs {
		if def.Generated() {
			continue
		}
		attrs = append(attrs, def.Name)
	}
	return attrs
}

// Types returns the types of stored columns in storage order.
func (s *Schema) Types() []types.Type {
	typs := make([]types.Type, 0, len(s.ColDefs))
	for _, def := range s.ColDefs {
		if def.Generated() {
			continue
		}
		typs = append(typs, def.Type)
	}
	return typs
}

func (s *Schema) Clone() *Schema {
	cloned := &Schema{Name: s.Name}
	for _, def := range s.ColDefs {
		cloned.ColDefs = append(cloned.ColDefs, def.Clone())
	}
	return cloned
}
