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
	"bytes"
	"fmt"

	"github.com/axiomhq/hyperloglog"

	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
)

// ColumnStats carries the per-column aggregates the planner reads: value
// bounds, null count and an NDV sketch.
type ColumnStats struct {
	Typ       types.Type
	Min       any
	Max       any
	NullCount uint64
	RowCount  uint64

	ndv *hyperloglog.Sketch
}

func NewColumnStats(typ types.Type) *ColumnStats {
	return &ColumnStats{
		Typ: typ,
		ndv: hyperloglog.New14(),
	}
}

func compareValues(a, b any) int {
	if ab, ok := a.([]byte); ok {
		return bytes.Compare(ab, b.([]byte))
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		if x == y {
			return 0
		}
		if !x {
			return -1
		}
		return 1
	case int8:
		return int(x) - int(b.(int8))
	case int16:
		return int(x) - int(b.(int16))
	case int32:
		return cmpOrdered(int64(x), int64(b.(int32)))
	case int64:
		return cmpOrdered(x, b.(int64))
	case uint8:
		return int(x) - int(b.(uint8))
	case uint16:
		return int(x) - int(b.(uint16))
	case uint32:
		return cmpOrdered(uint64(x), uint64(b.(uint32)))
	case uint64:
		return cmpOrdered(x, b.(uint64))
	case float32:
		return cmpOrdered(x, b.(float32))
	case float64:
		return cmpOrdered(x, b.(float64))
	}
	panic(fmt.Sprintf("tables: cannot compare %T", a))
}

func cmpOrdered[T int64 | uint64 | float32 | float64](a, b T) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func (s *ColumnStats) UpdateValue(v any, isNull bool) {
	s.RowCount++
	if isNull {
		s.NullCount++
		return
	}
	if s.Min == nil || compareValues(v, s.Min) < 0 {
		s.Min = v
	}
	if s.Max == nil || compareValues(v, s.Max) > 0 {
		s.Max = v
	}
	s.ndv.Insert([]byte(fmt.Sprintf("%v", v)))
}

// Update merges one appended vector into the stats.
func (s *ColumnStats) Update(vec containers.Vector) {
	_ = vec.Foreach(func(v any, isNull bool, _ int) error {
		s.UpdateValue(v, isNull)
		return nil
	})
}

// DistinctCount estimates the number of distinct non-null values.
func (s *ColumnStats) DistinctCount() uint64 {
	return s.ndv.Estimate()
}

func (s *ColumnStats) Clone() *ColumnStats {
	cloned := *s
	cloned.ndv = s.ndv.Clone()
	return &cloned
}

func (s *ColumnStats) String() string {
	return fmt.Sprintf("min=%v max=%v nulls=%d ndv=%d rows=%d",
		s.Min, s.Max, s.NullCount, s.DistinctCount(), s.RowCount)
}
