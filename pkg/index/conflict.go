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
	"sort"

	"github.com/pidb/duckdb/pkg/common/dberr"
)

// ManagedSelection is an ordered set of input row positions that produced a
// match or a conflict during index verification.
type ManagedSelection struct {
	sel []int
}

func (m *ManagedSelection) Append(row int) {
	n := len(m.sel)
	if n > 0 && m.sel[n-1] >= row {
		if m.sel[n-1] == row {
			return
		}
		// out-of-order insert, keep the selection sorted
		pos := sort.SearchInts(m.sel, row)
		if pos < n && m.sel[pos] == row {
			return
		}
		m.sel = append(m.sel, 0)
		copy(m.sel[pos+1:], m.sel[pos:])
		m.sel[pos] = row
		return
	}
	m.sel = append(m.sel, row)
}

func (m *ManagedSelection) Count() int {
	return len(m.sel)
}

func (m *ManagedSelection) Get(i int) int {
	return m.sel[i]
}

// IndexMapsToLocation reports whether the selection entry at cursor is the
// given input row.
func (m *ManagedSelection) IndexMapsToLocation(cursor, row int) bool {
	return cursor < len(m.sel) && m.sel[cursor] == row
}

// ConflictInfo describes the caller's conflict target. An empty column set
// matches every unique index.
type ConflictInfo struct {
	ColumnIDs []int
}

func (info *ConflictInfo) ConflictTargetMatches(idx Index) bool {
	if len(info.ColumnIDs) == 0 {
		return true
	}
	return ColumnSetsEqual(info.ColumnIDs, idx.ColumnIDs())
}

// ColumnSetsEqual compares two ordinal lists as sets.
func ColumnSetsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		found := false
		for _, y := range b {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type ConflictManagerMode uint8

const (
	// ConflictManagerScan records conflicts without failing.
	ConflictManagerScan ConflictManagerMode = iota
	// ConflictManagerThrow fails on conflicts not seen during the scan phase.
	ConflictManagerThrow
)

// ConflictManager collects uniqueness and foreign-key probe results across
// one or more indexes. It is a two-mode state machine: a scan phase records
// which input rows conflict, a throw phase fails on any conflict the scan
// did not already claim.
type ConflictManager struct {
	verifyType VerifyExistenceType
	inputCount int
	info       *ConflictInfo

	mode       ConflictManagerMode
	indexCount int
	matches    ManagedSelection
	seen       map[int]bool
	finalized  bool
}

func NewConflictManager(vt VerifyExistenceType, inputCount int, info *ConflictInfo) *ConflictManager {
	if info == nil {
		info = &ConflictInfo{}
	}
	return &ConflictManager{
		verifyType: vt,
		inputCount: inputCount,
		info:       info,
		seen:       make(map[int]bool),
	}
}

func (cm *ConflictManager) SetMode(mode ConflictManagerMode) {
	cm.mode = mode
}

func (cm *ConflictManager) Mode() ConflictManagerMode {
	return cm.mode
}

// SetIndexCount records how many indexes match the conflict target.
func (cm *ConflictManager) SetIndexCount(count int) {
	cm.indexCount = count
}

func (cm *ConflictManager) IndexCount() int {
	return cm.indexCount
}

func (cm *ConflictManager) GetConflictInfo() *ConflictInfo {
	return cm.info
}

func (cm *ConflictManager) VerifyType() VerifyExistenceType {
	return cm.verifyType
}

func (cm *ConflictManager) InputCount() int {
	return cm.inputCount
}

// AddConflict reports row as conflicting on idx. In scan mode the conflict
// is recorded; in throw mode an error is returned unless the scan phase
// already claimed the row.
func (cm *ConflictManager) AddConflict(idx Index, row int, keyName string) error {
	if cm.mode == ConflictManagerScan {
		cm.matches.Append(row)
		cm.seen[row] = true
		return nil
	}
	if cm.seen[row] {
		return nil
	}
	return dberr.NewConstraintViolation("%s",
		idx.GenerateConstraintErrorMessage(cm.verifyType, keyName))
}

// AddMatch records a foreign-key probe hit for row.
func (cm *ConflictManager) AddMatch(row int) {
	cm.matches.Append(row)
}

func (cm *ConflictManager) Conflicts() *ManagedSelection {
	return &cm.matches
}

func (cm *ConflictManager) Finalize() {
	cm.finalized = true
}

func (cm *ConflictManager) Finalized() bool {
	return cm.finalized
}
