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

package types

// Rowid addresses one row of one table. Ids in [0, MaxRowID) address rows
// in the committed row groups. Ids in [MaxRowID, 2*MaxRowID) address rows
// living in a transaction's local storage.
type Rowid = int64

const MaxRowID Rowid = 1 << 62

func IsLocalRowid(r Rowid) bool {
	return r >= MaxRowID
}

// LocalRowidOffset maps a transaction-local rowid back to its offset in the
// local store.
func LocalRowidOffset(r Rowid) uint64 {
	return uint64(r - MaxRowID)
}

func LocalRowid(offset uint64) Rowid {
	return MaxRowID + Rowid(offset)
}

// TS is a commit timestamp. Zero means uncommitted.
type TS = uint64
