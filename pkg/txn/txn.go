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

package txn

import (
	"sync/atomic"

	"github.com/pidb/duckdb/pkg/container/types"
)

type State int32

const (
	StateActive State = iota
	StateCommitted
	StateRollbacked
)

// Txn is one snapshot-isolation transaction. Reads observe rows committed
// at or before StartTS plus the transaction's own local writes.
type Txn struct {
	ID       uint64
	StartTS  types.TS
	CommitTS types.TS
	state    atomic.Int32
}

func (txn *Txn) State() State {
	return State(txn.state.Load())
}

func (txn *Txn) Active() bool {
	return txn.State() == StateActive
}

// CanSee reports whether a row stamped with commitTS is visible to this
// transaction's snapshot. Zero means uncommitted.
func (txn *Txn) CanSee(commitTS types.TS) bool {
	return commitTS != 0 && commitTS <= txn.StartTS
}

// TxnManager allocates transaction ids and timestamps. Commit timestamps
// are strictly monotone; a commit is linearized by its timestamp.
type TxnManager struct {
	idAlloc uint64
	tsAlloc uint64
}

func NewTxnManager() *TxnManager {
	// the timestamp allocator starts at the stamp given to restored rows,
	// so every new snapshot observes them
	return &TxnManager{tsAlloc: 1}
}

func (mgr *TxnManager) StartTxn() *Txn {
	return &Txn{
		ID:      atomic.AddUint64(&mgr.idAlloc, 1),
		StartTS: atomic.LoadUint64(&mgr.tsAlloc),
	}
}

// PrepareCommit allocates the commit timestamp and moves the transaction to
// committed state.
func (mgr *TxnManager) PrepareCommit(txn *Txn) types.TS {
	txn.CommitTS = atomic.AddUint64(&mgr.tsAlloc, 1)
	txn.state.Store(int32(StateCommitted))
	return txn.CommitTS
}

func (mgr *TxnManager) Rollback(txn *Txn) {
	txn.state.Store(int32(StateRollbacked))
}
