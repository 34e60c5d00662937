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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotVisibility(t *testing.T) {
	mgr := NewTxnManager()

	writer := mgr.StartTxn()
	require.True(t, writer.Active())
	commitTS := mgr.PrepareCommit(writer)
	assert.Equal(t, StateCommitted, writer.State())

	// a snapshot taken before the commit does not see it
	assert.False(t, writer.CanSee(commitTS))

	reader := mgr.StartTxn()
	assert.True(t, reader.CanSee(commitTS))
	assert.False(t, reader.CanSee(0))
	assert.False(t, reader.CanSee(commitTS+1))
}

func TestCommitTimestampsMonotone(t *testing.T) {
	mgr := NewTxnManager()
	var last uint64
	for i := 0; i < 10; i++ {
		tx := mgr.StartTxn()
		ts := mgr.PrepareCommit(tx)
		require.Greater(t, ts, last)
		last = ts
	}
}

func TestRollback(t *testing.T) {
	mgr := NewTxnManager()
	tx := mgr.StartTxn()
	mgr.Rollback(tx)
	assert.Equal(t, StateRollbacked, tx.State())
	assert.False(t, tx.Active())
}
