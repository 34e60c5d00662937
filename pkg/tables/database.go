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
	"sync"

	"github.com/pidb/duckdb/pkg/catalog"
	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/logutil"
	"github.com/pidb/duckdb/pkg/options"
	"github.com/pidb/duckdb/pkg/txn"
	"github.com/pidb/duckdb/pkg/wal"
)

type tableHandle struct {
	entry   *catalog.TableEntry
	storage *Table
}

// Database is the attached-database handle the storage layer sees: the
// table registry plus per-transaction local storage.
type Database struct {
	Name   string
	opts   *options.Options
	TxnMgr *txn.TxnManager

	mu     sync.RWMutex
	tables map[string]*tableHandle

	localMu sync.Mutex
	locals  map[uint64]*LocalStorage
}

func NewDatabase(name string, opts *options.Options) *Database {
	return &Database{
		Name:   name,
		opts:   opts.FillDefaults(),
		TxnMgr: txn.NewTxnManager(),
		tables: make(map[string]*tableHandle),
		locals: make(map[uint64]*LocalStorage),
	}
}

// CreateTable registers a new table, restoring persistent data when given.
func (db *Database) CreateTable(schemaName string, entry *catalog.TableEntry, data *PersistentTableData) (*Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	name := entry.Name()
	if _, ok := db.tables[name]; ok {
		return nil, dberr.NewCatalogError("table %q already exists", name)
	}
	table := NewTable(db, schemaName, name, entry, data)
	db.tables[name] = &tableHandle{entry: entry, storage: table}
	logutil.Infof("table %s.%s created, %d rows restored",
		schemaName, name, table.GetTotalRows())
	return table, nil
}

// GetEntry resolves a table by name, returning its catalog entry and the
// current root storage.
func (db *Database) GetEntry(schemaName, tableName string) (*catalog.TableEntry, *Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	handle, ok := db.tables[tableName]
	if !ok {
		return nil, nil, dberr.NewCatalogError("table %q does not exist", tableName)
	}
	return handle.entry, handle.storage, nil
}

// install publishes a schema-change successor and its refreshed catalog
// entry as the current version of the table. Called while the parent's
// append lock is held.
func (db *Database) install(tableName string, successor *Table, entry *catalog.TableEntry) {
	db.mu.Lock()
	defer db.mu.Unlock()
	handle, ok := db.tables[tableName]
	if !ok {
		panic(dberr.NewInternalError("installing successor of unknown table %q", tableName))
	}
	handle.storage = successor
	if entry != nil {
		handle.entry = entry
	}
}

// DropTable unregisters the table and marks its row groups reclaimable.
func (db *Database) DropTable(tableName string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	handle, ok := db.tables[tableName]
	if !ok {
		return dberr.NewCatalogError("table %q does not exist", tableName)
	}
	delete(db.tables, tableName)
	handle.storage.CommitDropTable()
	return nil
}

// GetLocalStorage returns the transaction's local write buffer, creating
// it on first use.
func (db *Database) GetLocalStorage(t *txn.Txn) *LocalStorage {
	db.localMu.Lock()
	defer db.localMu.Unlock()
	ls, ok := db.locals[t.ID]
	if !ok {
		ls = NewLocalStorage(t)
		db.locals[t.ID] = ls
	}
	return ls
}

func (db *Database) dropLocalStorage(t *txn.Txn) {
	db.localMu.Lock()
	defer db.localMu.Unlock()
	delete(db.locals, t.ID)
}

// CommitTxn flushes the transaction's local storage into the tables it
// touched and stamps the commit timestamp. On failure the transaction is
// rolled back and the error returned.
func (db *Database) CommitTxn(t *txn.Txn, log *wal.Writer) error {
	ls := db.GetLocalStorage(t)
	commitID := db.TxnMgr.PrepareCommit(t)
	if err := ls.Commit(commitID, log); err != nil {
		ls.Rollback()
		db.TxnMgr.Rollback(t)
		db.dropLocalStorage(t)
		return err
	}
	db.dropLocalStorage(t)
	return nil
}

// RollbackTxn drops the transaction's buffered writes.
func (db *Database) RollbackTxn(t *txn.Txn) {
	ls := db.GetLocalStorage(t)
	ls.Rollback()
	db.TxnMgr.Rollback(t)
	db.dropLocalStorage(t)
}
