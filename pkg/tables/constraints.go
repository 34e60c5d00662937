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
	"github.com/pidb/duckdb/pkg/catalog"
	"github.com/pidb/duckdb/pkg/common/dberr"
	"github.com/pidb/duckdb/pkg/containers"
	"github.com/pidb/duckdb/pkg/index"
	"github.com/pidb/duckdb/pkg/txn"
)

const invalidIndex = -1

func verifyNotNullConstraint(tableName string, vec containers.Vector, colName string) error {
	if !vec.HasNull() {
		return nil
	}
	return dberr.NewConstraintViolation("NOT NULL constraint failed: %s.%s", tableName, colName)
}

// verifyGeneratedExpression surfaces generation errors at insert time
// instead of at read time.
func verifyGeneratedExpression(entry *catalog.TableEntry, bat *containers.Batch, def *catalog.ColDef) error {
	result, err := def.GenExpr.Eval(bat)
	if err != nil {
		if dberr.IsErrCode(err, dberr.ErrInternal) {
			return err
		}
		return dberr.NewConstraintViolation(
			"Incorrect value for generated column \"%s %s AS (%s)\" : %s",
			def.Name, def.Type, def.GenExpr, err)
	}
	result.Close()
	return nil
}

func verifyCheckConstraint(entry *catalog.TableEntry, check *catalog.Check, bat *containers.Batch) error {
	result, err := check.Expr.Eval(bat)
	if err != nil {
		if dberr.IsErrCode(err, dberr.ErrInternal) {
			return err
		}
		return dberr.NewConstraintViolation(
			"CHECK constraint failed: %s (Error: %s)", entry.Name(), err)
	}
	defer result.Close()
	for i := 0; i < result.Length(); i++ {
		if result.IsNull(i) {
			continue
		}
		if result.Get(i).(int32) == 0 {
			return dberr.NewConstraintViolation("CHECK constraint failed: %s", entry.Name())
		}
	}
	return nil
}

// IsForeignKeyIndex reports whether idx serves the given side of a
// foreign-key relationship over fkKeys. Column sets compare
// order-insensitively.
func IsForeignKeyIndex(fkKeys []int, idx index.Index, fkType catalog.FKType) bool {
	if fkType == catalog.FKTypePrimaryKeyTable {
		if !idx.IsUnique() {
			return false
		}
	} else if !idx.IsForeign() {
		return false
	}
	return index.ColumnSetsEqual(fkKeys, idx.ColumnIDs())
}

// firstMissingMatch walks the match selection and returns the first input
// row it skipped.
func firstMissingMatch(matches *index.ManagedSelection, count int) int {
	matchIdx := 0
	for i := 0; i < count; i++ {
		if matches.IndexMapsToLocation(matchIdx, i) {
			matchIdx++
			continue
		}
		return i
	}
	return invalidIndex
}

func locateErrorIndex(isAppend bool, matches *index.ManagedSelection, count int) int {
	if !isAppend {
		// nothing was expected to match, the first match is the error
		return matches.Get(0)
	}
	// every row was expected to match, the first gap is the error
	return firstMissingMatch(matches, count)
}

func isForeignKeyConstraintError(isAppend bool, count int, matches *index.ManagedSelection) bool {
	if isAppend {
		return matches.Count() != count
	}
	return matches.Count() != 0
}

func foreignKeyError(failedIndex int, isAppend bool, idx index.Index, bat *containers.Batch) error {
	verifyType := index.VerifyTypeDeleteFK
	if isAppend {
		verifyType = index.VerifyTypeAppendFK
	}
	if failedIndex == invalidIndex || idx == nil {
		panic(dberr.NewInternalError("foreign key violation without a resolvable index"))
	}
	keyName := idx.GenerateErrorKeyName(bat, failedIndex)
	return dberr.NewConstraintViolation("%s", idx.GenerateConstraintErrorMessage(verifyType, keyName))
}

// VerifyForeignKeyConstraint checks one foreign-key constraint over bat
// against the referenced table, consulting both its committed indexes and
// the transaction-local indexes of the referencing transaction.
func (t *Table) VerifyForeignKeyConstraint(fk *catalog.ForeignKey, tx *txn.Txn, bat *containers.Batch, verifyType index.VerifyExistenceType) error {
	isAppend := verifyType == index.VerifyTypeAppendFK
	srcKeys := fk.Info.FkKeys
	dstKeys := fk.Info.PkKeys
	if !isAppend {
		srcKeys = fk.Info.PkKeys
		dstKeys = fk.Info.FkKeys
	}

	refEntry, refTable, err := t.db.GetEntry(fk.Info.Schema, fk.Info.Table)
	if err != nil {
		panic(dberr.NewInternalError("can't find table %q in foreign key constraint", fk.Info.Table))
	}

	// lay the key columns out the way the referenced table stores them
	dstBat := containers.NewBatch()
	for _, def := range refEntry.Schema.ColDefs {
		if def.Generated() {
			continue
		}
		dstBat.AddVector(def.Name, containers.MakeVector(def.Type))
	}
	count := bat.Length()
	for i := range srcKeys {
		dstBat.Vecs[dstKeys[i]] = bat.Vecs[srcKeys[i]]
	}
	if count <= 0 {
		return nil
	}

	// record conflicts on both sides instead of failing outright
	regular := index.NewConflictManager(verifyType, count, nil)
	transaction := index.NewConflictManager(verifyType, count, nil)
	regular.SetMode(index.ConflictManagerScan)
	transaction.SetMode(index.ConflictManagerScan)

	if err := refTable.info.indexes.VerifyForeignKey(dstKeys, dstBat, regular); err != nil {
		return err
	}
	regular.Finalize()
	regularMatches := regular.Conflicts()

	ls := t.db.GetLocalStorage(tx)
	hasError := isForeignKeyConstraintError(isAppend, count, regularMatches)
	transactionError := false

	transactionCheck := ls.Find(refTable)
	if transactionCheck {
		transactIndexes := ls.GetIndexes(refTable)
		if err := transactIndexes.VerifyForeignKey(dstKeys, dstBat, transaction); err != nil {
			return err
		}
		transaction.Finalize()
		transactionError = isForeignKeyConstraintError(isAppend, count, transaction.Conflicts())
	}

	if !transactionError && !hasError {
		return nil
	}

	findType := catalog.FKTypeForeignKeyTable
	if isAppend {
		findType = catalog.FKTypePrimaryKeyTable
	}
	refIndex := refTable.info.indexes.FindForeignKeyIndex(dstKeys, findType)
	var transactionIndex index.Index
	if transactionCheck {
		transactionIndex = ls.GetIndexes(refTable).FindForeignKeyIndex(dstKeys, findType)
	}

	if !transactionCheck {
		// only committed state is observable
		failedIndex := locateErrorIndex(isAppend, regularMatches, count)
		return foreignKeyError(failedIndex, isAppend, refIndex, dstBat)
	}
	if transactionError && hasError && isAppend {
		// an appended key passes when either side has it; fail on the
		// first row absent from both
		transactionMatches := transaction.Conflicts()
		failedIndex := invalidIndex
		regularIdx := 0
		transactionIdx := 0
		for i := 0; i < count; i++ {
			inRegular := regularMatches.IndexMapsToLocation(regularIdx, i)
			if inRegular {
				regularIdx++
			}
			inTransaction := transactionMatches.IndexMapsToLocation(transactionIdx, i)
			if inTransaction {
				transactionIdx++
			}
			if !inRegular && !inTransaction {
				failedIndex = i
				break
			}
		}
		if failedIndex == invalidIndex {
			return nil
		}
		return foreignKeyError(failedIndex, true, refIndex, dstBat)
	}
	if !isAppend {
		// a deleted key fails when either side still references it
		if hasError {
			failedIndex := locateErrorIndex(false, regularMatches, count)
			return foreignKeyError(failedIndex, false, refIndex, dstBat)
		}
		failedIndex := locateErrorIndex(false, transaction.Conflicts(), count)
		return foreignKeyError(failedIndex, false, transactionIndex, dstBat)
	}
	return nil
}

func (t *Table) VerifyAppendForeignKeyConstraint(fk *catalog.ForeignKey, tx *txn.Txn, bat *containers.Batch) error {
	return t.VerifyForeignKeyConstraint(fk, tx, bat, index.VerifyTypeAppendFK)
}

func (t *Table) VerifyDeleteForeignKeyConstraint(fk *catalog.ForeignKey, tx *txn.Txn, bat *containers.Batch) error {
	return t.VerifyForeignKeyConstraint(fk, tx, bat, index.VerifyTypeDeleteFK)
}

// VerifyNewConstraint checks a constraint being added against current
// persistent and transaction-local rows. Only NOT NULL is supported.
func (t *Table) VerifyNewConstraint(tx *txn.Txn, constraint catalog.Constraint) error {
	notNull, ok := constraint.(*catalog.NotNull)
	if !ok {
		return dberr.NewNYI("adding this constraint type through ALTER TABLE")
	}
	def := t.columnDefs[notNull.ColIdx]
	if err := t.rowGroups.VerifyNewConstraint(t.info.tableName, def.Name, def.StorageIdx); err != nil {
		return err
	}
	ls := t.db.GetLocalStorage(tx)
	return ls.VerifyNewConstraint(t, def.Name, def.StorageIdx)
}

// VerifyAppendConstraints runs every append-side constraint over one
// chunk: generated columns first, then the declared constraints in order.
// A conflict manager switches unique verification into the two-phase
// scan-then-throw protocol.
func (t *Table) VerifyAppendConstraints(entry *catalog.TableEntry, tx *txn.Txn, bat *containers.Batch, cm *index.ConflictManager) error {
	if entry.HasGeneratedColumns() {
		for _, def := range entry.Schema.ColDefs {
			if !def.Generated() {
				continue
			}
			if err := verifyGeneratedExpression(entry, bat, def); err != nil {
				return err
			}
		}
	}
	for i := 0; i < len(entry.Constraints); i++ {
		switch constraint := entry.Constraints[i].(type) {
		case *catalog.NotNull:
			def := entry.Schema.GetColumn(constraint.ColIdx)
			if err := verifyNotNullConstraint(entry.Name(), bat.Vecs[def.StorageIdx], def.Name); err != nil {
				return err
			}
		case *catalog.Check:
			if err := verifyCheckConstraint(entry, constraint, bat); err != nil {
				return err
			}
		case *catalog.Unique:
			if err := t.verifyUniqueConstraint(bat, cm); err != nil {
				return err
			}
		case *catalog.ForeignKey:
			if constraint.Info.Type == catalog.FKTypeForeignKeyTable ||
				constraint.Info.Type == catalog.FKTypeSelfReference {
				if err := t.VerifyAppendForeignKeyConstraint(constraint, tx, bat); err != nil {
					return err
				}
			}
		default:
			return dberr.NewNYI("this constraint type")
		}
	}
	return nil
}

func (t *Table) verifyUniqueConstraint(bat *containers.Batch, cm *index.ConflictManager) error {
	if cm == nil {
		// no conflict target: any duplicate in any unique index fails
		var failed error
		t.info.indexes.Scan(func(idx index.Index) bool {
			if !idx.IsUnique() {
				return false
			}
			if err := idx.VerifyAppend(bat, nil); err != nil {
				failed = err
				return true
			}
			return false
		})
		return failed
	}

	// count the indexes matching the conflict target first
	conflictInfo := cm.GetConflictInfo()
	matchingIndexes := 0
	t.info.indexes.Scan(func(idx index.Index) bool {
		if conflictInfo.ConflictTargetMatches(idx) {
			matchingIndexes++
		}
		return false
	})
	cm.SetMode(index.ConflictManagerScan)
	cm.SetIndexCount(matchingIndexes)

	// scan phase: only the indexes matching the conflict target record
	var failed error
	t.info.indexes.Scan(func(idx index.Index) bool {
		if !idx.IsUnique() {
			return false
		}
		if conflictInfo.ConflictTargetMatches(idx) {
			if err := idx.VerifyAppend(bat, cm); err != nil {
				failed = err
				return true
			}
		}
		return false
	})
	if failed != nil {
		return failed
	}

	// throw phase: the remaining indexes fail on conflicts the scan did
	// not claim
	cm.SetMode(index.ConflictManagerThrow)
	t.info.indexes.Scan(func(idx index.Index) bool {
		if !idx.IsUnique() {
			return false
		}
		if err := idx.VerifyAppend(bat, cm); err != nil {
			failed = err
			return true
		}
		return false
	})
	return failed
}

// VerifyDeleteConstraints runs the delete-side constraints: only foreign
// keys constrain a delete, from the parent side.
func (t *Table) VerifyDeleteConstraints(entry *catalog.TableEntry, tx *txn.Txn, bat *containers.Batch) error {
	for _, constraint := range entry.Constraints {
		switch c := constraint.(type) {
		case *catalog.NotNull, *catalog.Check, *catalog.Unique:
		case *catalog.ForeignKey:
			if c.Info.Type == catalog.FKTypePrimaryKeyTable ||
				c.Info.Type == catalog.FKTypeSelfReference {
				if err := t.VerifyDeleteForeignKeyConstraint(c, tx, bat); err != nil {
					return err
				}
			}
		default:
			return dberr.NewNYI("this constraint type")
		}
	}
	return nil
}

// createMockChunk lays the updated vectors out at their table positions so
// a check expression can run over them. Returns a nil batch when none of
// the desired columns is updated.
func createMockChunk(entry *catalog.TableEntry, columnIDs []int, desired []int, bat *containers.Batch) (*containers.Batch, error) {
	found := 0
	for _, col := range columnIDs {
		for _, want := range desired {
			if col == want {
				found++
				break
			}
		}
	}
	if found == 0 {
		return nil, nil
	}
	if found != len(desired) {
		// the binder adds every column a check constraint needs
		return nil, dberr.NewInternalError(
			"not all columns required for the CHECK constraint are present in the updated chunk")
	}
	mock := containers.NewBatch()
	for _, def := range entry.Schema.ColDefs {
		if def.Generated() {
			continue
		}
		mock.AddVector(def.Name, containers.MakeVector(def.Type))
	}
	for i, col := range columnIDs {
		mock.Vecs[col] = bat.Vecs[i]
	}
	return mock, nil
}

// VerifyUpdateConstraints runs the update-side constraints: NOT NULL and
// CHECK over the touched columns. Unique and foreign-key constraints are
// rewritten into delete plus insert above this layer, which the index
// check at the bottom enforces.
func (t *Table) VerifyUpdateConstraints(entry *catalog.TableEntry, tx *txn.Txn, bat *containers.Batch, columnIDs []int) error {
	for i := 0; i < len(entry.Constraints); i++ {
		switch constraint := entry.Constraints[i].(type) {
		case *catalog.NotNull:
			def := entry.Schema.GetColumn(constraint.ColIdx)
			for i := 0; i < len(columnIDs); i++ {
				if columnIDs[i] == def.StorageIdx {
					if err := verifyNotNullConstraint(entry.Name(), bat.Vecs[i], def.Name); err != nil {
						return err
					}
					break
				}
			}
		case *catalog.Check:
			mock, err := createMockChunk(entry, columnIDs, constraint.BoundColumns, bat)
			if err != nil {
				return err
			}
			if mock != nil {
				if err := verifyCheckConstraint(entry, constraint, mock); err != nil {
					return err
				}
			}
		case *catalog.Unique, *catalog.ForeignKey:
		default:
			return dberr.NewNYI("this constraint type")
		}
	}
	t.info.indexes.Scan(func(idx index.Index) bool {
		if idx.IndexIsUpdated(columnIDs) {
			panic(dberr.NewInternalError(
				"update on key columns of index %q must be rewritten into delete and insert", idx.Name()))
		}
		return false
	})
	return nil
}
