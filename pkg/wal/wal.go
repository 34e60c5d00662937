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

package wal

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"

	"github.com/pierrec/lz4"

	"github.com/pidb/duckdb/pkg/container/types"
	"github.com/pidb/duckdb/pkg/containers"
)

type EntryKind uint8

const (
	EntrySetTable EntryKind = iota + 1
	EntryInsert
	EntryDelete
)

// Writer emits table-granular log entries. Payloads are lz4-compressed.
// Framing is: kind u8, compressed length u32, compressed payload.
type Writer struct {
	mu sync.Mutex
	w  io.Writer

	// SkipWriting turns the writer into a no-op, used for temporary tables.
	SkipWriting bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (l *Writer) writeEntry(kind EntryKind, payload []byte) error {
	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := binary.Write(l.w, binary.LittleEndian, uint8(kind)); err != nil {
		return err
	}
	if err := binary.Write(l.w, binary.LittleEndian, uint32(compressed.Len())); err != nil {
		return err
	}
	_, err := l.w.Write(compressed.Bytes())
	return err
}

func (l *Writer) WriteSetTable(schema, table string) error {
	if l.SkipWriting {
		return nil
	}
	var payload bytes.Buffer
	writeString(&payload, schema)
	writeString(&payload, table)
	return l.writeEntry(EntrySetTable, payload.Bytes())
}

func (l *Writer) WriteInsert(bat *containers.Batch) error {
	if l.SkipWriting {
		return nil
	}
	var payload bytes.Buffer
	if err := containers.WriteBatch(&payload, bat); err != nil {
		return err
	}
	return l.writeEntry(EntryInsert, payload.Bytes())
}

func (l *Writer) WriteDelete(rowids []types.Rowid) error {
	if l.SkipWriting {
		return nil
	}
	var payload bytes.Buffer
	if err := binary.Write(&payload, binary.LittleEndian, uint32(len(rowids))); err != nil {
		return err
	}
	if err := binary.Write(&payload, binary.LittleEndian, rowids); err != nil {
		return err
	}
	return l.writeEntry(EntryDelete, payload.Bytes())
}

func writeString(w *bytes.Buffer, s string) {
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(s)))
	w.Write(size[:])
	w.WriteString(s)
}

func readString(r io.Reader) (string, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return "", err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Entry is one decoded log record.
type Entry struct {
	Kind   EntryKind
	Schema string
	Table  string
	Batch  *containers.Batch
	Rowids []types.Rowid
}

// Replay decodes every entry in the log stream.
func Replay(r io.Reader) ([]*Entry, error) {
	entries := make([]*Entry, 0)
	for {
		var kind uint8
		if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return nil, err
		}
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		compressed := make([]byte, size)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, err
		}
		payload, err := io.ReadAll(lz4.NewReader(bytes.NewReader(compressed)))
		if err != nil {
			return nil, err
		}
		entry := &Entry{Kind: EntryKind(kind)}
		pr := bytes.NewReader(payload)
		switch entry.Kind {
		case EntrySetTable:
			if entry.Schema, err = readString(pr); err != nil {
				return nil, err
			}
			if entry.Table, err = readString(pr); err != nil {
				return nil, err
			}
		case EntryInsert:
			if entry.Batch, err = containers.ReadBatch(pr); err != nil {
				return nil, err
			}
		case EntryDelete:
			var count uint32
			if err = binary.Read(pr, binary.LittleEndian, &count); err != nil {
				return nil, err
			}
			entry.Rowids = make([]types.Rowid, count)
			if err = binary.Read(pr, binary.LittleEndian, entry.Rowids); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
}
