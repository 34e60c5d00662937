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

package checkpoint

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pierrec/lz4"

	"github.com/pidb/duckdb/pkg/containers"
	"github.com/pidb/duckdb/pkg/index"
	"github.com/pidb/duckdb/pkg/logutil"
	"github.com/pidb/duckdb/pkg/tables"
)

type sectionKind uint8

const (
	sectionRowGroup sectionKind = iota + 1
	sectionStats
	sectionPointers
	sectionTablePointer
	sectionIndexData
)

// SegmentWriter streams a table checkpoint into one segment: lz4-framed
// row-group payloads followed by column statistics, row-group pointers,
// the table pointer and the index data.
type SegmentWriter struct {
	w       io.Writer
	written int64

	groupOffsets []int64
	groupRows    []uint32
}

func NewSegmentWriter(w io.Writer) *SegmentWriter {
	return &SegmentWriter{w: w}
}

func (sw *SegmentWriter) writeSection(kind sectionKind, payload []byte) error {
	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	header := make([]byte, 5)
	header[0] = byte(kind)
	binary.LittleEndian.PutUint32(header[1:], uint32(compressed.Len()))
	if _, err := sw.w.Write(header); err != nil {
		return err
	}
	if _, err := sw.w.Write(compressed.Bytes()); err != nil {
		return err
	}
	sw.written += int64(len(header) + compressed.Len())
	return nil
}

func (sw *SegmentWriter) WriteRowGroup(bat *containers.Batch) error {
	sw.groupOffsets = append(sw.groupOffsets, sw.written)
	sw.groupRows = append(sw.groupRows, uint32(bat.Length()))
	var payload bytes.Buffer
	if err := containers.WriteBatch(&payload, bat); err != nil {
		return err
	}
	return sw.writeSection(sectionRowGroup, payload.Bytes())
}

func (sw *SegmentWriter) FinalizeTable(globalStats []*tables.ColumnStats, info *tables.TableInfo) error {
	var stats bytes.Buffer
	_ = binary.Write(&stats, binary.LittleEndian, uint32(len(globalStats)))
	for _, s := range globalStats {
		_ = binary.Write(&stats, binary.LittleEndian, s.NullCount)
		_ = binary.Write(&stats, binary.LittleEndian, s.RowCount)
		_ = binary.Write(&stats, binary.LittleEndian, s.DistinctCount())
	}
	if err := sw.writeSection(sectionStats, stats.Bytes()); err != nil {
		return err
	}

	var pointers bytes.Buffer
	_ = binary.Write(&pointers, binary.LittleEndian, uint32(len(sw.groupOffsets)))
	for i, offset := range sw.groupOffsets {
		_ = binary.Write(&pointers, binary.LittleEndian, offset)
		_ = binary.Write(&pointers, binary.LittleEndian, sw.groupRows[i])
	}
	if err := sw.writeSection(sectionPointers, pointers.Bytes()); err != nil {
		return err
	}

	var tablePtr bytes.Buffer
	writeName(&tablePtr, info.SchemaName())
	writeName(&tablePtr, info.TableName())
	_ = binary.Write(&tablePtr, binary.LittleEndian, info.Cardinality())
	if err := sw.writeSection(sectionTablePointer, tablePtr.Bytes()); err != nil {
		return err
	}

	var indexData bytes.Buffer
	count := uint32(0)
	info.Indexes().Scan(func(index.Index) bool {
		count++
		return false
	})
	_ = binary.Write(&indexData, binary.LittleEndian, count)
	info.Indexes().Scan(func(idx index.Index) bool {
		writeName(&indexData, idx.Name())
		flags := byte(0)
		if idx.IsUnique() {
			flags |= 1
		}
		if idx.IsForeign() {
			flags |= 2
		}
		indexData.WriteByte(flags)
		_ = binary.Write(&indexData, binary.LittleEndian, uint32(len(idx.ColumnIDs())))
		for _, col := range idx.ColumnIDs() {
			_ = binary.Write(&indexData, binary.LittleEndian, int32(col))
		}
		return false
	})
	if err := sw.writeSection(sectionIndexData, indexData.Bytes()); err != nil {
		return err
	}
	logutil.Infof("checkpointed table %s.%s: %d row groups, %d bytes",
		info.SchemaName(), info.TableName(), len(sw.groupOffsets), sw.written)
	return nil
}

func writeName(w *bytes.Buffer, s string) {
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(s)))
	w.Write(size[:])
	w.WriteString(s)
}

func readName(r io.Reader) (string, error) {
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

// IndexMeta is one restored index descriptor.
type IndexMeta struct {
	Name      string
	Unique    bool
	Foreign   bool
	ColumnIDs []int
}

// SegmentData is the decoded form of one checkpoint segment.
type SegmentData struct {
	SchemaName  string
	TableName   string
	Cardinality uint64
	RowGroups   []*containers.Batch
	Indexes     []IndexMeta
}

// ReadSegment decodes a checkpoint segment. Column statistics are rebuilt
// from the row data on restore.
func ReadSegment(r io.Reader) (*SegmentData, error) {
	data := &SegmentData{}
	for {
		header := make([]byte, 5)
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF {
				return data, nil
			}
			return nil, err
		}
		size := binary.LittleEndian.Uint32(header[1:])
		compressed := make([]byte, size)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, err
		}
		payload, err := io.ReadAll(lz4.NewReader(bytes.NewReader(compressed)))
		if err != nil {
			return nil, err
		}
		pr := bytes.NewReader(payload)
		switch sectionKind(header[0]) {
		case sectionRowGroup:
			bat, err := containers.ReadBatch(pr)
			if err != nil {
				return nil, err
			}
			data.RowGroups = append(data.RowGroups, bat)
		case sectionTablePointer:
			if data.SchemaName, err = readName(pr); err != nil {
				return nil, err
			}
			if data.TableName, err = readName(pr); err != nil {
				return nil, err
			}
			if err = binary.Read(pr, binary.LittleEndian, &data.Cardinality); err != nil {
				return nil, err
			}
		case sectionIndexData:
			var count uint32
			if err = binary.Read(pr, binary.LittleEndian, &count); err != nil {
				return nil, err
			}
			for i := uint32(0); i < count; i++ {
				meta := IndexMeta{}
				if meta.Name, err = readName(pr); err != nil {
					return nil, err
				}
				flags := make([]byte, 1)
				if _, err = io.ReadFull(pr, flags); err != nil {
					return nil, err
				}
				meta.Unique = flags[0]&1 != 0
				meta.Foreign = flags[0]&2 != 0
				var cols uint32
				if err = binary.Read(pr, binary.LittleEndian, &cols); err != nil {
					return nil, err
				}
				for j := uint32(0); j < cols; j++ {
					var col int32
					if err = binary.Read(pr, binary.LittleEndian, &col); err != nil {
						return nil, err
					}
					meta.ColumnIDs = append(meta.ColumnIDs, int(col))
				}
				data.Indexes = append(data.Indexes, meta)
			}
		case sectionStats, sectionPointers:
			// summaries only; live statistics are rebuilt from the data
		}
	}
}

// ToPersistentData rebuilds the restore image, recomputing column
// statistics from the row groups.
func (data *SegmentData) ToPersistentData() *tables.PersistentTableData {
	persistent := &tables.PersistentTableData{RowGroups: data.RowGroups}
	if len(data.RowGroups) > 0 {
		for i, vec := range data.RowGroups[0].Vecs {
			stats := tables.NewColumnStats(vec.GetType())
			for _, bat := range data.RowGroups {
				stats.Update(bat.Vecs[i])
			}
			persistent.Stats = append(persistent.Stats, stats)
		}
	}
	return persistent
}

// MemoryWriter captures a checkpoint in memory, for tests and temporary
// tables.
type MemoryWriter struct {
	Data  *tables.PersistentTableData
	Stats []*tables.ColumnStats
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{Data: &tables.PersistentTableData{}}
}

func (mw *MemoryWriter) WriteRowGroup(bat *containers.Batch) error {
	mw.Data.RowGroups = append(mw.Data.RowGroups, bat)
	return nil
}

func (mw *MemoryWriter) FinalizeTable(globalStats []*tables.ColumnStats, info *tables.TableInfo) error {
	mw.Stats = globalStats
	mw.Data.Stats = globalStats
	return nil
}
