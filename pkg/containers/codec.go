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

package containers

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/pidb/duckdb/pkg/container/types"
)

// Vector wire layout: oid u8, row count u32, null mask (u32 length +
// serialized bitmap), payload. Fixed-width payloads are raw little-endian
// slices, varlen payloads are u32 length + bytes per row.

func writeNullMask(w io.Writer, nulls *roaring64.Bitmap) error {
	var buf bytes.Buffer
	if nulls != nil && !nulls.IsEmpty() {
		if _, err := nulls.WriteTo(&buf); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(buf.Len())); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func readNullMask(r io.Reader) (*roaring64.Bitmap, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	nulls := roaring64.New()
	if _, err := nulls.ReadFrom(io.LimitReader(r, int64(size))); err != nil {
		return nil, err
	}
	return nulls, nil
}

func (vec *vector[T]) WriteTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint8(vec.typ.Oid)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vec.vals))); err != nil {
		return err
	}
	if err := writeNullMask(w, vec.nulls); err != nil {
		return err
	}
	if rows, ok := any(vec.vals).([][]byte); ok {
		for _, row := range rows {
			if err := binary.Write(w, binary.LittleEndian, uint32(len(row))); err != nil {
				return err
			}
			if _, err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	}
	return binary.Write(w, binary.LittleEndian, vec.vals)
}

func (vec *vector[T]) ReadFrom(r io.Reader) error {
	var oid uint8
	if err := binary.Read(r, binary.LittleEndian, &oid); err != nil {
		return err
	}
	var rows uint32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return err
	}
	nulls, err := readNullMask(r)
	if err != nil {
		return err
	}
	vec.nulls = nulls
	vec.vals = make([]T, rows)
	if _, ok := any(vec.vals).([][]byte); ok {
		out := any(vec.vals).([][]byte)
		for i := range out {
			var size uint32
			if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
				return err
			}
			row := make([]byte, size)
			if _, err := io.ReadFull(r, row); err != nil {
				return err
			}
			out[i] = row
		}
		return nil
	}
	return binary.Read(r, binary.LittleEndian, vec.vals)
}

type vectorCodec interface {
	WriteTo(w io.Writer) error
	ReadFrom(r io.Reader) error
}

func WriteVector(w io.Writer, vec Vector) error {
	return vec.(vectorCodec).WriteTo(w)
}

// ReadVector decodes one vector. The oid byte is peeked first to allocate
// the right payload shape.
func ReadVector(r io.Reader) (Vector, error) {
	var oid [1]byte
	if _, err := io.ReadFull(r, oid[:]); err != nil {
		return nil, err
	}
	typ := types.T(oid[0]).ToType()
	vec := MakeVector(typ)
	full := io.MultiReader(bytes.NewReader(oid[:]), r)
	if err := vec.(vectorCodec).ReadFrom(full); err != nil {
		return nil, err
	}
	return vec, nil
}

func WriteBatch(w io.Writer, bat *Batch) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(bat.Vecs))); err != nil {
		return err
	}
	for i, vec := range bat.Vecs {
		attr := []byte(bat.Attrs[i])
		if err := binary.Write(w, binary.LittleEndian, uint32(len(attr))); err != nil {
			return err
		}
		if _, err := w.Write(attr); err != nil {
			return err
		}
		if err := WriteVector(w, vec); err != nil {
			return err
		}
	}
	return nil
}

func ReadBatch(r io.Reader) (*Batch, error) {
	var cols uint32
	if err := binary.Read(r, binary.LittleEndian, &cols); err != nil {
		return nil, err
	}
	bat := NewBatch()
	for i := uint32(0); i < cols; i++ {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, err
		}
		attr := make([]byte, size)
		if _, err := io.ReadFull(r, attr); err != nil {
			return nil, err
		}
		vec, err := ReadVector(r)
		if err != nil {
			return nil, err
		}
		bat.AddVector(string(attr), vec)
	}
	return bat, nil
}
