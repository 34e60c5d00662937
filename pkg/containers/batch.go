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
	"fmt"

	"github.com/pidb/duckdb/pkg/container/types"
)

// Batch is an ordered set of named column vectors with equal lengths.
type Batch struct {
	Attrs   []string
	Nameidx map[string]int
	Vecs    []Vector
}

func NewBatch() *Batch {
	return &Batch{
		Attrs:   make([]string, 0),
		Nameidx: make(map[string]int),
		Vecs:    make([]Vector, 0),
	}
}

// BuildBatch allocates an empty batch with one vector per attribute.
func BuildBatch(attrs []string, typs []types.Type) *Batch {
	bat := &Batch{
		Attrs:   make([]string, 0, len(attrs)),
		Nameidx: make(map[string]int, len(attrs)),
		Vecs:    make([]Vector, 0, len(attrs)),
	}
	for i, attr := range attrs {
		bat.AddVector(attr, MakeVector(typs[i]))
	}
	return bat
}

func (bat *Batch) AddVector(attr string, vec Vector) {
	if _, exist := bat.Nameidx[attr]; exist {
		panic(fmt.Sprintf("containers: duplicate vector %s", attr))
	}
	idx := len(bat.Vecs)
	bat.Nameidx[attr] = idx
	bat.Attrs = append(bat.Attrs, attr)
	bat.Vecs = append(bat.Vecs, vec)
}

func (bat *Batch) GetVectorByName(name string) Vector {
	pos, ok := bat.Nameidx[name]
	if !ok {
		panic(fmt.Sprintf("containers: vector %s not found", name))
	}
	return bat.Vecs[pos]
}

func (bat *Batch) Length() int {
	if len(bat.Vecs) == 0 {
		return 0
	}
	return bat.Vecs[0].Length()
}

func (bat *Batch) ColumnCount() int {
	return len(bat.Vecs)
}

func (bat *Batch) Extend(o *Batch) {
	bat.ExtendWithOffset(o, 0, o.Length())
}

func (bat *Batch) ExtendWithOffset(o *Batch, srcOff, srcLen int) {
	for i, vec := range bat.Vecs {
		vec.ExtendWithOffset(o.Vecs[i], srcOff, srcLen)
	}
}

func (bat *Batch) CloneWindow(offset, length int) *Batch {
	cloned := &Batch{
		Attrs:   make([]string, len(bat.Attrs)),
		Nameidx: make(map[string]int, len(bat.Attrs)),
		Vecs:    make([]Vector, len(bat.Vecs)),
	}
	copy(cloned.Attrs, bat.Attrs)
	for name, idx := range bat.Nameidx {
		cloned.Nameidx[name] = idx
	}
	for i, vec := range bat.Vecs {
		cloned.Vecs[i] = vec.CloneWindow(offset, length)
	}
	return cloned
}

func (bat *Batch) Truncate(length int) {
	for _, vec := range bat.Vecs {
		vec.Truncate(length)
	}
}

func (bat *Batch) Reset() {
	for _, vec := range bat.Vecs {
		vec.Reset()
	}
}

func (bat *Batch) Equals(o *Batch) bool {
	if bat.Length() != o.Length() || bat.ColumnCount() != o.ColumnCount() {
		return false
	}
	for i, vec := range bat.Vecs {
		if bat.Attrs[i] != o.Attrs[i] {
			return false
		}
		if !vec.Equals(o.Vecs[i]) {
			return false
		}
	}
	return true
}

func (bat *Batch) String() string {
	var w bytes.Buffer
	for i, vec := range bat.Vecs {
		fmt.Fprintf(&w, "%s=%s\n", bat.Attrs[i], vec.String())
	}
	return w.String()
}

func (bat *Batch) Close() {
	for _, vec := range bat.Vecs {
		vec.Close()
	}
	bat.Vecs = nil
	bat.Attrs = nil
	bat.Nameidx = nil
}
