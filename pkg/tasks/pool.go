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

package tasks

import (
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/pidb/duckdb/pkg/logutil"
)

// Pool is the shared worker pool driving parallel scan tasks.
type Pool struct {
	pool *ants.Pool
	wg   sync.WaitGroup
}

func NewPool(size int) *Pool {
	pool, err := ants.NewPool(size)
	if err != nil {
		logutil.Panicf("tasks: cannot create pool: %v", err)
	}
	return &Pool{pool: pool}
}

// Submit schedules fn and tracks it for Wait.
func (p *Pool) Submit(fn func()) error {
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		fn()
	})
	if err != nil {
		p.wg.Done()
	}
	return err
}

// Wait blocks until every submitted task finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) Release() {
	p.pool.Release()
}
