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

package options

import (
	"github.com/BurntSushi/toml"

	"github.com/pidb/duckdb/pkg/logutil"
)

const (
	DefaultVectorMaxRows      = uint32(1024)
	DefaultRowGroupVectors    = uint16(8)
	DefaultScanWorkers        = 4
	DefaultCheckpointCapacity = 16
)

type StorageCfg struct {
	// VectorMaxRows is the number of rows in one scan vector.
	VectorMaxRows uint32 `toml:"vector-max-rows"`
	// RowGroupVectors is the number of vectors in one row group.
	RowGroupVectors uint16 `toml:"row-group-vectors"`
}

type SchedulerCfg struct {
	ScanWorkers int `toml:"scan-workers"`
}

type Options struct {
	StorageCfg   *StorageCfg   `toml:"storage-cfg"`
	SchedulerCfg *SchedulerCfg `toml:"scheduler-cfg"`
	LogCfg       *logutil.LogConfig `toml:"log-cfg"`

	// VerifyParallelism shrinks parallel scan chunks to a single vector so
	// tests exercise deterministic task partitioning.
	VerifyParallelism bool `toml:"verify-parallelism"`
}

func (o *Options) FillDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.StorageCfg == nil {
		o.StorageCfg = &StorageCfg{}
	}
	if o.StorageCfg.VectorMaxRows == 0 {
		o.StorageCfg.VectorMaxRows = DefaultVectorMaxRows
	}
	if o.StorageCfg.RowGroupVectors == 0 {
		o.StorageCfg.RowGroupVectors = DefaultRowGroupVectors
	}
	if o.SchedulerCfg == nil {
		o.SchedulerCfg = &SchedulerCfg{
			ScanWorkers: DefaultScanWorkers,
		}
	}
	if o.SchedulerCfg.ScanWorkers == 0 {
		o.SchedulerCfg.ScanWorkers = DefaultScanWorkers
	}
	return o
}

// RowGroupMaxRows is the row capacity of one row group.
func (o *Options) RowGroupMaxRows() uint32 {
	return o.StorageCfg.VectorMaxRows * uint32(o.StorageCfg.RowGroupVectors)
}

// ParseOptionsFile loads options from a toml file and fills defaults.
func ParseOptionsFile(path string) (*Options, error) {
	o := &Options{}
	if _, err := toml.DecodeFile(path, o); err != nil {
		return nil, err
	}
	if o.LogCfg != nil {
		logutil.SetupLogger(o.LogCfg)
	}
	return o.FillDefaults(), nil
}
