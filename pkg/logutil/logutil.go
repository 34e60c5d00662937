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

package logutil

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig configures the global engine logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	// Filename enables file output with rotation when non-empty.
	Filename   string `toml:"filename"`
	MaxSize    int    `toml:"max-size"`
	MaxDays    int    `toml:"max-days"`
	MaxBackups int    `toml:"max-backups"`
}

var (
	once         sync.Once
	globalLogger atomic.Value
)

func getSyncer(cfg *LogConfig) zapcore.WriteSyncer {
	if cfg.Filename != "" {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxDays,
			MaxBackups: cfg.MaxBackups,
		})
	}
	return zapcore.AddSync(os.Stderr)
}

func newLogger(cfg *LogConfig) *zap.Logger {
	level := zap.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			level = zap.InfoLevel
		}
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, getSyncer(cfg), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// SetupLogger installs the global logger. Later calls replace the previous
// logger.
func SetupLogger(cfg *LogConfig) {
	globalLogger.Store(newLogger(cfg))
}

func GetGlobalLogger() *zap.Logger {
	once.Do(func() {
		if globalLogger.Load() == nil {
			globalLogger.Store(newLogger(&LogConfig{}))
		}
	})
	return globalLogger.Load().(*zap.Logger)
}
