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

import "go.uber.org/zap"

func Debug(msg string, fields ...zap.Field) {
	GetGlobalLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	GetGlobalLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetGlobalLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetGlobalLogger().Error(msg, fields...)
}

func Panic(msg string, fields ...zap.Field) {
	GetGlobalLogger().Panic(msg, fields...)
}

func Debugf(format string, args ...any) {
	GetGlobalLogger().Sugar().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	GetGlobalLogger().Sugar().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	GetGlobalLogger().Sugar().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	GetGlobalLogger().Sugar().Errorf(format, args...)
}

func Panicf(format string, args ...any) {
	GetGlobalLogger().Sugar().Panicf(format, args...)
}
