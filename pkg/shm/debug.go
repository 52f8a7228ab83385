/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shm

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logger struct {
	name string
}

var (
	internalLogger = &logger{name: ""}
	segmentLogger  = &logger{name: "segment"}

	level atomic.Int32
	sink  atomic.Pointer[zap.SugaredLogger]
)

const (
	levelTrace = iota
	levelDebug
	levelInfo
	levelWarn
	levelError
	levelNoPrint
)

func init() {
	level.Store(levelWarn)
	if v := os.Getenv("SHMBENCH_LOG_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			SetLogLevel(n)
		}
	}
	SetLogger(newDefaultLogger())
}

// SetLogLevel used to change the internal logger's level and the default level is Warning.
// The process env `SHMBENCH_LOG_LEVEL` also could set log level
func SetLogLevel(l int) {
	if l >= levelTrace && l <= levelNoPrint {
		level.Store(int32(l))
	}
}

// SetLogger replaces the zap logger behind the package's log output. A nil
// logger silences the package.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	sink.Store(l.WithOptions(zap.AddCallerSkip(1)).Sugar())
}

func newDefaultLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "shm: build logger: %v\n", err)
		return zap.NewNop()
	}
	return l
}

func (l *logger) enabled(lv int) bool {
	return int(level.Load()) <= lv
}

func (l *logger) sugar() *zap.SugaredLogger {
	s := sink.Load()
	if l.name != "" {
		s = s.Named(l.name)
	}
	return s
}

func (l *logger) errorf(format string, a ...interface{}) {
	if !l.enabled(levelError) {
		return
	}
	l.sugar().Errorf(format, a...)
}

func (l *logger) warnf(format string, a ...interface{}) {
	if !l.enabled(levelWarn) {
		return
	}
	l.sugar().Warnf(format, a...)
}

func (l *logger) infof(format string, a ...interface{}) {
	if !l.enabled(levelInfo) {
		return
	}
	l.sugar().Infof(format, a...)
}

func (l *logger) debugf(format string, a ...interface{}) {
	if !l.enabled(levelDebug) {
		return
	}
	l.sugar().Debugf(format, a...)
}

// tracef logs at zap's debug level; zap has no trace level.
func (l *logger) tracef(format string, a ...interface{}) {
	if !l.enabled(levelTrace) {
		return
	}
	l.sugar().Debugf(format, a...)
}
