/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package logging provides the Logger used across rocketmod and a
// zerolog-backed implementation of it.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Logger receives progress and diagnostic messages. Components accept a nil
// Logger and stay silent.
type Logger interface {
	Info(format string, args ...any)
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// Level selects how much is logged.
type Level int

const (
	LevelQuiet Level = iota - 1
	LevelNormal
	LevelVerbose
)

// Zerolog adapts a zerolog.Logger to Logger.
type Zerolog struct {
	zl zerolog.Logger
}

// New returns a Logger writing human-readable lines to w.
func New(w io.Writer, level Level) *Zerolog {
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	switch level {
	case LevelQuiet:
		zl = zl.Level(zerolog.WarnLevel)
	case LevelVerbose:
		zl = zl.Level(zerolog.DebugLevel)
	default:
		zl = zl.Level(zerolog.InfoLevel)
	}
	return &Zerolog{zl: zl}
}

// NewJSON returns a Logger writing one JSON object per line to w.
func NewJSON(w io.Writer, level Level) *Zerolog {
	z := New(w, level)
	z.zl = z.zl.Output(w)
	return z
}

// With returns a child logger that adds key=value to every message.
func (z *Zerolog) With(key, value string) *Zerolog {
	return &Zerolog{zl: z.zl.With().Str(key, value).Logger()}
}

func (z *Zerolog) Info(format string, args ...any) {
	z.zl.Info().Msg(fmt.Sprintf(format, args...))
}

func (z *Zerolog) Warning(format string, args ...any) {
	z.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

func (z *Zerolog) Debug(format string, args ...any) {
	z.zl.Debug().Msg(fmt.Sprintf(format, args...))
}

// Scoped is implemented by loggers that can attach a field to a child.
type Scoped interface {
	Logger
	With(key, value string) *Zerolog
}

// With attaches key=value when l supports it and returns l unchanged
// otherwise. A nil Logger stays nil.
func With(l Logger, key, value string) Logger {
	if s, ok := l.(Scoped); ok {
		return s.With(key, value)
	}
	return l
}
