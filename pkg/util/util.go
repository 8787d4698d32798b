/*
Copyright 2025 David Arnold
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package util

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Log formats accepted by NewLogger.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LogLevel maps the --verbose and --debug flags to a level: debug wins,
// verbose is info, and the default is warn.
func LogLevel(verbose, debug bool) log.Level {
	switch {
	case debug:
		return log.DebugLevel
	case verbose:
		return log.InfoLevel
	default:
		return log.WarnLevel
	}
}

// NewLogger returns a logger writing to w at level, formatted as text or JSON.
// Unknown formats fall back to text.
func NewLogger(w io.Writer, level log.Level, format string) *log.Logger {
	l := log.New()
	l.SetOutput(w)
	l.SetLevel(level)

	switch strings.ToLower(format) {
	case LogFormatJSON:
		l.SetFormatter(&log.JSONFormatter{})
	default:
		l.SetFormatter(&log.TextFormatter{
			DisableLevelTruncation: true,
		})
	}
	return l
}
