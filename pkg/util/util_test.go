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
	"bytes"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		debug   bool
		want    log.Level
	}{
		{"default", false, false, log.WarnLevel},
		{"verbose", true, false, log.InfoLevel},
		{"debug", false, true, log.DebugLevel},
		{"both", true, true, log.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LogLevel(tt.verbose, tt.debug); got != tt.want {
				t.Errorf("LogLevel(%v, %v) = %v, want %v", tt.verbose, tt.debug, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		checkFunc func(*testing.T, log.Formatter)
	}{
		{
			name:   "JSON formatter",
			format: "json",
			checkFunc: func(t *testing.T, formatter log.Formatter) {
				_, ok := formatter.(*log.JSONFormatter)
				if !ok {
					t.Errorf("Expected JSONFormatter, got %T", formatter)
				}
			},
		},
		{
			name:   "Text formatter default",
			format: "text",
			checkFunc: func(t *testing.T, formatter log.Formatter) {
				_, ok := formatter.(*log.TextFormatter)
				if !ok {
					t.Errorf("Expected TextFormatter, got %T", formatter)
				}
			},
		},
		{
			name:   "Text formatter for unknown type",
			format: "unknown",
			checkFunc: func(t *testing.T, formatter log.Formatter) {
				_, ok := formatter.(*log.TextFormatter)
				if !ok {
					t.Errorf("Expected TextFormatter, got %T", formatter)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLogger(&bytes.Buffer{}, log.InfoLevel, tt.format)
			tt.checkFunc(t, l.Formatter)
		})
	}
}

func TestNewLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, log.WarnLevel, LogFormatText)

	l.Info("hidden message")
	l.Warn("visible message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("warn message missing from output: %q", out)
	}
}
