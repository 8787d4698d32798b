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

package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	pt "github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"gitlab.com/davidxarnold/ec2-events/pkg/core"
)

// Output formats.
const (
	outputText  = "text"
	outputCSV   = "csv"
	outputJSON  = "json"
	outputTable = "table"
)

var outputFormats = []string{outputText, outputCSV, outputJSON, outputTable}

type renderFunc func(w io.Writer, records []core.EnrichedRecord) error

func renderer(format string) (renderFunc, error) {
	switch strings.ToLower(format) {
	case "", outputText:
		return renderText, nil
	case outputCSV:
		return renderCSV, nil
	case outputJSON:
		return renderJSON, nil
	case outputTable:
		return renderTable, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (one of: %s)", format, strings.Join(outputFormats, "|"))
	}
}

// renderText writes the legacy unquoted line per record. Values containing
// commas are not escaped; use csv output for that.
func renderText(w io.Writer, records []core.EnrichedRecord) error {
	for i := range records {
		if _, err := fmt.Fprintln(w, strings.Join(records[i].Columns(), ",")); err != nil {
			return err
		}
	}
	return nil
}

func renderCSV(w io.Writer, records []core.EnrichedRecord) error {
	cw := csv.NewWriter(w)
	for i := range records {
		if err := cw.Write(records[i].Columns()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// renderJSON writes one object per line with every record field.
func renderJSON(w io.Writer, records []core.EnrichedRecord) error {
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(records[i].Map()); err != nil {
			return err
		}
	}
	return nil
}

func renderTable(w io.Writer, records []core.EnrichedRecord) error {
	t := pt.NewWriter()
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.SeparateFooter = false
	t.Style().Options.SeparateHeader = false
	t.Style().Options.SeparateRows = false
	t.SetOutputMirror(w)

	if width := terminalWidth(w); width > 0 {
		t.SetAllowedRowLength(width)
	}

	header := make(pt.Row, 0, len(core.Columns))
	for _, c := range core.Columns {
		header = append(header, c)
	}
	t.AppendHeader(header)

	for i := range records {
		cols := records[i].Columns()
		row := make(pt.Row, 0, len(cols))
		for _, c := range cols {
			row = append(row, c)
		}
		t.AppendRow(row)
	}

	t.Render()
	return nil
}

// terminalWidth returns the width of w when it is a terminal, or 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}
