// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

// Package stdout renders a finished measured run for a terminal.
package stdout

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/perfrun/perfrun/internal/runner"
)

// Write renders the execution summary: one status line, then the counter
// table. Counters stay in request order, the order they were read in.
func Write(out io.Writer, ex *runner.Execution) {
	fmt.Fprintf(out, "status: %s  wall: %s  cpu: %s  max-rss: %d KB\n",
		ex.Status, ex.Usage.Wall, ex.Usage.CPU, ex.Usage.MaxRSSKB)

	if len(ex.Counts) == 0 {
		return
	}

	rows := make([][]string, 0, len(ex.Counts))
	for _, count := range ex.Counts {
		rows = append(rows, []string{
			count.Event.String(),
			fmt.Sprintf("%d", count.Value),
		})
	}

	table := tablewriter.NewWriter(out)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Formatting.Alignment = tw.AlignRight
	})
	table.Header([]string{"Event", "Count"})
	_ = table.Bulk(rows)
	_ = table.Render()
}
