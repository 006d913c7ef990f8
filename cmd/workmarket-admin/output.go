package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/target/workmarket/internal/domain/model"
)

type balanceOutput struct {
	Account string                `json:"account"`
	Balance float64               `json:"balance"`
	Entries []*model.EconomyEntry `json:"entries"`
}

// table buffers tab-separated rows for a tabwriter.
type table struct {
	rows [][]string
}

func (t *table) row(cols ...any) {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = fmt.Sprint(c)
	}
	t.rows = append(t.rows, cells)
}

// print writes v as indented JSON when --output=json, otherwise the rows fill builds.
func (a *app) print(v any, fill func(*table)) error {
	switch a.format {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "", "table":
		var t table
		fill(&t)
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		for _, r := range t.rows {
			if _, err := fmt.Fprintln(w, strings.Join(r, "\t")); err != nil {
				return err
			}
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown output format %q (valid options: table, json)", a.format)
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func sortedStatuses(stats model.JobStats) []model.JobStatus {
	out := make([]model.JobStatus, 0, len(stats))
	for status := range stats {
		out = append(out, status)
	}
	slices.Sort(out)
	return out
}
