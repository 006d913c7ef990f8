package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/target/workmarket/internal/domain/jobtags"
	"github.com/target/workmarket/internal/domain/model"
)

// MDTable checks a markdown table against [md_required_cols] and [md_min_rows].
type MDTable struct{}

func (MDTable) Name() string { return NameMDTable }

func (MDTable) Matches(_ *model.Job, tags jobtags.Tags) bool {
	if tagged(tags, NameMDTable) {
		return true
	}
	return untagged(tags) && (tags.Has(jobtags.MDRequiredCols) || tags.Has(jobtags.MDMinRows))
}

func (v MDTable) Verify(_ context.Context, _ *model.Job, tags jobtags.Tags, submission string) model.Outcome {
	table, ok := findTable(submission)
	if !ok {
		return Fail(v.Name(), "no markdown table found in submission", nil)
	}

	minRows := tags.MDMinRows
	if minRows <= 0 {
		minRows = 1
	}
	evidence := map[string]any{
		"columns":  table.header,
		"rows":     len(table.rows),
		"min_rows": minRows,
	}

	have := make(map[string]bool, len(table.header))
	for _, h := range table.header {
		have[normalizeCell(h)] = true
	}
	var missing []string
	for _, c := range tags.MDRequiredCols {
		if !have[normalizeCell(c)] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		evidence["missing"] = missing
		return Fail(v.Name(), "table is missing required column(s): "+strings.Join(missing, ", "), evidence)
	}
	if len(table.rows) < minRows {
		return Fail(v.Name(), fmt.Sprintf("expected at least %d rows, got %d", minRows, len(table.rows)), evidence)
	}
	return Pass(v.Name(), fmt.Sprintf("table with %d rows and required columns", len(table.rows)), evidence)
}

type mdTable struct {
	header []string
	rows   [][]string
}

// findTable returns the first pipe table that has a header separator row.
func findTable(text string) (mdTable, bool) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 0; i+1 < len(lines); i++ {
		if !isRow(lines[i]) || !isSeparator(lines[i+1]) {
			continue
		}
		t := mdTable{header: splitRow(lines[i])}
		for _, l := range lines[i+2:] {
			if !isRow(l) {
				break
			}
			if cells := splitRow(l); !allEmpty(cells) {
				t.rows = append(t.rows, cells)
			}
		}
		return t, true
	}
	return mdTable{}, false
}

func isRow(line string) bool {
	s := strings.TrimSpace(line)
	return strings.Count(s, "|") >= 1 && (strings.HasPrefix(s, "|") || strings.HasSuffix(s, "|") || strings.Count(s, "|") >= 2)
}

func isSeparator(line string) bool {
	cells := splitRow(line)
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		c = strings.Trim(c, ": ")
		if len(c) < 3 || strings.Trim(c, "-") != "" {
			return false
		}
	}
	return true
}

func splitRow(line string) []string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "|")
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func normalizeCell(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "*_`")
	return strings.Join(strings.Fields(s), " ")
}
