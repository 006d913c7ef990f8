package verify

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
)

// Block is a fenced code block.
type Block struct {
	Lang string
	Code string
}

// FencedBlocks returns every ``` fenced block in text, in order. An unterminated
// final fence runs to the end of the text.
func FencedBlocks(text string) []Block {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var (
		out    []Block
		inside bool
		cur    Block
		buf    []string
	)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if !inside {
				inside = true
				cur = Block{Lang: strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))}
				buf = buf[:0]
				continue
			}
			cur.Code = strings.Join(buf, "\n")
			out = append(out, cur)
			inside = false
			continue
		}
		if inside {
			buf = append(buf, line)
		}
	}
	if inside && len(buf) > 0 {
		cur.Code = strings.Join(buf, "\n")
		out = append(out, cur)
	}
	return out
}

// ExtractCode returns the first fenced block tagged with one of langs, or the
// first untagged block when none is tagged.
func ExtractCode(text string, langs ...string) (string, bool) {
	blocks := FencedBlocks(text)
	for _, b := range blocks {
		for _, l := range langs {
			if b.Lang == l {
				return b.Code, true
			}
		}
	}
	for _, b := range blocks {
		if b.Lang == "" {
			return b.Code, true
		}
	}
	return "", false
}

// maxInlineCandidates bounds how many bracketed spans are tried as JSON.
const maxInlineCandidates = 64

// ExtractJSONArray finds a JSON array in text. Fenced blocks are preferred; after
// that the earliest balanced, parseable [...] span is used, which skips bracket
// tags. source reports where the array came from ("fenced" or "inline").
func ExtractJSONArray(text string) (items []any, source string, ok bool) {
	for _, b := range FencedBlocks(text) {
		if b.Lang != "" && b.Lang != "json" && b.Lang != "jsonc" {
			continue
		}
		if arr, ok := parseArray(b.Code); ok {
			return arr, "fenced", true
		}
	}
	for n, span := range bracketSpans(text) {
		if n == maxInlineCandidates {
			break
		}
		if arr, ok := parseArray(text[span.start : span.end+1]); ok {
			return arr, "inline", true
		}
	}
	return nil, "", false
}

func parseArray(s string) ([]any, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return nil, false
	}
	var arr []any
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		return nil, false
	}
	return arr, true
}

type span struct{ start, end int }

// bracketSpans returns every balanced [...] span of text ordered by start, in a
// single pass. Quotes open JSON string literals only inside brackets, and a
// literal ends at a newline since JSON strings cannot contain one.
func bracketSpans(text string) []span {
	var (
		open     []int
		spans    []span
		inString bool
		escaped  bool
	)
	for j := 0; j < len(text); j++ {
		c := text[j]
		if inString {
			switch {
			case c == '\n':
				inString, escaped = false, false
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = len(open) > 0
		case '[':
			open = append(open, j)
		case ']':
			if len(open) == 0 {
				continue
			}
			spans = append(spans, span{start: open[len(open)-1], end: j})
			open = open[:len(open)-1]
		}
	}
	slices.SortFunc(spans, func(a, b span) int { return cmp.Compare(a.start, b.start) })
	return spans
}
