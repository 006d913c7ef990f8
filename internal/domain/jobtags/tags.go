// Package jobtags parses the bracket-tag vocabulary that job producers embed in
// free-text titles and bodies, e.g. "[verifier:json_list] [json_min_items:5]".
package jobtags

import (
	"strconv"
	"strings"
)

// Tag names understood by the engine.
const (
	Verifier         = "verifier"
	JSONMinItems     = "json_min_items"
	JSONRequiredKeys = "json_required_keys"
	MDMinRows        = "md_min_rows"
	MDRequiredCols   = "md_required_cols"
	RedoFor          = "redo_for"
	RedoLevel        = "redo_level"
	Run              = "run"
	RepeatOK         = "repeat_ok"
	ExpectedOutput   = "expected_output"
	TestCode         = "test_code"
	Archetype        = "archetype"
)

// Tag is a single occurrence of [name:value] in a text, with its byte span.
type Tag struct {
	Name  string
	Value string
	Start int
	End   int
}

// Tags is the typed view of the tags found in a job's text. When a tag repeats,
// the first occurrence wins.
type Tags struct {
	Verifier         string
	JSONMinItems     int
	JSONRequiredKeys []string
	MDMinRows        int
	MDRequiredCols   []string
	RedoFor          string
	RedoLevel        int
	Run              string
	RepeatOK         bool
	ExpectedOutput   string
	TestCode         string
	Archetype        string

	// Raw holds every tag, including names the engine does not interpret.
	Raw map[string]string
}

// Has reports whether the tag name appeared in the text.
func (t Tags) Has(name string) bool {
	_, ok := t.Raw[name]
	return ok
}

// Parse extracts tags from text. Tag values may contain balanced brackets, so
// "[test_code:assert f([1,2]) == 3]" yields the full expression.
func Parse(text string) Tags {
	t := Tags{Raw: map[string]string{}}
	for _, tag := range Scan(text) {
		if _, seen := t.Raw[tag.Name]; seen {
			continue
		}
		t.Raw[tag.Name] = tag.Value
		t.assign(tag.Name, tag.Value)
	}
	return t
}

func (t *Tags) assign(name, value string) {
	v := strings.TrimSpace(value)
	switch name {
	case Verifier:
		t.Verifier = strings.ToLower(v)
	case JSONMinItems:
		t.JSONMinItems = atoi(v)
	case JSONRequiredKeys:
		t.JSONRequiredKeys = splitList(v)
	case MDMinRows:
		t.MDMinRows = atoi(v)
	case MDRequiredCols:
		t.MDRequiredCols = splitList(v)
	case RedoFor:
		t.RedoFor = v
	case RedoLevel:
		t.RedoLevel = atoi(v)
	case Run:
		t.Run = v
	case RepeatOK:
		t.RepeatOK = v == "1" || strings.EqualFold(v, "true")
	case ExpectedOutput:
		t.ExpectedOutput = value
	case TestCode:
		t.TestCode = unescape(value)
	case Archetype:
		t.Archetype = strings.ToLower(v)
	}
}

// Scan returns every [name:value] occurrence in text, in order. Names are
// lowercase identifiers; anything else in brackets is ignored.
func Scan(text string) []Tag {
	var out []Tag
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		nameEnd := i + 1
		for nameEnd < len(text) && isNameByte(text[nameEnd]) {
			nameEnd++
		}
		if nameEnd == i+1 || nameEnd >= len(text) || text[nameEnd] != ':' {
			continue
		}
		end := matchingBracket(text, i)
		if end < 0 {
			continue
		}
		out = append(out, Tag{
			Name:  text[i+1 : nameEnd],
			Value: text[nameEnd+1 : end],
			Start: i,
			End:   end + 1,
		})
		i = end
	}
	return out
}

// Strip removes every occurrence of the named tags from text.
func Strip(text string, names ...string) string {
	if len(names) == 0 {
		return text
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var b strings.Builder
	last := 0
	for _, tag := range Scan(text) {
		if !drop[tag.Name] {
			continue
		}
		b.WriteString(text[last:tag.Start])
		last = tag.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// Format renders a tag.
func Format(name, value string) string {
	return "[" + name + ":" + value + "]"
}

func matchingBracket(text string, open int) int {
	depth := 0
	for j := open; j < len(text); j++ {
		switch text[j] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func isNameByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// unescape turns literal "\n" and "\t" sequences into real whitespace so single-line
// tags can carry multi-line code.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t").Replace(s)
}
