package jobtags

import (
	"strings"
)

// Section is a headed block of free text such as "Acceptance criteria:" followed by bullets.
type Section struct {
	// Inline is any text following the heading on the same line.
	Inline string
	// Lines are the non-blank lines after the heading, up to the next heading.
	Lines []string
}

// Bullets returns the bullet items of the section, with markers removed.
func (s Section) Bullets() []string {
	var out []string
	for _, l := range s.Lines {
		if item, ok := bulletItem(l); ok && item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Text returns the inline text and lines joined by newlines.
func (s Section) Text() string {
	parts := make([]string, 0, len(s.Lines)+1)
	if s.Inline != "" {
		parts = append(parts, s.Inline)
	}
	parts = append(parts, s.Lines...)
	return strings.Join(parts, "\n")
}

// FindSection locates the first section whose heading starts with name, ignoring
// case and markdown decoration ("## Evidence", "**Acceptance criteria:**").
func FindSection(text, name string) (Section, bool) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	want := strings.ToLower(strings.TrimSpace(name))

	for i, line := range lines {
		heading, inline, ok := splitHeading(line)
		if !ok || !strings.HasPrefix(heading, want) {
			continue
		}
		sec := Section{Inline: inline}
		for _, next := range lines[i+1:] {
			trimmed := strings.TrimSpace(next)
			if trimmed == "" {
				continue
			}
			if _, _, isHeading := splitHeading(next); isHeading {
				if _, isBullet := bulletItem(next); !isBullet {
					break
				}
			}
			sec.Lines = append(sec.Lines, trimmed)
		}
		return sec, true
	}
	return Section{}, false
}

// splitHeading recognizes "Heading:" or "# Heading" lines. It returns the
// lowercased heading and any inline remainder after the colon.
func splitHeading(line string) (string, string, bool) {
	s := strings.TrimSpace(line)
	if s == "" {
		return "", "", false
	}
	hashed := strings.HasPrefix(s, "#")
	s = strings.TrimLeft(s, "#")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_")

	if idx := strings.Index(s, ":"); idx > 0 && idx <= 40 {
		head := strings.Trim(strings.TrimSpace(s[:idx]), "*_")
		if strings.ContainsAny(head, "[]") {
			return "", "", false
		}
		inline := strings.TrimSpace(strings.Trim(strings.TrimSpace(s[idx+1:]), "*_"))
		return strings.ToLower(head), inline, true
	}
	if hashed {
		return strings.ToLower(strings.TrimSpace(s)), "", true
	}
	return "", "", false
}

func bulletItem(line string) (string, bool) {
	s := strings.TrimSpace(line)
	for _, marker := range []string{"- [ ] ", "- [x] ", "- ", "* ", "• "} {
		if strings.HasPrefix(s, marker) {
			return strings.TrimSpace(s[len(marker):]), true
		}
	}
	// numbered: "1. item" or "1) item"
	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits+1 < len(s) && (s[digits] == '.' || s[digits] == ')') && s[digits+1] == ' ' {
		return strings.TrimSpace(s[digits+2:]), true
	}
	return "", false
}
