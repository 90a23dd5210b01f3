package search

import (
	"regexp"
	"strings"
)

var (
	linkRE     = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	headingRE  = regexp.MustCompile(`^#{1,6}\s+`)
	bulletRE   = regexp.MustCompile(`^(?:[-*+]|\d+[.)])\s+`)
	emphasisRE = regexp.MustCompile("(\\*\\*|__|\\*|_|~~|`)")
)

// PlainText reduces Markdown to the text a reader sees: table rows are
// flattened to space-joined cells, separator rows dropped, headings, list
// markers, quotes, emphasis and link syntax removed. Lines are joined with a
// single newline and runs of whitespace collapsed.
func PlainText(md string) string {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}

		// table row: "| ... |"
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			if row := tableRow(line); row != "" {
				out = append(out, row)
			}
			continue
		}

		line = strings.TrimSpace(strings.TrimLeft(line, ">"))
		line = headingRE.ReplaceAllString(line, "")
		line = bulletRE.ReplaceAllString(line, "")
		line = linkRE.ReplaceAllString(line, "$1")
		line = emphasisRE.ReplaceAllString(line, "")
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func tableRow(line string) string {
	cols := strings.Split(strings.Trim(line, "|"), "|")
	allSep := true
	cells := make([]string, 0, len(cols))
	for _, c := range cols {
		cell := strings.TrimSpace(c)
		if cell != "" {
			cells = append(cells, cell)
		}
		if strings.Trim(cell, ":- ") != "" {
			allSep = false
		}
	}
	if allSep {
		return ""
	}
	return strings.Join(cells, " ")
}
