package transcript

import (
	"strings"

	"lawchat/pkg/ui/components/utils"
	"lawchat/pkg/ui/styles"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// span is one word of body text.
type span struct {
	word   string
	strong bool
}

var markdownCleaner = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"<br>", "\n",
	"<br/>", "\n",
	"<br />", "\n",
	"\t", "    ",
)

// renderMarkdown renders the subset of markdown the assistant uses: fenced
// code, pipe tables, headings, list items and **bold**. Output lines are at
// most width cells wide.
func renderMarkdown(content string, width int) []string {
	width = max(width, 1)
	src := strings.Split(cleanMarkdown(content), "\n")

	var out []string
	fenced := false
	for i := 0; i < len(src); i++ {
		line := src[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "```"):
			fenced = !fenced
			continue
		case fenced:
			out = append(out, codeLines(line, width)...)
			continue
		case isTableLine(line):
			end := i + 1
			for end < len(src) && isTableLine(src[end]) {
				end++
			}
			out = append(out, parseTable(src[i:end]).render(width)...)
			i = end - 1
			continue
		}

		if text, ok := heading(trimmed); ok {
			for _, words := range layout(parseSpans(text), width) {
				out = append(out, styles.HeadingStyle.Render(plainLine(words)))
			}
			continue
		}
		if marker, body, indent, ok := listItem(line); ok {
			out = append(out, listLines(marker, body, indent, width)...)
			continue
		}
		out = append(out, paragraphLines(line, width)...)
	}

	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// cleanMarkdown normalizes line breaks and drops control characters other
// than newline.
func cleanMarkdown(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, markdownCleaner.Replace(s))
}

func heading(trimmed string) (string, bool) {
	text := strings.TrimLeft(trimmed, "#")
	if len(text) == len(trimmed) || !strings.HasPrefix(text, " ") {
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

// listItem matches "- ", "* ", "• " and "12. " items.
func listItem(line string) (marker, body string, indent int, ok bool) {
	rest := strings.TrimLeft(line, " ")
	indent = len(line) - len(rest)
	rest = strings.TrimRight(rest, " ")

	for _, bullet := range []string{"- ", "* ", "• "} {
		if after, found := strings.CutPrefix(rest, bullet); found {
			return "•", strings.TrimSpace(after), indent, true
		}
	}

	num, after, found := strings.Cut(rest, ". ")
	if !found || num == "" || len(num) > 3 || strings.Trim(num, "0123456789") != "" {
		return "", "", 0, false
	}
	return num + ".", strings.TrimSpace(after), indent, true
}

// listLines hangs continuation lines under the item text.
func listLines(marker, body string, indent, width int) []string {
	indent = min(indent, width/2)
	hang := indent + runewidth.StringWidth(marker) + 1
	if width-hang < 1 {
		return paragraphLines(marker+" "+body, width)
	}

	rows := layout(parseSpans(body), width-hang)
	if len(rows) == 0 {
		rows = [][]span{nil}
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		prefix := strings.Repeat(" ", hang)
		if i == 0 {
			prefix = strings.Repeat(" ", indent) + marker + " "
		}
		out[i] = styles.TextStyle.Render(prefix) + styledLine(row)
	}
	return out
}

func paragraphLines(line string, width int) []string {
	rows := layout(parseSpans(line), width)
	if len(rows) == 0 {
		return []string{""}
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = styledLine(row)
	}
	return out
}

func codeLines(line string, width int) []string {
	if line == "" {
		return []string{styles.CodeStyle.Render(utils.Pad("", width))}
	}
	parts := strings.Split(ansi.Hardwrap(line, width, true), "\n")
	for i, part := range parts {
		parts[i] = styles.CodeStyle.Render(utils.Pad(part, width))
	}
	return parts
}

// parseSpans splits a line into words; text between ** pairs is strong.
func parseSpans(line string) []span {
	var spans []span
	for i, segment := range strings.Split(line, "**") {
		for _, w := range strings.Fields(segment) {
			spans = append(spans, span{word: w, strong: i%2 == 1})
		}
	}
	return spans
}

// layout greedily fills rows of at most width cells, splitting words that
// are wider than a row.
func layout(spans []span, width int) [][]span {
	var rows [][]span
	var row []span
	used := 0
	for _, s := range spans {
		for _, piece := range chop(s.word, width) {
			w := runewidth.StringWidth(piece)
			if used > 0 && used+1+w > width {
				rows = append(rows, row)
				row, used = nil, 0
			}
			if used > 0 {
				used++
			}
			row = append(row, span{word: piece, strong: s.strong})
			used += w
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func chop(word string, width int) []string {
	var pieces []string
	for runewidth.StringWidth(word) > width {
		head := runewidth.Truncate(word, width, "")
		if head == "" {
			break
		}
		pieces = append(pieces, head)
		word = word[len(head):]
	}
	return append(pieces, word)
}

func styledLine(row []span) string {
	var sb strings.Builder
	for i, s := range row {
		if i > 0 {
			sb.WriteString(styles.TextStyle.Render(" "))
		}
		style := styles.TextStyle
		if s.strong {
			style = styles.TextBoldStyle
		}
		sb.WriteString(style.Render(s.word))
	}
	return sb.String()
}

func plainLine(row []span) string {
	words := make([]string, len(row))
	for i, s := range row {
		words[i] = s.word
	}
	return strings.Join(words, " ")
}

// table is a pipe table; header is set when the second source row was a
// --- separator.
type table struct {
	rows   [][]string
	header bool
}

func isTableLine(line string) bool {
	if strings.Count(line, "|") < 2 {
		return false
	}
	cells := tableCells(line)
	return len(cells) >= 2 && strings.Join(cells, "") != ""
}

func tableCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	cells := strings.Split(line, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func isRule(cells []string) bool {
	for _, cell := range cells {
		dashes := strings.Trim(cell, ":")
		if len(dashes) < 3 || strings.Trim(dashes, "-") != "" {
			return false
		}
	}
	return len(cells) > 0
}

func parseTable(lines []string) table {
	var t table
	for i, line := range lines {
		cells := tableCells(line)
		if i == 1 && isRule(cells) {
			t.header = true
			continue
		}
		t.rows = append(t.rows, cells)
	}
	return t
}

// render lays the table out in width cells. When the borders alone do not
// fit, rows fall back to plain " | " joined text.
func (t table) render(width int) []string {
	cols := 0
	for _, row := range t.rows {
		cols = max(cols, len(row))
	}
	budget := width - (3*cols + 1)
	if budget < cols {
		out := make([]string, len(t.rows))
		for i, row := range t.rows {
			out[i] = styles.TextStyle.Render(utils.Clip(strings.Join(row, " | "), width))
		}
		return out
	}

	widths := make([]int, cols)
	for i := range widths {
		widths[i] = 1
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	shrinkColumns(widths, budget)

	var out []string
	for i, row := range t.rows {
		cells := make([]string, cols)
		for c := range cells {
			text := ""
			if c < len(row) {
				text = row[c]
			}
			cells[c] = utils.Pad(utils.Clip(text, widths[c]), widths[c])
		}
		line := "| " + strings.Join(cells, " | ") + " |"
		if t.header && i == 0 {
			rule := make([]string, cols)
			for c, w := range widths {
				rule[c] = strings.Repeat("-", w)
			}
			out = append(out,
				styles.TextBoldStyle.Render(line),
				styles.TextStyle.Render("| "+strings.Join(rule, " | ")+" |"))
			continue
		}
		out = append(out, styles.TextStyle.Render(line))
	}
	return out
}

// shrinkColumns narrows the widest column one cell at a time until the
// total fits budget.
func shrinkColumns(widths []int, budget int) {
	total := 0
	for _, w := range widths {
		total += w
	}
	for total > budget {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 1 {
			return
		}
		widths[widest]--
		total--
	}
}
