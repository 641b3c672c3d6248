package welcome

import (
	"fmt"
	"strings"

	"lawchat/pkg/ui/components/utils"
	"lawchat/pkg/ui/styles"
	"lawchat/pkg/version"

	"github.com/mattn/go-runewidth"
)

const boxWidth = 53 // Total inner width

// Shortcut is one key binding listed in the banner.
type Shortcut struct {
	Key  string
	Desc string
}

// Shortcuts are the bindings the chat screen understands.
var Shortcuts = []Shortcut{
	{"Enter", "Send your question"},
	{"PgUp/PgDn", "Scroll the conversation"},
	{"/help", "List commands"},
	{"Ctrl+C", "Exit"},
}

// WelcomeMessage returns the banner shown before the first message.
func WelcomeMessage() string {
	// Helper: create a line with content padded to boxWidth
	makeLine := func(content string, visualWidth int) string {
		pad := boxWidth - visualWidth
		if pad < 0 {
			pad = 0
		}
		return styles.WelcomeBorderStyle.Render("│") + content + strings.Repeat(" ", pad) + styles.WelcomeBorderStyle.Render("│")
	}
	centered := func(text string, style func(...string) string) string {
		text = utils.Ellipsize(text, boxWidth-4)
		w := runewidth.StringWidth(text)
		left := (boxWidth - w) / 2
		return makeLine(strings.Repeat(" ", left)+style(text), left+w)
	}

	top := styles.WelcomeBorderStyle.Render("╭" + strings.Repeat("─", boxWidth) + "╮")
	bottom := styles.WelcomeBorderStyle.Render("╰" + strings.Repeat("─", boxWidth) + "╯")
	empty := makeLine("", 0)

	var lines []string
	lines = append(lines, top)
	lines = append(lines, centered("Consumer Protection Legal Assistant", styles.WelcomeTitleStyle.Render))
	lines = append(lines, empty)
	lines = append(lines, centered("Ask about refunds, warranties or contracts.", styles.TextStyle.Render))
	lines = append(lines, empty)

	shortcutsHeader := "  Shortcuts:"
	lines = append(lines, makeLine(styles.WelcomeHeaderStyle.Render(shortcutsHeader), runewidth.StringWidth(shortcutsHeader)))
	for _, s := range Shortcuts {
		keyFormatted := fmt.Sprintf("    %-11s", s.Key)
		line := styles.WelcomeKeyStyle.Render(keyFormatted) + styles.TextStyle.Render(s.Desc)
		lines = append(lines, makeLine(line, runewidth.StringWidth(keyFormatted)+runewidth.StringWidth(s.Desc)))
	}

	lines = append(lines, empty)
	lines = append(lines, centered("General information, not legal advice.", styles.TextMutedStyle.Render))
	lines = append(lines, centered(version.Summary(), styles.WelcomeVersionStyle.Render))
	lines = append(lines, bottom)

	return strings.Join(lines, "\n") + "\n"
}
