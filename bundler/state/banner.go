package state

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorYellow = "\033[38;5;178m" // Muted gold
	colorDim    = "\033[38;5;136m" // Dark olive/brown for borders
	colorReset  = "\033[0m"
)

var bannerArt = []string{
	" _ __ ___  _ __ ___  __ _ _   _(_)_ __ ___  ___ ",
	"| '_ ` _ \\| '__/ _ \\/ _` | | | | | '__/ _ \\/ __|",
	"| | | | | | | |  __/ (_| | |_| | | | |  __/\\__ \\",
	"|_| |_| |_|_|  \\___|\\__, |\\__,_|_|_|  \\___||___/",
	"                       |_|                      ",
}

// BannerOptions contains the information to display in the banner
type BannerOptions struct {
	WorkDir string
	Version string
	// Lines are extra "key: value" rows, e.g. the watched targets or the
	// listen address.
	Lines []string
}

// PrintBanner writes the startup banner to w, sized to the terminal when w
// is one. Bundles may be written to stdout, so callers pass stderr.
func PrintBanner(w io.Writer, opts BannerOptions) {
	width := termWidth(w)
	greeting := getGreeting(time.Now())

	switch {
	case width >= 60:
		printFullBanner(w, opts, greeting, width)
	case width >= 40:
		printCompactBanner(w, opts, greeting)
	default:
		printMinimalBanner(w, opts, greeting)
	}
}

// termWidth returns the terminal width of w, or 80 when w is not a terminal.
func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return width
}

func getGreeting(now time.Time) string {
	month, day := now.Month(), now.Day()

	if month == time.January || (month == time.February && day == 1) {
		return fmt.Sprintf("Welcome to %d! Happy New Year!", now.Year())
	}
	if hour := now.Hour(); hour >= 2 && hour < 5 {
		return "It's late, take care of yourself."
	}
	return ""
}

// ============== Full Banner (>= 60) ==============

func printFullBanner(w io.Writer, opts BannerOptions, greeting string, termWidth int) {
	boxWidth := termWidth
	if boxWidth > 60 {
		boxWidth = 60
	}
	if boxWidth < 55 {
		boxWidth = 55
	}
	innerWidth := boxWidth - 2

	// content is the visible text; colored is what gets printed.
	line := func(content, colored string) string {
		padding := innerWidth - runeWidth(content)
		if padding < 0 {
			padding = 0
		}
		return colorDim + "│" + colorReset + colored + strings.Repeat(" ", padding) + colorDim + "│" + colorReset
	}
	simpleLine := func(content string) string {
		return line(content, content)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, colorDim+"╭"+strings.Repeat("─", innerWidth)+"╮"+colorReset)
	fmt.Fprintln(w, simpleLine(""))
	for _, art := range bannerArt {
		fmt.Fprintln(w, line("  "+art, "  "+colorYellow+art+colorReset))
	}
	fmt.Fprintln(w, simpleLine(""))
	fmt.Fprintln(w, simpleLine("  "+truncatePath(opts.WorkDir, innerWidth-4)))
	fmt.Fprintln(w, simpleLine("  "+opts.Version))
	for _, l := range opts.Lines {
		fmt.Fprintln(w, simpleLine("  "+truncatePath(l, innerWidth-4)))
	}
	if greeting != "" {
		fmt.Fprintln(w, simpleLine(""))
		fmt.Fprintln(w, line("  ✨ "+greeting, "  "+colorYellow+"✨ "+greeting+colorReset))
	}
	fmt.Fprintln(w, simpleLine(""))
	fmt.Fprintln(w, colorDim+"╰"+strings.Repeat("─", innerWidth)+"╯"+colorReset)
	fmt.Fprintln(w)
}

// ============== Compact Banner (40-59) ==============

func printCompactBanner(w io.Writer, opts BannerOptions, greeting string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  "+colorYellow+"mrequires"+colorReset+" "+opts.Version)
	fmt.Fprintln(w, "  "+opts.WorkDir)
	for _, l := range opts.Lines {
		fmt.Fprintln(w, "  "+l)
	}
	if greeting != "" {
		fmt.Fprintln(w, "  "+colorYellow+greeting+colorReset)
	}
	fmt.Fprintln(w)
}

// ============== Minimal Banner (< 40) ==============

func printMinimalBanner(w io.Writer, opts BannerOptions, greeting string) {
	fmt.Fprintf(w, "%smrequires%s %s\n", colorYellow, colorReset, opts.Version)
	if greeting != "" {
		fmt.Fprintln(w, colorYellow+greeting+colorReset)
	}
}

// ============== Helper Functions ==============

// runeWidth calculates the display width of a string.
// Box-drawing and block characters count as one column.
func runeWidth(s string) int {
	width := 0
	for _, r := range s {
		switch {
		case r >= 0x2500 && r <= 0x259F: // Box-drawing and block elements
			width += 1
		case r > 127:
			width += 2 // CJK/other wide characters
		default:
			width += 1
		}
	}
	return width
}

// truncatePath shortens s to "...suffix" when it exceeds maxWidth.
func truncatePath(s string, maxWidth int) string {
	if runeWidth(s) <= maxWidth {
		return s
	}
	for i := range s {
		sub := "..." + s[i:]
		if runeWidth(sub) <= maxWidth {
			return sub
		}
	}
	return "..."
}
