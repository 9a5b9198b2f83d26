package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func printHeader(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n", headerStyle.Render(title), dimStyle.Render("────────────────────────────────────────"))
}

func printStep(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, "  %s %s\n", stepStyle.Render("⏳"), fmt.Sprintf(format, a...))
}

func printSuccess(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, "  %s %s\n", successStyle.Render("✓"), fmt.Sprintf(format, a...))
}

func printWarn(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, "  %s %s\n", warnStyle.Render("⚠"), fmt.Sprintf(format, a...))
}

func printFail(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, "  %s %s\n", failStyle.Render("✗"), fmt.Sprintf(format, a...))
}

func printField(w io.Writer, name, value string) {
	fmt.Fprintf(w, "    %s %s\n", dimStyle.Render(fmt.Sprintf("%-10s", name+":")), value)
}
