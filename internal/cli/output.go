package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"ordertracker/internal/api"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// StyleConfig holds color and styling configuration
type StyleConfig struct {
	// Status colors
	OKColor      lipgloss.Color
	WarnColor    lipgloss.Color
	ErrColor     lipgloss.Color
	UnknownColor lipgloss.Color

	// Message colors
	SuccessColor lipgloss.Color
	ErrorColor   lipgloss.Color
	InfoColor    lipgloss.Color

	// Table styling
	HeaderStyle lipgloss.Style
	CellStyle   lipgloss.Style
}

// DefaultStyleConfig returns the default style configuration
func DefaultStyleConfig() *StyleConfig {
	return &StyleConfig{
		OKColor:      lipgloss.Color("10"), // Bright green
		WarnColor:    lipgloss.Color("11"), // Bright yellow
		ErrColor:     lipgloss.Color("9"),  // Bright red
		UnknownColor: lipgloss.Color("8"),  // Gray
		SuccessColor: lipgloss.Color("10"),
		ErrorColor:   lipgloss.Color("9"),
		InfoColor:    lipgloss.Color("12"),
		HeaderStyle:  lipgloss.NewStyle().Bold(true),
		CellStyle:    lipgloss.NewStyle(),
	}
}

// OutputFormatter handles different output formats
type OutputFormatter struct {
	format      string
	quiet       bool
	noColor     bool
	styles      *StyleConfig
	colorOutput termenv.Profile
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter(format string, quiet bool) *OutputFormatter {
	return NewOutputFormatterWithColor(format, quiet, false)
}

// NewOutputFormatterWithColor creates a new output formatter with color support
func NewOutputFormatterWithColor(format string, quiet bool, noColor bool) *OutputFormatter {
	f := &OutputFormatter{
		format:      format,
		quiet:       quiet,
		noColor:     noColor,
		styles:      DefaultStyleConfig(),
		colorOutput: termenv.ColorProfile(),
	}

	if !f.shouldUseColor() {
		f.noColor = true
	}

	return f
}

// shouldUseColor determines if colors should be used based on environment
func (f *OutputFormatter) shouldUseColor() bool {
	if f.noColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return false
	}
	if f.colorOutput == termenv.Ascii {
		return false
	}
	return true
}

// PrintModules prints the registered module list
func (f *OutputFormatter) PrintModules(modules []api.ModuleStatus) error {
	if f.quiet {
		for _, m := range modules {
			fmt.Println(m.Key)
		}
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(modules)
	case "table":
		return f.printModulesTable(modules)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintWatchers prints mailbox watcher status
func (f *OutputFormatter) PrintWatchers(watchers []api.WatcherStatus) error {
	if f.quiet {
		for _, w := range watchers {
			fmt.Println(w.MailboxID)
		}
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(watchers)
	case "table":
		return f.printWatchersTable(watchers)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintQueueStatus prints job queue depth
func (f *OutputFormatter) PrintQueueStatus(status *api.QueueStatus) error {
	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(status)
	case "table":
		fmt.Printf("Queued: %d  Processing: %d  Completed: %d  Failed: %d\n",
			status.Queued, status.Processing, status.Completed, status.Failed)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// getModeStyle returns the appropriate style for a watcher mode
func (f *OutputFormatter) getModeStyle(mode string) lipgloss.Style {
	if f.noColor {
		return lipgloss.NewStyle()
	}

	var color lipgloss.Color
	switch strings.ToLower(mode) {
	case "idle", "processing":
		color = f.styles.OKColor
	case "connecting", "polling":
		color = f.styles.WarnColor
	case "error_backoff":
		color = f.styles.ErrColor
	default:
		color = f.styles.UnknownColor
	}

	return lipgloss.NewStyle().Foreground(color)
}

// PrintSuccess prints a success message
func (f *OutputFormatter) PrintSuccess(message string) {
	if !f.quiet {
		if f.noColor {
			fmt.Printf("✓ %s\n", message)
		} else {
			style := lipgloss.NewStyle().Foreground(f.styles.SuccessColor)
			fmt.Printf("%s %s\n", style.Render("✓"), message)
		}
	}
}

// PrintError prints an error message
func (f *OutputFormatter) PrintError(err error) {
	if !f.quiet {
		if f.noColor {
			fmt.Fprintf(os.Stderr, "✗ Error: %v\n", err)
		} else {
			style := lipgloss.NewStyle().Foreground(f.styles.ErrorColor)
			fmt.Fprintf(os.Stderr, "%s Error: %v\n", style.Render("✗"), err)
		}
	}
}

// PrintInfo prints an informational message
func (f *OutputFormatter) PrintInfo(message string) {
	if !f.quiet {
		if f.noColor {
			fmt.Printf("ℹ %s\n", message)
		} else {
			style := lipgloss.NewStyle().Foreground(f.styles.InfoColor)
			fmt.Printf("%s %s\n", style.Render("ℹ"), message)
		}
	}
}

func (f *OutputFormatter) printModulesTable(modules []api.ModuleStatus) error {
	if len(modules) == 0 {
		fmt.Println("No modules registered.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "KEY\tNAME\tTYPE\tVERSION\tENABLED\tCONFIGURED")
	for _, m := range modules {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%v\n",
			m.Key, m.Name, m.Type, m.Version, m.Enabled, m.IsConfigured)
	}
	return nil
}

func (f *OutputFormatter) printWatchersTable(watchers []api.WatcherStatus) error {
	if len(watchers) == 0 {
		fmt.Println("No watchers running.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "MAILBOX\tMODE\tLAST_UID\tBACKOFFS\tLAST_ERROR")
	for _, watcher := range watchers {
		mode := watcher.Mode
		if !f.noColor {
			mode = f.getModeStyle(watcher.Mode).Render(watcher.Mode)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			watcher.MailboxID,
			mode,
			watcher.LastSeenUID,
			watcher.ConsecutiveBackoffs,
			truncate(watcher.LastError, 40))
	}
	return nil
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
