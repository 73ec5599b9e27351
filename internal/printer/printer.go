// Package printer renders foundry CLI output: green confirmations, yellow
// warnings, cyan progress markers, and structured errors with recovery
// suggestions.
package printer

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

func init() {
	// Keep color on even when piped; NO_COLOR opts out
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a green, checkmark-prefixed confirmation.
func Success(format string, a ...any) {
	green.Printf("✓ %s", fmt.Sprintf(format, a...))
}

// Info prints plain informational output.
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a yellow, warning-prefixed message.
func Warning(format string, a ...any) {
	yellow.Printf("⚠️  %s", fmt.Sprintf(format, a...))
}

// Error writes a structured error to stderr: a bold red title, an
// explanation, and optional recovery suggestions. The returned error carries
// only the title, for cobra's exit code; the root command silences error
// printing so nothing is shown twice.
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	fmt.Fprintf(os.Stderr, "%s\n", explanation)

	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(os.Stderr, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(os.Stderr, "\nEither:\n")
		for i, suggestion := range suggestions {
			fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
		}
	}

	return fmt.Errorf("%s", title)
}

// Step prints a cyan, arrow-prefixed progress line.
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Println prints uncolored output.
func Println(a ...any) {
	fmt.Println(a...)
}

// Printf prints uncolored formatted output.
func Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}
