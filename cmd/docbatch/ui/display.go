// Package ui holds the terminal helpers used by the docbatch CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	headColor    = color.New(color.Bold)
)

// Init applies the --no-color flag.
func Init(noColor bool) {
	if noColor {
		color.NoColor = true
	}
}

func Success(format string, args ...any) {
	successColor.Fprintf(out, "✓ %s\n", fmt.Sprintf(format, args...))
}

func Warning(format string, args ...any) {
	warnColor.Fprintf(out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

func Error(format string, args ...any) {
	errorColor.Fprintf(errOut, "✗ %s\n", fmt.Sprintf(format, args...))
}

func Info(format string, args ...any) {
	fmt.Fprintf(out, "%s\n", fmt.Sprintf(format, args...))
}

// Section prints an underlined header.
func Section(title string) {
	headColor.Fprintf(out, "\n%s\n", title)
	fmt.Fprintf(out, "%s\n\n", strings.Repeat("=", len(title)))
}
