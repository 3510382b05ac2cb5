package ui

import (
	"fmt"
	"io"
)

// Logo printed above plain output
const Logo = `
 ┌─────────────────────────────────────────┐
 │  i m g h a r v e s t                    │
 │  sequence & reverse-search image fetch  │
 └─────────────────────────────────────────┘
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// Palette picks colored or plain rendering
type Palette struct {
	Enabled bool
}

func (p Palette) paint(fn func(string) string, s string) string {
	if !p.Enabled {
		return s
	}
	return fn(s)
}

func (p Palette) Cyan(s string) string { return p.paint(Cyan, s) }
func (p Palette) Yellow(s string) string { return p.paint(Yellow, s) }
func (p Palette) Red(s string) string { return p.paint(Red, s) }
func (p Palette) Green(s string) string { return p.paint(Green, s) }
func (p Palette) Magenta(s string) string { return p.paint(Magenta, s) }
func (p Palette) Dim(s string) string { return p.paint(Dim, s) }

// PrintLogo prints the logo
func PrintLogo(w io.Writer, p Palette) {
	fmt.Fprint(w, p.Cyan(Logo))
}

// PrintError prints an error message in red
func PrintError(w io.Writer, p Palette, msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	fmt.Fprintln(w, p.Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(w io.Writer, p Palette, msg string) {
	fmt.Fprintln(w, p.Green(msg))
}

// PrintInfo prints a labelled value
func PrintInfo(w io.Writer, p Palette, label, value string) {
	fmt.Fprintf(w, "%s: %s\n", p.Cyan(label), p.Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(w io.Writer, p Palette, msg string) {
	fmt.Fprintln(w, p.Yellow(msg))
}
