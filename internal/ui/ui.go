package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/sikenali/DTOLPK/internal/model"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
	boldStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// FormatError returns a styled multi-line error message.
func FormatError(title, detail, suggestion string) string {
	out := errorStyle.Render("Error: "+title) + "\n"
	if detail != "" {
		out += "  " + detail + "\n"
	}
	if suggestion != "" {
		out += "  " + hintStyle.Render("Hint: "+suggestion) + "\n"
	}
	return out
}

// Describe formats err with FormatError, pulling the field and suggestion
// out of validation errors.
func Describe(title string, err error) string {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		detail := verr.Message
		if verr.Field != "" {
			detail = verr.Field + ": " + detail
		}
		return FormatError(title, detail, verr.Suggestion)
	}
	return FormatError(title, err.Error(), "")
}

// Step prints a pending step line.
func Step(name string) {
	fmt.Printf("  %s %s\n", dimStyle.Render("..."), name)
}

// StepDone overwrites the pending line of the current step.
func StepDone(name, detail string) {
	fmt.Printf("\033[1A\033[2K%s\n", stepLine(name, detail))
}

// StepOK prints a finished step that had no pending line, e.g. one that
// prompted while it ran.
func StepOK(name, detail string) {
	fmt.Println(stepLine(name, detail))
}

func stepLine(name, detail string) string {
	msg := successStyle.Render("  OK ") + " " + name
	if detail != "" {
		msg += " " + dimStyle.Render(detail)
	}
	return msg
}

// StepSkipped prints a dimmed skipped step.
func StepSkipped(name string) {
	fmt.Printf("  %s %s\n", dimStyle.Render("--"), dimStyle.Render(name+" (skipped)"))
}

// Success prints a green success message.
func Success(msg string) {
	fmt.Println(successStyle.Render(msg))
}

// Warn prints a yellow warning message.
func Warn(msg string) {
	fmt.Println(warnStyle.Render("Warning: " + msg))
}

// Bold renders text in bold.
func Bold(s string) string {
	return boldStyle.Render(s)
}

// Hint renders text in dim italic.
func Hint(s string) string {
	return hintStyle.Render(s)
}

// Size renders a byte count for humans.
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// PackageWritten prints the final summary of a conversion.
func PackageWritten(path string, size int64, services int) {
	Success(fmt.Sprintf("Package written: %s", path))
	fmt.Printf("  %s\n", dimStyle.Render(fmt.Sprintf("%s, %s", Size(size), english.Plural(services, "service", "services"))))
}

// ValidationOK prints a green check for a valid field.
func ValidationOK(field, detail string) {
	fmt.Printf("  %s %s: %s\n", successStyle.Render("OK "), field, detail)
}

// ValidationErr prints a red error for an invalid field.
func ValidationErr(field, message, suggestion string) {
	fmt.Printf("  %s %s: %s\n", errorStyle.Render("ERR"), field, message)
	if suggestion != "" {
		fmt.Printf("      %s\n", hintStyle.Render("Hint: "+suggestion))
	}
}
