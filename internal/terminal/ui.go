package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Colors for terminal output.
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
)

// UI writes status lines. Escape codes are only emitted when the destination
// is a terminal.
type UI struct {
	w     io.Writer
	color bool
}

// New wraps w, enabling color when w is a terminal file descriptor.
func New(w io.Writer) *UI {
	return &UI{w: w, color: IsTerminal(w)}
}

// NewPlain wraps w without color.
func NewPlain(w io.Writer) *UI {
	return &UI{w: w}
}

// IsTerminal reports whether w is backed by a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (u *UI) c(code string) string {
	if !u.color {
		return ""
	}
	return code
}

// Success prints a green success message.
func (u *UI) Success(msg string) {
	fmt.Fprintf(u.w, "%s%s✓%s %s\n", u.c(Bold), u.c(Green), u.c(Reset), msg)
}

// Error prints a red error message.
func (u *UI) Error(msg string) {
	fmt.Fprintf(u.w, "%s%s✗%s %s\n", u.c(Bold), u.c(Red), u.c(Reset), msg)
}

// Info prints a blue info message.
func (u *UI) Info(msg string) {
	fmt.Fprintf(u.w, "%s%si%s %s\n", u.c(Bold), u.c(Blue), u.c(Reset), msg)
}

// Warning prints a yellow warning message.
func (u *UI) Warning(msg string) {
	fmt.Fprintf(u.w, "%s%s!%s %s\n", u.c(Bold), u.c(Yellow), u.c(Reset), msg)
}

// Header prints a bold header.
func (u *UI) Header(msg string) {
	fmt.Fprintf(u.w, "\n%s%s%s\n", u.c(Bold), msg, u.c(Reset))
}

// Detail prints an indented detail line.
func (u *UI) Detail(label, value string) {
	fmt.Fprintf(u.w, "  %s%s:%s %s\n", u.c(Dim), label, u.c(Reset), value)
}

// Item prints an indented list entry with a pass/fail mark.
func (u *UI) Item(ok bool, text string) {
	mark := u.c(Green) + "✓" + u.c(Reset)
	if !ok {
		mark = u.c(Red) + "✗" + u.c(Reset)
	}
	fmt.Fprintf(u.w, "    %s %s\n", mark, text)
}

// Progress prints a labelled bar for current out of total.
func (u *UI) Progress(current, total int, label string) {
	fmt.Fprintf(u.w, "  %s[%d/%d]%s %s %s\n", u.c(Cyan), current, total, u.c(Reset), u.bar(current, total), label)
}

// Divider prints a horizontal line.
func (u *UI) Divider() {
	fmt.Fprintf(u.w, "%s%s%s\n", u.c(Dim), strings.Repeat("─", 60), u.c(Reset))
}

func (u *UI) bar(current, total int) string {
	if total <= 0 {
		return ""
	}
	width := 16
	filled := (current * width) / total
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return u.c(Dim) + "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]" + u.c(Reset)
}
