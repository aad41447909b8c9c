package output

import (
	"os"

	"golang.org/x/term"
)

// Terminal holds terminal capability information.
type Terminal struct {
	IsTTY     bool
	NoColor   bool
	Width     int
	ForceFlag bool // set by --no-color
}

// DetectTerminal inspects stdout and the environment.
func DetectTerminal() *Terminal {
	fd := int(os.Stdout.Fd())
	isTTY := term.IsTerminal(fd)

	width := 80
	if isTTY {
		if w, _, err := term.GetSize(fd); err == nil {
			width = w
		}
	}

	// https://no-color.org/
	_, noColor := os.LookupEnv("NO_COLOR")
	if os.Getenv("TERM") == "dumb" {
		noColor = true
	}

	return &Terminal{IsTTY: isTTY, NoColor: noColor, Width: width}
}

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// ColorEnabled returns true if colored output should be used.
func (t *Terminal) ColorEnabled() bool {
	if t.ForceFlag {
		return false
	}
	return t.IsTTY && !t.NoColor
}

// SpinnersEnabled returns true if spinners should be used.
func (t *Terminal) SpinnersEnabled() bool {
	return t.IsTTY && !t.NoColor
}
