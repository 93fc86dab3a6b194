package util

import (
	"golang.org/x/term"
)

// IsTerminal checks if the given file descriptor is a terminal
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// BarWidth returns a progress bar width that fits the terminal behind fd.
// Falls back to 40 columns when the size cannot be read.
func BarWidth(fd uintptr) int {
	width, _, err := term.GetSize(int(fd))
	if err != nil || width <= 0 {
		return 40
	}
	// leave room for the description and counters
	w := width - 60
	switch {
	case w < 10:
		return 10
	case w > 60:
		return 60
	}
	return w
}
