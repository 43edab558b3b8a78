package theme

import (
	"fmt"
	"strings"
)

// Theme is the cosmetic light/dark display preference of a session.
type Theme string

const (
	// Light is the default theme.
	Light Theme = "light"
	// Dark is the dark theme.
	Dark Theme = "dark"
)

// Parse converts a case-insensitive string into a Theme.
func Parse(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	default:
		return "", fmt.Errorf("unknown theme %q (expected light or dark)", s)
	}
}

func (t Theme) String() string { return string(t) }
