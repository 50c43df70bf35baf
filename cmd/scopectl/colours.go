package main

import "os"

const (
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m" // Bright black, often appears as gray

	ResetColor = "\033[0m" // Reset to default color
)

var outcomeColors = map[string]string{
	"succeeded":         Green,
	"retried_succeeded": Green,
	"retried_failed":    Yellow,
	"failed_auth":       Yellow,
	"failed_other":      Red,
	"network_error":     Red,
	"refresh_failed":    Red,
	"logged_out":        Gray,
}

// colourEnabled follows the NO_COLOR convention.
var colourEnabled = os.Getenv("NO_COLOR") == ""

func colour(c, s string) string {
	if !colourEnabled || c == "" {
		return s
	}
	return c + s + ResetColor
}
