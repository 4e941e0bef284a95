package utils

import (
	"fmt"
	"time"
)

// MessageType is a custom type used as a placeholder for various message types.
type MessageType int

// The message types used accross the CLI application.
const (
	DefaultMessage MessageType = iota
	SuccessMessage
	ErrorMessage
	StatusMessage
)

// Colors used accross the CLI application.
const (
	DefaultColor = "\x1b[0m"
	StatusColor  = "\x1b[36m"
	SuccessColor = "\x1b[32m"
	ErrorColor   = "\x1b[31m"
)

var messageColors = map[MessageType]string{
	DefaultMessage: DefaultColor,
	SuccessMessage: SuccessColor,
	ErrorMessage:   ErrorColor,
	StatusMessage:  StatusColor,
}

// DecorateText wraps the message in the color of its type.
// Unknown message types are returned undecorated.
func DecorateText(s string, msgType MessageType) string {
	c, ok := messageColors[msgType]
	if !ok {
		return s
	}
	return c + s + DefaultColor
}

// FormatTime formats a duration for the CLI summary: seconds with two
// decimals under a minute, whole seconds above, e.g. "1.50s" or "2m5s".
func FormatTime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// FormatRate reports a frame throughput, e.g. "24.0 fps".
func FormatRate(frames int, d time.Duration) string {
	if d <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f fps", float64(frames)/d.Seconds())
}
