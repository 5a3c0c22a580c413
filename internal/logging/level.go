package logging

import (
	"strings"

	"github.com/fatih/color"
)

// Level represents a log level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var levelColors = map[Level]func(format string, a ...interface{}) string{
	LevelDebug: color.HiBlackString,
	LevelInfo:  color.CyanString,
	LevelWarn:  color.YellowString,
	LevelError: color.RedString,
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// tag renders the bracketed level marker for text output. fatih/color
// drops the colour when NO_COLOR is set or stderr is not a terminal.
func (l Level) tag() string {
	s := "[" + l.String() + "]"
	if paint, ok := levelColors[l]; ok {
		return paint("%s", s)
	}
	return s
}

// ParseLevel parses a log level name. Unknown names mean info.
func ParseLevel(s string) Level {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		return LevelWarn
	}
	for level, n := range levelNames {
		if n == name {
			return level
		}
	}
	return LevelInfo
}
