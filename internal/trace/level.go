package trace

import (
	"fmt"
	"strings"
)

// Level is the finest Scope a tracer records.
type Level uint8

const (
	LevelOff       Level = iota
	LevelPhase           // driver runs and pipeline passes
	LevelTransform       // adds one span per transformation
	LevelNode            // adds the rewrite points inside a transformation
)

var levelNames = [...]string{
	LevelOff:       "off",
	LevelPhase:     "phase",
	LevelTransform: "transform",
	LevelNode:      "node",
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel reads the [trace] level setting; empty means off.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return LevelOff, nil
	}
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether events of scope are recorded at level l.
func (l Level) ShouldEmit(scope Scope) bool {
	if l == LevelOff || int(l) >= len(maxScope) {
		return false
	}
	return scope <= maxScope[l]
}

var maxScope = [...]Scope{
	LevelPhase:     ScopePass,
	LevelTransform: ScopeTransformation,
	LevelNode:      ScopeNode,
}
