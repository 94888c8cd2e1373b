package core

import (
	"fmt"
	"strings"

	"github.com/joeycumines/logiface"
)

// Level is the verbosity of a diagnostic event. Lower values are more severe.
type Level uint8

const (
	LevelError Level = iota + 1
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// LevelFilter is the most verbose Level that is emitted. LevelFilterOff
// disables everything. The zero value, LevelFilterUnset, behaves as
// DefaultLevelFilter.
type LevelFilter uint8

const (
	LevelFilterUnset LevelFilter = iota
	LevelFilterOff
	LevelFilterError
	LevelFilterWarn
	LevelFilterInfo
	LevelFilterDebug
	LevelFilterTrace
)

// DefaultLevelFilter is used when no max level is configured.
const DefaultLevelFilter = LevelFilterInfo

var levelFilterNames = [...]string{
	LevelFilterUnset: "default",
	LevelFilterOff:   "off",
	LevelFilterError: "error",
	LevelFilterWarn:  "warn",
	LevelFilterInfo:  "info",
	LevelFilterDebug: "debug",
	LevelFilterTrace: "trace",
}

func (f LevelFilter) String() string {
	if int(f) >= len(levelFilterNames) {
		return fmt.Sprintf("LevelFilter(%d)", uint8(f))
	}
	return levelFilterNames[f]
}

// OrDefault maps LevelFilterUnset to DefaultLevelFilter.
func (f LevelFilter) OrDefault() LevelFilter {
	if f == LevelFilterUnset {
		return DefaultLevelFilter
	}
	return f
}

// Enabled reports whether an event at level l passes the filter.
func (f LevelFilter) Enabled(l Level) bool {
	return l != 0 && uint8(l) < uint8(f.OrDefault())
}

// ParseLevelFilter parses a filter name, case-insensitively. "warning" is
// accepted as an alias of "warn"; "default" or an empty string yields
// DefaultLevelFilter.
func ParseLevelFilter(name string) (LevelFilter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "default":
		return DefaultLevelFilter, nil
	case "warning":
		return LevelFilterWarn, nil
	}
	for i, n := range levelFilterNames {
		if n == name {
			return LevelFilter(i), nil
		}
	}
	return LevelFilterOff, fmt.Errorf("%w: %q", ErrInvalidLevelFilter, name)
}

// MarshalText implements encoding.TextMarshaler.
func (f LevelFilter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so a LevelFilter can be
// decoded straight out of a config file.
func (f *LevelFilter) UnmarshalText(text []byte) error {
	v, err := ParseLevelFilter(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (l Level) logiface() logiface.Level {
	switch l {
	case LevelError:
		return logiface.LevelError
	case LevelWarn:
		return logiface.LevelWarning
	case LevelInfo:
		return logiface.LevelInformational
	case LevelDebug:
		return logiface.LevelDebug
	case LevelTrace:
		return logiface.LevelTrace
	default:
		return logiface.LevelDisabled
	}
}

func (f LevelFilter) logiface() logiface.Level {
	switch f.OrDefault() {
	case LevelFilterError:
		return logiface.LevelError
	case LevelFilterWarn:
		return logiface.LevelWarning
	case LevelFilterInfo:
		return logiface.LevelInformational
	case LevelFilterDebug:
		return logiface.LevelDebug
	case LevelFilterTrace:
		return logiface.LevelTrace
	default:
		return logiface.LevelDisabled
	}
}
