package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	consoleTimeLayout = "15:04:05"
	// Console field values longer than this are cut; the run log keeps them whole.
	maxConsoleValue = 300
)

func consoleTime(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.Local().Format(consoleTimeLayout)
}

// plainText renders a value without quoting. Used for header fields such as
// the component and video ID.
func plainText(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	case slog.KindTime:
		return v.Time().Local().Format(time.DateTime)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	default:
		return v.String()
	}
}

// fieldText renders a value for an indented field line: multi-line or padded
// strings are quoted and long strings are shortened.
func fieldText(v slog.Value) string {
	s := plainText(v)
	if v.Resolve().Kind() == slog.KindDuration {
		return s
	}
	s = shorten(s, maxConsoleValue)
	if s == "" || strings.ContainsAny(s, "\n\r\t\"") || strings.TrimSpace(s) != s {
		return strconv.Quote(s)
	}
	return s
}

func shorten(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + fmt.Sprintf("... (%d chars)", len(runes))
}
