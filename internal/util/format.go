package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// FormatClock renders a millisecond duration as MM:SS, or HH:MM:SS once it
// reaches an hour.
func FormatClock(ms int64) string {
	if ms <= 0 {
		return "00:00"
	}
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatHuman renders a millisecond duration as e.g. "1h30m5s". Zero is "0m".
func FormatHuman(ms int64) string {
	if ms <= 0 {
		return "0m"
	}
	totalMin := ms / 60000
	h := totalMin / 60
	m := totalMin % 60
	s := (ms / 1000) % 60

	var b strings.Builder
	if h > 0 {
		fmt.Fprintf(&b, "%dh", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dm", m)
	}
	if s > 0 {
		fmt.Fprintf(&b, "%ds", s)
	}
	if b.Len() == 0 {
		return "0m"
	}
	return b.String()
}

// FormatDateTime renders epoch milliseconds in local time, empty for zero.
func FormatDateTime(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

// PadRight pads s with spaces to w terminal cells, truncating with an
// ellipsis when it is wider. Emoji count as two cells.
func PadRight(s string, w int) string {
	if runewidth.StringWidth(s) > w {
		s = runewidth.Truncate(s, w, "…")
	}
	return runewidth.FillRight(s, w)
}
