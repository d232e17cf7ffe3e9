// Package token resolves the name a capture is stored under.
package token

import (
	"strconv"
	"strings"
	"time"
)

// Layout is the wall-clock token format: YYYYMMDD_HHMMSS.
const Layout = "20060102_150405"

// Clock supplies wall-clock time and time since boot.
type Clock interface {
	Now() time.Time
	Uptime() time.Duration
}

// SystemClock reads the host clock. Uptime counts from process start.
type SystemClock struct {
	boot time.Time
}

// NewSystemClock returns a clock whose uptime starts now.
func NewSystemClock() *SystemClock {
	return &SystemClock{boot: time.Now()}
}

func (c *SystemClock) Now() time.Time { return time.Now() }

func (c *SystemClock) Uptime() time.Duration { return time.Since(c.boot) }

// Synced reports whether t looks like a real wall-clock reading.
// A clock that was never set reports the epoch or earlier.
func Synced(t time.Time) bool {
	return !t.IsZero() && t.Unix() > 0
}

// Timestamp builds a token from the clock: YYYYMMDD_HHMMSS in local time,
// or "t" followed by whole seconds since boot when the wall clock is not set.
func Timestamp(c Clock) string {
	now := c.Now()
	if !Synced(now) {
		return "t" + strconv.FormatInt(int64(c.Uptime()/time.Second), 10)
	}
	return now.Local().Format(Layout)
}

// FromRequestLine extracts the t= value from a request line: the text
// after the first "t=" up to the next space, or to the end of the line.
// A "t=" at the very start of the line is ignored.
func FromRequestLine(line string) string {
	idx := strings.Index(line, "t=")
	if idx <= 0 {
		return ""
	}
	rest := line[idx+2:]
	if end := strings.IndexByte(rest, ' '); end >= 0 {
		return rest[:end]
	}
	return rest
}

// Resolve returns the request token, falling back to a clock timestamp.
func Resolve(line string, c Clock) string {
	if t := FromRequestLine(line); t != "" {
		return t
	}
	return Timestamp(c)
}

// Filename returns the capture name for a token, without extension.
func Filename(tok string) string {
	return "IMG_" + tok
}
