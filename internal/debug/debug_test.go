package debug

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(lvl)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Init(LevelOff)
	})
	return &buf
}

func TestInit_OffPrintsNothing(t *testing.T) {
	buf := capture(t, LevelOff)

	Info("hello %d", 1)
	Saved("/IMG_x.jpg", 10)
	Error(errors.New("boom"))

	if buf.Len() != 0 {
		t.Errorf("expected no output at level 0, got %q", buf.String())
	}
}

func TestInfo_PrefixAndFormat(t *testing.T) {
	buf := capture(t, LevelInfo)

	Info("IP: %s", "10.0.0.7")

	out := buf.String()
	if !strings.Contains(out, "[snapcam] ") {
		t.Errorf("missing logger prefix in %q", out)
	}
	if !strings.Contains(out, "[INFO] IP: 10.0.0.7") {
		t.Errorf("missing formatted message in %q", out)
	}
}

func TestSaved_Format(t *testing.T) {
	buf := capture(t, LevelInfo)

	Saved("/IMG_foo.jpg", 1234)

	if !strings.Contains(buf.String(), "Saved /IMG_foo.jpg (1234 bytes)") {
		t.Errorf("unexpected saved line: %q", buf.String())
	}
}

func TestLevels_Filtering(t *testing.T) {
	cases := []struct {
		name    string
		level   int
		live    bool
		verbose bool
		trace   bool
	}{
		{"info", LevelInfo, false, false, false},
		{"live", LevelLive, true, false, false},
		{"verbose", LevelVerbose, true, true, false},
		{"trace", LevelTrace, true, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := capture(t, tc.level)

			Live("live-line")
			Verbose("verbose-line")
			GPIO("WritePin", 33, true)

			out := buf.String()
			if got := strings.Contains(out, "live-line"); got != tc.live {
				t.Errorf("live printed = %v, want %v", got, tc.live)
			}
			if got := strings.Contains(out, "verbose-line"); got != tc.verbose {
				t.Errorf("verbose printed = %v, want %v", got, tc.verbose)
			}
			if got := strings.Contains(out, "[GPIO] WritePin pin=33"); got != tc.trace {
				t.Errorf("gpio printed = %v, want %v", got, tc.trace)
			}
		})
	}
}

func TestIsEnabled(t *testing.T) {
	capture(t, LevelLive)

	if !IsEnabled(LevelInfo) || !IsEnabled(LevelLive) {
		t.Error("info and live should be enabled at level 2")
	}
	if IsEnabled(LevelVerbose) {
		t.Error("verbose should not be enabled at level 2")
	}
	if Level() != LevelLive {
		t.Errorf("Level() = %d, want %d", Level(), LevelLive)
	}
}
