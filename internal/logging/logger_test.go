package logging

import (
	"bytes"
	"strings"
	"testing"

	clog "github.com/charmbracelet/log"
)

// swapLogger points L at a buffer for the duration of one test.
func swapLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	L.SetLevel(clog.DebugLevel)
	t.Cleanup(func() { L = prev })
	return &buf
}

func TestHelpersWriteThroughL(t *testing.T) {
	buf := swapLogger(t)

	Debugf("dialing %s", "db01:22")
	Infof("run %s finished", "a1b2")
	Warnf("profile has no verify block")
	Errorf("step %s failed", "dependencies")

	out := buf.String()
	for _, want := range []string{
		"dialing db01:22",
		"run a1b2 finished",
		"profile has no verify block",
		"step dependencies failed",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q; got: %s", want, out)
		}
	}
}

func TestSetVerboseTogglesDebug(t *testing.T) {
	buf := swapLogger(t)

	SetVerbose(false)
	Debugf("hidden line")
	if strings.Contains(buf.String(), "hidden line") {
		t.Fatalf("debug output emitted at info level")
	}

	SetVerbose(true)
	Debugf("visible line")
	if !strings.Contains(buf.String(), "visible line") {
		t.Fatalf("debug output missing after SetVerbose(true)")
	}
}
