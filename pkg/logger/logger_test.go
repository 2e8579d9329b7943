package logger

import (
	"bytes"
	"os"
	"testing"
)

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel("info")
	})

	tests := []struct {
		level      string
		debugShown bool
		infoShown  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		buf.Reset()
		SetLevel(tt.level)
		Debugf("debug %s", tt.level)
		Infof("info %s", tt.level)

		if got := bytes.Contains(buf.Bytes(), []byte("debug "+tt.level)); got != tt.debugShown {
			t.Errorf("SetLevel(%q): debug shown = %v, want %v", tt.level, got, tt.debugShown)
		}
		if got := bytes.Contains(buf.Bytes(), []byte("info "+tt.level)); got != tt.infoShown {
			t.Errorf("SetLevel(%q): info shown = %v, want %v", tt.level, got, tt.infoShown)
		}
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	SetLevel("info")

	WithFields(Fields{"tests": 3}).Info("generated")

	if !bytes.Contains(buf.Bytes(), []byte("tests=3")) {
		t.Errorf("WithFields output = %q, want it to contain tests=3", buf.String())
	}
}
