package cli

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

var (
	timestampPrefix = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `)
	runField        = regexp.MustCompile(`run=([0-9a-f]{8})\b`)
	elapsedSuffix   = regexp.MustCompile(`Built 3 packages \(\d+(\.\d+)?(ms|s)\)`)
)

func TestNewLogger_PackageFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)
	logger.Info("building", "package", "python-requests", "version", "2.31.0-00")

	out := buf.String()
	if !timestampPrefix.MatchString(out) {
		t.Errorf("output %q should start with a HH:MM:SS.ms timestamp", out)
	}
	for _, want := range []string{"building", "package=python-requests", "version=2.31.0-00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestNewLogger_Verbose(t *testing.T) {
	tests := []struct {
		level log.Level
		want  bool
	}{
		{log.InfoLevel, false},
		{log.DebugLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			logger.Debug("already built", "package", "python-idna")
			if got := strings.Contains(buf.String(), "already built"); got != tt.want {
				t.Errorf("debug line logged = %v at %s", got, tt.level)
			}
		})
	}
}

func TestRunLogger_DistinctRuns(t *testing.T) {
	var buf bytes.Buffer
	base := newLogger(&buf, log.InfoLevel)

	runLogger(base).Info("planning", "root", "requests")
	runLogger(base).Info("planning", "root", "numpy")

	ids := runField.FindAllStringSubmatch(buf.String(), -1)
	if len(ids) != 2 {
		t.Fatalf("output %q should carry two run ids", buf.String())
	}
	if ids[0][1] == ids[1][1] {
		t.Errorf("both invocations got run id %s", ids[0][1])
	}
}

func TestProgress_ReportsElapsed(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("Built 3 packages")

	if !elapsedSuffix.MatchString(buf.String()) {
		t.Errorf("output %q should end the message with the elapsed time", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("a bare context should yield the default logger")
	}

	var buf bytes.Buffer
	logger := runLogger(newLogger(&buf, log.InfoLevel))
	ctx := withLogger(context.Background(), logger)

	loggerFromContext(ctx).Warn("outdated", "package", "python-six")
	out := buf.String()
	if !strings.Contains(out, "package=python-six") || !runField.MatchString(out) {
		t.Errorf("output %q should come from the run logger", out)
	}
}
