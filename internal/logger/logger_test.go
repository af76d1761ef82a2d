package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func restore(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json")
	l.Info().Str("zone", "05Q").Msg("Zone ready")

	out := buf.String()
	if !strings.Contains(out, `"zone":"05Q"`) || !strings.Contains(out, `"message":"Zone ready"`) {
		t.Fatalf("output %s", out)
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "console")
	l.Warn().Int("attempted", 3).Msg("Parent boundary produced no grid features")

	out := buf.String()
	if !strings.Contains(out, "attempted=3") || strings.Contains(out, "\x1b[") {
		t.Fatalf("output %q", out)
	}
}

func TestSetupFileAndLevel(t *testing.T) {
	restore(t)

	path := filepath.Join(t.TempDir(), "grid.log")
	Logger{Level: "warn", Format: "json", File: path}.Setup()

	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("level %v", zerolog.GlobalLevel())
	}
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Fatalf("log file %s", data)
	}
}

func TestSetupUnknownLevel(t *testing.T) {
	restore(t)

	Logger{Level: "loud", Format: "json", File: filepath.Join(t.TempDir(), "x.log")}.Setup()
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("level %v", zerolog.GlobalLevel())
	}
}
