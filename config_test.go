// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acts_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/joeycumines/logiface"

	"code.hybscloud.com/acts"
)

func TestParseConfig(t *testing.T) {
	cfg, err := acts.ParseConfig([]byte(`{
		// requests kept per direction
		"pool_size": 32,
		"scratch_size": 1024,
		"default_timeout": "250ms",
		"log_level": "debug",
		"sweeper": false, // driven by the caller
	}`))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	poolSize, sweeper := 32, false
	want := acts.Config{
		PoolSize:       &poolSize,
		ScratchSize:    1024,
		DefaultTimeout: acts.Duration(250 * time.Millisecond),
		LogLevel:       "debug",
		Sweeper:        &sweeper,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config (-want +got):\n%s", diff)
	}

	opts, err := cfg.Options(&bytes.Buffer{})
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if len(opts) != 5 {
		t.Fatalf("got %d options, want 5", len(opts))
	}
}

func TestParseConfigIntegerDuration(t *testing.T) {
	cfg, err := acts.ParseConfig([]byte(`{"default_timeout": 1000000}`))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if time.Duration(cfg.DefaultTimeout) != time.Millisecond {
		t.Fatalf("timeout got %v", time.Duration(cfg.DefaultTimeout))
	}
}

func TestParseConfigRejects(t *testing.T) {
	for _, src := range []string{
		`{"pool_size": -1}`,
		`{"scratch_size": -4}`,
		`{"default_timeout": "soon"}`,
		`{"default_timeout": "-1s"}`,
		`{"log_level": "loud"}`,
		`{"unknown": true}`,
		`{"pool_size": 1`,
	} {
		if _, err := acts.ParseConfig([]byte(src)); err == nil {
			t.Fatalf("ParseConfig(%s) accepted", src)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acts.jsonc")
	if err := os.WriteFile(path, []byte(`{"default_timeout": "20ms", /* trailing */}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := acts.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	opts, err := cfg.Options(nil)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	eng := newEngine(t, opts...)
	s := newSession(t, eng, acts.Channels{Readable: &stubReader{}})
	var w acts.Waiter
	s.Read(acts.BufferEntry(acts.NewBuffer(1), 1), w.Callback)
	if res := wait(t, &w); res.State != acts.StateTimedOut {
		t.Fatalf("configured timeout not applied: %v", res.State)
	}

	if _, err := acts.LoadConfig(filepath.Join(t.TempDir(), "missing.jsonc")); err == nil {
		t.Fatal("LoadConfig of a missing file succeeded")
	}
}

func TestLoggerRecordsSessionLifecycle(t *testing.T) {
	var out bytes.Buffer
	eng := newEngine(t, acts.WithLogger(acts.NewLogger(&out, logiface.LevelDebug)))
	s := newSession(t, eng, acts.Channels{})
	s.Close(errBoom)

	logged := out.String()
	for _, want := range []string{"session opened", "session closed", s.ID().String(), "boom"} {
		if !strings.Contains(logged, want) {
			t.Fatalf("log missing %q:\n%s", want, logged)
		}
	}
}

func TestLoggerLevelFilters(t *testing.T) {
	var out bytes.Buffer
	eng := newEngine(t, acts.WithLogger(acts.NewLogger(&out, logiface.LevelWarning)))
	newSession(t, eng, acts.Channels{})
	if out.Len() != 0 {
		t.Fatalf("debug line written at warning level: %s", out.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logiface.Level{
		"":        logiface.LevelInformational,
		"TRACE":   logiface.LevelTrace,
		"debug":   logiface.LevelDebug,
		" warn ":  logiface.LevelWarning,
		"error":   logiface.LevelError,
		"off":     logiface.LevelDisabled,
		"notice":  logiface.LevelNotice,
		"warning": logiface.LevelWarning,
	}
	for in, want := range tests {
		got, err := acts.ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) got %v/%v, want %v", in, got, err, want)
		}
	}
	if _, err := acts.ParseLevel("verbose"); err == nil {
		t.Fatal("unknown level accepted")
	}
}
