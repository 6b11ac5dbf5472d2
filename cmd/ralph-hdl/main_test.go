package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/raymyers/ralph-hdl/pkg/cache"
)

const callsFile = "../../testdata/kernels/calls.yaml"

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestDebugFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	for _, flagName := range debugFlagNames {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("expected flag --%s to exist", flagName)
		}
	}
}

// resetFlags restores every package level flag to its default
func resetFlags() {
	dRHIF = false
	dRTL = false
	dNTL = false
	dCost = false
	configPath = ""
	cachePath = ""
	jobs = 1
	kernels = nil
	simArgs = ""
	verbosity = ""
}

// execute runs the root command the way main does
func execute(args ...string) (string, string, error) {
	resetFlags()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(normalizeFlags(args))
	err := cmd.Execute()

	return out.String(), errOut.String(), err
}

func TestNormalizeFlags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "single-dash drtl",
			input:    []string{"-drtl", "k.yaml"},
			expected: []string{"--drtl", "k.yaml"},
		},
		{
			name:     "double-dash unchanged",
			input:    []string{"--dntl", "k.yaml"},
			expected: []string{"--dntl", "k.yaml"},
		},
		{
			name:     "mixed",
			input:    []string{"-drhif", "-k", "add", "-dcost", "k.yaml"},
			expected: []string{"--drhif", "-k", "add", "--dcost", "k.yaml"},
		},
		{
			name:     "unknown single-dash kept",
			input:    []string{"-dasm", "k.yaml"},
			expected: []string{"-dasm", "k.yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeFlags(tt.input)
			if strings.Join(got, " ") != strings.Join(tt.expected, " ") {
				t.Errorf("normalizeFlags(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNoArgsPrintsHelp(t *testing.T) {
	out, _, err := execute()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "ralph-hdl") {
		t.Errorf("expected usage, got %q", out)
	}
}

func TestMissingFile(t *testing.T) {
	_, errOut, err := execute(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrCompileFailed) {
		t.Fatalf("expected ErrCompileFailed, got %v", err)
	}
	if !strings.Contains(errOut, "read kernels") {
		t.Errorf("expected read error, got %q", errOut)
	}
}

func TestUnknownKernel(t *testing.T) {
	_, _, err := execute("-k", "missing", callsFile)
	if err == nil || !strings.Contains(err.Error(), "no kernel named missing") {
		t.Errorf("expected unknown kernel error, got %v", err)
	}
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ralph-hdl.yaml")
	if err := os.WriteFile(path, []byte("max_sweeps: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, _, err := execute("--config", path, callsFile)
	if err == nil || !strings.Contains(err.Error(), "max_sweeps") {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestConfigChangesReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ralph-hdl.yaml")
	if err := os.WriteFile(path, []byte("cost:\n  vector_per_bit: 2\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	out, errOut, err := execute("--config", path, "-k", "add", callsFile)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, errOut)
	}
	if !strings.Contains(out, "critical path cost 16") {
		t.Errorf("expected doubled adder cost, got %q", out)
	}
}

func TestCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts.db")

	first, errOut, err := execute("--cache", path, "-dcost", "-dntl", callsFile)
	if err != nil {
		t.Fatalf("first run failed: %v\n%s", err, errOut)
	}

	second, errOut, err := execute("--cache", path, "-dcost", "-dntl", callsFile)
	if err != nil {
		t.Fatalf("cached run failed: %v\n%s", err, errOut)
	}

	if first != second {
		t.Errorf("cached output differs\n--- first ---\n%s\n--- second ---\n%s", first, second)
	}

	c, err := cache.Open(path)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer c.Close()

	n, err := c.Len(context.Background())
	if err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 cached kernels, got %d", n)
	}
}
