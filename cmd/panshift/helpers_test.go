package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panshift/panshift/pkg/push"
)

func TestResolveStrategy(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PANSHIFT_STRATEGY", "")

	// Nothing configured: empty, the engine default decides.
	if got := resolveStrategy(""); got != "" {
		t.Errorf("resolveStrategy with nothing set = %q, want empty", got)
	}

	// Settings provide the fallback.
	settingsDir := filepath.Join(home, ".panshift")
	if err := os.MkdirAll(settingsDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := `{"default_strategy":"rename"}`
	if err := os.WriteFile(filepath.Join(settingsDir, "settings.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if got := resolveStrategy(""); got != "rename" {
		t.Errorf("resolveStrategy from settings = %q, want %q", got, "rename")
	}

	// Environment beats settings.
	t.Setenv("PANSHIFT_STRATEGY", "overwrite")
	if got := resolveStrategy(""); got != "overwrite" {
		t.Errorf("resolveStrategy from env = %q, want %q", got, "overwrite")
	}

	// Flag beats everything.
	if got := resolveStrategy("skip"); got != "skip" {
		t.Errorf("resolveStrategy from flag = %q, want %q", got, "skip")
	}
}

func TestSummaryMark(t *testing.T) {
	clean := &push.Summary{Total: 3, Created: 3}
	if got := summaryMark(clean); !strings.Contains(got, "ok") {
		t.Errorf("summaryMark(clean) = %q, want an ok mark", got)
	}

	failed := &push.Summary{Total: 3, Created: 2, Failed: 1,
		Errors: []string{"address web-1: push failed"}}
	if got := summaryMark(failed); !strings.Contains(got, "x") {
		t.Errorf("summaryMark(failed) = %q, want a failure mark", got)
	}
}

func TestColorCount(t *testing.T) {
	if got := colorCount(0); !strings.Contains(got, "0") {
		t.Errorf("colorCount(0) = %q", got)
	}
	if got := colorCount(4); !strings.Contains(got, "4") {
		t.Errorf("colorCount(4) = %q", got)
	}
}
