package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeBatch_CollidingNamesAndFailures(t *testing.T) {
	home := isolate(t)

	// Two CSV files with the same basename in different directories
	d1 := filepath.Join(home, "d1")
	d2 := filepath.Join(home, "d2")
	for _, d := range []string{d1, d2} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
		writeCSV(t, filepath.Join(d, "metrics.csv"), 30)
	}
	outDir := filepath.Join(home, "reports")

	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir, "-j", "2")
	if strings.Count(out, "✓") != 2 {
		t.Fatalf("expected two successes, got:\n%s", out)
	}
	for _, name := range []string{"metrics.report.md", "metrics__2.report.md"} {
		body, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if !strings.Contains(string(body), "# EDA report: metrics.csv") {
			t.Fatalf("unexpected report body in %s", name)
		}
	}

	// A failing file does not stop the others
	bad := filepath.Join(home, "d1", "broken.csv")
	if err := os.WriteFile(bad, nil, 0o644); err != nil {
		t.Fatalf("write bad: %v", err)
	}
	out, err := tryCmd(t, "analyze-batch", filepath.Join(home, "d1", "*.csv"))
	if err == nil || !strings.Contains(err.Error(), "broken.csv") {
		t.Fatalf("expected failure naming broken.csv, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(d1, "metrics.report.md")); statErr != nil {
		t.Fatalf("expected report next to input: %v\n%s", statErr, out)
	}
}
