package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeWriteFileCreatesDir(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "report.html")
	if err := SafeWriteFile(p, []byte("ok")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "ok" {
		t.Fatalf("unexpected content %q (%v)", b, err)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestEncode(t *testing.T) {
	v := map[string]string{"statement": "x"}
	j, err := Encode("json", v)
	if err != nil || !strings.Contains(string(j), `"statement": "x"`) {
		t.Fatalf("json: %s %v", j, err)
	}
	y, err := Encode("YAML", v)
	if err != nil || strings.TrimSpace(string(y)) != "statement: x" {
		t.Fatalf("yaml: %s %v", y, err)
	}
	if _, err := Encode("xml", v); err == nil {
		t.Fatalf("expected error for xml")
	}
}

func TestOutputPath(t *testing.T) {
	got := OutputPath(filepath.Join("data", "sales.csv"), "", "_report.html")
	if got != filepath.Join("data", "sales_report.html") {
		t.Fatalf("got %s", got)
	}
	got = OutputPath("sales.csv", "out", ".json")
	if got != filepath.Join("out", "sales.json") {
		t.Fatalf("got %s", got)
	}
}
