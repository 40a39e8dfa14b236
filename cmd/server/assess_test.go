package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeLines(t *testing.T, out string) []assessResult {
	t.Helper()
	var res []assessResult
	dec := json.NewDecoder(strings.NewReader(out))
	for dec.More() {
		var r assessResult
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("decode %q: %v", out, err)
		}
		res = append(res, r)
	}
	return res
}

func TestAssessArgs(t *testing.T) {
	out, err := runCLI(t, "", "assess", "Mình", "muốn", "chết")
	if err != nil {
		t.Fatal(err)
	}
	res := decodeLines(t, out)
	if len(res) != 1 {
		t.Fatalf("got %d results", len(res))
	}
	if res[0].Text != "Mình muốn chết" || res[0].Level.String() != "CRITICAL" || !res[0].ShouldShowHotline {
		t.Errorf("result = %+v", res[0])
	}
}

func TestAssessStdin(t *testing.T) {
	out, err := runCLI(t, "Hôm nay mình vui\n\nMình rất buồn\n", "assess")
	if err != nil {
		t.Fatal(err)
	}
	res := decodeLines(t, out)
	if len(res) != 2 {
		t.Fatalf("got %d results: %s", len(res), out)
	}
	if res[0].Level.String() != "NONE" {
		t.Errorf("first = %+v", res[0])
	}
	if res[1].Level.String() != "LOW" {
		t.Errorf("second = %+v", res[1])
	}
}

func TestAssessFailOn(t *testing.T) {
	_, err := runCLI(t, "Mình muốn biến mất\n", "assess", "--fail-on", "high")
	if err == nil || !isThreshold(err) {
		t.Fatalf("expected threshold error, got %v", err)
	}
	if _, err := runCLI(t, "Mình rất buồn\n", "assess", "--fail-on", "HIGH"); err != nil {
		t.Fatalf("LOW input should pass a HIGH threshold: %v", err)
	}
	if _, err := runCLI(t, "", "assess", "--fail-on", "severe", "x"); err == nil || isThreshold(err) {
		t.Fatalf("expected flag error, got %v", err)
	}
}

func TestAssessCustomLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	data := "lexicon:\n  critical:\n    - \"code red\"\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "", "assess", "--lexicon", path, "this is a CODE RED")
	if err != nil {
		t.Fatal(err)
	}
	if res := decodeLines(t, out); res[0].Level.String() != "CRITICAL" {
		t.Errorf("result = %+v", res[0])
	}
}

func TestAssessBadLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	if err := os.WriteFile(path, []byte("patterns:\n  - id: x\n    regex: \"(\"\n    severity: HIGH\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "", "assess", "--lexicon", path, "hi"); err == nil {
		t.Fatal("expected error for malformed pattern")
	}
}
