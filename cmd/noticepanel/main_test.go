package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const savedPage = `<html><body><div id="wpbody-content">
<div class="notice notice-error"><p>Database upgrade required</p></div>
<div class="notice notice-success is-dismissible"><p>Settings saved.</p></div>
</div></body></html>`

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	if err := os.WriteFile(page, []byte(savedPage), 0o600); err != nil {
		t.Fatal(err)
	}
	for i, a := range args {
		args[i] = strings.ReplaceAll(a, "{page}", page)
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(dir, "none.yml"), "--log-level", "error"))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestScanJSON(t *testing.T) {
	out := runCLI(t, "scan", "{page}", "-f", "json")
	var v struct {
		Trigger struct {
			Count int `json:"count"`
		} `json:"trigger"`
		Open  bool `json:"open"`
		Items []struct {
			Text string `json:"text"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	if v.Trigger.Count != 2 || len(v.Items) != 2 {
		t.Fatalf("view = %+v", v)
	}
	if !v.Open {
		t.Fatal("critical notice did not open the panel")
	}
}

func TestScanHTML(t *testing.T) {
	out := runCLI(t, "scan", "{page}", "-f", "html")
	for _, want := range []string{`id="notice-panel"`, "notice-panel-hidden", "Database upgrade required"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %s", want)
		}
	}
}
