package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	oldVersion, oldCommit := Version, CommitSHA
	Version, CommitSHA = "1.4.0", "abc1234"
	defer func() { Version, CommitSHA = oldVersion, oldCommit }()

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)

	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); !strings.HasPrefix(out, "gatex 1.4.0\n") || !strings.Contains(out, "Commit: abc1234") {
		t.Errorf("unexpected text output:\n%s", out)
	}

	buf.Reset()
	if err := versionCmd.Flags().Set("json", "true"); err != nil {
		t.Fatal(err)
	}
	defer versionCmd.Flags().Set("json", "false")

	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatal(err)
	}
	var info buildInfo
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if info.Version != "1.4.0" || info.Commit != "abc1234" || info.GoVersion == "" {
		t.Errorf("unexpected build info %+v", info)
	}
}
