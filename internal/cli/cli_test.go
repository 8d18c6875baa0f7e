package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	app := New()

	want := map[string]bool{"eval": false, "serve": false, "version": false}
	for _, cmd := range app.rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestVersionCommandOutput(t *testing.T) {
	app := New()
	app.SetVersion("1.2.3", "abc1234", "2026-08-25")

	var out bytes.Buffer
	app.rootCmd.SetOut(&out)
	app.rootCmd.SetArgs([]string{"version"})

	if err := app.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"revbench version 1.2.3", "commit: abc1234", "built: 2026-08-25"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestVersionCommandDefaults(t *testing.T) {
	app := New()

	var out bytes.Buffer
	app.rootCmd.SetOut(&out)
	app.rootCmd.SetArgs([]string{"version"})

	if err := app.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out.String(), "revbench version dev") {
		t.Errorf("output = %s", out.String())
	}
}

func TestEvalCommandFlags(t *testing.T) {
	app := New()
	cmd := NewEvalCmd(app)

	for _, flag := range []string{"scenarios", "offline", "keep-workdirs", "skip-cleanup"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("eval missing --%s", flag)
		}
	}
}

func TestServeCommandFlags(t *testing.T) {
	app := New()
	cmd := NewServeCmd(app)

	for _, flag := range []string{"addr", "project"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("serve missing --%s", flag)
		}
	}
}
