package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRepairCommandsValidateInput(t *testing.T) {
	// No postgres URL: the repair commands refuse to run on the in-memory store.
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  port: \"8080\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POSTGRES_URL", "")

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"rescore without attempt", []string{"rescore"}, "--attempt is required"},
		{"rescore in memory", []string{"rescore", "--attempt", "7"}, "rescore needs postgres"},
		{"rerank without quiz", []string{"rerank"}, "--quiz is required"},
		{"rerank in memory", []string{"rerank", "--quiz", "3"}, "rerank needs postgres"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(append(tc.args, "--config", configPath))
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			err := cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
