package app

import (
	"os"
	"path/filepath"
	"testing"
)

func unsetForTest(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	unsetForTest(t, "CLARITY_T_FOO", "CLARITY_T_BAR", "CLARITY_T_BAZ")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nCLARITY_T_FOO=alpha\nexport CLARITY_T_BAR=\"beta gamma\"\nCLARITY_T_BAZ='x=y'\nnot a pair\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	if err := LoadEnvFiles(envPath); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	for k, want := range map[string]string{"CLARITY_T_FOO": "alpha", "CLARITY_T_BAR": "beta gamma", "CLARITY_T_BAZ": "x=y"} {
		if got := os.Getenv(k); got != want {
			t.Fatalf("%s=%q, want %q", k, got, want)
		}
	}
}

func TestLoadEnvFiles_KeepsProcessEnvAndSkipsMissing(t *testing.T) {
	t.Setenv("CLARITY_T_KEEP", "from-env")
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("CLARITY_T_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("CLARITY_T_KEEP"); got != "from-env" {
		t.Fatalf("process env overwritten: %q", got)
	}
}
