package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvLoader_LoadsRequestedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(path, []byte("NEWSALERT_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv(OverrideEnvVar, "")
	t.Setenv("NEWSALERT_TEST_VALUE", "from-process")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, filepath.Join(dir, "missing.env"), "")
	if err := fs.Parse([]string{"--env", path}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded != path {
		t.Fatalf("unexpected loaded path: %q", loaded)
	}
	if got := os.Getenv("NEWSALERT_TEST_VALUE"); got != "from-file" {
		t.Fatalf("expected file to override process env, got %q", got)
	}
}

func TestEnvLoader_OverrideVarComesFirst(t *testing.T) {
	t.Setenv(OverrideEnvVar, "/tmp/override.env")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, "", "")
	candidates := loader.Candidates()
	if len(candidates) != 2 || candidates[0] != "/tmp/override.env" || candidates[1] != ".env" {
		t.Fatalf("unexpected candidates: %v", candidates)
	}
}

func TestEnvLoader_MissingFiles(t *testing.T) {
	t.Setenv(OverrideEnvVar, "")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, filepath.Join(t.TempDir(), "nope.env"), "")
	if _, err := loader.Load(); err == nil {
		t.Fatalf("expected error when no env file exists")
	}
}
