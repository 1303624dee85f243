package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pcs-import.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := write(t, `
database: /data/pcs.db
delivery_mode: true
import:
  pause: 10ms
  skip_duplicates: false
assist:
  model: gemini-2.5-pro
  api_key_env: PCS_TEST_KEY
`)
	t.Setenv("PCS_TEST_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := Default()
	want.Database = "/data/pcs.db"
	want.DeliveryMode = true
	want.Import.Pause = 10 * time.Millisecond
	want.Import.SkipDuplicates = false
	want.Assist.Model = "gemini-2.5-pro"
	want.Assist.APIKeyEnv = "PCS_TEST_KEY"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	if s := cfg.Settings(); !s.DeliveryMode || s.SkipDuplicates || !s.AutoCreateSecurities {
		t.Errorf("Settings() = %+v", s)
	}
	if p := cfg.Provider(); p.APIKey != "secret" || p.Model != "gemini-2.5-pro" {
		t.Errorf("Provider() = %+v", p)
	}
}

func TestValidate(t *testing.T) {
	path := write(t, `
database: ""
import:
  concurrency: 0
assist:
  provider: openai
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected an error")
	}
	for _, want := range []string{"database", "import.concurrency", "assist.provider"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidateConcurrency(t *testing.T) {
	for _, n := range []int64{-1, 0, 2, 8} {
		cfg := Default()
		cfg.Import.Concurrency = n
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "import.concurrency must be 1") {
			t.Errorf("Validate() with concurrency %d = %v", n, err)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("Validate() of the defaults = %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(write(t, "import: [")); err == nil {
		t.Error("Load() of invalid yaml expected an error")
	}
}
