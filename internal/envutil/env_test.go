package envutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := "# comment\nREKAP_TEST_A=from-file\nREKAP_TEST_B = spaced \nbroken-line\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("REKAP_TEST_A", "from-env")
	t.Setenv("REKAP_TEST_B", "")
	os.Unsetenv("REKAP_TEST_B")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("REKAP_TEST_A"); got != "from-env" {
		t.Fatalf("expected existing value kept, got %q", got)
	}
	if got := os.Getenv("REKAP_TEST_B"); got != "spaced" {
		t.Fatalf("expected value from file, got %q", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}

func TestWriteDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	values := map[string]string{"B": "2", "A": "1"}
	if err := WriteDotEnv(path, values, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "A=1\nB=2\n" {
		t.Fatalf("unexpected contents %q", data)
	}
	if err := WriteDotEnv(path, values, false); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}
	if err := WriteDotEnv(path, map[string]string{"C": "3"}, true); err != nil {
		t.Fatalf("forced write: %v", err)
	}
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("REKAP_TEST_ADDR", "  :9000 ")
	t.Setenv("REKAP_TEST_TTL", "90m")
	t.Setenv("REKAP_TEST_BAD_TTL", "soon")
	t.Setenv("REKAP_TEST_SIZE", "1024")

	if got := OrDefault("REKAP_TEST_ADDR", ":8080"); got != ":9000" {
		t.Fatalf("OrDefault = %q", got)
	}
	if got := OrDefault("REKAP_TEST_UNSET", ":8080"); got != ":8080" {
		t.Fatalf("OrDefault fallback = %q", got)
	}
	if got := Duration("REKAP_TEST_TTL", time.Hour); got != 90*time.Minute {
		t.Fatalf("Duration = %s", got)
	}
	if got := Duration("REKAP_TEST_BAD_TTL", time.Hour); got != time.Hour {
		t.Fatalf("Duration fallback = %s", got)
	}
	if got := Int64("REKAP_TEST_SIZE", 1); got != 1024 {
		t.Fatalf("Int64 = %d", got)
	}
}
