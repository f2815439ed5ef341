package util

import "testing"

func TestClampInt(t *testing.T) {
	if got := ClampInt(5, 1, 10); got != 5 {
		t.Fatalf("ClampInt(5,1,10) = %d, want 5", got)
	}
	if got := ClampInt(-3, 1, 10); got != 1 {
		t.Fatalf("ClampInt(-3,1,10) = %d, want 1", got)
	}
	if got := ClampInt(99, 1, 10); got != 10 {
		t.Fatalf("ClampInt(99,1,10) = %d, want 10", got)
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("UTIL_TEST_INT", "42")
	if got := EnvInt("UTIL_TEST_INT", 7, 1); got != 42 {
		t.Fatalf("EnvInt = %d, want 42", got)
	}
	if got := EnvInt("UTIL_TEST_MISSING", 7, 1); got != 7 {
		t.Fatalf("EnvInt missing = %d, want default 7", got)
	}
	t.Setenv("UTIL_TEST_INT", "not-a-number")
	if got := EnvInt("UTIL_TEST_INT", 7, 1); got != 7 {
		t.Fatalf("EnvInt invalid = %d, want default 7", got)
	}
	t.Setenv("UTIL_TEST_INT", "0")
	if got := EnvInt("UTIL_TEST_INT", 7, 3); got != 3 {
		t.Fatalf("EnvInt below min = %d, want 3", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("UTIL_TEST_BOOL", "yes")
	if !EnvBool("UTIL_TEST_BOOL", false) {
		t.Fatal("EnvBool(yes) = false, want true")
	}
	t.Setenv("UTIL_TEST_BOOL", "off")
	if EnvBool("UTIL_TEST_BOOL", true) {
		t.Fatal("EnvBool(off) = true, want false")
	}
	t.Setenv("UTIL_TEST_BOOL", "maybe")
	if !EnvBool("UTIL_TEST_BOOL", true) {
		t.Fatal("EnvBool(invalid) should return default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	type cfg struct {
		Name    string `env:"UTIL_TEST_NAME" default:"fallback"`
		Workers int    `env:"UTIL_TEST_WORKERS" default:"4" min:"1"`
		Enabled bool   `env:"UTIL_TEST_ENABLED" default:"true"`
		Ignored string
	}

	t.Setenv("UTIL_TEST_NAME", "from-env")
	t.Setenv("UTIL_TEST_ENABLED", "false")

	var c cfg
	LoadFromEnv(&c)
	if c.Name != "from-env" {
		t.Fatalf("Name = %q, want from-env", c.Name)
	}
	if c.Workers != 4 {
		t.Fatalf("Workers = %d, want default 4", c.Workers)
	}
	if c.Enabled {
		t.Fatal("Enabled = true, want false from env")
	}
	if c.Ignored != "" {
		t.Fatalf("untagged field touched: %q", c.Ignored)
	}
}
