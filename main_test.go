package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// setupEnv points every path at a temp dir and clears settings a developer's
// shell might carry.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, v := range []string{"TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN", "POSTGRE_DSN", "METRICS_ADDR", "YTDLP_AUTO_INSTALL", "ADMIN_USER_ID", "FREE_DAILY_LIMIT"} {
		t.Setenv(v, "")
	}
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("TMP_DIR", filepath.Join(dir, "tmp"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	return dir
}

func TestRun_PlaceholderTokenExitsCleanly(t *testing.T) {
	dir := setupEnv(t)

	if err := run(context.Background()); err != nil {
		t.Errorf("Expected run to return nil without a token, got: %v", err)
	}

	// nothing past the token check should have run
	if _, err := os.Stat(filepath.Join(dir, "data")); !os.IsNotExist(err) {
		t.Errorf("Data directory should not be created without a token")
	}
}

func TestRun_ExplicitPlaceholderToken(t *testing.T) {
	setupEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "PUT_YOUR_TOKEN_HERE")

	if err := run(context.Background()); err != nil {
		t.Errorf("Expected run to return nil for the placeholder token, got: %v", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("FREE_DAILY_LIMIT", "many")

	if err := run(context.Background()); err == nil {
		t.Error("Expected run to fail with an invalid FREE_DAILY_LIMIT")
	}
}

func TestRun_InvalidAdminID(t *testing.T) {
	setupEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11")
	t.Setenv("ADMIN_USER_ID", "admin")

	if err := run(context.Background()); err == nil {
		t.Error("Expected run to fail with a non-numeric ADMIN_USER_ID")
	}
}
