package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"gastos/internal/config"
	"gastos/pkg/ledger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DBDriver:   ledger.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "gastos.db"),
		LogLevel:   "error",
	}
}

func openCore(t *testing.T, cfg *config.Config) *ledger.Core {
	t.Helper()
	core, err := ledger.Open(cfg.LedgerOptions(nil))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { core.Close() })
	return core
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "create", args: []string{"-email", "ana@example.com", "-password", "secreto"}},
		{name: "missing email", args: []string{"-password", "secreto"}, wantErr: "-email is required"},
		{name: "set password without id", args: []string{"-set-password", "-password", "x"}, wantErr: "-id is required"},
		{name: "exclusive modes", args: []string{"-disable", "-enable", "-id", "1"}, wantErr: "mutually exclusive"},
		{name: "unknown flag", args: []string{"-nope"}, wantErr: "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseFlagsDefaultsNameToEmail(t *testing.T) {
	opts, err := parseFlags([]string{"-email", "ana@example.com", "-temp"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.name != "ana@example.com" || opts.role != "usuario" || !opts.temporary {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestRunCreatesUserThatCanLogIn(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	err := run([]string{"-name", "Ana", "-email", "ana@example.com", "-password", "secreto123", "-company", "1"}, cfg, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "created user") {
		t.Fatalf("unexpected output %q", out.String())
	}

	core := openCore(t, cfg)
	user, err := core.Authenticate(context.Background(), "ana@example.com", "secreto123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Name != "Ana" || user.CompanyID == nil || *user.CompanyID != 1 {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestRunTemporaryUserPrintsBootstrapPassword(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	if err := run([]string{"-email", "temp@example.com", "-temp"}, cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), ledger.BootstrapPassword) {
		t.Fatalf("expected bootstrap password in output, got %q", out.String())
	}
}

func TestRunDuplicateEmail(t *testing.T) {
	cfg := testConfig(t)
	args := []string{"-email", "ana@example.com", "-password", "secreto123"}
	if err := run(args, cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	err := run(args, cfg, &bytes.Buffer{})
	if !ledger.IsErrorCode(err, ledger.ErrCodeDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestRunSetPasswordAndDisable(t *testing.T) {
	cfg := testConfig(t)
	if err := run([]string{"-email", "ana@example.com", "-password", "secreto123"}, cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := run([]string{"-set-password", "-id", "1", "-password", "nuevo456"}, cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if err := run([]string{"-disable", "-id", "1"}, cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("disable: %v", err)
	}

	core := openCore(t, cfg)
	_, err := core.Authenticate(context.Background(), "ana@example.com", "nuevo456")
	if !ledger.IsErrorCode(err, ledger.ErrCodeInvalidCredentials) {
		t.Fatalf("expected disabled user to be rejected, got %v", err)
	}
	if err := core.SetUserActive(context.Background(), 1, true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if _, err := core.Authenticate(context.Background(), "ana@example.com", "nuevo456"); err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
}

func TestRunUnknownUser(t *testing.T) {
	cfg := testConfig(t)
	err := run([]string{"-enable", "-id", "99"}, cfg, &bytes.Buffer{})
	if !ledger.IsErrorCode(err, ledger.ErrCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
