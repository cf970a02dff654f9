package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestRunCreateThenValidate(t *testing.T) {
	dir := t.TempDir()
	if err := run(context.Background(), options{cmd: "create", dir: dir, name: "add gift cards"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*_add_gift_cards.sql"))
	if len(matches) != 1 {
		t.Fatalf("expected one migration file, got %v", matches)
	}
	if err := run(context.Background(), options{cmd: "validate", dir: dir}); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	if err := run(context.Background(), options{cmd: "create", dir: t.TempDir()}); err == nil {
		t.Fatalf("expected missing name error")
	}
	if err := run(context.Background(), options{cmd: "seed"}); err == nil {
		t.Fatalf("expected unknown command error")
	}
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up\n"), 0o644)
	if err := run(context.Background(), options{cmd: "validate", dir: dir}); err == nil {
		t.Fatalf("expected validation failure")
	}
}
