package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/bookstore-backend/pkg/config"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("expected bundled migrations to validate: %v", err)
	}
}

func TestRedemptionMigrationEnforcesUniqueness(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_coupon_redemptions_table.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one redemption migration, got %d", len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(data), "uq_coupon_redemptions_order_coupon ON coupon_redemptions (order_id, coupon_id)") {
		t.Fatalf("redemption migration must declare the (order_id, coupon_id) unique index")
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Coupon Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_coupon_notes.sql") {
		t.Fatalf("unexpected sanitized name %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatalf("expected invalid filename error")
	}
}

func TestValidateDirRejectsEmptyDir(t *testing.T) {
	if err := ValidateDir(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty migrations dir")
	}
}

func TestCreateSQLMigrationRefusesDuplicate(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	path, err := createAt(dir, "seed", at)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260901090000_seed.sql" {
		t.Fatalf("unexpected file name %s", path)
	}
	if _, err := createAt(dir, "seed", at); err == nil {
		t.Fatalf("expected second create with same version to fail")
	}
}

func TestValidateDirRejectsBrokenAnnotations(t *testing.T) {
	cases := map[string]string{
		"no down":        "-- +goose Up\nSELECT 1;\n",
		"down first":     "-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n",
		"unterminated":   "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"stray end":      "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n",
		"duplicate vers": "",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if name == "duplicate vers" {
				valid := "-- +goose Up\n-- +goose Down\n"
				writeMigration(t, dir, "20260901090000_a.sql", valid)
				writeMigration(t, dir, "20260901090000_b.sql", valid)
			} else {
				writeMigration(t, dir, "20260901090000_bad.sql", body)
			}
			if err := ValidateDir(dir); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSlug(t *testing.T) {
	if got := Slug("  Add Coupon--Notes!! "); got != "add_coupon_notes" {
		t.Fatalf("unexpected slug %q", got)
	}
	if got := Slug("!!!"); got != "" {
		t.Fatalf("expected empty slug, got %q", got)
	}
}

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestAutoMigrateEnabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "dev"
	cfg.FeatureFlags.AutoMigrate = true
	if !autoMigrateEnabled(cfg) {
		t.Fatalf("expected dev with flag to auto migrate")
	}
	cfg.DB.Driver = "sqlite"
	if autoMigrateEnabled(cfg) {
		t.Fatalf("sqlite must not auto migrate postgres SQL")
	}
	cfg.DB.Driver = ""
	cfg.App.Env = "prod"
	if autoMigrateEnabled(cfg) {
		t.Fatalf("prod must not auto migrate")
	}
}
