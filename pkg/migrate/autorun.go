package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date on boot. It only acts in dev with
// BOOKSTORE_AUTO_MIGRATE set and a postgres driver, since the SQL files use
// postgres syntax.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !autoMigrateEnabled(cfg) {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	before, err := currentVersion(sqlDB)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "schema version unknown before migrate")
	}
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	after, _ := currentVersion(sqlDB)

	logg.Info(logg.WithFields(ctx, map[string]any{"from_version": before, "to_version": after}), "schema migrations applied")
	return nil
}

func autoMigrateEnabled(cfg *config.Config) bool {
	if cfg == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return false
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	return driver == "" || driver == db.DriverPostgres
}
