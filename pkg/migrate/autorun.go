package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/talentbridge/talentbridge-backend/pkg/config"
	"github.com/talentbridge/talentbridge-backend/pkg/db"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on boot, only in dev with the
// auto-migrate flag on.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	logg.Info(ctx, "applying migrations on boot")

	var applied strings.Builder
	if err := Run(ctx, sqlDB, DefaultDir, "up", &applied); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(logg.WithField(ctx, "applied", strings.Count(applied.String(), "\n")), "migrations up to date")
	return nil
}
