// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	userstore "github.com/dalemusser/equiphub/internal/app/store/users"
	"github.com/dalemusser/equiphub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// EquipHub uses it to honor timeout overrides from the environment and to
// make sure the configured superadmin account exists.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.ConfigureFromEnv()

	if appCfg.SuperAdminEmail != "" {
		users := userstore.New(deps.EquipHubMongoDatabase)
		u, err := users.EnsureAdmin(ctx, appCfg.SuperAdminEmail, appCfg.SuperAdminName)
		if err != nil {
			logger.Error("superadmin bootstrap failed", zap.Error(err))
			return err
		}
		logger.Info("superadmin ready",
			zap.String("email", appCfg.SuperAdminEmail),
			zap.String("user_id", u.ID.Hex()))
	}

	return nil
}
