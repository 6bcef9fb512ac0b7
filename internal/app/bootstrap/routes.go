// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditsfeature "github.com/dalemusser/equiphub/internal/app/features/audits"
	equipmentfeature "github.com/dalemusser/equiphub/internal/app/features/equipment"
	healthfeature "github.com/dalemusser/equiphub/internal/app/features/health"
	transfersfeature "github.com/dalemusser/equiphub/internal/app/features/transfers"
	auditstore "github.com/dalemusser/equiphub/internal/app/store/audit"
	auditsessionstore "github.com/dalemusser/equiphub/internal/app/store/auditsessions"
	departmentstore "github.com/dalemusser/equiphub/internal/app/store/departments"
	equipmentstore "github.com/dalemusser/equiphub/internal/app/store/equipment"
	sitestore "github.com/dalemusser/equiphub/internal/app/store/sites"
	transferstore "github.com/dalemusser/equiphub/internal/app/store/transfers"
	userstore "github.com/dalemusser/equiphub/internal/app/store/users"
	"github.com/dalemusser/equiphub/internal/app/system/auditlog"
	"github.com/dalemusser/equiphub/internal/app/system/auth"
	"github.com/dalemusser/equiphub/internal/app/workflow"
	auditflow "github.com/dalemusser/equiphub/internal/app/workflow/audit"
	"github.com/dalemusser/equiphub/internal/app/workflow/reconcile"
	"github.com/dalemusser/equiphub/internal/app/workflow/transfer"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// EquipHub builds the stores, the custody and audit workflow engines, and
// the event logger, then mounts the feature routers on top of them.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadSessionUser fetches fresh user data on
	// each request. Role changes and disabled accounts take effect
	// immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.EquipHubMongoDatabase))

	db := deps.EquipHubMongoDatabase

	// Stores
	equipment := equipmentstore.New(db)
	sites := sitestore.New(db)
	departments := departmentstore.New(db)
	transfers := transferstore.New(db)
	sessions := auditsessionstore.New(db)
	custodyEvents := auditstore.New(db)

	// Event logger (MongoDB + zap, per config)
	events := auditlog.New(custodyEvents, logger, auditlog.Config{
		Custody: appCfg.EventLogCustody,
		Audit:   appCfg.EventLogAudit,
	})

	// Workflow engines share one lock table so a department audit and a
	// custody transfer touching the same equipment serialize correctly.
	locks := workflow.NewKeyedLocks()
	transferEngine := transfer.New(equipment, transfers, locks)
	auditEngine := auditflow.New(equipment, sessions, locks)
	reporter := reconcile.New(equipment)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.EquipHubMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Equipment registry
	equipmentHandler := equipmentfeature.NewHandler(equipment, sites, departments, events, logger)
	r.Mount("/equipment", equipmentfeature.Routes(equipmentHandler, sessionMgr))

	// Custody transfers
	transfersHandler := transfersfeature.NewHandler(transferEngine, events, logger)
	r.Mount("/transfers", transfersfeature.Routes(transfersHandler, sessionMgr))

	// Audit sessions
	auditsHandler := auditsfeature.NewHandler(auditEngine, reporter, events, logger)
	r.Mount("/audits", auditsfeature.Routes(auditsHandler, sessionMgr))

	return r, nil
}
