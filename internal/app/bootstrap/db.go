// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	auditstore "github.com/dalemusser/equiphub/internal/app/store/audit"
	auditsessionstore "github.com/dalemusser/equiphub/internal/app/store/auditsessions"
	departmentstore "github.com/dalemusser/equiphub/internal/app/store/departments"
	equipmentstore "github.com/dalemusser/equiphub/internal/app/store/equipment"
	sitestore "github.com/dalemusser/equiphub/internal/app/store/sites"
	transferstore "github.com/dalemusser/equiphub/internal/app/store/transfers"
	userstore "github.com/dalemusser/equiphub/internal/app/store/users"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection and bundles it into DBDeps.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase))

	return DBDeps{
		EquipHubMongoClient:   client,
		EquipHubMongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates the indexes each store needs.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.EquipHubMongoDatabase

	ensure := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", userstore.New(db).EnsureIndexes},
		{"sites", sitestore.New(db).EnsureIndexes},
		{"departments", departmentstore.New(db).EnsureIndexes},
		{"equipment", equipmentstore.New(db).EnsureIndexes},
		{"assignments", transferstore.New(db).EnsureIndexes},
		{"audit_sessions", auditsessionstore.New(db).EnsureIndexes},
		{"custody_events", auditstore.New(db).EnsureIndexes},
	}
	for _, e := range ensure {
		if err := e.fn(ctx); err != nil {
			logger.Error("index setup failed", zap.String("collection", e.name), zap.Error(err))
			return fmt.Errorf("ensure indexes for %s: %w", e.name, err)
		}
	}

	return nil
}
