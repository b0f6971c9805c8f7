// Package app is the composition root: bootstrap wires config, store,
// catalogs, adapter, pools and the HTTP surface; nothing here contains
// business logic.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"venuehq.io/banquet/internal/api/handlers"
	"venuehq.io/banquet/internal/calendar"
	"venuehq.io/banquet/internal/catalog"
	"venuehq.io/banquet/internal/config"
	"venuehq.io/banquet/internal/engine"
	"venuehq.io/banquet/internal/llm"
	"venuehq.io/banquet/internal/pkg/worker"
	"venuehq.io/banquet/internal/store"
)

// Application holds the composed dependencies.
type Application struct {
	Config *config.Config
	Router *gin.Engine
	Engine *engine.Engine
	Pools  *worker.Pools
}

// Bootstrap initializes all dependencies with manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	cat, err := catalog.Load(cfg.Catalog.Dir)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}

	st := store.New(store.Options{
		Dir:               cfg.Store.Dir,
		LockTimeout:       cfg.Store.LockTimeout,
		LockRetryInterval: cfg.Store.LockRetryInterval,
		StaleLockAge:      cfg.Store.StaleLockAge,
	})

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize:  cfg.Worker.GeneralPoolSize,
		ExternalPoolSize: cfg.Worker.ExternalPoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init worker pools: %w", err)
	}

	adapter := &llm.RuleAdapter{RevisionLexicon: cfg.Workflow.RevisionLexicon}
	eng := engine.New(cfg, st, cat, adapter, calendar.LogClient{}, pools)
	server := handlers.NewServer(cfg, eng, cat)

	return &Application{
		Config: cfg,
		Router: newRouter(cfg, server),
		Engine: eng,
		Pools:  pools,
	}, nil
}
