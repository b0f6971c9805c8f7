// Package main seeds a demo tenant: it materializes the built-in catalogs
// as editable YAML files and creates a demo event thread so the manager
// UI has something to show on a fresh checkout. Idempotent.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"venuehq.io/banquet/internal/api/middleware"
	"venuehq.io/banquet/internal/catalog"
	"venuehq.io/banquet/internal/config"
	"venuehq.io/banquet/internal/domain"
	"venuehq.io/banquet/internal/engine"
	"venuehq.io/banquet/internal/pkg/logger"
	"venuehq.io/banquet/internal/store"
)

const demoTeam = "demo"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	if err := seedCatalogs(cfg.Catalog.Dir); err != nil {
		return fmt.Errorf("seed catalogs: %w", err)
	}

	st := store.New(store.Options{
		Dir:               cfg.Store.Dir,
		LockTimeout:       cfg.Store.LockTimeout,
		LockRetryInterval: cfg.Store.LockRetryInterval,
		StaleLockAge:      cfg.Store.StaleLockAge,
	})
	if err := seedDemoTenant(st); err != nil {
		return fmt.Errorf("seed tenant: %w", err)
	}

	if cfg.Auth.Enabled && cfg.Auth.Mode == "jwt" && cfg.Auth.APIKey != "" {
		token, expires, err := middleware.GenerateManagerToken(
			[]byte(cfg.Auth.APIKey), "mgr-demo", "Demo Manager", demoTeam, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("generate demo token: %w", err)
		}
		fmt.Printf("demo manager token (valid until %s):\n%s\n", expires.Format(time.RFC3339), token)
	}

	logger.Info("seeding completed")
	return nil
}

// seedCatalogs writes the built-in catalogs as YAML so operators can edit
// rooms and products without recompiling. Existing files are left alone.
func seedCatalogs(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	cat, err := catalog.Load(dir)
	if err != nil {
		return err
	}

	files := map[string]any{
		"rooms.yaml":    map[string]any{"rooms": cat.Rooms},
		"products.yaml": map[string]any{"products": cat.Products},
	}
	for name, doc := range files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			logger.Info("catalog file exists, skipping", zap.String("path", path))
			continue
		}
		raw, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return err
		}
		logger.Info("catalog file written", zap.String("path", path))
	}
	return nil
}

// seedDemoTenant creates one in-flight demo event unless the tenant file
// already has events.
func seedDemoTenant(st *store.Store) error {
	ctx := store.WithTeam(context.Background(), demoTeam)
	return st.WithLock(ctx, demoTeam, func(db *domain.Database) (bool, error) {
		if len(db.Events) > 0 {
			logger.Info("demo tenant already seeded", zap.Int("events", len(db.Events)))
			return false, nil
		}

		now := time.Now().UTC()
		date := now.AddDate(0, 1, 0)
		// Land on a weekday so the demo event doesn't collide with the
		// default site-visit slots.
		for date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}
		iso := date.Format("2006-01-02")

		client := db.UpsertClient("demo-client@example.com", "Demo Client")
		ev := &domain.EventRecord{
			EventID:     engine.NewID(),
			ThreadID:    engine.NewID(),
			ClientEmail: client.Email,
			CreatedAt:   now,
			Status:      domain.EventOpen,
			CurrentStep: domain.StepRoom,
			ThreadState: domain.ThreadAwaitingClientResponse,
			ChosenDate:  iso,
			RequestedWindow: &domain.RequestedWindow{
				DateISO: iso, Start: "18:00", End: "22:00",
			},
			DateConfirmed: true,
			Requirements:  domain.Requirements{Participants: 30},
		}
		ev.RequirementsHash = ev.Requirements.Hash()
		domain.BackfillEvent(ev)
		db.Events = append(db.Events, ev)
		client.EventIDs = append(client.EventIDs, ev.EventID)

		logger.Info("demo event created",
			zap.String("event_id", ev.EventID),
			zap.String("date", iso),
		)
		return true, nil
	})
}
