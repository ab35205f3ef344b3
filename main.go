package main

import (
	"context"
	"log"
	"time"

	"tool_custody/app"
	"tool_custody/config"
	"tool_custody/routes"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	closer, err := config.SetupLogger(cfg.LogDir)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer closer.Close()

	application := app.MustNew(cfg)
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	app.SeedIfEmpty(ctx, cfg, application.Engine)
	cancel()

	r := application.Router
	routes.RegisterRoutes(r, application)

	config.Info("listening on :%s (store=%s)", cfg.Port, cfg.StoreDriver)
	if err := r.Run(":" + cfg.Port); err != nil {
		config.Error("server stopped: %v", err)
	}
}
