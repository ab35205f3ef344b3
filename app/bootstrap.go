// app/bootstrap.go
package app

import (
	"context"

	"tool_custody/config"
	"tool_custody/custody"
)

// SeedIfEmpty inserts the initial roster and tools into an empty store.
func SeedIfEmpty(ctx context.Context, cfg config.Config, engine *custody.Engine) {
	if !cfg.SeedOnEmpty {
		return
	}
	seeded, err := engine.Seed(ctx)
	if err != nil {
		config.Error("seed failed: %v", err)
		return
	}
	if seeded {
		config.Info("[BOOTSTRAP] empty store seeded with the initial trainers and tools")
	}
	if len(cfg.AdminPasscodes) == 0 {
		config.Warning("[BOOTSTRAP] ADMIN_PASSCODES is empty; admin login is disabled")
	}
}
