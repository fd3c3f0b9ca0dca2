package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/posture/internal/twofactor"
)

func (a *App) initModules() {
	if !a.config.GetBool("modules.twofactor.enabled") {
		slog.Warn("module twofactor is disabled")
		return
	}

	dep := twofactor.Dependency{
		Driver:     a.profileDriver,
		DBConn:     a.dbConn,
		Goroutine:  a.goroutine,
		Router:     a.router,
		Messaging:  a.messaging,
		Instrument: a.ins,
		Encryptor:  a.encryptor,
		Clock:      a.clock,
		Totp:       a.totp,
		Validator:  a.validator,
	}
	if a.cacheConn != nil {
		dep.CacheConn = a.cacheConn
	}

	if err := twofactor.New(dep); err != nil {
		slog.Error("failed to init module twofactor", "error", err)
		os.Exit(1)
	}
}
