package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/posture/internal/pkg/clock"
	"github.com/shandysiswandi/posture/internal/pkg/config"
	"github.com/shandysiswandi/posture/internal/pkg/goroutine"
	"github.com/shandysiswandi/posture/internal/pkg/instrument"
	"github.com/shandysiswandi/posture/internal/pkg/jwt"
	"github.com/shandysiswandi/posture/internal/pkg/messaging"
	"github.com/shandysiswandi/posture/internal/pkg/mfa"
	"github.com/shandysiswandi/posture/internal/pkg/otp"
	"github.com/shandysiswandi/posture/internal/pkg/router"
	"github.com/shandysiswandi/posture/internal/pkg/uid"
	"github.com/shandysiswandi/posture/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uuid      uid.StringID
	totp      otp.OTP
	jwt       jwt.JWT
	encryptor mfa.Encryptor

	// resources
	profileDriver string
	dbConn        *pgxpool.Pool
	cacheConn     *redis.Client
	messaging     messaging.Publisher

	// server
	router     *router.Router
	httpServer *http.Server

	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initProfileStore()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
