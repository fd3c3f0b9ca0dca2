package twofactor

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/posture/internal/pkg/clock"
	"github.com/shandysiswandi/posture/internal/pkg/goroutine"
	"github.com/shandysiswandi/posture/internal/pkg/instrument"
	"github.com/shandysiswandi/posture/internal/pkg/messaging"
	"github.com/shandysiswandi/posture/internal/pkg/mfa"
	"github.com/shandysiswandi/posture/internal/pkg/otp"
	"github.com/shandysiswandi/posture/internal/pkg/router"
	"github.com/shandysiswandi/posture/internal/pkg/validator"
	"github.com/shandysiswandi/posture/internal/twofactor/inbound"
	"github.com/shandysiswandi/posture/internal/twofactor/outbound/cache"
	"github.com/shandysiswandi/posture/internal/twofactor/outbound/db"
	"github.com/shandysiswandi/posture/internal/twofactor/outbound/mq"
	"github.com/shandysiswandi/posture/internal/twofactor/usecase"
)

const (
	// DriverPostgres keeps credential records in the postgres profiles table.
	DriverPostgres = "postgres"
	// DriverRedis keeps credential records as redis hashes.
	DriverRedis = "redis"
)

// ErrValidatorRequired is returned when New is called without a validator.
var ErrValidatorRequired = errors.New("twofactor: validator is required")

type Dependency struct {
	Driver     string                     `validate:"required,oneof=postgres redis"`
	DBConn     *pgxpool.Pool              `validate:"required_if=Driver postgres"`
	CacheConn  redis.UniversalClient      `validate:"required_if=Driver redis"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Encryptor  mfa.Encryptor              `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Totp       otp.OTP                    `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if dep.Validator == nil {
		return ErrValidatorRequired
	}
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	ucDep := usecase.Dependency{
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		Validator:     dep.Validator,
		Encryptor:     dep.Encryptor,
		Totp:          dep.Totp,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	}
	if dep.Driver == DriverRedis {
		ucDep.RepoDB = cache.NewCache(dep.CacheConn, dep.Instrument)
	} else {
		ucDep.RepoDB = db.NewDB(dep.DBConn, dep.Instrument)
	}

	inbound.RegisterHTTPEndpoint(dep.Router, usecase.New(ucDep))

	return nil
}
