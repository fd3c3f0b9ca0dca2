package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/posture/internal/pkg/clock"
	"github.com/shandysiswandi/posture/internal/pkg/goerror"
	"github.com/shandysiswandi/posture/internal/pkg/goroutine"
	"github.com/shandysiswandi/posture/internal/pkg/instrument"
	"github.com/shandysiswandi/posture/internal/pkg/jwt"
	"github.com/shandysiswandi/posture/internal/pkg/mfa"
	"github.com/shandysiswandi/posture/internal/pkg/otp"
	"github.com/shandysiswandi/posture/internal/pkg/validator"
	"github.com/shandysiswandi/posture/internal/twofactor/entity"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// EnrollmentEvent is published when an identity turns TOTP on or off.
type EnrollmentEvent struct {
	Identity   string
	OccurredAt time.Time
}

type repoMessaging interface {
	PublishTOTPEnabled(ctx context.Context, msg EnrollmentEvent) error
	PublishTOTPDisabled(ctx context.Context, msg EnrollmentEvent) error
}

type repoDB interface {
	// GetCredential returns goerror.ErrNotFound when the identity has no record.
	GetCredential(ctx context.Context, identity string) (*entity.Credential, error)
	// SaveCredential stores the sealed secret and sets enabled in one write.
	SaveCredential(ctx context.Context, identity string, sealedSecret []byte) error
	// ClearCredential drops the secret and clears enabled in one write.
	ClearCredential(ctx context.Context, identity string) error
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	validator     validator.Validator
	encryptor     mfa.Encryptor
	totp          otp.OTP
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager

	validateResults metric.Int64Counter
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Encryptor     mfa.Encryptor
	Totp          otp.OTP
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	ins := dep.Instrument
	if ins == nil {
		ins = instrument.NewNoop()
	}

	counter, err := ins.Meter("twofactor.usecase").Int64Counter(
		"twofactor.validate.results",
		metric.WithDescription("Outcomes of TOTP validate calls"),
	)
	if err != nil {
		slog.Error("failed to create validate result counter", "error", err)
	}

	return &Usecase{
		repoDB:          dep.RepoDB,
		repoMessaging:   dep.RepoMessaging,
		validator:       dep.Validator,
		encryptor:       dep.Encryptor,
		totp:            dep.Totp,
		clock:           dep.Clock,
		ins:             ins,
		goroutine:       dep.Goroutine,
		validateResults: counter,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("twofactor.usecase").Start(ctx, name)
}

func (s *Usecase) authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil || clm.Identity() == "" {
		slog.WarnContext(ctx, "request has no authenticated identity")
		return nil, goerror.NewUnauthenticated()
	}
	return clm, nil
}

func (s *Usecase) scope(identity string) mfa.Scope {
	return mfa.Scope{Identity: identity, Purpose: mfa.PurposeOTPSeed}
}

// publish hands an enrollment event to the background manager. Failures are
// logged and never reach the caller.
func (s *Usecase) publish(ctx context.Context, identity string, enabled bool) {
	if s.repoMessaging == nil {
		return
	}

	name := "twofactor.totp.disabled"
	if enabled {
		name = "twofactor.totp.enabled"
	}

	ev := EnrollmentEvent{Identity: identity, OccurredAt: s.clock.Now()}
	task := func(ctx context.Context) error {
		if enabled {
			return s.repoMessaging.PublishTOTPEnabled(ctx, ev)
		}
		return s.repoMessaging.PublishTOTPDisabled(ctx, ev)
	}

	if s.goroutine == nil {
		if err := task(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to publish enrollment event", "event", name, "identity", identity, "error", err)
		}
		return
	}

	if !s.goroutine.Go(ctx, name, task) {
		slog.WarnContext(ctx, "enrollment event dropped", "event", name, "identity", identity)
	}
}
