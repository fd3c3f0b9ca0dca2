package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/posture/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type ValidateInput struct {
	Code string
}

type ValidateOutput struct {
	Valid bool
}

// Validate checks a sign-in code against the stored secret. It never changes
// the record, so repeated failures do not lock the identity out.
func (s *Usecase) Validate(ctx context.Context, in ValidateInput) (*ValidateOutput, error) {
	ctx, span := s.startSpan(ctx, "Validate")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}
	identity := clm.Identity()

	cred, err := s.repoDB.GetCredential(ctx, identity)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get credential", "identity", identity, "error", err)
		s.countValidate(ctx, "profile_unavailable")
		return nil, goerror.NewProfileUnavailable(err)
	}

	if !cred.Active() {
		slog.WarnContext(ctx, "validate without active enrollment", "identity", identity)
		s.countValidate(ctx, "not_enabled")
		return nil, goerror.NewBusiness("TOTP is not enabled", goerror.CodeTOTPNotEnabled)
	}

	secret, err := s.encryptor.Decrypt(cred.Secret, s.scope(identity))
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt totp secret", "identity", identity, "error", err)
		s.countValidate(ctx, "profile_unavailable")
		return nil, goerror.NewProfileUnavailable(err)
	}

	valid := s.totp.Validate(strings.TrimSpace(in.Code), string(secret), s.clock.Now())
	if valid {
		s.countValidate(ctx, "valid")
	} else {
		slog.WarnContext(ctx, "totp code rejected", "identity", identity)
		s.countValidate(ctx, "invalid")
	}

	return &ValidateOutput{Valid: valid}, nil
}

func (s *Usecase) countValidate(ctx context.Context, outcome string) {
	if s.validateResults == nil {
		return
	}
	s.validateResults.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
