package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/posture/internal/pkg/goerror"
)

type VerifyInput struct {
	Secret string `json:"secret" validate:"required,max=128"`
	Code   string `json:"verificationCode" validate:"totp"`
}

func errInvalidCode() error {
	return goerror.NewBusiness("Invalid verification code", goerror.CodeInvalidCode)
}

// Verify confirms enrollment. The code is checked against the secret the
// caller was given by Generate and, on a match, the sealed secret is stored
// with enabled set.
func (s *Usecase) Verify(ctx context.Context, in VerifyInput) error {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return err
	}
	identity := clm.Identity()

	in.Secret = normalizeSecret(in.Secret)
	in.Code = strings.TrimSpace(in.Code)
	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "malformed verify input", "identity", identity, "error", err)
		return errInvalidCode()
	}

	if !s.totp.Validate(in.Code, in.Secret, s.clock.Now()) {
		slog.WarnContext(ctx, "totp code does not match enrollment secret", "identity", identity)
		return errInvalidCode()
	}

	sealed, err := s.encryptor.Encrypt([]byte(in.Secret), s.scope(identity))
	if err != nil {
		slog.ErrorContext(ctx, "failed to encrypt totp secret", "identity", identity, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoDB.SaveCredential(ctx, identity, sealed); err != nil {
		slog.ErrorContext(ctx, "failed to repo save credential", "identity", identity, "error", err)
		return goerror.NewStorage(err)
	}

	s.publish(ctx, identity, true)

	return nil
}

// normalizeSecret strips the grouping spaces authenticator apps show and
// upper-cases the base32 alphabet.
func normalizeSecret(secret string) string {
	return strings.ToUpper(strings.Join(strings.Fields(secret), ""))
}
