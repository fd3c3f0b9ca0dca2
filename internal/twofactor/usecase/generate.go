package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/posture/internal/pkg/goerror"
)

type GenerateOutput struct {
	Secret          string
	ProvisioningURI string
}

// Generate creates fresh enrollment material for the caller. Nothing is
// stored until Verify succeeds.
func (s *Usecase) Generate(ctx context.Context) (*GenerateOutput, error) {
	ctx, span := s.startSpan(ctx, "Generate")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	key, err := s.totp.Generate(clm.AccountLabel())
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate totp secret", "identity", clm.Identity(), "error", err)
		return nil, goerror.NewServer(err)
	}

	return &GenerateOutput{Secret: key.Secret, ProvisioningURI: key.URI}, nil
}
