package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/posture/internal/pkg/goerror"
)

type StatusOutput struct {
	Enabled bool
}

// Status reports whether the caller has an active enrollment. A missing record
// reads as disabled.
func (s *Usecase) Status(ctx context.Context) (*StatusOutput, error) {
	ctx, span := s.startSpan(ctx, "Status")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}
	identity := clm.Identity()

	cred, err := s.repoDB.GetCredential(ctx, identity)
	if errors.Is(err, goerror.ErrNotFound) {
		return &StatusOutput{Enabled: false}, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get credential", "identity", identity, "error", err)
		return nil, goerror.NewStorage(err)
	}

	return &StatusOutput{Enabled: cred.Active()}, nil
}
