package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/posture/internal/pkg/goerror"
)

// Disable clears the caller's secret and enabled flag together. Disabling an
// identity that never enrolled succeeds.
func (s *Usecase) Disable(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Disable")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return err
	}
	identity := clm.Identity()

	if err := s.repoDB.ClearCredential(ctx, identity); err != nil {
		slog.ErrorContext(ctx, "failed to repo clear credential", "identity", identity, "error", err)
		return goerror.NewStorage(err)
	}

	s.publish(ctx, identity, false)

	return nil
}
