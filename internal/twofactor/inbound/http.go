package inbound

import (
	"context"

	"github.com/shandysiswandi/posture/internal/pkg/router"
	"github.com/shandysiswandi/posture/internal/twofactor/usecase"
)

type uc interface {
	Generate(ctx context.Context) (*usecase.GenerateOutput, error)
	Verify(ctx context.Context, in usecase.VerifyInput) error
	Validate(ctx context.Context, in usecase.ValidateInput) (*usecase.ValidateOutput, error)
	Disable(ctx context.Context) error
	Status(ctx context.Context) (*usecase.StatusOutput, error)
}

const (
	// PathTwoFactor is the action-dispatch endpoint.
	PathTwoFactor = "/api/v1/twofactor"
	// PathTwoFactorLegacy is kept for front ends built against the old function URL.
	PathTwoFactorLegacy = "/functions/v1/totp-auth"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST(PathTwoFactor, end.Dispatch)
	r.POST(PathTwoFactorLegacy, end.Dispatch)
}
