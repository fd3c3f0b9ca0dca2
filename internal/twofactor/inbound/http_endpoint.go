package inbound

import (
	"log/slog"

	"github.com/shandysiswandi/posture/internal/pkg/goerror"
	"github.com/shandysiswandi/posture/internal/pkg/router"
	"github.com/shandysiswandi/posture/internal/twofactor/entity"
	"github.com/shandysiswandi/posture/internal/twofactor/usecase"
)

// HTTPEndpoint exposes the two-factor actions over a single POST route.
type HTTPEndpoint struct {
	uc uc
}

// Dispatch decodes the body and routes it by its action field.
func (h *HTTPEndpoint) Dispatch(r *router.Request) (any, error) {
	var req ActionRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	switch action := entity.ParseAction(req.Action); action {
	case entity.ActionGenerate:
		return h.generate(r)
	case entity.ActionVerify:
		return h.verify(r, req)
	case entity.ActionValidate:
		return h.validate(r, req)
	case entity.ActionDisable:
		return h.disable(r)
	case entity.ActionStatus:
		return h.status(r)
	default:
		slog.WarnContext(r.Context(), "unknown two-factor action", "action", req.Action)
		return nil, goerror.NewBusiness("Invalid action", goerror.CodeInvalidAction)
	}
}

func (h *HTTPEndpoint) generate(r *router.Request) (any, error) {
	resp, err := h.uc.Generate(r.Context())
	if err != nil {
		return nil, err
	}

	return GenerateResponse{Secret: resp.Secret, ProvisioningURI: resp.ProvisioningURI}, nil
}

func (h *HTTPEndpoint) verify(r *router.Request, req ActionRequest) (any, error) {
	err := h.uc.Verify(r.Context(), usecase.VerifyInput{
		Secret: req.Secret,
		Code:   req.VerificationCode,
	})
	if err != nil {
		return nil, err
	}

	return SuccessResponse{Success: true}, nil
}

func (h *HTTPEndpoint) validate(r *router.Request, req ActionRequest) (any, error) {
	resp, err := h.uc.Validate(r.Context(), usecase.ValidateInput{Code: req.Code})
	if err != nil {
		return nil, err
	}

	return ValidateResponse{Valid: resp.Valid}, nil
}

func (h *HTTPEndpoint) disable(r *router.Request) (any, error) {
	if err := h.uc.Disable(r.Context()); err != nil {
		return nil, err
	}

	return SuccessResponse{Success: true}, nil
}

func (h *HTTPEndpoint) status(r *router.Request) (any, error) {
	resp, err := h.uc.Status(r.Context())
	if err != nil {
		return nil, err
	}

	return StatusResponse{Enabled: resp.Enabled}, nil
}
