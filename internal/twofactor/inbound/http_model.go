package inbound

// ActionRequest is the union of every action's body. Each action reads only
// the fields it needs.
type ActionRequest struct {
	Action           string `json:"action"`
	Secret           string `json:"secret,omitempty"`
	VerificationCode string `json:"verificationCode,omitempty"`
	Code             string `json:"code,omitempty"`
}

type GenerateResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioningUri"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ValidateResponse struct {
	Valid bool `json:"valid"`
}

type StatusResponse struct {
	Enabled bool `json:"enabled"`
}
