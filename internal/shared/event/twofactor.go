package event

// TwoFactorEnabledDestination receives a message after an identity confirms
// TOTP enrollment.
const TwoFactorEnabledDestination string = "twofactor.totp.enabled"

// TwoFactorDisabledDestination receives a message after an identity turns
// TOTP off.
const TwoFactorDisabledDestination string = "twofactor.totp.disabled"

// TwoFactorMessage is the wire payload of both two-factor destinations.
type TwoFactorMessage struct {
	Identity   string `json:"identity"`
	Method     string `json:"method"`
	OccurredAt int64  `json:"occurred_at"`
}
