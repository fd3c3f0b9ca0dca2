package entity

import "strings"

// Action names one operation of the two-factor endpoint.
type Action string

const (
	ActionUnknown  Action = ""
	ActionGenerate Action = "generate"
	ActionVerify   Action = "verify"
	ActionValidate Action = "validate"
	ActionDisable  Action = "disable"
	ActionStatus   Action = "status"
)

// ParseAction maps a wire action name to an Action. Matching is exact apart
// from surrounding whitespace.
func ParseAction(s string) Action {
	switch a := Action(strings.TrimSpace(s)); a {
	case ActionGenerate, ActionVerify, ActionValidate, ActionDisable, ActionStatus:
		return a
	default:
		return ActionUnknown
	}
}

func (a Action) String() string {
	return string(a)
}
