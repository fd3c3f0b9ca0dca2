package validator

// Validator validates tagged structs.
type Validator interface {
	Validate(data any) error
}
