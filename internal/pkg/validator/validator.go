package validator

// Validator validates structs using their `validate` tags.
type Validator interface {
	// Validate returns nil when data satisfies every rule, a
	// V10ValidationError for rule violations, or another error when data
	// cannot be validated at all.
	Validate(data any) error
}
