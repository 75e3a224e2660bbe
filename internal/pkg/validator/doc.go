// Package validator validates request and domain structs.
//
// Use cases depend on the Validator interface; V10Validator backs it with
// go-playground/validator v10, English messages and a "notblank" rule for
// free-text fields.
package validator
