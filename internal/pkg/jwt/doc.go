// Package jwt verifies identity tokens issued by the external identity
// provider and carries the verified claims through request contexts.
//
// The service never authenticates users itself. Claims.UserID is an opaque
// identifier used only to bind a campaign session to its owner.
package jwt
