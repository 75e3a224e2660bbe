package mail

import (
	"context"
	"io"
)

// Message is a single outgoing email.
type Message struct {
	// From overrides the configured sender when set.
	From    string
	To      []string
	Subject string
	Body    string
}

// Mail opens authenticated sessions against a mail provider.
type Mail interface {
	io.Closer
	Open(ctx context.Context) (Session, error)
}

// Session is one authenticated connection. A failed Send does not end the
// session; later sends may still succeed. Sessions are not safe for
// concurrent use.
type Session interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}
