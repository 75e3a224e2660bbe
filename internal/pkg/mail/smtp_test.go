package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
)

type fakeClient struct {
	auths    int
	rcptErr  map[string]error
	resetErr error
	resets   int
	quits    int
	closes   int
	current  []string
	messages map[string]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{rcptErr: map[string]error{}, messages: map[string]string{}}
}

func (f *fakeClient) Auth(smtp.Auth) error { f.auths++; return nil }
func (f *fakeClient) Mail(string) error    { f.current = nil; return nil }
func (f *fakeClient) Rcpt(to string) error {
	if err := f.rcptErr[to]; err != nil {
		return err
	}
	f.current = append(f.current, to)
	return nil
}
func (f *fakeClient) Data() (io.WriteCloser, error) { return &fakeData{f: f}, nil }
func (f *fakeClient) Reset() error                  { f.resets++; return f.resetErr }
func (f *fakeClient) Quit() error                   { f.quits++; return nil }
func (f *fakeClient) Close() error                  { f.closes++; return nil }

type fakeData struct {
	bytes.Buffer
	f *fakeClient
}

func (d *fakeData) Close() error {
	for _, to := range d.f.current {
		d.f.messages[to] = d.String()
	}
	return nil
}

type failingAuthClient struct{ *fakeClient }

func (failingAuthClient) Auth(smtp.Auth) error { return errors.New("535 bad credentials") }

func newTestSMTP(t *testing.T, c client) *SMTP {
	t.Helper()

	s, err := NewSMTP(SMTPConfig{
		Host:     "smtp.example.com",
		Port:     465,
		Username: "sender@example.com",
		Password: "app-password",
		From:     "sender@example.com",
		Clock:    &clock.Fixed{At: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("NewSMTP() error = %v", err)
	}
	s.dial = func(context.Context) (client, error) { return c, nil }
	return s
}

func TestNewSMTP(t *testing.T) {
	t.Run("HostPortRequired", func(t *testing.T) {

		// Act
		_, err := NewSMTP(SMTPConfig{Host: "smtp.example.com"})

		// Assert
		if !errors.Is(err, ErrSMTPHostPortRequired) {
			t.Fatalf("NewSMTP() error = %v, want ErrSMTPHostPortRequired", err)
		}
	})

	t.Run("TLSModeDefaults", func(t *testing.T) {
		tests := map[int]string{465: TLSImplicit, 587: TLSStartTLS, 25: TLSStartTLS}
		for port, want := range tests {
			s, err := NewSMTP(SMTPConfig{Host: "h", Port: port})
			if err != nil {
				t.Fatalf("NewSMTP(%d) error = %v", port, err)
			}
			if s.tlsMode != want {
				t.Fatalf("port %d: tlsMode = %q, want %q", port, s.tlsMode, want)
			}
		}
	})

	t.Run("UnknownTLSMode", func(t *testing.T) {

		// Act
		_, err := NewSMTP(SMTPConfig{Host: "h", Port: 25, TLSMode: "ssl3"})

		// Assert
		if !errors.Is(err, ErrUnknownTLSMode) {
			t.Fatalf("NewSMTP() error = %v, want ErrUnknownTLSMode", err)
		}
	})
}

func TestSMTPSession(t *testing.T) {
	t.Run("AuthenticatesOncePerSession", func(t *testing.T) {

		// Arrange
		fc := newFakeClient()
		s := newTestSMTP(t, fc)

		// Act
		sess, err := s.Open(context.Background())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		for _, to := range []string{"a@x.com", "b@x.com", "c@x.com"} {
			if err := sess.Send(context.Background(), Message{To: []string{to}, Subject: "Hi", Body: "Hello"}); err != nil {
				t.Fatalf("Send(%s) error = %v", to, err)
			}
		}
		if err := sess.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		// Assert
		if fc.auths != 1 {
			t.Fatalf("auths = %d, want 1", fc.auths)
		}
		if len(fc.messages) != 3 || fc.quits != 1 {
			t.Fatalf("messages = %d, quits = %d", len(fc.messages), fc.quits)
		}
	})

	t.Run("AuthFailure", func(t *testing.T) {

		// Arrange
		fc := newFakeClient()
		s := newTestSMTP(t, failingAuthClient{fc})

		// Act
		_, err := s.Open(context.Background())

		// Assert
		if !errors.Is(err, ErrAuth) {
			t.Fatalf("Open() error = %v, want ErrAuth", err)
		}
		if fc.closes != 1 {
			t.Fatalf("closes = %d, want 1", fc.closes)
		}
	})

	t.Run("RejectedRecipientDoesNotEndSession", func(t *testing.T) {

		// Arrange
		fc := newFakeClient()
		fc.rcptErr["bad@x.com"] = errors.New("550 no such user")
		sess, _ := newTestSMTP(t, fc).Open(context.Background())

		// Act
		errBad := sess.Send(context.Background(), Message{To: []string{"bad@x.com"}, Subject: "S", Body: "B"})
		errGood := sess.Send(context.Background(), Message{To: []string{"good@x.com"}, Subject: "S", Body: "B"})

		// Assert
		if errBad == nil || !strings.Contains(errBad.Error(), "550") {
			t.Fatalf("Send(bad) error = %v", errBad)
		}
		if errGood != nil {
			t.Fatalf("Send(good) error = %v", errGood)
		}
		if fc.resets != 1 {
			t.Fatalf("resets = %d, want 1", fc.resets)
		}
		if _, ok := fc.messages["good@x.com"]; !ok {
			t.Fatalf("good@x.com not delivered")
		}
	})

	t.Run("FailedResetBreaksSession", func(t *testing.T) {

		// Arrange
		fc := newFakeClient()
		fc.rcptErr["bad@x.com"] = errors.New("550 no such user")
		fc.resetErr = io.EOF
		sess, _ := newTestSMTP(t, fc).Open(context.Background())
		_ = sess.Send(context.Background(), Message{To: []string{"bad@x.com"}})

		// Act
		err := sess.Send(context.Background(), Message{To: []string{"good@x.com"}})

		// Assert
		if !errors.Is(err, ErrSessionBroken) {
			t.Fatalf("Send() error = %v, want ErrSessionBroken", err)
		}
	})

	t.Run("MissingAddresses", func(t *testing.T) {

		// Arrange
		fc := newFakeClient()
		s := newTestSMTP(t, fc)
		s.from = ""
		sess, _ := s.Open(context.Background())

		// Act & Assert
		if err := sess.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipients) {
			t.Fatalf("Send() error = %v, want ErrNoRecipients", err)
		}
		if err := sess.Send(context.Background(), Message{To: []string{"a@x.com"}}); !errors.Is(err, ErrNoSender) {
			t.Fatalf("Send() error = %v, want ErrNoSender", err)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {

		// Arrange
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Act
		_, err := newTestSMTP(t, newFakeClient()).Open(ctx)

		// Assert
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Open() error = %v, want context.Canceled", err)
		}
	})
}

func TestCompose(t *testing.T) {
	t.Run("PlainText", func(t *testing.T) {

		// Arrange
		s := newTestSMTP(t, newFakeClient())

		// Act
		raw, err := s.compose("sender@example.com", Message{
			To:      []string{"ada@x.com"},
			Subject: "Spring Collection Is Here",
			Body:    "Hi there,\nThe café is open.",
		})

		// Assert
		if err != nil {
			t.Fatalf("compose() error = %v", err)
		}
		got := string(raw)
		for _, want := range []string{
			"From: sender@example.com\r\n",
			"To: ada@x.com\r\n",
			"Subject: Spring Collection Is Here\r\n",
			"Date: Mon, 02 Mar 2026 10:00:00 +0000\r\n",
			"Content-Type: text/plain; charset=UTF-8\r\n",
			"\r\n\r\nHi there,\r\nThe caf=C3=A9 is open.",
		} {
			if !strings.Contains(got, want) {
				t.Fatalf("compose() missing %q in:\n%s", want, got)
			}
		}
	})

	t.Run("NoHeaderInjection", func(t *testing.T) {

		// Arrange
		s := newTestSMTP(t, newFakeClient())

		// Act
		raw, _ := s.compose("sender@example.com\r\nBcc: evil@x.com", Message{
			To:      []string{"ada@x.com"},
			Subject: "Sale\r\nBcc: evil@x.com",
		})

		// Assert
		if strings.Contains(string(raw), "\r\nBcc:") {
			t.Fatalf("compose() allowed header injection:\n%s", raw)
		}
	})
}
