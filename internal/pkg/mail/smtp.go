package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/mailbite/internal/pkg/clock"
	"github.com/shandysiswandi/mailbite/internal/pkg/uid"
)

var (
	// ErrSMTPHostPortRequired is returned when Host/Port are missing.
	ErrSMTPHostPortRequired = errors.New("mail: smtp host and port are required")
	// ErrNoRecipients is returned when Message.To is empty.
	ErrNoRecipients = errors.New("mail: no recipients provided")
	// ErrNoSender is returned when both Message.From and the configured From are empty.
	ErrNoSender = errors.New("mail: no sender provided")
	// ErrAuth wraps a rejected login.
	ErrAuth = errors.New("mail: smtp authentication failed")
	// ErrSessionBroken is returned by Send once the connection can no longer be reused.
	ErrSessionBroken = errors.New("mail: smtp session is no longer usable")
	// ErrUnknownTLSMode is returned for an unsupported SMTPConfig.TLSMode.
	ErrUnknownTLSMode = errors.New("mail: unknown smtp tls mode")
)

// TLS modes for SMTPConfig.TLSMode.
const (
	TLSImplicit = "implicit"
	TLSStartTLS = "starttls"
	TLSNone     = "none"
)

const defaultSMTPTimeout = 30 * time.Second

// SMTPConfig configures the SMTP implementation.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the default sender when Message.From is empty.
	From string
	// TLSMode is one of TLSImplicit, TLSStartTLS or TLSNone. Empty picks
	// TLSImplicit for port 465 and TLSStartTLS otherwise.
	TLSMode string
	// Timeout bounds dialing and every read or write on the connection.
	Timeout time.Duration

	Clock clock.Clocker
	UUID  uid.StringID
}

// client is the subset of *smtp.Client a Session uses.
type client interface {
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Reset() error
	Quit() error
	Close() error
}

// SMTP is a Mail implementation backed by net/smtp.
type SMTP struct {
	addr    string
	host    string
	from    string
	tlsMode string
	timeout time.Duration
	auth    smtp.Auth
	clock   clock.Clocker
	uuid    uid.StringID

	dial func(ctx context.Context) (client, error)
}

// NewSMTP constructs an SMTP mail sender. Nothing is dialed until Open.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.TLSMode))
	switch mode {
	case "":
		mode = TLSStartTLS
		if cfg.Port == 465 {
			mode = TLSImplicit
		}
	case TLSImplicit, TLSStartTLS, TLSNone:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTLSMode, cfg.TLSMode)
	}

	s := &SMTP{
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:    cfg.Host,
		from:    cfg.From,
		tlsMode: mode,
		timeout: cfg.Timeout,
		clock:   cfg.Clock,
		uuid:    cfg.UUID,
	}
	if s.timeout <= 0 {
		s.timeout = defaultSMTPTimeout
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if cfg.Username != "" && cfg.Password != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	s.dial = s.dialServer

	return s, nil
}

// Open connects, negotiates TLS and logs in once.
func (s *SMTP) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	if s.auth != nil {
		if err := c.Auth(s.auth); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("%w: %w", ErrAuth, err)
		}
	}

	return &smtpSession{smtp: s, c: c}, nil
}

// Close implements io.Closer. Connections belong to sessions.
func (s *SMTP) Close() error {
	return nil
}

func (s *SMTP) dialServer(ctx context.Context) (client, error) {
	d := &net.Dialer{Timeout: s.timeout}
	tlsCfg := &tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}

	raw, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("mail: smtp dial %s: %w", s.addr, err)
	}

	// net/smtp only treats the link as encrypted when it is handed a *tls.Conn.
	var conn net.Conn = deadlineConn{Conn: raw, timeout: s.timeout}
	if s.tlsMode == TLSImplicit {
		tc := tls.Client(conn, tlsCfg)
		if err := tc.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("mail: smtp tls handshake: %w", err)
		}
		conn = tc
	}

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("mail: smtp greeting: %w", err)
	}

	if s.tlsMode == TLSStartTLS {
		if err := c.StartTLS(tlsCfg); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("mail: smtp starttls: %w", err)
		}
	}

	return c, nil
}

type smtpSession struct {
	smtp   *SMTP
	c      client
	broken bool
}

// Send runs one MAIL/RCPT/DATA transaction. On failure the transaction is
// reset so the next message can reuse the connection.
func (ss *smtpSession) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ss.broken {
		return ErrSessionBroken
	}
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	from := msg.From
	if from == "" {
		from = ss.smtp.from
	}
	if from == "" {
		return ErrNoSender
	}

	raw, err := ss.smtp.compose(from, msg)
	if err != nil {
		return err
	}

	if err := ss.transact(from, msg.To, raw); err != nil {
		if rerr := ss.c.Reset(); rerr != nil {
			ss.broken = true
		}
		return err
	}
	return nil
}

func (ss *smtpSession) transact(from string, to []string, raw []byte) error {
	if err := ss.c.Mail(from); err != nil {
		return fmt.Errorf("mail: smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := ss.c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("mail: smtp rcpt to: %w", err)
		}
	}

	w, err := ss.c.Data()
	if err != nil {
		return fmt.Errorf("mail: smtp data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("mail: smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: smtp end data: %w", err)
	}
	return nil
}

// Close says QUIT, falling back to dropping the connection.
func (ss *smtpSession) Close() error {
	if err := ss.c.Quit(); err != nil {
		return errors.Join(err, ss.c.Close())
	}
	return nil
}

var headerValue = strings.NewReplacer("\r", " ", "\n", " ")

// compose renders a plain-text UTF-8 message with quoted-printable body.
// Header values have line breaks flattened so edited subjects cannot
// inject headers.
func (s *SMTP) compose(from string, msg Message) ([]byte, error) {
	var sb strings.Builder

	writeHeader := func(k, v string) {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(headerValue.Replace(v))
		sb.WriteString("\r\n")
	}

	writeHeader("From", from)
	writeHeader("To", strings.Join(msg.To, ", "))
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader("Date", s.clock.Now().Format(time.RFC1123Z))
	if s.uuid != nil {
		writeHeader("Message-ID", "<"+s.uuid.Generate()+"@"+s.host+">")
	}
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", "text/plain; charset=UTF-8")
	writeHeader("Content-Transfer-Encoding", "quoted-printable")
	sb.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&sb)
	body := strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n")
	if _, err := qp.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("mail: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("mail: encode body: %w", err)
	}

	return []byte(sb.String()), nil
}

// deadlineConn pushes the deadline forward on every read and write so a
// stalled server cannot hang a long batch.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c deadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}
