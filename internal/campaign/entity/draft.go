package entity

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSubjectMaxLength bounds a subject synthesized from raw output.
	DefaultSubjectMaxLength = 65
	// DefaultSubject is used when the generator returns nothing at all.
	DefaultSubject = "Your Product Update"

	// MaxSubjectLength and MaxBodyLength are in runes.
	MaxSubjectLength = 200
	MaxBodyLength    = 2500
	// MaxDraftBytes bounds subject and body as they are escaped inside the
	// session cookie, which must stay under 4KB together with the token.
	MaxDraftBytes = 2700
)

// Markers may be wrapped in markdown emphasis or headings.
var (
	subjectMarker = regexp.MustCompile(`(?im)^[ \t*#_]*subject[ \t*_]*:[\s*_]*(.+)$`)
	bodyMarker    = regexp.MustCompile(`(?is)\bbody[ \t*_]*:[\s*_]*(.*)\z`)
)

// CheckSize returns ErrDraftTooLarge when d cannot be kept in a session.
func (d Draft) CheckSize() error {
	if utf8.RuneCountInString(d.Subject) > MaxSubjectLength ||
		utf8.RuneCountInString(d.Body) > MaxBodyLength ||
		escapedLen(d.Subject)+escapedLen(d.Body) > MaxDraftBytes {
		return ErrDraftTooLarge
	}
	return nil
}

// escapedLen is the JSON string length, including the HTML escapes applied
// by json.Marshal.
func escapedLen(s string) int {
	b, err := json.Marshal(s)
	if err != nil {
		return len(s)
	}
	return len(b)
}

// ParseDraft turns generator output into a Draft. It looks for a
// "SUBJECT:" marker and a "BODY:" marker first; either value may start on
// the line after its marker, and BODY may follow the subject on one line.
// Without a subject, the first line cut to maxSubject runes is used, or
// DefaultSubject for empty output. Without a body, the whole output is the
// body.
func ParseDraft(raw string, maxSubject int) Draft {
	if maxSubject <= 0 {
		maxSubject = DefaultSubjectMaxLength
	}
	text := strings.TrimSpace(raw)

	var d Draft
	if m := subjectMarker.FindStringSubmatch(text); m != nil {
		subject := m[1]
		// "SUBJECT: x BODY: y" on one line.
		if loc := bodyMarker.FindStringIndex(subject); loc != nil {
			subject = subject[:loc[0]]
		}
		d.Subject = strings.Trim(subject, " \t\r*_#")
	}
	if m := bodyMarker.FindStringSubmatch(text); m != nil {
		d.Body = strings.TrimSpace(m[1])
	}

	if d.Subject == "" {
		d.Subject = DefaultSubject
		if text != "" {
			first, _, _ := strings.Cut(text, "\n")
			d.Subject = strings.TrimSpace(truncateRunes(strings.TrimSpace(first), maxSubject))
		}
	}
	if d.Body == "" {
		d.Body = text
	}

	return d
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
