package entity

import (
	"errors"

	"github.com/samber/lo"
)

var (
	// ErrNoCampaign means the action needs a campaign in progress and there is none.
	ErrNoCampaign = errors.New("campaign: no campaign in progress")
	// ErrStaleSession means the session points at recipients that no longer exist.
	ErrStaleSession = errors.New("campaign: session recipients are gone")
	// ErrUpstreamGeneration means the draft generator failed or was unreachable.
	ErrUpstreamGeneration = errors.New("campaign: draft generation failed")
	// ErrDraftTooLarge means the draft does not fit in the session.
	ErrDraftTooLarge = errors.New("campaign: draft too large")
	// ErrStoreFull means the recipient store has no room for another campaign.
	ErrStoreFull = errors.New("campaign: recipient store is full")
)

// Draft is the subject/body pair to be sent.
type Draft struct {
	Subject string
	Body    string
}

// Session holds the small per-user fields kept with the caller's session
// mechanism. RecipientsToken is the only link to the recipient set.
type Session struct {
	Draft
	RecipientsToken string
	UserID          string
}

// State derives the lifecycle state from the stored fields. A session with
// a draft but no token is a leftover and counts as empty.
func (s Session) State() State {
	if s.RecipientsToken == "" {
		return StateEmpty
	}
	return StateDrafting
}

// Clear drops the draft and token. The owner stays.
func (s *Session) Clear() {
	*s = Session{UserID: s.UserID}
}

// Outcome is the delivery result for one recipient.
type Outcome struct {
	Recipient string
	OK        bool
	Error     string
}

// Tally counts successful and failed outcomes.
func Tally(outcomes []Outcome) (sent, failed int) {
	sent = lo.CountBy(outcomes, func(o Outcome) bool { return o.OK })
	return sent, len(outcomes) - sent
}
