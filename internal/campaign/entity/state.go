package entity

// State is the campaign lifecycle state.
type State int8

const (
	// StateEmpty has no draft, no token and no recipients.
	StateEmpty State = iota
	// StateDrafting has a draft, a token and a non-empty recipient set.
	StateDrafting
	// StateSending is where a send moves the campaign. The session is
	// cleared before dispatch, so it is never stored and reads as StateEmpty.
	StateSending
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateDrafting:
		return "DRAFTING"
	case StateSending:
		return "SENDING"
	default:
		return "UNKNOWN"
	}
}

// Action is one of the campaign actions below.
//
//sumtype:decl
type Action interface {
	isAction()
}

type (
	// ActionGenerate replaces any current campaign with a new one.
	ActionGenerate struct{}
	// ActionEdit overwrites the draft.
	ActionEdit struct{}
	// ActionPrune removes addresses from the recipient set.
	ActionPrune struct{}
	// ActionSend dispatches the campaign and ends it.
	ActionSend struct{}
	// ActionReset discards whatever is there.
	ActionReset struct{}
	// ActionPreview reads the campaign without changing it.
	ActionPreview struct{}
)

func (ActionGenerate) isAction() {}
func (ActionEdit) isAction()     {}
func (ActionPrune) isAction()    {}
func (ActionSend) isAction()     {}
func (ActionReset) isAction()    {}
func (ActionPreview) isAction()  {}

// Transition checks that a may run in from and returns the state it moves
// to on success. Prune reports StateDrafting; the caller drops to
// StateEmpty when nothing is left.
func Transition(from State, a Action) (State, error) {
	switch a.(type) {
	case ActionGenerate:
		return StateDrafting, nil
	case ActionEdit, ActionPrune:
		if from != StateDrafting {
			return from, ErrNoCampaign
		}
		return StateDrafting, nil
	case ActionSend:
		if from != StateDrafting {
			return from, ErrNoCampaign
		}
		return StateSending, nil
	case ActionReset:
		return StateEmpty, nil
	case ActionPreview:
		return from, nil
	default:
		return from, ErrNoCampaign
	}
}
