package domain

import "strings"

// GatePhase is the confirmation gate lifecycle phase.
type GatePhase string

const (
	// GatePhaseIdle means no selection change is staged.
	GatePhaseIdle GatePhase = "idle"
	// GatePhasePending means one selection change awaits confirmation.
	GatePhasePending GatePhase = "pending"
)

// ActionKind is the selection change staged by a toggle request.
type ActionKind string

const (
	// ActionAdd includes a deck in today's session.
	ActionAdd ActionKind = "add"
	// ActionRemove excludes a deck from today's session.
	ActionRemove ActionKind = "remove"
)

// PendingAction is the one selection change awaiting confirmation.
type PendingAction struct {
	DeckID string
	Kind   ActionKind
}

// GateState is the replayable confirmation gate state.
type GateState struct {
	Phase GatePhase
	// Pending is zero unless Phase is GatePhasePending.
	Pending PendingAction
}

// GateEventType identifies one gate input.
type GateEventType string

const (
	// GateEventRequestToggle stages an add or remove for a deck.
	GateEventRequestToggle GateEventType = "request_toggle"
	// GateEventConfirm applies the staged action.
	GateEventConfirm GateEventType = "confirm"
	// GateEventCancel drops the staged action.
	GateEventCancel GateEventType = "cancel"
	// GateEventDiscard drops the staged action if it targets DeckID.
	GateEventDiscard GateEventType = "discard"
)

// GateEvent is one input to the gate decider.
type GateEvent struct {
	Type   GateEventType
	DeckID string
	// Selected is the deck's membership observed when the toggle was requested.
	Selected bool
}

// GateOutcome names the transition a decision performed.
type GateOutcome string

// Gate outcomes reported by DecideGate.
const (
	OutcomeNone      GateOutcome = ""
	OutcomeStaged    GateOutcome = "staged"
	OutcomeConfirmed GateOutcome = "confirmed"
	OutcomeCancelled GateOutcome = "cancelled"
	OutcomeDiscarded GateOutcome = "discarded"
)

// GateEffectType identifies one side effect requested by the decider.
type GateEffectType string

const (
	// EffectApply mutates the selection store with Action.
	EffectApply GateEffectType = "apply"
	// EffectNotify emits Notice to the user.
	EffectNotify GateEffectType = "notify"
)

// GateEffect is one side effect to run, in order, after a decision.
type GateEffect struct {
	Type   GateEffectType
	Action PendingAction
	Notice Notice
}

// GateDecision is the result of one gate transition.
type GateDecision struct {
	State   GateState
	Outcome GateOutcome
	// Action is the staged, applied or dropped action, if any.
	Action  PendingAction
	Effects []GateEffect
	Err     error
}

// DecideGate returns the next gate state and the effects to run for evt.
//
// It never mutates anything itself; Gate executes the effects. Requests while
// pending replace the staged action. Confirm and cancel outside pending are
// rejected without a state change.
func DecideGate(state GateState, evt GateEvent) GateDecision {
	if state.Phase == "" {
		state.Phase = GatePhaseIdle
	}
	switch evt.Type {
	case GateEventRequestToggle:
		deckID := strings.TrimSpace(evt.DeckID)
		if deckID == "" {
			return GateDecision{State: state, Err: ErrDeckIDRequired}
		}
		kind := ActionAdd
		if evt.Selected {
			kind = ActionRemove
		}
		action := PendingAction{DeckID: deckID, Kind: kind}
		return GateDecision{
			State:   GateState{Phase: GatePhasePending, Pending: action},
			Outcome: OutcomeStaged,
			Action:  action,
		}
	case GateEventConfirm:
		if state.Phase != GatePhasePending {
			return GateDecision{State: state, Err: ErrNoPendingAction}
		}
		action := state.Pending
		topic := TopicDeckAdded
		if action.Kind == ActionRemove {
			topic = TopicDeckRemoved
		}
		return GateDecision{
			State:   GateState{Phase: GatePhaseIdle},
			Outcome: OutcomeConfirmed,
			Action:  action,
			Effects: []GateEffect{
				{Type: EffectApply, Action: action},
				{Type: EffectNotify, Notice: Notice{Level: NoticeSuccess, Topic: topic, DeckID: action.DeckID}},
			},
		}
	case GateEventCancel:
		if state.Phase != GatePhasePending {
			return GateDecision{State: state, Err: ErrNoPendingAction}
		}
		return GateDecision{
			State:   GateState{Phase: GatePhaseIdle},
			Outcome: OutcomeCancelled,
			Action:  state.Pending,
		}
	case GateEventDiscard:
		if state.Phase != GatePhasePending || state.Pending.DeckID != strings.TrimSpace(evt.DeckID) {
			return GateDecision{State: state}
		}
		return GateDecision{
			State:   GateState{Phase: GatePhaseIdle},
			Outcome: OutcomeDiscarded,
			Action:  state.Pending,
		}
	default:
		return GateDecision{State: state}
	}
}

// Gate drives DecideGate against a selection store.
//
// It is not safe for concurrent use; Session guards it.
type Gate struct {
	state     GateState
	selection *SelectionStore
	notifier  Notifier
}

// NewGate builds an idle gate over selection.
func NewGate(selection *SelectionStore, notifier Notifier) *Gate {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Gate{
		state:     GateState{Phase: GatePhaseIdle},
		selection: selection,
		notifier:  notifier,
	}
}

// State returns the current gate state.
func (g *Gate) State() GateState {
	return g.state
}

// RequestToggle stages remove when deckID is selected and add otherwise.
func (g *Gate) RequestToggle(deckID string) (PendingAction, error) {
	deckID = strings.TrimSpace(deckID)
	decision := g.run(GateEvent{
		Type:     GateEventRequestToggle,
		DeckID:   deckID,
		Selected: g.selection.Has(deckID),
	})
	return decision.Action, decision.Err
}

// Confirm applies the staged action and returns it.
func (g *Gate) Confirm() (PendingAction, error) {
	decision := g.run(GateEvent{Type: GateEventConfirm})
	return decision.Action, decision.Err
}

// Cancel drops the staged action without touching the selection.
func (g *Gate) Cancel() (PendingAction, error) {
	decision := g.run(GateEvent{Type: GateEventCancel})
	return decision.Action, decision.Err
}

// Discard drops the staged action if it targets deckID.
func (g *Gate) Discard(deckID string) bool {
	return g.run(GateEvent{Type: GateEventDiscard, DeckID: deckID}).Outcome == OutcomeDiscarded
}

func (g *Gate) run(evt GateEvent) GateDecision {
	decision := DecideGate(g.state, evt)
	if decision.Err != nil {
		return decision
	}
	g.state = decision.State
	for _, effect := range decision.Effects {
		switch effect.Type {
		case EffectApply:
			switch effect.Action.Kind {
			case ActionAdd:
				g.selection.Add(effect.Action.DeckID)
			case ActionRemove:
				g.selection.Remove(effect.Action.DeckID)
			}
		case EffectNotify:
			g.notifier.Notify(effect.Notice)
		}
	}
	return decision
}
