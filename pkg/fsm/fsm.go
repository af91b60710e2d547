// Package fsm is a small builder-style finite state machine used for the
// Worker's {Paused, Running, Converged, Idle} state machine (§4.3) and any
// other actor that needs named states and guarded transitions.
//
// Fire runs synchronously: the actor driving this FSM (the Worker) is
// already single-threaded per §5 — owning state that
// needs no internal locking — so firing a transition on a goroutine behind
// a future would introduce a second mutator of that state for no reason.
package fsm

import (
	"context"
	"fmt"
)

// State identifies one state of the machine.
type State string

// Event identifies a trigger.
type Event string

// Action runs during a transition; an error aborts the transition.
type Action func(ctx context.Context, transition TransitionContext) error

// Guard decides whether a transition may proceed.
type Guard func(ctx context.Context, transition TransitionContext) bool

// TransitionType distinguishes a state-changing transition from one that
// runs actions without leaving the current state.
type TransitionType int

const (
	// TransitionExternal exits the source state and enters the target.
	TransitionExternal TransitionType = iota
	// TransitionInternal runs its actions but does not exit/enter any state.
	TransitionInternal
)

// TransitionContext describes the transition in progress to actions,
// guards, and OnTransition listeners.
type TransitionContext struct {
	FSM   *StateMachine
	Event Event
	From  State
	To    State
	Data  any
}

// StateMachine is a named collection of states, each with its own
// transition table, entry/exit actions, and global transition listeners.
// Not safe for concurrent use — callers own their own serialization, as
// every StateMachine user in this module already does.
type StateMachine struct {
	id           string
	currentState State
	states       map[State]*StateConfig
	onTransition []func(TransitionContext)
}

// StateConfig holds one state's entry/exit actions and transition table.
type StateConfig struct {
	state       State
	onEntry     []Action
	onExit      []Action
	transitions map[Event]*Transition
}

// Transition is one configured (event, fromState) -> toState rule.
type Transition struct {
	trigger Event
	from    State
	to      State
	guard   Guard
	actions []Action
	kind    TransitionType
}

// New creates a StateMachine starting in initialState.
func New(id string, initialState State) *StateMachine {
	return &StateMachine{
		id:           id,
		currentState: initialState,
		states:       make(map[State]*StateConfig),
	}
}

// CurrentState returns the state the machine is in right now.
func (sm *StateMachine) CurrentState() State {
	return sm.currentState
}

// Configure returns a builder for state's entry/exit actions and
// transitions, creating its StateConfig on first use.
func (sm *StateMachine) Configure(state State) *StateConfigBuilder {
	config, ok := sm.states[state]
	if !ok {
		config = &StateConfig{
			state:       state,
			transitions: make(map[Event]*Transition),
		}
		sm.states[state] = config
	}
	return &StateConfigBuilder{config: config}
}

// Fire evaluates event against the current state's transition table and,
// if permitted, applies it: exit actions, transition actions, state
// update, entry actions, then global listeners. Returns the resulting
// state (unchanged on error).
func (sm *StateMachine) Fire(ctx context.Context, event Event, data any) (State, error) {
	currentState := sm.currentState
	stateConfig, ok := sm.states[currentState]
	if !ok {
		return currentState, fmt.Errorf("no configuration for state %s", currentState)
	}

	transition, ok := stateConfig.transitions[event]
	if !ok {
		return currentState, fmt.Errorf("no transition defined for event %s in state %s", event, currentState)
	}

	tCtx := TransitionContext{FSM: sm, Event: event, From: currentState, To: transition.to, Data: data}

	if transition.guard != nil && !transition.guard(ctx, tCtx) {
		return currentState, fmt.Errorf("guard failed for transition %s -> %s on event %s", currentState, transition.to, event)
	}

	if transition.kind == TransitionExternal {
		for _, action := range stateConfig.onExit {
			if err := action(ctx, tCtx); err != nil {
				return currentState, fmt.Errorf("exit action failed: %w", err)
			}
		}
	}

	for _, action := range transition.actions {
		if err := action(ctx, tCtx); err != nil {
			return currentState, fmt.Errorf("transition action failed: %w", err)
		}
	}

	sm.currentState = transition.to

	if transition.kind == TransitionExternal {
		if newStateConfig, ok := sm.states[transition.to]; ok {
			for _, action := range newStateConfig.onEntry {
				if err := action(ctx, tCtx); err != nil {
					// state is already updated; entry failures don't roll it back
					return sm.currentState, fmt.Errorf("entry action failed: %w", err)
				}
			}
		}
	}

	for _, listener := range sm.onTransition {
		listener(tCtx)
	}

	return sm.currentState, nil
}

// CanFire reports whether event has a configured transition from the
// current state, without evaluating guards or running any action.
func (sm *StateMachine) CanFire(event Event) bool {
	stateConfig, ok := sm.states[sm.currentState]
	if !ok {
		return false
	}
	_, ok = stateConfig.transitions[event]
	return ok
}

// OnTransition registers a listener invoked after every successful Fire.
func (sm *StateMachine) OnTransition(listener func(TransitionContext)) {
	sm.onTransition = append(sm.onTransition, listener)
}
