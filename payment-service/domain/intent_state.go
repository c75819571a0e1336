package domain

type IntentState string

const (
	IntentStateCreated         IntentState = "CREATED"
	IntentStateAwaitingPayment IntentState = "AWAITING_PAYMENT"
	IntentStateVerifying       IntentState = "VERIFYING"
	IntentStateFinalized       IntentState = "FINALIZED"
	IntentStateFailed          IntentState = "FAILED"
	IntentStateExpired         IntentState = "EXPIRED"
)

// OpenIntentStates are the states counted by the one-open-intent-per-key rule.
var OpenIntentStates = []IntentState{
	IntentStateCreated,
	IntentStateAwaitingPayment,
	IntentStateVerifying,
}

var intentTransitions = map[IntentState][]IntentState{
	IntentStateCreated:         {IntentStateAwaitingPayment, IntentStateExpired},
	IntentStateAwaitingPayment: {IntentStateVerifying, IntentStateExpired},
	IntentStateVerifying:       {IntentStateFinalized, IntentStateFailed, IntentStateExpired},
}

// CanTransitionTo reports whether an intent may move from one state to the other.
// No transition skips a step and nothing leaves a terminal state.
func CanTransitionTo(from, to IntentState) bool {
	for _, next := range intentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s IntentState) IsTerminal() bool {
	return s == IntentStateFinalized || s == IntentStateFailed || s == IntentStateExpired
}

func (s IntentState) IsOpen() bool {
	return s == IntentStateCreated || s == IntentStateAwaitingPayment || s == IntentStateVerifying
}

func (s IntentState) Valid() bool {
	return s.IsOpen() || s.IsTerminal()
}

// String representation (for logging)
func (s IntentState) String() string {
	return string(s)
}
