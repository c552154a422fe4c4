package session

// State is the lifecycle position of a viewer session. The only legal
// forward order is New, OfferCreated, AwaitingAnswer, Connected; Closed and
// Failed are terminal from any state and no state is revisited.
type State int32

const (
	StateNew State = iota
	StateOfferCreated
	StateAwaitingAnswer
	StateConnected
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateOfferCreated:
		return "offer-created"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}
