package replacement

import "time"

// DefaultWindow is how long after completion a replacement may be requested.
const DefaultWindow = 7 * 24 * time.Hour

// Eligibility is the outcome of an eligibility check.
type Eligibility int

const (
	Eligible Eligibility = iota
	NotCompleted
	WindowExpired
	AlreadySubmitted
)

// String returns the string representation of the eligibility.
func (e Eligibility) String() string {
	switch e {
	case Eligible:
		return "eligible"
	case NotCompleted:
		return "not_completed"
	case WindowExpired:
		return "window_expired"
	case AlreadySubmitted:
		return "already_submitted"
	default:
		return "unknown"
	}
}

// Code maps a non-eligible outcome onto its error code.
func (e Eligibility) Code() ErrorCode {
	switch e {
	case NotCompleted:
		return CodeOrderNotCompleted
	case WindowExpired:
		return CodeWindowExpired
	case AlreadySubmitted:
		return CodeAlreadySubmitted
	default:
		return ""
	}
}

// SubmittedFlags records which scopes of an order already carry a request.
type SubmittedFlags struct {
	// Order is the order-wide flag set by any accepted request.
	Order  bool
	Scopes map[string]bool
}

// Has reports whether a request exists for the scope or for the order as a whole.
func (f SubmittedFlags) Has(scope Scope) bool {
	return f.Order || f.Scopes[scope.String()]
}

// Any reports whether any submitted-flag is present.
func (f SubmittedFlags) Any() bool {
	if f.Order {
		return true
	}
	for _, set := range f.Scopes {
		if set {
			return true
		}
	}
	return false
}

// Checker decides whether a replacement request may be submitted.
type Checker struct {
	Window time.Duration
}

// NewChecker creates a checker; a non-positive window falls back to DefaultWindow.
func NewChecker(window time.Duration) Checker {
	if window <= 0 {
		window = DefaultWindow
	}
	return Checker{Window: window}
}

// Check has no side effects. The window boundary is inclusive.
func (c Checker) Check(order *Order, scope Scope, flags SubmittedFlags, now time.Time) Eligibility {
	if order.Status != StatusCompleted {
		return NotCompleted
	}
	if order.CompletedAt == nil || now.Sub(*order.CompletedAt) > c.window() {
		return WindowExpired
	}
	if flags.Has(scope) {
		return AlreadySubmitted
	}
	return Eligible
}

// Deadline returns the last instant a request is accepted for the order.
func (c Checker) Deadline(order *Order) (time.Time, bool) {
	if order.CompletedAt == nil {
		return time.Time{}, false
	}
	return order.CompletedAt.Add(c.window()), true
}

func (c Checker) window() time.Duration {
	if c.Window <= 0 {
		return DefaultWindow
	}
	return c.Window
}
