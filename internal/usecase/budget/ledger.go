// Package budget provides the per-review cost ledger and budget gate.
package budget

import "sync"

// CostModel converts a token count into an estimated cost in USD.
// The gateway's pricing table supplies the real rates; tests can inject
// a flat rate.
type CostModel func(tokens int) float64

// Ledger tracks token and dollar spend for a single review and gates
// further LLM calls once the configured limit would be exceeded.
// All methods are safe for concurrent use; agents running in parallel
// share one Ledger per review, never a process-wide instance.
type Ledger struct {
	mu        sync.Mutex
	limitUSD  float64
	costModel CostModel
	tokens    int
	costUSD   float64
	heldUSD   float64
	holds     []float64
}

// NewLedger creates a ledger with the given spend limit in USD.
// A limit of zero or below means no limit is enforced.
func NewLedger(limitUSD float64, model CostModel) *Ledger {
	if model == nil {
		model = func(int) float64 { return 0 }
	}
	return &Ledger{limitUSD: limitUSD, costModel: model}
}

// Reserve checks whether a call estimated at the given token count fits
// inside the remaining budget, and if so holds that estimate until the
// matching Record releases it. The hold keeps concurrent reservations
// from collectively overshooting the limit. Reserve fails closed:
// callers must treat a false result as "skip this call", not as an
// error, and every successful Reserve must be followed by exactly one
// Record.
func (l *Ledger) Reserve(estimatedTokens int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limitUSD <= 0 {
		return true
	}
	projected := l.costModel(estimatedTokens)
	if l.costUSD+l.heldUSD+projected > l.limitUSD {
		return false
	}
	l.holds = append(l.holds, projected)
	l.heldUSD += projected
	return true
}

// Record adds actual usage to the ledger and releases the oldest
// outstanding hold. Callers record after every attempted call, success
// or failure, since partial consumption on a failed call still costs
// money.
func (l *Ledger) Record(tokens int, costUSD float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens += tokens
	l.costUSD += costUSD
	if len(l.holds) > 0 {
		l.heldUSD -= l.holds[0]
		l.holds = l.holds[1:]
	}
}

// Remaining returns the budget left in USD, or zero once exhausted.
// With no limit configured it returns zero; use Exhausted to distinguish.
func (l *Ledger) Remaining() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limitUSD <= 0 {
		return 0
	}
	if l.costUSD >= l.limitUSD {
		return 0
	}
	return l.limitUSD - l.costUSD
}

// Exhausted reports whether the recorded spend has reached the limit.
func (l *Ledger) Exhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limitUSD > 0 && l.costUSD >= l.limitUSD
}

// TotalTokens returns the tokens recorded so far.
func (l *Ledger) TotalTokens() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens
}

// TotalCost returns the spend recorded so far in USD.
func (l *Ledger) TotalCost() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.costUSD
}
