package budget_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bkyoung/agent-reviewer/internal/usecase/budget"
)

// flatRate charges one dollar per thousand tokens.
func flatRate(tokens int) float64 {
	return float64(tokens) / 1000.0
}

func TestLedger_ReserveWithinLimit(t *testing.T) {
	ledger := budget.NewLedger(1.00, flatRate)

	assert.True(t, ledger.Reserve(500), "first call fits the budget")

	ledger.Record(500, 0.50)
	assert.True(t, ledger.Reserve(500), "second call exactly consumes the budget")

	ledger.Record(500, 0.50)
	assert.False(t, ledger.Reserve(1), "budget exhausted")
	assert.True(t, ledger.Exhausted())
}

func TestLedger_ReserveFailsClosed(t *testing.T) {
	ledger := budget.NewLedger(0.10, flatRate)

	assert.False(t, ledger.Reserve(500), "estimate above limit is refused before any spend")
	assert.Equal(t, 0.0, ledger.TotalCost(), "refused reservation charges nothing")
}

func TestLedger_ReserveHoldsEstimateUntilRecorded(t *testing.T) {
	ledger := budget.NewLedger(0.60, flatRate)

	// Two in-flight reservations whose combined estimates exceed the
	// limit: only the first may pass.
	assert.True(t, ledger.Reserve(500), "first reservation fits")
	assert.False(t, ledger.Reserve(500), "second reservation is refused while the first is outstanding")

	// The actual call came in cheaper than the estimate; recording it
	// releases the hold and the freed margin becomes reservable again.
	ledger.Record(100, 0.10)
	assert.True(t, ledger.Reserve(500))
}

func TestLedger_NoLimit(t *testing.T) {
	ledger := budget.NewLedger(0, flatRate)

	assert.True(t, ledger.Reserve(1_000_000))
	ledger.Record(1_000_000, 42.0)
	assert.True(t, ledger.Reserve(1_000_000))
	assert.False(t, ledger.Exhausted())
}

func TestLedger_RecordsFailedCallUsage(t *testing.T) {
	ledger := budget.NewLedger(10.0, flatRate)

	// Partial consumption on a failed call still costs money.
	ledger.Record(1200, 0.03)
	ledger.Record(800, 0.02)

	assert.Equal(t, 2000, ledger.TotalTokens())
	assert.InDelta(t, 0.05, ledger.TotalCost(), 1e-9)
	assert.InDelta(t, 9.95, ledger.Remaining(), 1e-9)
}

func TestLedger_ConcurrentRecord(t *testing.T) {
	ledger := budget.NewLedger(1000.0, flatRate)

	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if ledger.Reserve(100) {
					ledger.Record(100, 0.01)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker*100, ledger.TotalTokens(), "no lost updates")
	assert.InDelta(t, float64(workers*perWorker)*0.01, ledger.TotalCost(), 1e-6)
}

func TestLedger_CostMonotonic(t *testing.T) {
	ledger := budget.NewLedger(5.0, flatRate)

	last := 0.0
	for i := 0; i < 10; i++ {
		ledger.Record(10, 0.1)
		current := ledger.TotalCost()
		assert.GreaterOrEqual(t, current, last)
		last = current
	}
}
