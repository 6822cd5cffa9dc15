package vm

import "errors"

// TurnBudget is the maximum number of instructions a single turn may execute.
const TurnBudget = 1000

// ErrBudgetExhausted is returned when a turn runs out of instruction steps.
var ErrBudgetExhausted = errors.New("instruction budget exhausted")

// StepMeter counts instruction steps against a fixed limit.
type StepMeter struct {
	limit    int
	consumed int
}

// NewStepMeter creates a meter with the given limit. A non-positive limit
// falls back to TurnBudget.
func NewStepMeter(limit int) *StepMeter {
	if limit <= 0 {
		limit = TurnBudget
	}
	return &StepMeter{limit: limit}
}

// Consume takes one step. It fails without consuming once the limit is reached.
func (m *StepMeter) Consume() error {
	if m.consumed >= m.limit {
		return ErrBudgetExhausted
	}
	m.consumed++
	return nil
}

// Consumed returns the number of steps taken.
func (m *StepMeter) Consumed() int { return m.consumed }

// Remaining returns the number of steps left.
func (m *StepMeter) Remaining() int { return m.limit - m.consumed }

// Limit returns the step limit.
func (m *StepMeter) Limit() int { return m.limit }

// IsExhausted reports whether no steps remain.
func (m *StepMeter) IsExhausted() bool { return m.consumed >= m.limit }

// Reset restores the meter to its initial state.
func (m *StepMeter) Reset() { m.consumed = 0 }
