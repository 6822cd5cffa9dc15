// Package vm interprets species programs one turn at a time.
//
// A turn starts at the critter's cursor and runs until one of four things
// happens: an action instruction executes, the cursor leaves the program, the
// step budget is spent, or an operand cannot be resolved. Register writes made
// before the turn ends are kept in every case.
//
// The interpreter never touches the grid directly. Actions and sensing go
// through a Host supplied by the caller.
package vm

import (
	"errors"
	"fmt"
	"math"

	"github.com/fortiblox/critters/internal/types"
	"github.com/fortiblox/critters/pkg/species"
)

// Errors.
var (
	ErrOperandMismatch = errors.New("operand kind mismatch")
	ErrRegisterRange   = errors.New("register index out of range")
	ErrInvalidOpcode   = errors.New("invalid opcode")
	ErrInfectTarget    = errors.New("infect target outside program")
	ErrPanic           = errors.New("interpreter panic")
)

// Host performs the side effects of a turn on behalf of the interpreter.
type Host interface {
	Hop()
	TurnLeft()
	TurnRight()
	Eat()
	// Infect converts the enemy ahead, if any, and points its cursor at line.
	Infect(line int)
	Sense(b types.Bearing) types.Content
	RollRandom() bool
}

// State is the per-critter machine state the interpreter reads and writes.
type State struct {
	Registers [species.NumRegisters]int64
	// Cursor is the next line to execute, 1-indexed. Zero means "not started"
	// and is treated as line 1.
	Cursor int
}

// Outcome says why a turn ended.
type Outcome uint8

const (
	OutcomeAction Outcome = iota + 1
	OutcomeFellOff
	OutcomeBudgetExhausted
	OutcomeFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAction:
		return "action"
	case OutcomeFellOff:
		return "fell-off"
	case OutcomeBudgetExhausted:
		return "budget-exhausted"
	case OutcomeFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Result summarizes a finished turn.
type Result struct {
	Outcome Outcome
	// Steps is the number of instructions executed, including the action.
	Steps int
	// Action is the action opcode that ended the turn, if any.
	Action species.Opcode
	// Line is the line that ended the turn: the action or faulting line, or
	// the out-of-range cursor for fell-off turns.
	Line int
}

// Fault is a run-time decode failure. The turn ends without an action.
type Fault struct {
	Line int
	Op   species.Opcode
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("line %d (%s): %v", f.Line, f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Execute runs one turn with the standard TurnBudget.
func Execute(program species.Program, st *State, host Host) (Result, error) {
	return Run(program, st, host, NewStepMeter(TurnBudget))
}

// Run executes one turn against meter. A *Fault is returned for run-time
// failures; the Result is still populated with Outcome set to OutcomeFault.
func Run(program species.Program, st *State, host Host, meter *StepMeter) (res Result, err error) {
	if st.Cursor == 0 {
		st.Cursor = 1
	}

	defer func() {
		if rec := recover(); rec != nil {
			res = Result{Outcome: OutcomeFault, Steps: meter.Consumed(), Line: st.Cursor}
			err = &Fault{Line: st.Cursor, Err: fmt.Errorf("%w: %v", ErrPanic, rec)}
		}
	}()

	for {
		ins, ok := program.At(st.Cursor)
		if !ok {
			return Result{Outcome: OutcomeFellOff, Steps: meter.Consumed(), Line: st.Cursor}, nil
		}
		if meter.Consume() != nil {
			return Result{Outcome: OutcomeBudgetExhausted, Steps: meter.Consumed(), Line: st.Cursor}, nil
		}

		line := st.Cursor
		next, err := step(program, ins, st, host)
		if err != nil {
			return Result{Outcome: OutcomeFault, Steps: meter.Consumed(), Line: line},
				&Fault{Line: line, Op: ins.Op, Err: err}
		}
		st.Cursor = next

		if ins.Op.IsAction() {
			return Result{Outcome: OutcomeAction, Steps: meter.Consumed(), Action: ins.Op, Line: line}, nil
		}
	}
}

// step executes ins at the current cursor and returns the next cursor.
func step(program species.Program, ins species.Instruction, st *State, host Host) (int, error) {
	line := st.Cursor
	fall := line + 1
	r := &st.Registers

	switch ins.Op {
	case species.OpHop:
		host.Hop()
		return fall, nil
	case species.OpLeft:
		host.TurnLeft()
		return fall, nil
	case species.OpRight:
		host.TurnRight()
		return fall, nil
	case species.OpEat:
		host.Eat()
		return fall, nil
	case species.OpInfect:
		target := 0
		if len(ins.Args) > 0 {
			t, err := jumpTarget(ins, 0, st)
			if err != nil {
				return 0, err
			}
			target = t
		}
		if target < 0 || target > program.Len() {
			return 0, fmt.Errorf("%w: %d", ErrInfectTarget, target)
		}
		host.Infect(target)
		return fall, nil

	case species.OpGo:
		return jumpTarget(ins, 0, st)

	case species.OpIfRandom:
		if _, err := operand(ins, 0, species.KindTarget); err != nil {
			return 0, err
		}
		if host.RollRandom() {
			return jumpTarget(ins, 0, st)
		}
		return fall, nil

	case species.OpIfEmpty, species.OpIfAlly, species.OpIfEnemy, species.OpIfWall:
		b, err := operand(ins, 0, species.KindBearing)
		if err != nil {
			return 0, err
		}
		if _, err := operand(ins, 1, species.KindTarget); err != nil {
			return 0, err
		}
		if host.Sense(b.Bearing) == senseWant[ins.Op] {
			return jumpTarget(ins, 1, st)
		}
		return fall, nil

	case species.OpIfLt, species.OpIfEq, species.OpIfGt:
		a, err := register(ins, 0)
		if err != nil {
			return 0, err
		}
		b, err := register(ins, 1)
		if err != nil {
			return 0, err
		}
		if _, err := operand(ins, 2, species.KindTarget); err != nil {
			return 0, err
		}
		var taken bool
		switch ins.Op {
		case species.OpIfLt:
			taken = r[a] < r[b]
		case species.OpIfEq:
			taken = r[a] == r[b]
		default:
			taken = r[a] > r[b]
		}
		if taken {
			return jumpTarget(ins, 2, st)
		}
		return fall, nil

	case species.OpWrite:
		dst, err := register(ins, 0)
		if err != nil {
			return 0, err
		}
		lit, err := operand(ins, 1, species.KindLiteral)
		if err != nil {
			return 0, err
		}
		r[dst] = lit.Literal
		return fall, nil

	case species.OpAdd, species.OpSub:
		dst, err := register(ins, 0)
		if err != nil {
			return 0, err
		}
		src, err := register(ins, 1)
		if err != nil {
			return 0, err
		}
		if ins.Op == species.OpAdd {
			r[dst] += r[src]
		} else {
			r[dst] -= r[src]
		}
		return fall, nil

	case species.OpInc, species.OpDec:
		dst, err := register(ins, 0)
		if err != nil {
			return 0, err
		}
		if ins.Op == species.OpInc {
			r[dst]++
		} else {
			r[dst]--
		}
		return fall, nil
	}

	return 0, fmt.Errorf("%w: %d", ErrInvalidOpcode, ins.Op)
}

var senseWant = map[species.Opcode]types.Content{
	species.OpIfEmpty: types.Empty,
	species.OpIfAlly:  types.Ally,
	species.OpIfEnemy: types.Enemy,
	species.OpIfWall:  types.Wall,
}

func operand(ins species.Instruction, i int, kind species.OperandKind) (species.Operand, error) {
	if i >= len(ins.Args) {
		return species.Operand{}, fmt.Errorf("%w: missing %s operand %d", ErrOperandMismatch, kind, i+1)
	}
	o := ins.Args[i]
	if o.Kind != kind {
		return species.Operand{}, fmt.Errorf("%w: operand %d is %s, want %s", ErrOperandMismatch, i+1, o.Kind, kind)
	}
	return o, nil
}

func register(ins species.Instruction, i int) (int, error) {
	o, err := operand(ins, i, species.KindRegister)
	if err != nil {
		return 0, err
	}
	if o.Reg < 0 || o.Reg >= species.NumRegisters {
		return 0, fmt.Errorf("%w: %d", ErrRegisterRange, o.Reg)
	}
	return o.Reg, nil
}

// jumpTarget resolves operand i to a line. Relative offsets count from the
// executing line. The result may lie outside the program; the next fetch then
// ends the turn.
func jumpTarget(ins species.Instruction, i int, st *State) (int, error) {
	o, err := operand(ins, i, species.KindTarget)
	if err != nil {
		return 0, err
	}
	t := o.Target
	switch t.Mode {
	case species.TargetIndirect:
		if t.Value < 0 || t.Value >= species.NumRegisters {
			return 0, fmt.Errorf("%w: %d", ErrRegisterRange, t.Value)
		}
		return clampLine(st.Registers[t.Value]), nil
	case species.TargetForward:
		return clampLine(int64(st.Cursor) + t.Value), nil
	case species.TargetBackward:
		return clampLine(int64(st.Cursor) - t.Value), nil
	case species.TargetAbsolute:
		return clampLine(t.Value), nil
	}
	return 0, fmt.Errorf("%w: target mode %d", ErrOperandMismatch, t.Mode)
}

// clampLine narrows a computed line to int. Any value that does not fit is
// far outside every program, so saturating keeps it out of range.
func clampLine(v int64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}
	if v < math.MinInt {
		return math.MinInt
	}
	return int(v)
}
